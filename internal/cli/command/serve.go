package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapkeep-go/internal/infra/confloader"
	"github.com/yndnr/snapkeep-go/internal/infra/shutdown"
	"github.com/yndnr/snapkeep-go/internal/storage/snapshot"
)

// ServeCommand hosts a Factory over one or more partitions and blocks until
// a shutdown signal arrives, closing every open store through a
// shutdown.Handler. Settings are loaded once at startup via confloader:
// defaults (with the data root taken from the global --root flag), then the
// --config file on top. The loader also reads SNAPKEEP_ env vars, but it
// turns "_" into "." in their names, so none of them reaches the
// underscore-named settings keys. --partitions only selects which
// partitions to open. With --watch-config, a confloader.Watcher live-reloads
// the reception rate limit from the same file without a restart, and its
// Stop is registered as a shutdown hook next to Factory.CloseAll.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "host snapshot stores for one or more partitions until terminated",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "partitions",
				Usage:    "comma-separated list of partition ids to host",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a YAML settings file (data_roots, node_id, reception_bytes_per_second)",
				EnvVars: []string{"SNAPKEEP_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "watch-config",
				Usage: "live-reload the reception rate limit when --config changes on disk",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "time allotted to close all stores after a shutdown signal",
				Value: 30 * time.Second,
			},
		},
		Action: serveAction,
	}
}

func loadSettings(c *cli.Context) (snapshot.Settings, error) {
	settings := snapshot.DefaultSettings(c.String("root"), "snapshotctl")

	opts := []confloader.Option{confloader.WithEnvPrefix(confloader.DefaultEnvPrefix)}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(&settings); err != nil {
		return snapshot.Settings{}, fmt.Errorf("snapshotctl: load settings: %w", err)
	}
	return settings, nil
}

func serveAction(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}

	factory := snapshot.NewFactory(settings.NodeId, settings.DataRoots, nil)
	factory.SetReceptionRateLimit(settings.ReceptionBytesPerSecond)

	partitionIds := strings.Split(c.String("partitions"), ",")
	for _, id := range partitionIds {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := factory.GetConstructableSnapshotStore(id); err != nil {
			return fmt.Errorf("snapshotctl: open partition %s: %w", id, err)
		}
	}

	h := shutdown.NewHandler(c.Duration("shutdown-timeout"))

	configPath := c.String("config")
	if c.Bool("watch-config") && configPath != "" {
		watcher, err := confloader.NewWatcher()
		if err != nil {
			return fmt.Errorf("snapshotctl: create config watcher: %w", err)
		}
		if err := watcher.Watch(configPath); err != nil {
			return fmt.Errorf("snapshotctl: watch %s: %w", configPath, err)
		}
		watcher.OnChange(func(string) {
			reloaded, err := loadSettings(c)
			if err != nil {
				return
			}
			factory.SetReceptionRateLimit(reloaded.ReceptionBytesPerSecond)
		})
		watcher.StartAsync()
		h.OnShutdown(func(ctx context.Context) error {
			return watcher.Stop()
		})
	}

	h.OnShutdown(factory.CloseAll)

	fmt.Printf("serving %d partition(s) under %v, waiting for shutdown signal\n", len(partitionIds), settings.DataRoots)
	return h.Wait()
}
