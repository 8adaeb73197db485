package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapkeep-go/internal/storage/demo"
)

// TakeCommand snapshots the demo key-value state machine and persists it
// through the engine, the same end-to-end path a real workflow state
// machine would exercise via TransientSnapshot.
func TakeCommand() *cli.Command {
	return &cli.Command{
		Name:  "take",
		Usage: "take a snapshot of the demo key-value state machine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "demo-dir",
				Usage: "demo key-value store data directory",
				Value: "./data/demo",
			},
			&cli.Uint64Flag{
				Name:  "index",
				Usage: "snapshot index (defaults to one past the current committed index)",
			},
			&cli.Uint64Flag{
				Name:  "term",
				Usage: "snapshot term",
				Value: 1,
			},
		},
		Action: takeAction,
	}
}

const demoBackupFileName = "demo.badger.bak"

func takeAction(c *cli.Context) error {
	ctx := context.Background()

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	demoStore, err := demo.Open(demo.DefaultConfig(c.String("demo-dir")), nil)
	if err != nil {
		return fmt.Errorf("open demo store: %w", err)
	}
	defer demoStore.Close()

	index := c.Uint64("index")
	if index == 0 {
		if current := store.CurrentSnapshot(); current != nil {
			index = current.Id().Index + 1
		} else {
			index = 1
		}
	}
	term := c.Uint64("term")

	ts, err := store.NewTransientSnapshot(index, term, 0, 0)
	if err != nil {
		return err
	}
	if ts == nil {
		return fmt.Errorf("snapshotctl: index %d term %d is not newer than the committed snapshot", index, term)
	}

	_, err = ts.Take(func(path string) bool {
		f, err := os.Create(filepath.Join(path, demoBackupFileName))
		if err != nil {
			return false
		}
		defer f.Close()
		return demoStore.Backup(ctx, f) == nil
	}).Get()
	if err != nil {
		return err
	}

	persisted, err := ts.Persist().Get()
	if err != nil {
		return err
	}

	fmt.Printf("committed snapshot %s\n", persisted.Id().String())
	return nil
}
