// Package command provides CLI command definitions for snapshotctl.
//
// It uses urfave/cli/v2 for command parsing. Every subcommand operates
// directly on a partition's on-disk snapshot store; there is no remote
// admin API to connect to.
package command

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapkeep-go/internal/infra/buildinfo"
	"github.com/yndnr/snapkeep-go/internal/storage/snapshot"
)

// App creates the snapshotctl CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "snapshotctl",
		Usage:   "operator tool for the snapshot transfer and persistence engine",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ListCommand(),
			TakeCommand(),
			PruneCommand(),
			InspectCommand(),
			ServeCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "snapshot store data root directory",
			EnvVars: []string{"SNAPKEEP_ROOT"},
			Value:   "./data",
		},
		&cli.StringFlag{
			Name:    "partition",
			Aliases: []string{"p"},
			Usage:   "partition id",
			EnvVars: []string{"SNAPKEEP_PARTITION"},
			Value:   "1",
		},
	}
}

// openStore opens the store for the partition named by the --partition
// flag, rooted under --root/partitions/<id>, the same layout Factory uses.
func openStore(c *cli.Context) (*snapshot.Store, error) {
	root := c.String("root")
	partitionId := c.String("partition")
	if partitionId == "" {
		return nil, fmt.Errorf("snapshotctl: --partition is required")
	}

	partitionRoot := filepath.Join(root, "partitions", partitionId)
	return snapshot.OpenStore(partitionRoot, snapshot.Config{
		StoreName:   "snapshotctl",
		PartitionId: partitionId,
	}, nil)
}
