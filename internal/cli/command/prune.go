package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

// PruneCommand purges orphaned pending snapshot directories: leftovers
// from an aborted or never-finished reception.
func PruneCommand() *cli.Command {
	return &cli.Command{
		Name:   "prune",
		Usage:  "purge pending snapshot directories that don't match the committed snapshot",
		Action: pruneAction,
	}
}

func pruneAction(c *cli.Context) error {
	ctx := context.Background()

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	if err := store.PurgePendingSnapshots(ctx); err != nil {
		return err
	}

	fmt.Println("pending snapshots purged")
	return nil
}
