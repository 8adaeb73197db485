package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

// ListCommand shows the currently committed snapshot for a partition.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "show the currently committed snapshot",
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	current := store.CurrentSnapshot()
	if current == nil {
		fmt.Println("no committed snapshot")
		return nil
	}

	fmt.Printf("snapshot_id  %s\n", current.Id().String())
	fmt.Printf("path         %s\n", current.Path())
	fmt.Printf("checksum     %d\n", current.Checksum())
	return nil
}
