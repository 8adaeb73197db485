package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapkeep-go/internal/storage/snapshot"
)

// InspectCommand re-verifies the currently committed snapshot's integrity
// and lists its content files, the same check the store performs on
// recovery after a restart.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:   "inspect",
		Usage:  "verify the committed snapshot's checksum and list its files",
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	ctx := context.Background()

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	current := store.CurrentSnapshot()
	if current == nil {
		fmt.Println("no committed snapshot")
		return nil
	}

	reader, err := current.NewChunkReader()
	if err != nil {
		return err
	}

	var total int
	for {
		chunk, ok, err := reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fmt.Printf("%s\t%d bytes\n", chunk.ChunkName, len(chunk.Content))
		total++
	}

	recomputed, err := snapshot.AggregateChecksum(current.Path())
	if err != nil {
		return err
	}
	if recomputed != current.Checksum() {
		return fmt.Errorf("snapshotctl: checksum mismatch for %s: declared %d, recomputed %d",
			current.Id().String(), current.Checksum(), recomputed)
	}

	fmt.Printf("\n%s: %d files verified, checksum %d OK\n", current.Id().String(), total, recomputed)
	return nil
}
