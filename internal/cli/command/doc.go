// Package command provides the snapshotctl subcommands: list, take,
// prune, and inspect.
package command
