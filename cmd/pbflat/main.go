// Command pbflat flattens protobuf record streams into CSV files or database
// tables, and renders queries and Python types from message schemas.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wes-public-apps/protobuf-db/internal/logging"

	// register all backends with the storage factory.
	_ "github.com/wes-public-apps/protobuf-db/internal/storage/all"
)

// app holds state shared by every subcommand.
type app struct {
	verbose bool
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "pbflat",
		Short: "Flatten protobuf records into tables",
		Long: `pbflat turns streams of protobuf messages into rectangular tables.

Every leaf of a record becomes a column named by its path (a.b[0].c,
m["key"]). Columns are added as new paths appear; rows written before a
column existed are padded when the table is finalized.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(a.verbose)
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(
		newFlattenCmd(a),
		newDemuxCmd(a),
		newQueryCmd(a),
		newTypesCmd(a),
		newRunCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "pbflat:", err)
		os.Exit(1)
	}
}
