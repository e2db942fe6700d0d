package main

import (
	"github.com/spf13/cobra"
)

func newFlattenCmd(a *app) *cobra.Command {
	f := &jobFlags{}
	cmd := &cobra.Command{
		Use:   "flatten [input]",
		Short: "Flatten a single-kind record stream into one table",
		Long: `Flatten reads records of one message type from input (a path, an
http(s) URL, or - for stdin) and writes one CSV table, or loads it into a
database with --db. Inputs ending in .gz or .zst are decompressed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := f.toJob(inputArg(args), false)
			return a.runJob(cmd, job)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "output CSV file, - for stdout")
	return cmd
}

func newDemuxCmd(a *app) *cobra.Command {
	f := &jobFlags{}
	cmd := &cobra.Command{
		Use:   "demux [input]",
		Short: "Split a mixed google.protobuf.Any stream into one table per kind",
		Long: `Demux reads google.protobuf.Any records, routes each to the table of
its message type and writes <kind>.csv into the output directory, or one
database table per kind with --db.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := f.toJob(inputArg(args), true)
			return a.runJob(cmd, job)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output directory for <kind>.csv files")
	cmd.Flags().IntVar(&f.workers, "workers", 4, "kinds finalized concurrently")
	return cmd
}
