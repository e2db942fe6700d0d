package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wes-public-apps/protobuf-db/internal/codegen"
	"github.com/wes-public-apps/protobuf-db/internal/datasource/httpds"
	"github.com/wes-public-apps/protobuf-db/internal/protosrc"
	"github.com/wes-public-apps/protobuf-db/internal/schema"
	"github.com/wes-public-apps/protobuf-db/internal/typetree"
)

type schemaFlags struct {
	descriptors string
	maxDepth    int
	out         string
}

func (f *schemaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.descriptors, "descriptors", "", "FileDescriptorSet path or URL (default: compiled-in types)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "output file, - for stdout")
}

// resolve loads the named message as a schema.
func (f *schemaFlags) resolve(cmd *cobra.Command, name string) (*schema.Message, error) {
	reg, err := loadRegistry(cmd.Context(), f.descriptors, httpds.NewClient(httpds.Config{}))
	if err != nil {
		return nil, err
	}
	mt, err := reg.MessageType(name)
	if err != nil {
		return nil, err
	}
	return protosrc.NewConverter().Message(mt.Descriptor()), nil
}

// write sends text to --out.
func (f *schemaFlags) write(cmd *cobra.Command, fn func(io.Writer) error) error {
	if f.out == "-" {
		return fn(cmd.OutOrStdout())
	}
	w, err := os.Create(f.out)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func newQueryCmd(a *app) *cobra.Command {
	f := &schemaFlags{}
	cmd := &cobra.Command{
		Use:   "query <message>",
		Short: "Print a selection set requesting every leaf of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			q, err := codegen.Query(m, codegen.Options{MaxDepth: f.maxDepth, Logger: a.log})
			if err != nil {
				return err
			}
			return f.write(cmd, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, q)
				return err
			})
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "maximum nesting; required for recursive messages")
	return cmd
}

func newTypesCmd(a *app) *cobra.Command {
	f := &schemaFlags{}
	cmd := &cobra.Command{
		Use:   "types <message>",
		Short: "Print strawberry (Python) types for a message and everything it references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			root := typetree.Build(m)
			return f.write(cmd, func(w io.Writer) error {
				return codegen.WriteTypes(w, root, codegen.Options{Logger: a.log})
			})
		},
	}
	f.register(cmd)
	return cmd
}
