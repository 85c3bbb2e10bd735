package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eigerco/ubjson/pkg/db/pebble"
	"github.com/eigerco/ubjson/pkg/docstore"
	"github.com/eigerco/ubjson/pkg/log"
)

// withStore opens the configured store for the duration of fn.
func (a *app) withStore(fn func(s *docstore.Store) error) (err error) {
	kv, err := pebble.NewKVStore(a.cfg.StorePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := kv.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(docstore.New(kv, a.decoderOptions()...))
}

func (a *app) storeCmd() *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Manage documents in the local store",
	}

	var format string
	putCmd := &cobra.Command{
		Use:   "put <key> [file]",
		Short: "Store a document read from a file or standard input",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[1:])
			if err != nil {
				return err
			}
			v, err := a.parseValue(format, data)
			if err != nil {
				return err
			}
			return a.withStore(func(s *docstore.Store) error {
				return s.Put(args[0], v)
			})
		},
	}
	putCmd.Flags().StringVar(&format, "format", "json", "input format: json, cbor, ubjson")

	var outFormat string
	var indent bool
	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *docstore.Store) error {
				v, err := s.GetValue(args[0])
				if err != nil {
					return err
				}
				out, err := formatValue(outFormat, v, indent)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
	getCmd.Flags().StringVar(&outFormat, "format", "json", "output format: json, cbor, ubjson")
	getCmd.Flags().BoolVar(&indent, "indent", false, "indent JSON output")

	deleteCmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *docstore.Store) error {
				return s.Delete(args[0])
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List stored document keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return a.withStore(func(s *docstore.Store) error {
				keys, err := s.Keys(prefix)
				if err != nil {
					return err
				}
				log.CLI.Debug().Str("prefix", prefix).Int("count", len(keys)).Msg("listed keys")
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}

	storeCmd.AddCommand(putCmd, getCmd, deleteCmd, listCmd)
	return storeCmd
}
