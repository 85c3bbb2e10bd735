package cli

import (
	"github.com/spf13/cobra"

	"github.com/eigerco/ubjson/pkg/serialization/dump"
)

func (a *app) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump [file]",
		Short: "Print an annotated listing of UBJSON input",
		Long: `Print one line per value: its offset in hex, the markers it was read
from and its payload. Container entries are indented under their container.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return dump.Dump(cmd.OutOrStdout(), data, a.decoderOptions()...)
		},
	}
}
