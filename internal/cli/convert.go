package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eigerco/ubjson/pkg/log"
	"github.com/eigerco/ubjson/pkg/serialization/codec"
	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
	"github.com/eigerco/ubjson/pkg/serialization/convert"
)

// parseValue reads data in the given format into a Value.
func (a *app) parseValue(format string, data []byte) (ubjson.Value, error) {
	switch strings.ToLower(format) {
	case "json":
		return convert.FromJSON(data)
	case "cbor":
		return convert.FromCBOR(data)
	}
	c, err := codec.ByName(format, a.decoderOptions()...)
	if err != nil {
		return ubjson.Value{}, err
	}
	var v ubjson.Value
	if err := c.Unmarshal(data, &v); err != nil {
		return ubjson.Value{}, err
	}
	return v, nil
}

// formatValue writes v in the given format.
func formatValue(format string, v ubjson.Value, indent bool) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		out, err := convert.ToJSON(v, indent)
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "cbor":
		return convert.ToCBOR(v)
	}
	c, err := codec.ByName(format)
	if err != nil {
		return nil, err
	}
	return c.Marshal(v)
}

func (a *app) transcode(cmd *cobra.Command, args []string, from, to string, indent bool) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	v, err := a.parseValue(from, data)
	if err != nil {
		return fmt.Errorf("reading %s: %w", from, err)
	}
	out, err := formatValue(to, v, indent)
	if err != nil {
		return fmt.Errorf("writing %s: %w", to, err)
	}
	log.CLI.Debug().Str("from", from).Str("to", to).Int("in", len(data)).Int("out", len(out)).Msg("converted")
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func (a *app) encodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode JSON (comments allowed) as UBJSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transcode(cmd, args, "json", "ubjson", false)
		},
	}
}

func (a *app) decodeCmd() *cobra.Command {
	var indent bool
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode UBJSON into JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transcode(cmd, args, "ubjson", "json", indent)
		},
	}
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the JSON output")
	return cmd
}

func (a *app) convertCmd() *cobra.Command {
	var from, to string
	var indent bool
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a document between json, cbor and ubjson",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transcode(cmd, args, from, to, indent)
		},
	}
	formats := strings.Join(codec.Names(), ", ")
	cmd.Flags().StringVar(&from, "from", "json", "input format: "+formats)
	cmd.Flags().StringVar(&to, "to", "ubjson", "output format: "+formats)
	cmd.Flags().BoolVar(&indent, "indent", false, "indent JSON output")
	return cmd
}
