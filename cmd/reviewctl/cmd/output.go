package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// printResult writes v in the selected format. Values pass through JSON
// first so that fields hidden from JSON, like raw tokens, never print.
func printResult(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	case formatYAML, "":
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
