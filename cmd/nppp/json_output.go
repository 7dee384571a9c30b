package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v as YAML to the command's stdout.
func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeStructured writes v as JSON or YAML when either flag is set and
// reports whether it did.
func writeStructured(cmd *cobra.Command, v any, asJSON, asYAML bool) (bool, error) {
	switch {
	case asJSON:
		return true, writeJSON(cmd, v)
	case asYAML:
		return true, writeYAML(cmd, v)
	default:
		return false, nil
	}
}
