// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

// formatFlags adds --format and its --text shorthand to cmd.
func formatFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", formatJSON, "output format: json, yaml or text")
	cmd.Flags().Bool("text", false, "human-readable text output (same as --format text)")
}

// outputFormat reads the format flags.
func outputFormat(cmd *cobra.Command) (string, error) {
	if text, _ := cmd.Flags().GetBool("text"); text {
		return formatText, nil
	}
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case formatJSON, formatYAML, formatText:
		return format, nil
	case "":
		return formatJSON, nil
	}
	return "", fmt.Errorf("unsupported format %q: use json, yaml or text", format)
}

// writeStructured encodes v as indented JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	return writeStructured(w, formatJSON, v)
}
