package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fenceline/fenceline/application/schema"
)

var schemaFlags struct {
	outDir string
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export reference JSON Schemas reflected from the record and catalog types",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, docs := schema.Reference()
		for _, name := range names {
			out, err := schema.Generate(docs[name])
			if err != nil {
				return fmt.Errorf("schema %s: %w", name, err)
			}
			if schemaFlags.outDir == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "// %s\n%s\n", name, out)
				continue
			}
			if err := os.MkdirAll(schemaFlags.outDir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(schemaFlags.outDir, name+".schema.json")
			if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVar(&schemaFlags.outDir, "out", "", "directory to write schema files into (stdout when empty)")
	rootCmd.AddCommand(schemaCmd)
}
