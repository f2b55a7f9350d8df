package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenceline/fenceline/application/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the capability catalog",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a catalog document against the catalog schema",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.CatalogPath
		if len(args) == 1 {
			path = args[0]
		}
		cat, err := catalog.LoadFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, %d capabilities\n", path, cat.Len())
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List catalog entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.CatalogPath
		if len(args) == 1 {
			path = args[0]
		}
		cat, err := catalog.LoadFile(path)
		if err != nil {
			return err
		}
		for _, entry := range cat.Entries() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/%s\t%s\t%s\n",
				entry.ID, entry.Layer, entry.Category, entry.Status, entry.Level)
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd, catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
