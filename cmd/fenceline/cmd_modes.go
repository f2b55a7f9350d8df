package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fenceline/fenceline/domain/runmode"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the known run modes",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := make(map[string]bool)
		for _, name := range runmode.DefaultModeNames() {
			defaults[name] = true
		}

		for _, name := range runmode.AllowedModeNames() {
			plan, err := runmode.PlanFor(name, nil)
			if err != nil {
				return err
			}
			marker := " "
			if defaults[name] {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			for _, pair := range sortedEnv(plan.SandboxEnvOverrides) {
				fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", pair)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\n* enabled by default")
		return nil
	},
}

func sortedEnv(env map[string]string) []string {
	pairs := make([]string, 0, len(env))
	for k, v := range env {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return pairs
}

func init() {
	rootCmd.AddCommand(modesCmd)
}
