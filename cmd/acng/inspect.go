package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cuemby/acng/pkg/recipe"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var planCmd = &cobra.Command{
	Use:   "plan [RECIPE...]",
	Short: "Print the resources a run list would converge",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")

		node, err := loadNode(cmd)
		if err != nil {
			return err
		}
		plan, err := recipe.Compile(node, runList(args)...)
		if err != nil {
			return err
		}
		return encode(cmd.OutOrStdout(), format, plan)
	},
}

var attributesCmd = &cobra.Command{
	Use:   "attributes [KEY]",
	Short: "Print the merged node attributes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")

		node, err := loadNode(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return encode(cmd.OutOrStdout(), format, node.Get(args[0]))
		}
		return encode(cmd.OutOrStdout(), format, node.Settings())
	},
}

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "List available recipes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range recipe.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	planCmd.Flags().StringP("output", "o", "yaml", "Output format (yaml, json)")
	attributesCmd.Flags().StringP("output", "o", "yaml", "Output format (yaml, json)")
	rootCmd.AddCommand(recipesCmd)
}

func encode(w io.Writer, format string, v interface{}) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
