package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/identity-mask/internal/config"
)

func newTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "types",
		Short:       "List supported entity types and their masks",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(config.Catalog))
			for _, et := range config.Catalog {
				def := ""
				if et.Default {
					def = "yes"
				}
				rows = append(rows, []string{et.Name, et.Template, def})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Type", "Mask", "Default"}, rows, nil))
			return nil
		},
	}
}
