package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/identity-mask/internal/config"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(opts))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample masks file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = "masks.toml"
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("masks file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check masks path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample masks file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample masks file to %s\n", target)
			fmt.Fprintf(out, "Use it with --masks-file %s or export MASK_TEMPLATES_FILE.\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the masks file (default masks.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")
	return cmd
}

func newConfigValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The root pre-run has already loaded and validated the config.
			cfg := opts.cfg
			mc, err := cfg.MaskConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API URL: %s\n", cfg.APIURL)
			fmt.Fprintf(out, "API keys: %d\n", len(cfg.APIKeys))
			fmt.Fprintf(out, "Entity types: %s\n", strings.Join(slices.Sorted(maps.Keys(mc)), ", "))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
