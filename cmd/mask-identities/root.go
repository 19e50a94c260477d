package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/identity-mask/internal/config"
	"github.com/gonkalabs/identity-mask/internal/credential"
)

// promptKey asks for an API key when none is configured.
var promptKey credential.Prompter = credential.TerminalPrompt

type rootOptions struct {
	input     string
	uri       bool
	key       string
	apiURL    string
	language  string
	types     []string
	masksFile string
	cachePath string
	receipt   string

	cfg *config.Cfg
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "mask-identities",
		Short: "Mask personal identifiers in a document",
		Long: "Extracts entities from the input document and replaces every mention of a\n" +
			"selected entity type with its mask. The result is printed to stdout.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			slog.Debug("config loaded", "cfg", cfg.String())
			opts.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMask(cmd, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "File containing the document (stdin when omitted); with -u, the URI")
	flags.BoolVarP(&opts.uri, "content-uri", "u", false, "Treat the input as a URI for the service to fetch")
	flags.StringVar(&opts.receipt, "receipt", "", "Write a signed masking receipt to this path (needs MASK_SIGNING_KEY)")

	pflags := rootCmd.PersistentFlags()
	pflags.StringVarP(&opts.key, "key", "k", "", "Extraction service API key (ROSETTE_USER_KEY takes precedence)")
	pflags.StringVarP(&opts.apiURL, "api-url", "a", "", "Alternative extraction service URL")
	pflags.StringVarP(&opts.language, "language", "l", "", "Three-letter ISO 639-2/T code overriding language detection")
	pflags.StringSliceVarP(&opts.types, "entity-types", "t", nil, "Entity types to mask (repeat or comma-separate; see 'types')")
	pflags.StringVar(&opts.masksFile, "masks-file", "", "TOML file with entity types and mask templates")
	pflags.StringVar(&opts.cachePath, "cache", "", "SQLite file caching extraction results")

	rootCmd.AddCommand(newTypesCommand())
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(newVerifyCommand())

	return rootCmd
}

// loadConfig reads the environment and applies command-line overrides.
func (o *rootOptions) loadConfig() (*config.Cfg, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.masksFile != "" {
		if err := cfg.ApplyMasksFile(o.masksFile); err != nil {
			return nil, err
		}
	}
	if o.apiURL != "" {
		cfg.APIURL = o.apiURL
	}
	if o.language != "" {
		cfg.Language = o.language
	}
	if len(o.types) > 0 {
		cfg.EntityTypes = o.types
	}
	if o.cachePath != "" {
		cfg.CachePath = o.cachePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
