package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/identity-mask/internal/cache"
	"github.com/gonkalabs/identity-mask/internal/config"
	"github.com/gonkalabs/identity-mask/internal/content"
	"github.com/gonkalabs/identity-mask/internal/credential"
	"github.com/gonkalabs/identity-mask/internal/extract"
	"github.com/gonkalabs/identity-mask/internal/mask"
	"github.com/gonkalabs/identity-mask/internal/signer"
)

func runMask(cmd *cobra.Command, opts *rootOptions) error {
	cfg := opts.cfg
	mc, err := cfg.MaskConfig()
	if err != nil {
		return err
	}
	tpls, err := mask.Compile(mc)
	if err != nil {
		return err
	}

	// Fail before the paid extraction call when a receipt cannot be produced.
	var sig *signer.Signer
	if opts.receipt != "" {
		if cfg.SigningKey == "" {
			return errors.New("--receipt requires MASK_SIGNING_KEY")
		}
		if sig, err = signer.New(cfg.SigningKey); err != nil {
			return err
		}
	}

	src, err := content.Load(opts.input, opts.uri, cmd.InOrStdin())
	if err != nil {
		return err
	}

	keys, err := credential.Keys(cfg.APIKeys, opts.key, promptKey)
	if err != nil {
		return err
	}
	ex, closeFn, err := newExtractor(cfg, keys)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintln(cmd.ErrOrStderr(), "Extracting entities ...")
	doc, err := ex.Entities(cmd.Context(), extract.Request{Content: src.Text, URI: src.URI, Language: cfg.Language})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Done!")

	res := mask.Apply(doc, tpls)
	slog.Info("masked document", "counts", res.Counts)
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), res.Masked); err != nil {
		return err
	}

	if sig != nil {
		receipt, err := sig.Sign([]byte(doc.Data), []byte(res.Masked), res.Counts)
		if err != nil {
			return err
		}
		if err := writeReceipt(opts.receipt, receipt); err != nil {
			return err
		}
		slog.Info("receipt written", "path", opts.receipt, "signer", receipt.Signer)
	}
	return nil
}

// newExtractor builds the extraction client, fronted by the cache when one
// is configured. The returned func releases the cache.
func newExtractor(cfg *config.Cfg, keys []string) (extract.Extractor, func(), error) {
	pool, err := credential.NewPool(keys)
	if err != nil {
		return nil, nil, err
	}
	client := extract.New(cfg.APIURL, pool)
	if cfg.CachePath == "" {
		return client, func() {}, nil
	}

	store, err := cache.Open(cfg.CachePath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			slog.Warn("cache close failed", "err", err)
		}
	}
	return cache.Wrap(client, store, client.URL()), closeFn, nil
}

func writeReceipt(path string, r *signer.Receipt) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	if err := encodeJSON(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write receipt: %w", err)
	}
	return f.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
