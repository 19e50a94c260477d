package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/identity-mask/internal/signer"
)

func newVerifyCommand() *cobra.Command {
	var receiptPath string
	var inputPath string

	cmd := &cobra.Command{
		Use:         "verify <masked-file>",
		Short:       "Verify a masking receipt against a masked file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(receiptPath)
			if err != nil {
				return fmt.Errorf("read receipt: %w", err)
			}
			var r signer.Receipt
			if err := json.Unmarshal(raw, &r); err != nil {
				return fmt.Errorf("parse receipt: %w", err)
			}

			output, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read masked file: %w", err)
			}
			var input []byte
			if inputPath != "" {
				if input, err = os.ReadFile(inputPath); err != nil {
					return fmt.Errorf("read input file: %w", err)
				}
			}

			addr, err := verifyReceipt(&r, input, inputPath != "", output)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Receipt valid: signed by %s at %s\n",
				addr, time.Unix(0, r.Timestamp).UTC().Format(time.RFC3339))
			rows := make([][]string, 0, len(r.Counts))
			for _, k := range slices.Sorted(maps.Keys(r.Counts)) {
				rows = append(rows, []string{k, strconv.Itoa(r.Counts[k])})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Type", "Mentions"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&receiptPath, "receipt", "r", "", "Receipt JSON file")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Original document, to check the input digest as well")
	_ = cmd.MarkFlagRequired("receipt")
	return cmd
}

// verifyReceipt checks output as written by the CLI, which appends a newline
// to the masked text, before falling back to the exact bytes.
func verifyReceipt(r *signer.Receipt, input []byte, checkInput bool, output []byte) (string, error) {
	check := func(out []byte) (string, error) {
		if checkInput {
			return signer.VerifyInput(r, input, out)
		}
		return signer.Verify(r, out)
	}
	if trimmed, ok := bytes.CutSuffix(output, []byte("\n")); ok {
		addr, err := check(trimmed)
		if !errors.Is(err, signer.ErrDigestMismatch) {
			return addr, err
		}
	}
	return check(output)
}
