package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newReceiptCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Print the outcome of a submission made with --idempotency-key",
		Long: `Look up the receipt stored for an idempotency key. Receipts are shared
between relayer processes only when --redis is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _ := cmd.Flags().GetString("key")
			if key == "" {
				return fmt.Errorf("--key is required")
			}
			r, client := opts.newRelayer(nil)
			if client != nil {
				defer client.Close() //nolint:errcheck
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			receipt, err := r.Receipt(ctx, key)
			if err != nil {
				return err
			}
			return printJSON(cmd, receipt)
		},
	}
	cmd.Flags().String("key", "", "idempotency key given to submit")
	return cmd
}
