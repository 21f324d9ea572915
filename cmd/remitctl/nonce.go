package main

import (
	"context"
	"errors"
	"math"

	"github.com/spf13/cobra"

	"github.com/eigerco/remitchain/internal/relayer"
)

func newNonceCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Print the next nonce the relayer would use for a sender",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := parseAccountFlag(cmd, "sender")
			if err != nil {
				return err
			}
			r, client := opts.newRelayer(nil)
			if client != nil {
				defer client.Close() //nolint:errcheck
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			out := nonceOutput{Account: sender.String()}
			next, err := r.NextNonce(ctx, sender)
			switch {
			case errors.Is(err, relayer.ErrNonceExhausted):
				out.Nonce = math.MaxUint64
			case err != nil:
				return err
			default:
				out.Nonce = next - 1
				out.Next = &next
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().String("sender", "", "sender account")
	return cmd
}

// Next is null once the sender has used the largest nonce.
type nonceOutput struct {
	Account string  `json:"account"`
	Nonce   uint64  `json:"nonce"`
	Next    *uint64 `json:"next"`
}
