package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/keyfile"
	"github.com/eigerco/remitchain/internal/relayer"
	"github.com/eigerco/remitchain/internal/remittance"
)

func newSubmitCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a remittance on behalf of a sender",
		Long: `Sign a remittance with the sender key, forward it to the node and print
the remittance id.

Without --nonce the next nonce is taken from the relayer nonce cache. Use
--redis to share that cache between relayer processes.

With --idempotency-key a repeated submission of the same remittance prints
the first outcome instead of reaching the node again. Reusing the key for a
different remittance fails.`,
		Example: `  remitctl submit --sender-key alice.json --recipient 0x... \
    --asset USDC --amount 25.00 --corridor US-KE --deadline 1200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, key, err := submitFromFlags(cmd, opts.chainID)
			if err != nil {
				return err
			}

			sess, err := opts.connect()
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			idempotencyKey, _ := cmd.Flags().GetString("idempotency-key")
			// a repeated keyed submission reuses its first nonce so the payload matches
			if s.Nonce == 0 && idempotencyKey != "" {
				prior, err := sess.relayer.Receipt(ctx, idempotencyKey)
				switch {
				case err == nil:
					s.Nonce = prior.Nonce
				case !errors.Is(err, relayer.ErrReceiptNotFound):
					return err
				}
			}
			if s.Nonce == 0 {
				if s.Nonce, err = sess.relayer.NextNonce(ctx, s.Sender); err != nil {
					return err
				}
			}
			s = relayer.Authorize(s, key)

			if idempotencyKey != "" {
				receipt, err := sess.relayer.SubmitOnce(ctx, idempotencyKey, s)
				if err != nil {
					return fmt.Errorf("submit: %w", err)
				}
				return printJSON(cmd, commandOutput{
					RequestID: receipt.RequestID.String(),
					Command:   remittance.KindSubmit.String(),
					ID:        receipt.ID.String(),
					Nonce:     receipt.Nonce,
				})
			}

			requestID, id, err := sess.relayer.Submit(ctx, s)
			if err != nil {
				return fmt.Errorf("submit (request %s): %w", requestID, err)
			}
			return printJSON(cmd, commandOutput{
				RequestID: requestID.String(),
				Command:   remittance.KindSubmit.String(),
				ID:        id.String(),
				Nonce:     s.Nonce,
			})
		},
	}

	flags := cmd.Flags()
	flags.String("sender-key", "", "key file of the sender authorizing the remittance")
	flags.String("recipient", "", "recipient account")
	flags.String("asset", "", "asset identifier")
	flags.String("amount", "", "amount, as an opaque decimal string")
	flags.String("corridor", "", "corridor, e.g. US-KE")
	flags.Uint64("nonce", 0, "sender nonce; 0 takes the next one from the nonce cache")
	flags.Uint64("deadline", 0, "last block at which the remittance may be accepted")
	flags.String("idempotency-key", "", "key under which the outcome is kept; repeats return it")
	return cmd
}

func submitFromFlags(cmd *cobra.Command, chainID uint64) (remittance.Submit, ed25519.PrivateKey, error) {
	flags := cmd.Flags()
	keyPath, _ := flags.GetString("sender-key")
	if keyPath == "" {
		return remittance.Submit{}, nil, fmt.Errorf("--sender-key is required")
	}
	recipient, err := parseAccountFlag(cmd, "recipient")
	if err != nil {
		return remittance.Submit{}, nil, err
	}
	asset, _ := flags.GetString("asset")
	amount, _ := flags.GetString("amount")
	corridor, _ := flags.GetString("corridor")
	nonce, _ := flags.GetUint64("nonce")
	deadline, _ := flags.GetUint64("deadline")
	if amount == "" {
		return remittance.Submit{}, nil, fmt.Errorf("--amount is required")
	}

	key, err := keyfile.Read(keyPath)
	if err != nil {
		return remittance.Submit{}, nil, fmt.Errorf("load sender key: %w", err)
	}
	sender, err := crypto.AccountIDFromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return remittance.Submit{}, nil, err
	}

	s := remittance.Submit{
		Sender:    sender,
		Recipient: recipient,
		AssetID:   remittance.AssetID(asset),
		Amount:    remittance.Amount(amount),
		Corridor:  remittance.Corridor(corridor),
		Nonce:     nonce,
		Deadline:  chaintime.BlockNumber(deadline),
		ChainID:   chainID,
	}
	if err := s.Validate(remittance.DefaultLimits()); err != nil {
		return remittance.Submit{}, nil, err
	}
	return s, key, nil
}
