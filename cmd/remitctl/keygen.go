package main

import (
	"crypto/ed25519"

	"github.com/spf13/cobra"

	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/keyfile"
)

func newKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 key file",
		Long: `Generate a new ed25519 identity and write it to --out.

The same key file format is used by nodes, relayers and senders. Existing
files are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			key, err := keyfile.Generate(out)
			if err != nil {
				return err
			}
			acc, err := crypto.AccountIDFromPublicKey(key.Public().(ed25519.PublicKey))
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"account": acc.String(), "file": out})
		},
	}
	cmd.Flags().String("out", "key.json", "path of the new key file")
	return cmd
}
