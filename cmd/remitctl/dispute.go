package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eigerco/remitchain/internal/remittance"
)

func newDisputeCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispute",
		Short: "Open a dispute against a remittance",
		Long: `Open a dispute against a stored remittance. The evidence is referenced by
its hash only; the evidence itself stays off the ledger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDFlag(cmd)
			if err != nil {
				return err
			}
			openedBy, err := parseAccountFlag(cmd, "opened-by")
			if err != nil {
				return err
			}
			disputeType, _ := cmd.Flags().GetString("type")
			evidence, _ := cmd.Flags().GetString("evidence")
			evidenceHash, err := hex.DecodeString(strings.TrimPrefix(evidence, "0x"))
			if err != nil {
				return fmt.Errorf("--evidence: %w", err)
			}

			d := remittance.OpenDispute{
				ID:           id,
				OpenedBy:     openedBy,
				DisputeType:  remittance.DisputeType(disputeType),
				EvidenceHash: evidenceHash,
			}
			if err := d.Validate(remittance.DefaultLimits()); err != nil {
				return err
			}
			return forward(cmd, opts, remittance.NewCommand(d))
		},
	}
	cmd.Flags().String("id", "", "remittance id")
	cmd.Flags().String("opened-by", "", "account opening the dispute")
	cmd.Flags().String("type", "", "dispute type, e.g. not_received")
	cmd.Flags().String("evidence", "", "hex hash of the off-ledger evidence")
	return cmd
}
