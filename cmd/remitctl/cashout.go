package main

import (
	"github.com/spf13/cobra"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/remittance"
)

func newCashOutCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cash-out",
		Short: "Request or complete a cash-out",
	}
	cmd.AddCommand(newCashOutRequestCmd(opts), newCashOutCompleteCmd(opts))
	return cmd
}

func newCashOutRequestCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Ask an agent to pay out a remittance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDFlag(cmd)
			if err != nil {
				return err
			}
			agent, err := parseAccountFlag(cmd, "agent")
			if err != nil {
				return err
			}
			timeoutAt, _ := cmd.Flags().GetUint64("timeout-at")

			return forward(cmd, opts, remittance.NewCommand(remittance.RequestCashOut{
				ID:        id,
				Agent:     agent,
				TimeoutAt: chaintime.BlockNumber(timeoutAt),
			}))
		},
	}
	cmd.Flags().String("id", "", "remittance id")
	cmd.Flags().String("agent", "", "cash-out agent account")
	cmd.Flags().Uint64("timeout-at", 0, "block after which the request lapses")
	return cmd
}

func newCashOutCompleteCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a requested cash-out as paid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDFlag(cmd)
			if err != nil {
				return err
			}
			agent, err := parseAccountFlag(cmd, "agent")
			if err != nil {
				return err
			}
			return forward(cmd, opts, remittance.NewCommand(remittance.CompleteCashOut{ID: id, Agent: agent}))
		},
	}
	cmd.Flags().String("id", "", "remittance id")
	cmd.Flags().String("agent", "", "cash-out agent account")
	return cmd
}
