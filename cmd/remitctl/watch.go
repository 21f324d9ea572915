package main

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/eigerco/remitchain/internal/notify"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/pkg/log"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream ledger events published on NATS",
		Long: `Subscribe to the events a node publishes on NATS and print each journal
entry as a JSON line until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("nats-url")
			subject, _ := cmd.Flags().GetString("subject")

			cfg := notify.DefaultConfig()
			cfg.URL = url
			cfg.Name = "remitctl"
			conn, err := notify.Connect(cfg, log.Root)
			if err != nil {
				return err
			}
			defer conn.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			sub, err := notify.Subscribe(conn, subject, func(e remittance.Entry) {
				if err := enc.Encode(e); err != nil {
					log.Root.Warn().Err(err).Msg("print event")
				}
			}, log.Root)
			if err != nil {
				return err
			}
			defer sub.Unsubscribe() //nolint:errcheck

			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().String("nats-url", nats.DefaultURL, "NATS server URL")
	cmd.Flags().String("subject", notify.DefaultSubjectPrefix, "subject prefix the node publishes under")
	return cmd
}
