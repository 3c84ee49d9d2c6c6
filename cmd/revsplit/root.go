package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd(out io.Writer, getenv func(string) string) *cobra.Command {
	a := &app{out: out, getenv: getenv}

	root := &cobra.Command{
		Use:           "revsplit",
		Short:         "Split a holding account's balances among weighted receivers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.dataDir, "datadir", "", "data directory (default $REVSPLIT_DATADIR or ~/.revsplit)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newInitCmd(a),
		newReceiversCmd(a),
		newControllerCmd(a),
		newDepositCmd(a),
		newDistributeCmd(a),
		newBalanceCmd(a),
		newEventsCmd(a),
		newSettleCmd(a),
		newSettlementsCmd(a),
	)
	return root
}
