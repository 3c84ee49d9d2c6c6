package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/revsplit-go/config"
	"github.com/bitfsorg/revsplit-go/paymail"
	"github.com/bitfsorg/revsplit-go/revshare"
)

func newReceiversCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receivers",
		Short: "Show or replace the receiver configuration",
	}
	cmd.AddCommand(newReceiversSetCmd(a), newReceiversShowCmd(a))
	return cmd
}

func newReceiversSetCmd(a *app) *cobra.Command {
	var (
		caller       string
		dnsUpstream  string
		strictDNSSEC bool
	)

	cmd := &cobra.Command{
		Use:   "set FILE",
		Short: "Replace the receivers with the entries of a YAML file",
		Long: `Replace the receivers with the entries of a YAML file:

  receivers:
    - receiver: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
      bps: 2000
    - receiver: alice@example.com
      bps: 8000

Shares must total 10000 basis points. An empty list disables distribution.
Paymail handles are resolved to the address of their published key.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			from, err := a.caller(caller)
			if err != nil {
				return err
			}

			f, err := config.LoadReceiversFile(args[0])
			if err != nil {
				return err
			}
			opts := []paymail.Option{
				paymail.WithLogger(a.log),
				paymail.WithResolver(paymail.NewDNSSECResolver(dnsUpstream)),
			}
			if strictDNSSEC {
				opts = append(opts, paymail.WithStrictDNSSEC())
			}
			shares, err := f.Resolve(cmd.Context(), paymail.NewClient(opts...))
			if err != nil {
				return err
			}

			if err := a.splitter.UpdateReceivers(cmd.Context(), from, shares); err != nil {
				return err
			}
			a.printf("receivers updated: %d slots\n", len(shares))
			return nil
		}),
	}
	cmd.Flags().StringVar(&caller, "caller", "", "calling identity (default: configured controller)")
	cmd.Flags().StringVar(&dnsUpstream, "dns", "", "DNSSEC-validating resolver for paymail lookups (default 8.8.8.8:53)")
	cmd.Flags().BoolVar(&strictDNSSEC, "strict-dnssec", false, "fail when a paymail SRV answer is not authenticated")
	return cmd
}

func newReceiversShowCmd(a *app) *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the controller and receiver slots",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			entries := a.splitter.Receivers()

			a.printf("holding:    %s\ncontroller: %s\n", a.splitter.Holding().Hex(), a.splitter.Controller().Hex())
			if len(entries) == 0 {
				a.printf("no receivers\n")
			}
			for i, e := range entries {
				a.printf("%3d  %s  %5d bps\n", i, e.Receiver.Hex(), e.ShareBps)
			}

			if export != "" {
				if err := config.SaveReceiversFile(export, entries); err != nil {
					return err
				}
				a.log.Debug("exported receivers", zap.String("path", export))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&export, "export", "", "also write the slots as a receivers file")
	return cmd
}

func newControllerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Manage the controller identity",
	}

	var caller string
	transfer := &cobra.Command{
		Use:   "transfer NEXT",
		Short: "Hand the receivers capability to another identity",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			from, err := a.caller(caller)
			if err != nil {
				return err
			}
			next, err := revshare.ParseAddress(args[0])
			if err != nil {
				return err
			}
			if err := a.splitter.TransferController(cmd.Context(), from, next); err != nil {
				return err
			}

			// Reload so command-line overrides are not persisted.
			path := config.ConfigPath(a.cfg.DataDir)
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			cfg.Controller = next.Hex()
			if err := config.SaveConfig(path, cfg); err != nil {
				return err
			}
			a.cfg.Controller = cfg.Controller
			a.printf("controller: %s\n", next.Hex())
			return nil
		}),
	}
	transfer.Flags().StringVar(&caller, "caller", "", "calling identity (default: configured controller)")
	cmd.AddCommand(transfer)
	return cmd
}
