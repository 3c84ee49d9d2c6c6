package main

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/revsplit-go/ledger"
	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/bitfsorg/revsplit-go/splitter"
)

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func newDepositCmd(a *app) *cobra.Command {
	var (
		token string
		from  string
		to    string
	)

	cmd := &cobra.Command{
		Use:   "deposit AMOUNT",
		Short: "Record value arriving at the holding account",
		Long: `Record value arriving at the holding account.

Without --from the amount enters the ledger from outside (a sale, a mint).
With --from it is moved from that ledger account. --to credits another
account instead of the holding account, which is how test payers are funded.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			asset, err := ledger.ParseAsset(token)
			if err != nil {
				return err
			}

			if from != "" {
				if to != "" {
					return fmt.Errorf("--from and --to are exclusive")
				}
				payer, err := revshare.ParseAddress(from)
				if err != nil {
					return err
				}
				if asset.IsNative() {
					err = a.splitter.Deposit(cmd.Context(), payer, amount)
				} else {
					err = a.splitter.DepositToken(cmd.Context(), asset.Token, payer, amount)
				}
				if err != nil {
					return err
				}
				a.printf("deposited %s %s from %s\n", amount.Dec(), asset, payer.Hex())
				return nil
			}

			target := a.splitter.Holding()
			if to != "" {
				if target, err = revshare.ParseAddress(to); err != nil {
					return err
				}
			}
			if err := credit(cmd.Context(), a.ledger, asset, target, amount); err != nil {
				return err
			}
			a.log.Info("credited account",
				zap.Stringer("asset", asset), zap.Stringer("account", target), zap.String("amount", amount.Dec()))
			a.printf("credited %s %s to %s\n", amount.Dec(), asset, target.Hex())
			return nil
		}),
	}
	cmd.Flags().StringVar(&token, "token", "", "token id (default: native)")
	cmd.Flags().StringVar(&from, "from", "", "move the amount from this ledger account")
	cmd.Flags().StringVar(&to, "to", "", "credit this account instead of the holding account")
	return cmd
}

// credit adds external value to an account in its own ledger transaction.
func credit(ctx context.Context, l ledger.Ledger, asset ledger.Asset, to revshare.Address, amount *uint256.Int) error {
	tx, err := l.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.Credit(asset, to, amount); err != nil {
		return err
	}
	return tx.Commit()
}

func newDistributeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Pay out the holding account's balances",
	}

	var caller string
	native := &cobra.Command{
		Use:   "native",
		Short: "Distribute the native balance",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			from, err := a.caller(caller)
			if err != nil {
				return err
			}
			receipt, err := a.splitter.DistributeNative(cmd.Context(), from)
			if err != nil {
				return err
			}
			a.printReceipt(receipt)
			return nil
		}),
	}
	native.Flags().StringVar(&caller, "caller", "", "calling identity (default: configured controller)")

	tokens := &cobra.Command{
		Use:   "tokens TOKEN...",
		Short: "Distribute the balance of each listed token, all or nothing",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			from, err := a.caller(caller)
			if err != nil {
				return err
			}
			ids := make([]revshare.TokenID, len(args))
			for i, arg := range args {
				if ids[i], err = revshare.ParseAddress(arg); err != nil {
					return err
				}
			}
			receipt, err := a.splitter.DistributeTokens(cmd.Context(), from, ids)
			if err != nil {
				return err
			}
			a.printReceipt(receipt)
			return nil
		}),
	}
	tokens.Flags().StringVar(&caller, "caller", "", "calling identity (default: configured controller)")

	cmd.AddCommand(native, tokens)
	return cmd
}

func (a *app) printReceipt(r *splitter.Receipt) {
	a.printf("distribution %s\n", r.ID)
	for _, d := range r.Distributions {
		a.printf("  %s: balance %s, paid %s, dust %s\n", d.Asset, d.Balance.Dec(), d.Total.Dec(), d.Dust.Dec())
		for i, p := range d.Payouts {
			a.printf("  %3d  %s  %s\n", i, p.Receiver.Hex(), p.Amount.Dec())
		}
	}
}

func newBalanceCmd(a *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "balance [ACCOUNT]",
		Short: "Print an account balance (default: the holding account)",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			asset, err := ledger.ParseAsset(token)
			if err != nil {
				return err
			}

			var bal *uint256.Int
			if len(args) == 0 {
				bal, err = a.splitter.Balance(cmd.Context(), asset)
			} else {
				var account revshare.Address
				if account, err = revshare.ParseAddress(args[0]); err != nil {
					return err
				}
				bal, err = a.ledger.Balance(cmd.Context(), asset, account)
			}
			if err != nil {
				return err
			}
			a.printf("%s\n", bal.Dec())
			return nil
		}),
	}
	cmd.Flags().StringVar(&token, "token", "", "token id (default: native)")
	return cmd
}

func newEventsCmd(a *app) *cobra.Command {
	var fromSeq uint64

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List committed royalty events",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			events, err := a.splitter.Events(cmd.Context(), fromSeq)
			if err != nil {
				return err
			}
			for _, ev := range events {
				a.printf("%d %s %s %s total %s dust %s\n", ev.Seq, ev.Name, ev.ID, ev.Asset, ev.Total.Dec(), ev.Dust.Dec())
				for i, r := range ev.Receivers {
					a.printf("  %s  %s\n", r.Hex(), ev.Amounts[i].Dec())
				}
			}
			return nil
		}),
	}
	cmd.Flags().Uint64Var(&fromSeq, "from", 0, "first log sequence to include")
	return cmd
}
