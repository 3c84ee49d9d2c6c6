package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/revsplit-go/network"
	"github.com/bitfsorg/revsplit-go/settlement"
	"github.com/bitfsorg/revsplit-go/splitter"
	"github.com/bitfsorg/revsplit-go/tx"
	"github.com/bitfsorg/revsplit-go/wallet"
)

// findNativeEvent returns the native RoyaltyPaid event with the given id.
func findNativeEvent(ctx context.Context, s *splitter.Splitter, id uuid.UUID) (*splitter.PaidEvent, error) {
	events, err := s.Events(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.ID == id && ev.Asset.IsNative() {
			return ev, nil
		}
	}
	return nil, fmt.Errorf("no native distribution %s", id)
}

// rpcConfig ranks flags over the environment, the environment over the config
// file, and the config file over the network's own defaults.
func (a *app) rpcConfig(flags *network.RPCConfig, net *wallet.NetworkConfig) (*network.RPCConfig, error) {
	env := map[string]string{}
	for _, k := range []string{network.EnvRPCURL, network.EnvRPCUser, network.EnvRPCPass} {
		env[k] = a.getenv(k)
	}
	if env[network.EnvRPCURL] == "" {
		env[network.EnvRPCURL] = a.cfg.RPCURL
	}
	// Custom networks have no preset; their file may name the node.
	if _, preset := network.NetworkPresets[a.cfg.Network]; !preset && env[network.EnvRPCURL] == "" && net.Name != wallet.MainNet.Name {
		env[network.EnvRPCURL] = net.RPCURL()
	}
	return network.ResolveConfig(flags, env, a.cfg.Network)
}

// settler wires a Settler to the node and the data directory's bbolt file.
func (a *app) settler(flags *network.RPCConfig, feeRate uint64, withKey bool) (*settlement.Settler, error) {
	net, err := a.resolveNetwork(a.cfg.Network)
	if err != nil {
		return nil, err
	}
	rpcCfg, err := a.rpcConfig(flags, net)
	if err != nil {
		return nil, err
	}
	store, err := settlement.NewBoltStore(a.ledger.DB())
	if err != nil {
		return nil, err
	}
	p := settlement.Params{
		Service: network.NewRPCClient(*rpcCfg, network.WithLogger(a.log)),
		Store:   store,
		Holding: a.splitter.Holding(),
		Mainnet: net.IsMainnet(),
		FeeRate: feeRate,
		Logger:  a.log,
	}
	if withKey {
		kp, err := a.holdingKey()
		if err != nil {
			return nil, err
		}
		p.Key = kp.PrivateKey
	}
	return settlement.New(p)
}

func (a *app) printSettlement(rec *settlement.Record) {
	a.printf("txid %s fee %d\n", rec.TxID, rec.Fee)
	for _, o := range rec.Outputs {
		a.printf("  vout %d  slot %d  %s  %d sat\n", o.Vout, o.Slot, o.Receiver.Hex(), o.Amount)
	}
}

func newSettleCmd(a *app) *cobra.Command {
	var (
		rpc     network.RPCConfig
		feeRate uint64
		dryRun  bool
		wait    bool
		poll    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "settle DISTRIBUTION_ID",
		Short: "Pay a native distribution on chain from the holding address",
		Long: "Pay a native distribution on chain from the holding address.\n\n" +
			"Each distribution is paid at most once: the transaction is recorded in the\n" +
			"data directory before it is broadcast, and a distribution whose payout\n" +
			"already funds the holding address is refused.",
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid distribution id: %w", err)
			}
			if dryRun && wait {
				return fmt.Errorf("--wait needs a broadcast; drop --dry-run")
			}
			if err := a.open(); err != nil {
				return err
			}
			ev, err := findNativeEvent(cmd.Context(), a.splitter, id)
			if err != nil {
				return err
			}
			s, err := a.settler(&rpc, feeRate, true)
			if err != nil {
				return err
			}

			rec, err := s.Settle(cmd.Context(), ev, !dryRun)
			if errors.Is(err, settlement.ErrAlreadySettled) {
				a.printf("already settled in %s\n", rec.TxID)
			}
			if err != nil {
				return err
			}
			a.printSettlement(rec)
			if !rec.Broadcast {
				a.printf("%s\n", rec.RawHex)
				return nil
			}

			if wait {
				rec, err = s.Wait(cmd.Context(), id, poll)
				if err != nil {
					return err
				}
				a.printf("confirmed at height %d\n", rec.BlockHeight)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&rpc.URL, "rpc-url", "", "node JSON-RPC URL (default: $"+network.EnvRPCURL+", config, network preset)")
	cmd.Flags().StringVar(&rpc.User, "rpc-user", "", "node JSON-RPC user")
	cmd.Flags().StringVar(&rpc.Password, "rpc-pass", "", "node JSON-RPC password")
	cmd.Flags().Uint64Var(&feeRate, "fee-rate", tx.DefaultFeeRate, "fee rate in sat/KB")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the signed transaction without broadcasting")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the settlement is mined")
	cmd.Flags().DurationVar(&poll, "poll", settlement.DefaultPollInterval, "confirmation polling interval for --wait")
	return cmd
}

func newSettlementsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settlements",
		Short: "List the recorded settlement transactions",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			store, err := settlement.NewBoltStore(a.ledger.DB())
			if err != nil {
				return err
			}
			recs, err := store.List()
			if err != nil {
				return err
			}
			for _, rec := range recs {
				state := "pending"
				switch {
				case rec.BlockHeight > 0:
					state = fmt.Sprintf("mined@%d", rec.BlockHeight)
				case rec.Broadcast:
					state = "broadcast"
				}
				a.printf("%s  %s  %s  fee %d  outputs %d\n", rec.ID, rec.TxID, state, rec.Fee, len(rec.Outputs))
			}
			return nil
		}),
	}
	return cmd
}
