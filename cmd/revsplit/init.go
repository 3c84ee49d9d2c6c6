package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/revsplit-go/config"
	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/bitfsorg/revsplit-go/wallet"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		holding    string
		controller string
		network    string
		rpcURL     string
		mnemonic   string
		words      int
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory, holding key and empty registry",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			path := config.ConfigPath(a.cfg.DataDir)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}

			cfg := a.cfg
			if network != "" {
				cfg.Network = network
			}
			cfg.Controller = controller
			cfg.RPCURL = rpcURL
			cfg.Holding = holding
			if err := config.ValidateConfig(cfg); err != nil {
				return err
			}
			if _, err := a.resolveNetwork(cfg.Network); err != nil {
				return err
			}

			if cfg.Holding == "" {
				addr, phrase, err := a.createHoldingKey(cfg, mnemonic, words)
				if err != nil {
					return err
				}
				cfg.Holding = addr.Hex()
				if phrase != "" {
					a.printf("mnemonic: %s\n", phrase)
				}
			}

			if err := config.SaveConfig(path, cfg); err != nil {
				return err
			}
			a.cfg = cfg
			if err := a.open(); err != nil {
				return err
			}

			a.log.Info("initialized data directory",
				zap.String("datadir", cfg.DataDir), zap.String("network", cfg.Network))
			a.printf("holding: %s\ncontroller: %s\n", a.splitter.Holding().Hex(), a.splitter.Controller().Hex())
			return nil
		}),
	}

	cmd.Flags().StringVar(&controller, "controller", "", "address allowed to change receivers")
	cmd.Flags().StringVar(&holding, "holding", "", "use an existing holding address instead of creating a key")
	cmd.Flags().StringVar(&network, "network", "", "mainnet, testnet, regtest or custom:FILE")
	cmd.Flags().StringVar(&rpcURL, "rpc-url", "", "settlement node JSON-RPC URL")
	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "restore the holding key from this BIP39 mnemonic")
	cmd.Flags().IntVar(&words, "words", 24, "mnemonic length for a new key (12 or 24)")
	_ = cmd.MarkFlagRequired("controller")
	return cmd
}

// createHoldingKey seals a seed into the data directory and returns the
// holding address. phrase is set only when a new mnemonic was generated.
func (a *app) createHoldingKey(cfg config.Config, mnemonic string, words int) (addr revshare.Address, phrase string, err error) {
	password := a.getenv(envPassword)
	if password == "" {
		return addr, "", fmt.Errorf("set %s to seal the holding seed", envPassword)
	}

	if mnemonic == "" {
		bits := wallet.Mnemonic24Words
		if words == 12 {
			bits = wallet.Mnemonic12Words
		}
		if mnemonic, err = wallet.GenerateMnemonic(bits); err != nil {
			return addr, "", err
		}
		phrase = mnemonic
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return addr, "", err
	}
	kp, err := a.holdingKeyFromSeed(cfg.Network, seed)
	if err != nil {
		return addr, "", err
	}
	if _, err := wallet.SaveSeedFile(cfg.DataDir, seed, password); err != nil {
		return addr, "", err
	}
	return kp.Address(), phrase, nil
}

// holdingKey opens the sealed seed and derives the holding key.
func (a *app) holdingKey() (*wallet.KeyPair, error) {
	password := a.getenv(envPassword)
	if password == "" {
		return nil, fmt.Errorf("set %s to open the holding seed", envPassword)
	}
	seed, err := wallet.LoadSeedFile(a.cfg.DataDir, password)
	if err != nil {
		return nil, err
	}
	kp, err := a.holdingKeyFromSeed(a.cfg.Network, seed)
	if err != nil {
		return nil, err
	}
	if kp.Address() != a.splitter.Holding() {
		return nil, fmt.Errorf("sealed seed derives %s, holding account is %s", kp.Address().Hex(), a.splitter.Holding().Hex())
	}
	return kp, nil
}

func (a *app) holdingKeyFromSeed(network string, seed []byte) (*wallet.KeyPair, error) {
	net, err := a.resolveNetwork(network)
	if err != nil {
		return nil, err
	}
	w, err := wallet.NewWallet(seed, net)
	if err != nil {
		return nil, err
	}
	return w.HoldingKey(0)
}
