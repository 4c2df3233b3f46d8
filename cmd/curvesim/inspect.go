// cmd/curvesim/inspect.go
package main

import (
	"encoding/hex"
	"fmt"
	"text/tabwriter"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/pumpcurve/internal/accounts"
	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/liquidity"
	"github.com/rovshanmuradov/pumpcurve/internal/storage/models"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [mint]",
		Short: "Show the derived accounts and initial curve layout of a market",
		Long: `inspect derives the program accounts of a market for mint (a fresh
key when omitted), the migration pool address and the Borsh encoding of the
curve the market starts with.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint := solana.NewWallet().PublicKey()
			if len(args) == 1 {
				var err error
				if mint, err = solana.PublicKeyFromBase58(args[0]); err != nil {
					return fmt.Errorf("invalid mint: %w", err)
				}
			}

			g := a.cfg.Genesis
			_, feeRecipient, baseAsset, err := g.Keys(func() solana.PublicKey { return solana.NewWallet().PublicKey() })
			if err != nil {
				return err
			}
			cfg, err := curve.NewGlobalConfiguration(solana.NewWallet().PublicKey(), g.InitParams(baseAsset, feeRecipient))
			if err != nil {
				return err
			}
			c, err := curve.NewBondingCurve(cfg)
			if err != nil {
				return err
			}

			globalAddr, err := accounts.GlobalConfigAddress(accounts.ProgramID)
			if err != nil {
				return err
			}
			addrs, err := accounts.DeriveMarket(accounts.ProgramID, mint)
			if err != nil {
				return err
			}
			token0, token1 := curve.SortTokens(baseAsset, mint)
			pool, err := liquidity.PoolAddress(liquidity.CPSwapProgramID, token0, token1)
			if err != nil {
				return err
			}
			data, err := models.EncodeBondingCurve(c)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "program\t%s\n", accounts.ProgramID)
			fmt.Fprintf(w, "global config\t%s\n", globalAddr)
			fmt.Fprintf(w, "mint\t%s\n", mint)
			fmt.Fprintf(w, "bonding curve\t%s\n", addrs.BondingCurve)
			fmt.Fprintf(w, "pool vault\t%s\n", addrs.PoolVault)
			fmt.Fprintf(w, "migration pool\t%s\n", pool)
			fmt.Fprintf(w, "token0 / token1\t%s / %s\n", token0, token1)
			fmt.Fprintf(w, "invariant\t%s\n", c.InvariantValue().Dec())
			fmt.Fprintf(w, "spot price\t%s\n", curve.SpotPrice(c))
			fmt.Fprintf(w, "creation rent\t%d\n", curve.CreationRent)
			fmt.Fprintf(w, "curve account (%d bytes)\t%s\n", len(data), hex.EncodeToString(data))
			return w.Flush()
		},
	}
}
