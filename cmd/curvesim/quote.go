// cmd/curvesim/quote.go
package main

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
)

type quoteOutput struct {
	Side          string `json:"side"`
	Input         uint64 `json:"input"`
	Fee           uint64 `json:"fee"`
	NetInput      uint64 `json:"net_input"`
	Output        uint64 `json:"output"`
	BaseReserves  uint64 `json:"base_reserves_after"`
	QuoteReserves uint64 `json:"quote_reserves_after"`
	SpotPrice     string `json:"spot_price_after"`
	Progress      string `json:"progress_after"`
	Completes     bool   `json:"completes"`
}

func newQuoteCmd(a *app) *cobra.Command {
	var (
		side          string
		amount        uint64
		minOut        uint64
		baseReserves  uint64
		quoteReserves uint64
		printJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price one swap against a curve built from the genesis config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			if cmd.Flags().Changed("base-reserves") {
				c.BaseReserves = baseReserves
			}
			if cmd.Flags().Changed("quote-reserves") {
				c.QuoteReserves = quoteReserves
			}

			out := quoteOutput{Side: side, Input: amount}
			switch side {
			case "buy":
				q, err := curve.QuoteBuy(cfg, c, amount, minOut)
				if err != nil {
					return err
				}
				out.Fee, out.NetInput, out.Output = q.Fee, q.NetInput, q.Output
				if err := c.ApplyBuy(q); err != nil {
					return err
				}
			case "sell":
				q, err := curve.QuoteSell(cfg, c, amount, minOut)
				if err != nil {
					return err
				}
				out.Fee, out.NetInput, out.Output = q.Fee, q.NetInput, q.Output
				if err := c.ApplySell(q); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown side %q, want buy or sell", side)
			}

			out.BaseReserves = c.BaseReserves
			out.QuoteReserves = c.QuoteReserves
			out.SpotPrice = curve.SpotPrice(c).String()
			out.Progress = curve.Progress(cfg, c).String()
			out.Completes = curve.CompletionReached(cfg, c)

			w := cmd.OutOrStdout()
			if printJSON {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal quote: %w", err)
				}
				fmt.Fprintln(w, string(data))
				return nil
			}
			fmt.Fprintf(w, "%s %d: fee %d, net %d, output %d\n", out.Side, out.Input, out.Fee, out.NetInput, out.Output)
			fmt.Fprintf(w, "reserves after: base %d, quote %d\n", out.BaseReserves, out.QuoteReserves)
			fmt.Fprintf(w, "price %s, progress %s, completes %t\n", out.SpotPrice, out.Progress, out.Completes)
			return nil
		},
	}

	cmd.Flags().StringVar(&side, "side", "buy", "buy or sell")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "input amount in base units")
	cmd.Flags().Uint64Var(&minOut, "min-out", 0, "slippage floor")
	cmd.Flags().Uint64Var(&baseReserves, "base-reserves", 0, "start from these real base reserves")
	cmd.Flags().Uint64Var(&quoteReserves, "quote-reserves", 0, "start from these quote reserves")
	cmd.Flags().BoolVar(&printJSON, "json", false, "output in JSON format")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
