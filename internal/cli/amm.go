package cli

import (
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/amm"
	"github.com/spf13/cobra"
)

// Market flags
var (
	feeNumerator   uint64
	feeDenominator uint64
)

var ammCmd = &cobra.Command{
	Use:   "amm",
	Short: "Run the constant product market program",
	Long: `A market is keyed by its creator and holds a token vault and a sol vault.
The creator provides liquidity; anyone may swap against the market.`,
}

var ammSetupCmd = &cobra.Command{
	Use:   "setup <token-mint> <sol-mint>",
	Short: "Open a market, signed by the creator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenMint, err := parseAddress("token mint", args[0])
		if err != nil {
			return err
		}
		solMint, err := parseAddress("sol mint", args[1])
		if err != nil {
			return err
		}
		return submitOp(func(creator tx.AccountID) (tx.Transaction, error) {
			return amm.NewAMMSetup(creator, tokenMint, solMint, feeNumerator, feeDenominator), nil
		})
	},
}

var ammAddLiquidityCmd = &cobra.Command{
	Use:   "add-liquidity <token-amount> [sol-amount]",
	Short: "Deposit into the market of the creator",
	Long:  `Deposit into the market of the creator. sol-amount is only used by the first deposit, which sets the price.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, err := parseAmount("token amount", args[0])
		if err != nil {
			return err
		}
		var sol uint64
		if len(args) > 1 {
			if sol, err = parseAmount("sol amount", args[1]); err != nil {
				return err
			}
		}
		return submitOp(func(creator tx.AccountID) (tx.Transaction, error) {
			return amm.NewAddLiquidity(creator, tokens, sol), nil
		})
	},
}

// parseSwap reads <creator> <amount> <direction> from args.
func parseSwap(args []string) (tx.AccountID, uint64, amm.Direction, error) {
	creator, err := parseAddress("creator", args[0])
	if err != nil {
		return tx.AccountID{}, 0, amm.DirectionInvalid, err
	}
	amountIn, err := parseAmount("amount", args[1])
	if err != nil {
		return tx.AccountID{}, 0, amm.DirectionInvalid, err
	}
	dir, err := amm.ParseDirection(args[2])
	if err != nil {
		return tx.AccountID{}, 0, amm.DirectionInvalid, err
	}
	return creator, amountIn, dir, nil
}

var ammSwapCmd = &cobra.Command{
	Use:   "swap <creator> <amount> <sol-to-token|token-to-sol>",
	Short: "Swap against a market, signed by the trader",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		creator, amountIn, dir, err := parseSwap(args)
		if err != nil {
			return err
		}
		return submitOp(func(trader tx.AccountID) (tx.Transaction, error) {
			return amm.NewSwapTokens(trader, creator, amountIn, dir), nil
		})
	},
}

var ammQuoteCmd = &cobra.Command{
	Use:   "quote <creator> <amount> <sol-to-token|token-to-sol>",
	Short: "Price a swap without applying it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		creator, amountIn, dir, err := parseSwap(args)
		if err != nil {
			return err
		}
		return queryMethod("amm_quote", map[string]interface{}{
			"Creator":   creator,
			"AmountIn":  amountIn,
			"Direction": dir,
		})
	},
}

var ammShowCmd = &cobra.Command{
	Use:   "show <creator>",
	Short: "Show a market and its vault balances",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queryMethod("market_info", map[string]interface{}{"Creator": args[0]})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{ammSetupCmd, ammAddLiquidityCmd, ammSwapCmd} {
		addSigningFlags(cmd)
	}
	ammSetupCmd.Flags().Uint64Var(&feeNumerator, "fee-num", 3, "swap fee numerator")
	ammSetupCmd.Flags().Uint64Var(&feeDenominator, "fee-den", 1000, "swap fee denominator")

	ammCmd.AddCommand(ammSetupCmd, ammAddLiquidityCmd, ammSwapCmd, ammQuoteCmd, ammShowCmd)
	rootCmd.AddCommand(ammCmd)
}
