package cli

import (
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/escrow"
	"github.com/spf13/cobra"
)

var escrowCmd = &cobra.Command{
	Use:   "escrow",
	Short: "Run the two-party escrow program",
	Long: `A deal is keyed by (player, beneficiary, mint). The player sets it up,
both parties deposit the same amount, and the deal ends with either a
payout of both deposits to a winner or a pull back to each party.`,
}

// parseDeal reads the (player, beneficiary, mint) triple from args.
func parseDeal(args []string) (escrow.Deal, error) {
	var (
		d   escrow.Deal
		err error
	)
	if d.Player, err = parseAddress("player", args[0]); err != nil {
		return d, err
	}
	if d.Beneficiary, err = parseAddress("beneficiary", args[1]); err != nil {
		return d, err
	}
	d.Mint, err = parseAddress("mint", args[2])
	return d, err
}

var escrowSetupCmd = &cobra.Command{
	Use:   "setup <beneficiary> <mint>",
	Short: "Open a deal, signed by the player",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		beneficiary, err := parseAddress("beneficiary", args[0])
		if err != nil {
			return err
		}
		mint, err := parseAddress("mint", args[1])
		if err != nil {
			return err
		}
		return submitOp(func(player tx.AccountID) (tx.Transaction, error) {
			return escrow.NewTransactionSetup(player, beneficiary, mint), nil
		})
	},
}

var escrowDepositCmd = &cobra.Command{
	Use:   "deposit <player> <beneficiary> <mint> <amount>",
	Short: "Deposit amount from each party, signed by both",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseDeal(args)
		if err != nil {
			return err
		}
		amt, err := parseAmount("amount", args[3])
		if err != nil {
			return err
		}
		return submitOp(func(account tx.AccountID) (tx.Transaction, error) {
			return escrow.NewDepositByBothParties(account, d, amt), nil
		})
	},
}

var escrowSettleCmd = &cobra.Command{
	Use:   "settle <player> <beneficiary> <mint> <winner>",
	Short: "Pay both deposits to the winner and close the deal",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseDeal(args)
		if err != nil {
			return err
		}
		winner, err := parseAddress("winner", args[3])
		if err != nil {
			return err
		}
		return submitOp(func(account tx.AccountID) (tx.Transaction, error) {
			return escrow.NewTransferToWinner(account, d, winner), nil
		})
	},
}

var escrowPullBackCmd = &cobra.Command{
	Use:   "pullback <player> <beneficiary> <mint>",
	Short: "Return each deposit to its party and close the deal",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseDeal(args)
		if err != nil {
			return err
		}
		return submitOp(func(account tx.AccountID) (tx.Transaction, error) {
			return escrow.NewPullBack(account, d), nil
		})
	},
}

var escrowShowCmd = &cobra.Command{
	Use:   "show <player> <beneficiary> <mint>",
	Short: "Show a deal and its journal",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseDeal(args)
		if err != nil {
			return err
		}
		return queryMethod("escrow_info", d)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{escrowSetupCmd, escrowDepositCmd, escrowSettleCmd, escrowPullBackCmd} {
		addSigningFlags(cmd)
	}
	escrowCmd.AddCommand(escrowSetupCmd, escrowDepositCmd, escrowSettleCmd, escrowPullBackCmd, escrowShowCmd)
	rootCmd.AddCommand(escrowCmd)
}
