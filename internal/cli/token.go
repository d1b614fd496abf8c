package cli

import (
	"fmt"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
	"github.com/spf13/cobra"
)

// Token flags
var (
	mintDecimals uint8
	ownerAddr    string
	mintAddr     string
)

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Create mints and issue tokens",
}

var mintCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a mint issued by the first --key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitOp(func(account tx.AccountID) (tx.Transaction, error) {
			op := token.NewCreateMint(account, account, args[0], mintDecimals)
			fmt.Printf("mint address: %s\n", op.Address())
			return op, nil
		})
	},
}

var mintToCmd = &cobra.Command{
	Use:   "to <mint> <destination-token-account> <amount>",
	Short: "Issue tokens, signed by the mint authority",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := parseAddress("mint", args[0])
		if err != nil {
			return err
		}
		dest, err := parseAddress("destination", args[1])
		if err != nil {
			return err
		}
		amt, err := parseAmount("amount", args[2])
		if err != nil {
			return err
		}
		return submitOp(func(account tx.AccountID) (tx.Transaction, error) {
			return token.NewMintTo(account, mint, dest, amt), nil
		})
	},
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage token accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create <mint>",
	Short: "Open an associated token account, paid by the first --key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := parseAddress("mint", args[0])
		if err != nil {
			return err
		}
		return submitOp(func(payer tx.AccountID) (tx.Transaction, error) {
			owner := payer
			if ownerAddr != "" {
				if owner, err = parseAddress("owner", ownerAddr); err != nil {
					return nil, err
				}
			}
			fmt.Printf("token account: %s\n", keylet.AssociatedTokenAccount(owner, mint).Key)
			return token.NewCreateTokenAccount(payer, owner, mint), nil
		})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <source> <destination> <amount>",
	Short: "Move tokens between token accounts, signed by the source owner",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := parseAddress("source", args[0])
		if err != nil {
			return err
		}
		dst, err := parseAddress("destination", args[1])
		if err != nil {
			return err
		}
		amt, err := parseAmount("amount", args[2])
		if err != nil {
			return err
		}
		return submitOp(func(owner tx.AccountID) (tx.Transaction, error) {
			return token.NewTokenTransfer(owner, src, dst, amt), nil
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show the native balance of an account and, with --mint, its token holding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{"account": args[0]}
		if mintAddr != "" {
			params["mint"] = mintAddr
		}
		return queryMethod("account_info", params)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{mintCreateCmd, mintToCmd, accountCreateCmd, transferCmd} {
		addSigningFlags(cmd)
	}
	mintCreateCmd.Flags().Uint8Var(&mintDecimals, "decimals", 6, "decimals of the mint")
	accountCreateCmd.Flags().StringVar(&ownerAddr, "owner", "", "owner of the account (default: the payer)")
	balanceCmd.Flags().StringVar(&mintAddr, "mint", "", "mint of the token holding to show")

	mintCmd.AddCommand(mintCreateCmd, mintToCmd)
	accountCmd.AddCommand(accountCreateCmd)
	rootCmd.AddCommand(mintCmd, accountCmd, transferCmd, balanceCmd)
}
