package cli

import (
	"context"
	"encoding/hex"

	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/crypto/algorithms/ed25519"
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen <seed>",
	Short: "Derive the identity of a seed phrase",
	Long:  `Derive the ed25519 keypair of a seed phrase and print its identity. Pass the same seed to --key to sign with it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kp := ed25519.GenerateKeypair([]byte(args[0]))
		return printJSON(map[string]interface{}{
			"account":    tx.AccountID(kp.Public).String(),
			"public_key": hex.EncodeToString(kp.Public[:]),
		})
	},
}

var airdropCmd = &cobra.Command{
	Use:   "airdrop <account> <drops>",
	Short: "Credit native balance to an account",
	Long:  `Credit native balance to an account, creating it when absent. Native balance pays the entry reserves.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := parseAddress("account", args[0])
		if err != nil {
			return err
		}
		drops, err := parseAmount("drops", args[1])
		if err != nil {
			return err
		}
		return withSession(func(s *session) error {
			l, err := s.provider.GetLedger()
			if err != nil {
				return err
			}
			balance, err := l.Fund(context.Background(), account, drops)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"account": account.String(),
				"balance": balance,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(airdropCmd)
}
