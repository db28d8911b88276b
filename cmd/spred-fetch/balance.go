package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// balanceCmd prints the wallet balance
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the wallet balance",
	Long: `Show the wallet balance. The enquiry is best effort: when it fails the
balance is reported as zero and marked degraded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := createContext()
		defer stop()

		service, err := createService(ctx)
		if err != nil {
			return err
		}
		defer service.Close()

		balance := service.Balance(ctx, viper.GetString("token"), viper.GetString("wallet"))
		fmt.Printf("Available: %.2f %s\n", balance.Available, balance.Currency)
		fmt.Printf("Ledger:    %.2f %s\n", balance.Ledger, balance.Currency)
		if balance.Degraded {
			fmt.Println("(balance unavailable, showing zero)")
		}
		return nil
	},
}
