package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Checkout microservice",
	Long:  "The WildVenture Hub checkout service for subscription payments, provider webhooks, and session lifecycle jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
