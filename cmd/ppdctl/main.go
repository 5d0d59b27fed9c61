// Command ppdctl is the operator and buyer companion of the ppd server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ppdctl",
		Short:         "ppdctl - keys, derivation and purchases for the pay-per-document server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("network", "main", "address network (main, test)")

	root.AddCommand(keygenCmd())
	root.AddCommand(deriveCmd())
	root.AddCommand(purchaseCmd())
	return root
}
