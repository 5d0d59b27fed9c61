package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mexidense/ppd/internal/payment"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a server identity key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			network, _ := cmd.Flags().GetString("network")
			id, err := payment.GenerateIdentity(network)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "SERVER_PRIVATE_KEY=%s\n", id.PrivateKeyHex())
			fmt.Fprintf(out, "# identity key: %s\n", id.PublicKeyHex())
			return nil
		},
	}
}
