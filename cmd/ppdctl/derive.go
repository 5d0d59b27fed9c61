package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mexidense/ppd/internal/payment"
)

func deriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the payment address for a prefix and suffix",
		Long: `Derive the one-time key a buyer pays to, exactly as the server will
re-derive it when verifying. Requires the server identity key (public) and
the buyer's private key.`,
		Args: cobra.NoArgs,
		RunE: runDerive,
	}

	cmd.Flags().String("server-identity", "", "server identity public key (hex)")
	cmd.Flags().String("buyer-key", "", "buyer private key (hex)")
	cmd.Flags().String("prefix", "", "derivation prefix from the 402 challenge")
	cmd.Flags().String("suffix", "", "derivation suffix chosen by the buyer")
	for _, f := range []string{"server-identity", "buyer-key", "prefix", "suffix"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func runDerive(cmd *cobra.Command, args []string) error {
	network, _ := cmd.Flags().GetString("network")
	serverHex, _ := cmd.Flags().GetString("server-identity")
	buyerHex, _ := cmd.Flags().GetString("buyer-key")
	prefix, _ := cmd.Flags().GetString("prefix")
	suffix, _ := cmd.Flags().GetString("suffix")

	seller, err := payment.ParsePublicKeyHex(serverHex)
	if err != nil {
		return fmt.Errorf("server identity: %w", err)
	}
	buyerID, err := payment.NewIdentity(buyerHex, network)
	if err != nil {
		return fmt.Errorf("buyer key: %w", err)
	}

	child, err := buyerID.AsBuyer().PaymentKey(seller, prefix, suffix)
	if err != nil {
		return err
	}
	addr, err := payment.P2PKHAddress(child, buyerID.Params())
	if err != nil {
		return err
	}
	script, err := payment.P2PKHScript(child, buyerID.Params())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "key id:     %s\n", payment.KeyID(prefix, suffix))
	fmt.Fprintf(out, "public key: %s\n", hex.EncodeToString(child.SerializeCompressed()))
	fmt.Fprintf(out, "address:    %s\n", addr.EncodeAddress())
	fmt.Fprintf(out, "script:     %s\n", hex.EncodeToString(script))
	return nil
}
