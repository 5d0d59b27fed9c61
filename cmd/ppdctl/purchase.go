package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mexidense/ppd/internal/payment"
)

func purchaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Buy a document from a running server",
		Long: `Run the full purchase flow against a server: fetch its identity key,
request the 402 challenge, derive the payment key, build a transaction paying
the required satoshis and submit it in the X-BSV-Payment header.

The transaction spends a synthetic outpoint and is never broadcast.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			network, _ := cmd.Flags().GetString("network")
			api, _ := cmd.Flags().GetString("api")
			docID, _ := cmd.Flags().GetString("document")
			keyHex, _ := cmd.Flags().GetString("buyer-key")
			enc, _ := cmd.Flags().GetString("encoding")

			buyerID, err := payment.NewIdentity(keyHex, network)
			if err != nil {
				return fmt.Errorf("buyer key: %w", err)
			}
			c := &apiClient{base: strings.TrimRight(api, "/"), http: &http.Client{Timeout: 30 * time.Second}}
			return runPurchase(cmd.Context(), c, buyerID.AsBuyer(), docID, payment.Encoding(enc), cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("api", "http://localhost:8080", "server base URL")
	cmd.Flags().String("document", "", "document id")
	cmd.Flags().String("buyer-key", "", "buyer private key (hex)")
	cmd.Flags().String("encoding", string(payment.EncodingBEEFBase64), "transaction encoding in the payment header")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("buyer-key")
	return cmd
}

// receiptLabelWidth fits the longest receipt label, "transaction id:".
const receiptLabelWidth = 15

type apiClient struct {
	base string
	http *http.Client
}

type apiError struct {
	Status int
	Code   string
	Msg    string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Msg)
}

type receipt struct {
	TransactionID string `json:"transactionId"`
	AmountPaid    int64  `json:"amountPaid"`
	Purchase      struct {
		ID           string `json:"id"`
		BuyerAddress string `json:"address_buyer"`
		DocumentID   string `json:"doc_id"`
	} `json:"purchase"`
}

func (c *apiClient) do(ctx context.Context, method, path string, header map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return c.http.Do(req)
}

func (c *apiClient) identityKey(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/wallet-info", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}
	var info struct {
		IdentityKey string `json:"identityKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode wallet info: %w", err)
	}
	return info.IdentityKey, nil
}

// challenge posts without a payment and reads the 402 headers.
func (c *apiClient) challenge(ctx context.Context, docID string) (payment.Challenge, error) {
	resp, err := c.do(ctx, http.MethodPost, "/documents/"+docID+"/purchase", nil)
	if err != nil {
		return payment.Challenge{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPaymentRequired {
		return payment.Challenge{}, decodeAPIError(resp)
	}
	sats, err := strconv.ParseInt(resp.Header.Get(payment.HeaderSatoshisRequired), 10, 64)
	if err != nil {
		return payment.Challenge{}, fmt.Errorf("challenge: bad %s header", payment.HeaderSatoshisRequired)
	}
	prefix := resp.Header.Get(payment.HeaderDerivationPrefix)
	if prefix == "" {
		return payment.Challenge{}, fmt.Errorf("challenge: missing %s header", payment.HeaderDerivationPrefix)
	}
	return payment.Challenge{
		Version:          resp.Header.Get(payment.HeaderVersion),
		SatoshisRequired: sats,
		DerivationPrefix: prefix,
	}, nil
}

func (c *apiClient) submit(ctx context.Context, docID, headerValue string) (*receipt, error) {
	resp, err := c.do(ctx, http.MethodPost, "/documents/"+docID+"/purchase", map[string]string{
		payment.HeaderPayment: headerValue,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var r receipt
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"description"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	e := &apiError{Status: resp.StatusCode, Code: body.Error.Code, Msg: body.Error.Message}
	if e.Code == "" {
		e.Code, e.Msg = body.Code, body.Message
	}
	return e
}

func runPurchase(ctx context.Context, c *apiClient, buyer *payment.Buyer, docID string, enc payment.Encoding, out io.Writer) error {
	if !knownEncoding(enc) {
		return fmt.Errorf("unknown encoding %q", enc)
	}

	identity, err := c.identityKey(ctx)
	if err != nil {
		return fmt.Errorf("wallet info: %w", err)
	}
	seller, err := payment.ParsePublicKeyHex(identity)
	if err != nil {
		return fmt.Errorf("server identity: %w", err)
	}

	ch, err := c.challenge(ctx, docID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "challenge: %d satoshis, prefix %s\n", ch.SatoshisRequired, ch.DerivationPrefix)

	p, err := buyer.Pay(seller, ch, enc)
	if err != nil {
		return fmt.Errorf("build payment: %w", err)
	}

	r, err := c.submit(ctx, docID, p.HeaderValue)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return fmt.Errorf("transaction %s was already used: %w", p.TransactionID, err)
		}
		return err
	}

	for _, line := range [][2]string{
		{"document:", r.Purchase.DocumentID},
		{"purchase id:", r.Purchase.ID},
		{"transaction id:", r.TransactionID},
		{"amount paid:", strconv.FormatInt(r.AmountPaid, 10)},
		{"buyer:", r.Purchase.BuyerAddress},
	} {
		fmt.Fprintf(out, "%-*s %s\n", receiptLabelWidth, line[0], line[1])
	}
	return nil
}

func knownEncoding(enc payment.Encoding) bool {
	for _, e := range payment.Encodings() {
		if e == enc {
			return true
		}
	}
	return false
}
