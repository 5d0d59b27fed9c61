package payment

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Protocol version and header names shared with BSV payment middleware clients.
const (
	Version = "1.0"

	HeaderPayment          = "X-BSV-Payment"
	HeaderVersion          = "X-BSV-Payment-Version"
	HeaderSatoshisRequired = "X-BSV-Payment-Satoshis-Required"
	HeaderSatoshisPaid     = "X-BSV-Payment-Satoshis-Paid"
	HeaderDerivationPrefix = "X-BSV-Payment-Derivation-Prefix"
)

// Error codes carried in error bodies.
const (
	CodePaymentRequired = "ERR_PAYMENT_REQUIRED"
	CodeMalformed       = "ERR_MALFORMED_PAYMENT"
	CodeInvalidPrefix   = "ERR_INVALID_DERIVATION_PREFIX"
	CodePaymentFailed   = "ERR_PAYMENT_FAILED"
)

// maxHeaderLen bounds the payment header before JSON decoding.
const maxHeaderLen = 1 << 20

// ErrMalformedPayment is wrapped by every header parsing failure.
var ErrMalformedPayment = errors.New("malformed payment")

// Request is the minimal view of an inbound request the protocol needs.
type Request interface {
	Header(name string) string
}

// Header is the decoded x-bsv-payment header of one payment attempt.
type Header struct {
	DerivationPrefix  string          `json:"derivationPrefix"`
	DerivationSuffix  string          `json:"derivationSuffix"`
	Transaction       json.RawMessage `json:"transaction"`
	SenderIdentityKey string          `json:"senderIdentityKey"`
	// Amount is the buyer's claim. It is never used to decide acceptance.
	Amount json.Number `json:"amount,omitempty"`

	sender *btcec.PublicKey
}

// Sender returns the parsed buyer identity key.
func (h *Header) Sender() *btcec.PublicKey { return h.sender }

// BuyerAddress is the canonical (compressed, lowercase hex) buyer identity key.
func (h *Header) BuyerAddress() string {
	if h.sender == nil {
		return ""
	}
	return hex.EncodeToString(h.sender.SerializeCompressed())
}

// KeyID joins the prefix and suffix of this attempt.
func (h *Header) KeyID() string {
	return KeyID(h.DerivationPrefix, h.DerivationSuffix)
}

// ReadHeader extracts the payment header. It returns (nil, nil) when the request
// carries none, which is the signal to issue a challenge.
func ReadHeader(r Request) (*Header, error) {
	raw := strings.TrimSpace(r.Header(HeaderPayment))
	if raw == "" {
		return nil, nil
	}
	return ParseHeader(raw)
}

// ParseHeader decodes and validates the JSON header value.
func ParseHeader(raw string) (*Header, error) {
	if len(raw) > maxHeaderLen {
		return nil, fmt.Errorf("%w: header exceeds %d bytes", ErrMalformedPayment, maxHeaderLen)
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayment, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after header object", ErrMalformedPayment)
	}

	switch {
	case h.DerivationPrefix == "":
		return nil, fmt.Errorf("%w: derivationPrefix is required", ErrMalformedPayment)
	case h.DerivationSuffix == "":
		return nil, fmt.Errorf("%w: derivationSuffix is required", ErrMalformedPayment)
	case h.SenderIdentityKey == "":
		return nil, fmt.Errorf("%w: senderIdentityKey is required", ErrMalformedPayment)
	case len(bytes.TrimSpace(h.Transaction)) == 0 || bytes.Equal(bytes.TrimSpace(h.Transaction), []byte("null")):
		return nil, fmt.Errorf("%w: transaction is required", ErrMalformedPayment)
	}

	sender, err := ParsePublicKeyHex(h.SenderIdentityKey)
	if err != nil {
		return nil, fmt.Errorf("%w: senderIdentityKey: %v", ErrMalformedPayment, err)
	}
	h.sender = sender
	return &h, nil
}
