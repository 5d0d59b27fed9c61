// Package payment implements the purchase protocol: the server identity, BRC-42 key
// derivation, stateless derivation-prefix challenges, the x-bsv-payment header, the
// ordered transaction decoder chain and the payment verifier. Nothing here depends on
// an HTTP framework; callers adapt their request type to Request.
package payment

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
)

var (
	// ErrIdentityKeyMissing means the process was started without a server identity key.
	ErrIdentityKeyMissing = errors.New("server identity key is not configured")
	// ErrUnknownNetwork is returned for a network name other than main or test.
	ErrUnknownNetwork = errors.New("unknown network")
)

// Identity is the seller-side signing identity shared by every purchase. It is built
// once at startup and injected into the challenge issuer and the verifier.
type Identity struct {
	priv    *btcec.PrivateKey
	pub     *btcec.PublicKey
	params  *chaincfg.Params
	deriver *KeyDeriver
}

// NetworkParams maps a configured network name to address parameters.
func NetworkParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(strings.TrimSpace(network)) {
	case "", "main", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "test", "testnet":
		return &chaincfg.TestNet3Params, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
}

// NewIdentity parses a hex encoded 32-byte secp256k1 private key.
func NewIdentity(privateKeyHex, network string) (*Identity, error) {
	privateKeyHex = strings.TrimSpace(privateKeyHex)
	if privateKeyHex == "" {
		return nil, ErrIdentityKeyMissing
	}
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("identity key is not hex: %w", err)
	}
	if len(raw) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("identity key must be %d bytes, got %d", btcec.PrivKeyBytesLen, len(raw))
	}
	params, err := NetworkParams(network)
	if err != nil {
		return nil, err
	}

	priv, pub := btcec.PrivKeyFromBytes(raw)
	if priv.Key.IsZero() {
		return nil, errors.New("identity key is zero")
	}
	return &Identity{
		priv:    priv,
		pub:     pub,
		params:  params,
		deriver: NewKeyDeriver(priv),
	}, nil
}

// GenerateIdentity creates a fresh random identity.
func GenerateIdentity(network string) (*Identity, error) {
	params, err := NetworkParams(network)
	if err != nil {
		return nil, err
	}
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Identity{
		priv:    priv,
		pub:     priv.PubKey(),
		params:  params,
		deriver: NewKeyDeriver(priv),
	}, nil
}

// PublicKey returns the identity public key.
func (i *Identity) PublicKey() *btcec.PublicKey { return i.pub }

// PublicKeyHex is the compressed identity public key in hex, as published by /wallet-info.
func (i *Identity) PublicKeyHex() string {
	return hex.EncodeToString(i.pub.SerializeCompressed())
}

// PrivateKeyHex returns the private key in the SERVER_PRIVATE_KEY format.
func (i *Identity) PrivateKeyHex() string {
	return hex.EncodeToString(i.priv.Serialize())
}

// Params returns the address parameters of the configured network.
func (i *Identity) Params() *chaincfg.Params { return i.params }

// Deriver returns the key deriver bound to this identity.
func (i *Identity) Deriver() *KeyDeriver { return i.deriver }

// ParsePublicKeyHex parses a hex encoded compressed or uncompressed public key.
func ParsePublicKeyHex(s string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("public key is not hex: %w", err)
	}
	return btcec.ParsePubKey(raw)
}

// CanonicalAddress normalises a party address. Public key hex (any case, compressed
// or not) becomes lowercase compressed hex; anything else is only trimmed.
func CanonicalAddress(s string) string {
	s = strings.TrimSpace(s)
	if pub, err := ParsePublicKeyHex(s); err == nil {
		return hex.EncodeToString(pub.SerializeCompressed())
	}
	return s
}
