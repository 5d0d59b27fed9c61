package payment

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	prefixNonceLen = 16
	prefixTagLen   = 16
	prefixKeyInfo  = "ppd derivation prefix"
)

// PrefixIssuer mints derivation prefixes and later recognises its own.
//
// A prefix is base64(nonce || HMAC(k, nonce)[:16]) where k is derived from the identity
// key with HKDF. The server keeps no record of issued prefixes: the tag proves origin
// and the 128-bit random nonce makes repeats practically impossible.
type PrefixIssuer struct {
	key  []byte
	rand io.Reader
}

// NewPrefixIssuer derives the tagging key from the identity.
func NewPrefixIssuer(id *Identity) (*PrefixIssuer, error) {
	key := make([]byte, sha256.Size)
	kdf := hkdf.New(sha256.New, id.priv.Serialize(), nil, []byte(prefixKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive prefix key: %w", err)
	}
	return &PrefixIssuer{key: key, rand: rand.Reader}, nil
}

// Issue returns a fresh prefix.
func (p *PrefixIssuer) Issue() (string, error) {
	buf := make([]byte, prefixNonceLen, prefixNonceLen+prefixTagLen)
	if _, err := io.ReadFull(p.rand, buf); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	buf = append(buf, p.tag(buf)...)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Valid reports whether prefix was minted by an issuer holding the same identity.
func (p *PrefixIssuer) Valid(prefix string) bool {
	raw, err := base64.StdEncoding.DecodeString(prefix)
	if err != nil || len(raw) != prefixNonceLen+prefixTagLen {
		return false
	}
	return hmac.Equal(raw[prefixNonceLen:], p.tag(raw[:prefixNonceLen]))
}

func (p *PrefixIssuer) tag(nonce []byte) []byte {
	mac := hmac.New(sha256.New, p.key)
	mac.Write(nonce)
	return mac.Sum(nil)[:prefixTagLen]
}

// Challenge is the 402 payload: what to pay and which prefix to derive with.
type Challenge struct {
	Version          string
	SatoshisRequired int64
	DerivationPrefix string
}

// Challenge issues a fresh prefix for a document priced at satoshis.
func (p *PrefixIssuer) Challenge(satoshis int64) (Challenge, error) {
	prefix, err := p.Issue()
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{
		Version:          Version,
		SatoshisRequired: satoshis,
		DerivationPrefix: prefix,
	}, nil
}

// Headers are the response headers announcing the challenge.
func (c Challenge) Headers() map[string]string {
	return map[string]string{
		HeaderVersion:          c.Version,
		HeaderSatoshisRequired: fmt.Sprintf("%d", c.SatoshisRequired),
		HeaderDerivationPrefix: c.DerivationPrefix,
	}
}
