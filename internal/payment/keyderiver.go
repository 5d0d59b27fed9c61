package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

const (
	minKeyIDLen        = 1
	maxKeyIDLen        = 800
	minProtocolNameLen = 5
	maxProtocolNameLen = 400
)

// Protocol identifies a BRC-43 protocol: a security level and a name.
type Protocol struct {
	SecurityLevel int
	Name          string
}

// PaymentProtocol is the protocol under which payment keys are derived (BRC-29).
var PaymentProtocol = Protocol{SecurityLevel: 2, Name: "3241645161d8"}

var errInvalidPoint = errors.New("derived key is the point at infinity")

// KeyID joins the server prefix and the buyer suffix into the derivation key identifier.
func KeyID(prefix, suffix string) string {
	return prefix + " " + suffix
}

// invoiceNumber renders "<level>-<protocol>-<keyID>" after validating both parts.
func (p Protocol) invoiceNumber(keyID string) (string, error) {
	if p.SecurityLevel < 0 || p.SecurityLevel > 2 {
		return "", fmt.Errorf("security level must be 0, 1 or 2, got %d", p.SecurityLevel)
	}
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if len(name) < minProtocolNameLen || len(name) > maxProtocolNameLen {
		return "", fmt.Errorf("protocol name length must be %d..%d", minProtocolNameLen, maxProtocolNameLen)
	}
	if strings.Contains(name, "  ") {
		return "", errors.New("protocol name must not contain consecutive spaces")
	}
	if len(keyID) < minKeyIDLen || len(keyID) > maxKeyIDLen {
		return "", fmt.Errorf("key id length must be %d..%d bytes", minKeyIDLen, maxKeyIDLen)
	}
	return fmt.Sprintf("%d-%s-%s", p.SecurityLevel, name, keyID), nil
}

// KeyDeriver implements BRC-42 key derivation for one root private key.
// Both parties of a payment compute the same child public key.
type KeyDeriver struct {
	root *btcec.PrivateKey
}

// NewKeyDeriver binds a deriver to a root key.
func NewKeyDeriver(root *btcec.PrivateKey) *KeyDeriver {
	return &KeyDeriver{root: root}
}

// DerivePublicKey returns the child public key for (protocol, keyID, counterparty).
// With forSelf the child is ours (the one the counterparty would derive for us);
// otherwise it is the counterparty's.
func (d *KeyDeriver) DerivePublicKey(p Protocol, keyID string, counterparty *btcec.PublicKey, forSelf bool) (*btcec.PublicKey, error) {
	h, err := d.scalar(p, keyID, counterparty)
	if err != nil {
		return nil, err
	}

	base := counterparty
	if forSelf {
		base = d.root.PubKey()
	}

	var hG, b, sum btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(h, &hG)
	base.AsJacobian(&b)
	btcec.AddNonConst(&b, &hG, &sum)
	if (sum.X.IsZero() && sum.Y.IsZero()) || sum.Z.IsZero() {
		return nil, errInvalidPoint
	}
	sum.ToAffine()
	return btcec.NewPublicKey(&sum.X, &sum.Y), nil
}

// DerivePrivateKey returns our child private key for (protocol, keyID, counterparty).
// Its public key equals what the counterparty derives with DerivePublicKey(forSelf=false).
func (d *KeyDeriver) DerivePrivateKey(p Protocol, keyID string, counterparty *btcec.PublicKey) (*btcec.PrivateKey, error) {
	h, err := d.scalar(p, keyID, counterparty)
	if err != nil {
		return nil, err
	}
	var k btcec.ModNScalar
	k.Set(&d.root.Key)
	k.Add(h)
	if k.IsZero() {
		return nil, errInvalidPoint
	}
	b := k.Bytes()
	priv, _ := btcec.PrivKeyFromBytes(b[:])
	return priv, nil
}

// scalar computes HMAC-SHA256(compressed ECDH point, invoice) reduced mod n.
func (d *KeyDeriver) scalar(p Protocol, keyID string, counterparty *btcec.PublicKey) (*btcec.ModNScalar, error) {
	if counterparty == nil {
		return nil, errors.New("counterparty public key is required")
	}
	invoice, err := p.invoiceNumber(keyID)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, sharedSecret(d.root, counterparty))
	mac.Write([]byte(invoice))

	var h btcec.ModNScalar
	h.SetByteSlice(mac.Sum(nil))
	return &h, nil
}

func sharedSecret(priv *btcec.PrivateKey, pub *btcec.PublicKey) []byte {
	var p, r btcec.JacobianPoint
	pub.AsJacobian(&p)
	btcec.ScalarMultNonConst(&priv.Key, &p, &r)
	r.ToAffine()
	return btcec.NewPublicKey(&r.X, &r.Y).SerializeCompressed()
}

// P2PKHAddress is the pay-to-public-key-hash address of the compressed key.
func P2PKHAddress(pub *btcec.PublicKey, params *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {
	return btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), params)
}

// P2PKHScript is the locking script paying to the address of pub.
func P2PKHScript(pub *btcec.PublicKey, params *chaincfg.Params) ([]byte, error) {
	addr, err := P2PKHAddress(pub, params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}
