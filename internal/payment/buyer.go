package payment

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Encoding selects how Buyer serialises the transaction into the header.
type Encoding string

const (
	EncodingRawBytes   Encoding = "rawtx-bytes"
	EncodingRawHex     Encoding = "rawtx-hex"
	EncodingRawBase64  Encoding = "rawtx-base64"
	EncodingBEEFBytes  Encoding = "beef-bytes"
	EncodingBEEFHex    Encoding = "beef-hex"
	EncodingBEEFBase64 Encoding = "beef-base64"
	EncodingAtomicBEEF Encoding = "atomic-beef-base64"
)

// Encodings lists the supported transaction encodings.
func Encodings() []Encoding {
	return []Encoding{
		EncodingRawBytes, EncodingRawHex, EncodingRawBase64,
		EncodingBEEFBytes, EncodingBEEFHex, EncodingBEEFBase64, EncodingAtomicBEEF,
	}
}

// Buyer is the client half of the protocol: it derives the seller's one-time key and
// builds the payment header. Used by ppdctl and tests.
type Buyer struct {
	key    *btcec.PrivateKey
	params *chaincfg.Params
	rand   io.Reader
}

// NewBuyer binds a buyer to its identity key.
func NewBuyer(key *btcec.PrivateKey, params *chaincfg.Params) *Buyer {
	return &Buyer{key: key, params: params, rand: rand.Reader}
}

// AsBuyer lets an identity pay with its own key.
func (i *Identity) AsBuyer() *Buyer {
	return NewBuyer(i.priv, i.params)
}

// IdentityKeyHex is the value sent as senderIdentityKey.
func (b *Buyer) IdentityKeyHex() string {
	return hex.EncodeToString(b.key.PubKey().SerializeCompressed())
}

// NewSuffix returns a random derivation suffix.
func (b *Buyer) NewSuffix() (string, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(b.rand, buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// PaymentKey derives the seller's one-time public key for (prefix, suffix).
func (b *Buyer) PaymentKey(seller *btcec.PublicKey, prefix, suffix string) (*btcec.PublicKey, error) {
	return NewKeyDeriver(b.key).DerivePublicKey(PaymentProtocol, KeyID(prefix, suffix), seller, false)
}

// BuildTransaction creates a transaction paying satoshis to the P2PKH script of payTo.
// The single input spends funding from the buyer's own P2PKH address and is signed
// with a legacy sighash; no chain state is consulted.
func (b *Buyer) BuildTransaction(payTo *btcec.PublicKey, satoshis int64, funding wire.OutPoint) (*wire.MsgTx, error) {
	lock, err := P2PKHScript(payTo, b.params)
	if err != nil {
		return nil, err
	}
	prevScript, err := P2PKHScript(b.key.PubKey(), b.params)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&funding, nil, nil))
	tx.AddTxOut(wire.NewTxOut(satoshis, lock))

	sig, err := txscript.SignatureScript(tx, 0, prevScript, txscript.SigHashAll, b.key, true)
	if err != nil {
		return nil, fmt.Errorf("sign input: %w", err)
	}
	tx.TxIn[0].SignatureScript = sig
	return tx, nil
}

// RandomOutPoint returns an outpoint with a random txid, for unfunded demo payments.
func (b *Buyer) RandomOutPoint() (wire.OutPoint, error) {
	var h chainhash.Hash
	if _, err := io.ReadFull(b.rand, h[:]); err != nil {
		return wire.OutPoint{}, err
	}
	return *wire.NewOutPoint(&h, 0), nil
}

// Payment is a ready-to-send payment attempt.
type Payment struct {
	Header        *Header
	HeaderValue   string
	TransactionID string
}

// Pay derives the payment key for the challenge, builds and encodes a transaction paying
// the required satoshis, and renders the x-bsv-payment header value.
func (b *Buyer) Pay(seller *btcec.PublicKey, ch Challenge, enc Encoding) (*Payment, error) {
	suffix, err := b.NewSuffix()
	if err != nil {
		return nil, err
	}
	child, err := b.PaymentKey(seller, ch.DerivationPrefix, suffix)
	if err != nil {
		return nil, err
	}
	funding, err := b.RandomOutPoint()
	if err != nil {
		return nil, err
	}
	tx, err := b.BuildTransaction(child, ch.SatoshisRequired, funding)
	if err != nil {
		return nil, err
	}
	blob, err := EncodeTransaction(tx, enc)
	if err != nil {
		return nil, err
	}

	h := &Header{
		DerivationPrefix:  ch.DerivationPrefix,
		DerivationSuffix:  suffix,
		Transaction:       blob,
		SenderIdentityKey: b.IdentityKeyHex(),
		Amount:            json.Number(strconv.FormatInt(ch.SatoshisRequired, 10)),
		sender:            b.key.PubKey(),
	}
	value, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return &Payment{Header: h, HeaderValue: string(value), TransactionID: tx.TxHash().String()}, nil
}

// EncodeTransaction renders tx as the JSON value of the header's transaction field.
func EncodeTransaction(tx *wire.MsgTx, enc Encoding) (json.RawMessage, error) {
	var (
		b   []byte
		err error
	)
	switch enc {
	case EncodingRawBytes, EncodingRawHex, EncodingRawBase64:
		b, err = serializeTx(tx)
	case EncodingBEEFBytes, EncodingBEEFHex, EncodingBEEFBase64:
		b, err = WriteBEEF(tx, false)
	case EncodingAtomicBEEF:
		b, err = WriteBEEF(tx, true)
	default:
		return nil, fmt.Errorf("unknown encoding %q", enc)
	}
	if err != nil {
		return nil, err
	}

	switch enc {
	case EncodingRawBytes, EncodingBEEFBytes:
		ints := make([]int, len(b))
		for i, v := range b {
			ints[i] = int(v)
		}
		return json.Marshal(ints)
	case EncodingRawHex, EncodingBEEFHex:
		return json.Marshal(hex.EncodeToString(b))
	default:
		return json.Marshal(base64.StdEncoding.EncodeToString(b))
	}
}

func serializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSizeStripped())
	if err := tx.SerializeNoWitness(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
