package payment

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	k, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return k
}

func TestKeyDeriver_BothPartiesAgree(t *testing.T) {
	seller := newKey(t)
	buyer := newKey(t)
	keyID := KeyID("prefix", "suffix")

	fromBuyer, err := NewKeyDeriver(buyer).DerivePublicKey(PaymentProtocol, keyID, seller.PubKey(), false)
	require.NoError(t, err)

	fromSeller, err := NewKeyDeriver(seller).DerivePublicKey(PaymentProtocol, keyID, buyer.PubKey(), true)
	require.NoError(t, err)
	assert.True(t, fromBuyer.IsEqual(fromSeller))

	childPriv, err := NewKeyDeriver(seller).DerivePrivateKey(PaymentProtocol, keyID, buyer.PubKey())
	require.NoError(t, err)
	assert.True(t, childPriv.PubKey().IsEqual(fromSeller), "seller can spend what the buyer locked")
}

func TestKeyDeriver_DistinctKeyIDs(t *testing.T) {
	seller := newKey(t)
	buyer := newKey(t)
	d := NewKeyDeriver(buyer)

	a, err := d.DerivePublicKey(PaymentProtocol, KeyID("p", "1"), seller.PubKey(), false)
	require.NoError(t, err)
	b, err := d.DerivePublicKey(PaymentProtocol, KeyID("p", "2"), seller.PubKey(), false)
	require.NoError(t, err)

	assert.False(t, a.IsEqual(b))
	assert.False(t, a.IsEqual(seller.PubKey()))
}

func TestKeyDeriver_Errors(t *testing.T) {
	d := NewKeyDeriver(newKey(t))
	other := newKey(t).PubKey()

	_, err := d.DerivePublicKey(PaymentProtocol, "", other, false)
	assert.Error(t, err)

	_, err = d.DerivePublicKey(PaymentProtocol, strings.Repeat("x", maxKeyIDLen+1), other, false)
	assert.Error(t, err)

	_, err = d.DerivePublicKey(Protocol{SecurityLevel: 3, Name: "3241645161d8"}, "a", other, false)
	assert.Error(t, err)

	_, err = d.DerivePublicKey(Protocol{SecurityLevel: 2, Name: "abc"}, "a", other, false)
	assert.Error(t, err)

	_, err = d.DerivePrivateKey(PaymentProtocol, "a", nil)
	assert.Error(t, err)
}

func TestProtocol_InvoiceNumber(t *testing.T) {
	inv, err := PaymentProtocol.invoiceNumber(KeyID("abc", "def"))
	require.NoError(t, err)
	assert.Equal(t, "2-3241645161d8-abc def", inv)

	inv, err = Protocol{SecurityLevel: 1, Name: "  Hello World "}.invoiceNumber("1")
	require.NoError(t, err)
	assert.Equal(t, "1-hello world-1", inv)
}

func TestP2PKHScript(t *testing.T) {
	pub := newKey(t).PubKey()

	script, err := P2PKHScript(pub, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Len(t, script, 25)
	assert.Equal(t, byte(0x76), script[0]) // OP_DUP
	assert.Equal(t, byte(0xac), script[24]) // OP_CHECKSIG

	mainAddr, err := P2PKHAddress(pub, &chaincfg.MainNetParams)
	require.NoError(t, err)
	test, err := P2PKHAddress(pub, &chaincfg.TestNet3Params)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mainAddr.EncodeAddress(), "1"))
	assert.NotEqual(t, mainAddr.EncodeAddress(), test.EncodeAddress())
}
