package payment

import (
	"log/slog"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/Mexidense/ppd/internal/logging"
)

// Verification is the verdict on one payment attempt. TransactionID and SatoshisPaid
// are computed from the parsed transaction, never copied from the header.
type Verification struct {
	Accepted       bool
	TransactionID  string
	SatoshisPaid   int64
	Decoder        string
	DerivedAddress string
	Reason         string
	Code           string
}

// Verifier checks that a submitted transaction pays the one-time address derived
// for the attempt at least the current price.
type Verifier struct {
	identity *Identity
	prefixes *PrefixIssuer
	logger   *slog.Logger
	metrics  *Metrics
}

// NewVerifier wires a verifier. logger and metrics may be nil.
func NewVerifier(id *Identity, prefixes *PrefixIssuer, logger *slog.Logger, metrics *Metrics) *Verifier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Verifier{
		identity: id,
		prefixes: prefixes,
		logger:   logger.With("component", "payment_verifier"),
		metrics:  metrics,
	}
}

// Verify decides whether h pays price satoshis. price must be read from the document
// store by the caller at the time of the call.
func (v *Verifier) Verify(h *Header, price int64) Verification {
	res := v.verify(h, price)
	v.metrics.Verified(res)

	attrs := []any{
		"accepted", res.Accepted,
		"decoder", res.Decoder,
		"txid", res.TransactionID,
		"satoshis_paid", res.SatoshisPaid,
		"satoshis_required", price,
	}
	if res.Accepted {
		v.logger.Info("payment_verified", attrs...)
	} else {
		v.logger.Warn("payment_rejected", append(attrs, "code", res.Code, "reason", res.Reason)...)
	}
	return res
}

func (v *Verifier) verify(h *Header, price int64) Verification {
	if !v.prefixes.Valid(h.DerivationPrefix) {
		return reject(CodeInvalidPrefix, "derivation prefix was not issued by this server")
	}

	child, err := v.identity.Deriver().DerivePublicKey(PaymentProtocol, h.KeyID(), h.Sender(), true)
	if err != nil {
		return reject(CodeMalformed, "derive payment key: "+err.Error())
	}
	addr, err := P2PKHAddress(child, v.identity.Params())
	if err != nil {
		return reject(CodePaymentFailed, "derive payment address: "+err.Error())
	}
	target := addr.EncodeAddress()

	decoded := DecodeTransaction(h.Transaction)
	if !decoded.OK {
		res := reject(CodePaymentFailed, decoded.Reason)
		res.DerivedAddress = target
		return res
	}

	paid, matched := paidTo(decoded.Tx, target, v.identity)
	res := Verification{
		TransactionID:  decoded.Tx.TxHash().String(),
		SatoshisPaid:   paid,
		Decoder:        decoded.Decoder,
		DerivedAddress: target,
	}
	switch {
	case matched == 0:
		res.Code, res.Reason = CodePaymentFailed, "no output pays the derived address"
	case paid < price:
		res.Code, res.Reason = CodePaymentFailed, "paid amount is below the price"
	default:
		res.Accepted = true
	}
	return res
}

// paidTo sums the outputs whose script resolves to target, skipping scripts that are
// not standard addresses and values outside the money range.
func paidTo(tx *wire.MsgTx, target string, id *Identity) (int64, int) {
	var sum int64
	matched := 0
	for _, out := range tx.TxOut {
		if out.Value < 0 || out.Value > btcutil.MaxSatoshi {
			continue
		}
		s, err := txscript.ParsePkScript(out.PkScript)
		if err != nil {
			continue
		}
		a, err := s.Address(id.Params())
		if err != nil || a.EncodeAddress() != target {
			continue
		}
		sum += out.Value
		matched++
		if sum > btcutil.MaxSatoshi {
			sum = btcutil.MaxSatoshi
		}
	}
	return sum, matched
}

func reject(code, reason string) Verification {
	return Verification{Code: code, Reason: reason}
}
