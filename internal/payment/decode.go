package payment

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/wire"
)

// DecodeResult is the outcome of running the decoder chain over a transaction blob.
type DecodeResult struct {
	OK      bool
	Tx      *wire.MsgTx
	Decoder string
	Reason  string
}

type decoder struct {
	name   string
	source func(json.RawMessage) ([]byte, error)
	parse  func([]byte) (*wire.MsgTx, error)
}

// decodeChain is tried in order; the first decoder that succeeds wins. The order is
// fixed so that the same blob always decodes the same way.
var decodeChain = []decoder{
	{name: "bytes/beef", source: fromByteArray, parse: ParseBEEF},
	{name: "bytes/rawtx", source: fromByteArray, parse: ParseRawTx},
	{name: "hex/beef", source: fromHexString, parse: ParseBEEF},
	{name: "hex/rawtx", source: fromHexString, parse: ParseRawTx},
	{name: "base64/beef", source: fromBase64String, parse: ParseBEEF},
	{name: "base64/rawtx", source: fromBase64String, parse: ParseRawTx},
}

// DecoderNames lists the chain in evaluation order.
func DecoderNames() []string {
	names := make([]string, len(decodeChain))
	for i, d := range decodeChain {
		names[i] = d.name
	}
	return names
}

// DecodeTransaction runs the decoder chain over the transaction field of a payment header.
func DecodeTransaction(raw json.RawMessage) DecodeResult {
	var reasons []string
	for _, d := range decodeChain {
		b, err := d.source(raw)
		if err != nil {
			reasons = append(reasons, d.name+": "+err.Error())
			continue
		}
		tx, err := d.parse(b)
		if err != nil {
			reasons = append(reasons, d.name+": "+err.Error())
			continue
		}
		return DecodeResult{OK: true, Tx: tx, Decoder: d.name}
	}
	return DecodeResult{Reason: "no decoder matched (" + strings.Join(reasons, "; ") + ")"}
}

// ParseRawTx parses a serialized transaction that must span the whole input.
func ParseRawTx(b []byte) (*wire.MsgTx, error) {
	if len(b) == 0 {
		return nil, errors.New("empty transaction")
	}
	r := bytes.NewReader(b)
	tx, err := readTx(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after transaction", r.Len())
	}
	return tx, nil
}

var (
	errNotByteArray = errors.New("not a byte array")
	errNotString    = errors.New("not a string")
)

// fromByteArray accepts a JSON array of integers in 0..255, the shape JavaScript
// SDKs produce for number[] transactions.
func fromByteArray(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errNotByteArray
	}
	var ints []int
	if err := json.Unmarshal(trimmed, &ints); err != nil {
		return nil, errNotByteArray
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("element %d out of byte range", i)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func jsonString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", errNotString
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", errNotString
	}
	return strings.TrimSpace(s), nil
}

func fromHexString(raw json.RawMessage) ([]byte, error) {
	s, err := jsonString(raw)
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.New("not hex")
	}
	return b, nil
}

func fromBase64String(raw json.RawMessage) ([]byte, error) {
	s, err := jsonString(raw)
	if err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("not base64")
	}
	return b, nil
}
