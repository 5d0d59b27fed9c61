package payment

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// BEEF container markers, read as little-endian uint32.
const (
	beefV1     uint32 = 0xEFBE0001 // BRC-62
	beefV2     uint32 = 0xEFBE0002 // BRC-96
	atomicBEEF uint32 = 0x01010101 // BRC-95
)

// V2 transaction entry formats.
const (
	beefRawTx         byte = 0
	beefRawTxWithBump byte = 1
	beefTxIDOnly      byte = 2
)

const maxBumpTreeHeight = 64

var (
	errNotBEEF     = errors.New("not a BEEF container")
	errBEEFNoTx    = errors.New("BEEF contains no transactions")
	errBEEFSubject = errors.New("BEEF subject transaction not found")
)

// beefTx is one entry of a BEEF transaction list. Tx is nil for txid-only entries.
type beefTx struct {
	Tx        *wire.MsgTx
	TxID      chainhash.Hash
	BumpIndex int
}

// ParseBEEF reads a V1, V2 or Atomic BEEF container and returns its subject
// transaction: the one named by the atomic header, otherwise the last one.
// Merkle paths are parsed and index-checked but not validated against headers.
func ParseBEEF(b []byte) (*wire.MsgTx, error) {
	r := bytes.NewReader(b)

	version, err := readUint32(r)
	if err != nil {
		return nil, errNotBEEF
	}

	var subject *chainhash.Hash
	if version == atomicBEEF {
		var h chainhash.Hash
		if _, err := io.ReadFull(r, h[:]); err != nil {
			return nil, fmt.Errorf("atomic BEEF txid: %w", err)
		}
		subject = &h
		if version, err = readUint32(r); err != nil {
			return nil, errNotBEEF
		}
	}
	if version != beefV1 && version != beefV2 {
		return nil, errNotBEEF
	}

	nBumps, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf("bump count: %w", err)
	}
	for i := uint64(0); i < nBumps; i++ {
		if err := skipBump(r); err != nil {
			return nil, fmt.Errorf("bump %d: %w", i, err)
		}
	}

	nTx, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf("tx count: %w", err)
	}
	if nTx == 0 {
		return nil, errBEEFNoTx
	}

	txs := make([]beefTx, 0, nTx)
	for i := uint64(0); i < nTx; i++ {
		var entry beefTx
		if version == beefV1 {
			entry, err = readV1Tx(r)
		} else {
			entry, err = readV2Tx(r)
		}
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		if entry.BumpIndex >= 0 && uint64(entry.BumpIndex) >= nBumps {
			return nil, fmt.Errorf("tx %d: bump index %d out of range", i, entry.BumpIndex)
		}
		txs = append(txs, entry)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after BEEF", r.Len())
	}

	var found *beefTx
	if subject != nil {
		for i := range txs {
			if txs[i].TxID == *subject {
				found = &txs[i]
				break
			}
		}
	} else {
		found = &txs[len(txs)-1]
	}
	if found == nil || found.Tx == nil {
		return nil, errBEEFSubject
	}
	return found.Tx, nil
}

func readV1Tx(r *bytes.Reader) (beefTx, error) {
	tx, err := readTx(r)
	if err != nil {
		return beefTx{}, err
	}
	entry := beefTx{Tx: tx, TxID: tx.TxHash(), BumpIndex: -1}

	hasBump, err := r.ReadByte()
	if err != nil {
		return beefTx{}, err
	}
	if hasBump != 0 {
		idx, err := readCount(r)
		if err != nil {
			return beefTx{}, err
		}
		entry.BumpIndex = int(idx)
	}
	return entry, nil
}

func readV2Tx(r *bytes.Reader) (beefTx, error) {
	format, err := r.ReadByte()
	if err != nil {
		return beefTx{}, err
	}
	entry := beefTx{BumpIndex: -1}
	switch format {
	case beefRawTx:
	case beefRawTxWithBump:
		idx, err := readCount(r)
		if err != nil {
			return beefTx{}, err
		}
		entry.BumpIndex = int(idx)
	case beefTxIDOnly:
		if _, err := io.ReadFull(r, entry.TxID[:]); err != nil {
			return beefTx{}, err
		}
		return entry, nil
	default:
		return beefTx{}, fmt.Errorf("unknown tx format %d", format)
	}

	tx, err := readTx(r)
	if err != nil {
		return beefTx{}, err
	}
	entry.Tx = tx
	entry.TxID = tx.TxHash()
	return entry, nil
}

// skipBump consumes one BRC-74 merkle path.
func skipBump(r *bytes.Reader) error {
	if _, err := wire.ReadVarInt(r, 0); err != nil {
		return fmt.Errorf("block height: %w", err)
	}
	treeHeight, err := r.ReadByte()
	if err != nil {
		return err
	}
	if treeHeight == 0 || treeHeight > maxBumpTreeHeight {
		return fmt.Errorf("tree height %d out of range", treeHeight)
	}
	for level := 0; level < int(treeHeight); level++ {
		nLeaves, err := readCount(r)
		if err != nil {
			return fmt.Errorf("level %d: %w", level, err)
		}
		for j := uint64(0); j < nLeaves; j++ {
			if _, err := wire.ReadVarInt(r, 0); err != nil {
				return fmt.Errorf("level %d leaf offset: %w", level, err)
			}
			flags, err := r.ReadByte()
			if err != nil {
				return err
			}
			if flags&1 != 0 {
				continue // duplicate of its sibling, no hash
			}
			if r.Len() < chainhash.HashSize {
				return io.ErrUnexpectedEOF
			}
			if _, err := r.Seek(chainhash.HashSize, io.SeekCurrent); err != nil {
				return err
			}
		}
	}
	return nil
}

func readTx(r *bytes.Reader) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.DeserializeNoWitness(r); err != nil {
		return nil, err
	}
	return tx, nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// readCount reads a varint that counts following items; it cannot exceed the bytes left.
func readCount(r *bytes.Reader) (uint64, error) {
	n, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return 0, err
	}
	if n > uint64(r.Len()) {
		return 0, fmt.Errorf("count %d exceeds remaining %d bytes", n, r.Len())
	}
	return n, nil
}

// WriteBEEF serialises tx as a single-transaction V1 BEEF, optionally wrapped in
// the Atomic BEEF header naming it as the subject.
func WriteBEEF(tx *wire.MsgTx, atomic bool) ([]byte, error) {
	var buf bytes.Buffer
	if atomic {
		if err := binary.Write(&buf, binary.LittleEndian, atomicBEEF); err != nil {
			return nil, err
		}
		h := tx.TxHash()
		buf.Write(h[:])
	}
	if err := binary.Write(&buf, binary.LittleEndian, beefV1); err != nil {
		return nil, err
	}
	if err := wire.WriteVarInt(&buf, 0, 0); err != nil { // no bumps
		return nil, err
	}
	if err := wire.WriteVarInt(&buf, 0, 1); err != nil {
		return nil, err
	}
	if err := tx.SerializeNoWitness(&buf); err != nil {
		return nil, err
	}
	buf.WriteByte(0) // no bump
	return buf.Bytes(), nil
}
