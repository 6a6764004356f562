package elements

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	// varints are read with the current protocol version
	pver = wire.ProtocolVersion

	maxScriptLen = 10000
	maxProofLen  = 1 << 20
	maxTxItems   = 100000

	// outpoint index bit flagging an input that carries an issuance
	outPointIssuanceFlag uint32 = 1 << 31
)

var (
	ErrMalformed     = errors.New("malformed serialization")
	ErrTrailingBytes = errors.New("trailing bytes after serialization")
)

// Serialize encodes the output without its witness.
func (o *TxOut) Serialize() []byte {
	var buf bytes.Buffer
	_ = writeTxOut(&buf, o)
	return buf.Bytes()
}

// DeserializeTxOut decodes an output previously encoded with Serialize. The
// returned output has an empty witness.
func DeserializeTxOut(b []byte) (*TxOut, error) {
	r := bytes.NewReader(b)
	out, err := readTxOut(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, ErrTrailingBytes
	}
	return out, nil
}

func (w *TxOutWitness) Serialize() []byte {
	var buf bytes.Buffer
	_ = writeTxOutWitness(&buf, w)
	return buf.Bytes()
}

func DeserializeTxOutWitness(b []byte) (*TxOutWitness, error) {
	r := bytes.NewReader(b)
	w, err := readTxOutWitness(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, ErrTrailingBytes
	}
	return w, nil
}

// Serialize encodes the full transaction including output witnesses.
func (tx *Transaction) Serialize() []byte {
	return tx.serialize(true)
}

func (tx *Transaction) serialize(withWitness bool) []byte {
	hasWitness := false
	if withWitness {
		for _, out := range tx.Outputs {
			if !out.Witness.IsEmpty() {
				hasWitness = true
				break
			}
		}
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, tx.Version)
	if hasWitness {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	_ = wire.WriteVarInt(&buf, pver, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		_ = writeTxIn(&buf, in)
	}

	_ = wire.WriteVarInt(&buf, pver, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		_ = writeTxOut(&buf, out)
	}

	_ = binary.Write(&buf, binary.LittleEndian, tx.LockTime)

	if hasWitness {
		for _, out := range tx.Outputs {
			_ = writeTxOutWitness(&buf, &out.Witness)
		}
	}
	return buf.Bytes()
}

// DeserializeTransaction decodes a transaction encoded with Serialize.
func DeserializeTransaction(b []byte) (*Transaction, error) {
	r := bytes.NewReader(b)
	tx := &Transaction{}

	if err := binary.Read(r, binary.LittleEndian, &tx.Version); err != nil {
		return nil, malformed("version", err)
	}
	flag, err := r.ReadByte()
	if err != nil {
		return nil, malformed("flag", err)
	}
	if flag > 1 {
		return nil, fmt.Errorf("%w: unknown flag %d", ErrMalformed, flag)
	}

	nIn, err := readCount(r, "inputs")
	if err != nil {
		return nil, err
	}
	tx.Inputs = make([]*TxIn, 0, nIn)
	for i := uint64(0); i < nIn; i++ {
		in, err := readTxIn(r)
		if err != nil {
			return nil, err
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	nOut, err := readCount(r, "outputs")
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]*TxOut, 0, nOut)
	for i := uint64(0); i < nOut; i++ {
		out, err := readTxOut(r)
		if err != nil {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	if err := binary.Read(r, binary.LittleEndian, &tx.LockTime); err != nil {
		return nil, malformed("locktime", err)
	}

	if flag == 1 {
		for _, out := range tx.Outputs {
			w, err := readTxOutWitness(r)
			if err != nil {
				return nil, err
			}
			out.Witness = *w
		}
	}

	if r.Len() != 0 {
		return nil, ErrTrailingBytes
	}
	return tx, nil
}

func malformed(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, field, err)
}

func readCount(r io.Reader, field string) (uint64, error) {
	n, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return 0, malformed(field, err)
	}
	if n > maxTxItems {
		return 0, fmt.Errorf("%w: too many %s (%d)", ErrMalformed, field, n)
	}
	return n, nil
}

func writeOutPoint(w io.Writer, op OutPoint, vout uint32) error {
	if _, err := w.Write(op.Txid[:]); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, vout)
}

func writeTxIn(w io.Writer, in *TxIn) error {
	vout := in.PreviousOutPoint.Vout
	if in.HasIssuance() {
		vout |= outPointIssuanceFlag
	}
	if err := writeOutPoint(w, in.PreviousOutPoint, vout); err != nil {
		return err
	}
	if err := wire.WriteVarBytes(w, pver, in.ScriptSig); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, in.Sequence); err != nil {
		return err
	}
	if in.HasIssuance() {
		if _, err := w.Write(in.Issuance.BlindingNonce[:]); err != nil {
			return err
		}
		if _, err := w.Write(in.Issuance.AssetEntropy[:]); err != nil {
			return err
		}
		if err := writeValue(w, in.Issuance.Amount); err != nil {
			return err
		}
		return writeValue(w, in.Issuance.InflationKeys)
	}
	return nil
}

func readTxIn(r io.Reader) (*TxIn, error) {
	in := &TxIn{}
	if _, err := io.ReadFull(r, in.PreviousOutPoint.Txid[:]); err != nil {
		return nil, malformed("prevout txid", err)
	}
	var vout uint32
	if err := binary.Read(r, binary.LittleEndian, &vout); err != nil {
		return nil, malformed("prevout vout", err)
	}
	hasIssuance := vout != ^uint32(0) && vout&outPointIssuanceFlag != 0
	if hasIssuance {
		vout &^= outPointIssuanceFlag
	}
	in.PreviousOutPoint.Vout = vout

	script, err := wire.ReadVarBytes(r, pver, maxScriptLen, "scriptSig")
	if err != nil {
		return nil, malformed("scriptSig", err)
	}
	in.ScriptSig = script
	if err := binary.Read(r, binary.LittleEndian, &in.Sequence); err != nil {
		return nil, malformed("sequence", err)
	}

	if hasIssuance {
		issuance := &AssetIssuance{}
		if _, err := io.ReadFull(r, issuance.BlindingNonce[:]); err != nil {
			return nil, malformed("issuance nonce", err)
		}
		if _, err := io.ReadFull(r, issuance.AssetEntropy[:]); err != nil {
			return nil, malformed("issuance entropy", err)
		}
		if issuance.Amount, err = readValue(r); err != nil {
			return nil, err
		}
		if issuance.InflationKeys, err = readValue(r); err != nil {
			return nil, err
		}
		in.Issuance = issuance
	}
	return in, nil
}

func writeTxOut(w io.Writer, o *TxOut) error {
	if err := writeAsset(w, o.Asset); err != nil {
		return err
	}
	if err := writeValue(w, o.Value); err != nil {
		return err
	}
	if len(o.Nonce) == 0 {
		if _, err := w.Write([]byte{prefixNull}); err != nil {
			return err
		}
	} else if _, err := w.Write(o.Nonce); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, pver, o.ScriptPubKey)
}

func readTxOut(r io.Reader) (*TxOut, error) {
	out := &TxOut{}
	var err error
	if out.Asset, err = readAsset(r); err != nil {
		return nil, err
	}
	if out.Value, err = readValue(r); err != nil {
		return nil, err
	}

	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, malformed("nonce", err)
	}
	switch prefix[0] {
	case prefixNull:
	case 0x02, 0x03:
		nonce := make([]byte, NonceLen)
		nonce[0] = prefix[0]
		if _, err := io.ReadFull(r, nonce[1:]); err != nil {
			return nil, malformed("nonce", err)
		}
		out.Nonce = nonce
	default:
		return nil, fmt.Errorf("%w: nonce prefix 0x%02x", ErrMalformed, prefix[0])
	}

	script, err := wire.ReadVarBytes(r, pver, maxScriptLen, "scriptPubKey")
	if err != nil {
		return nil, malformed("scriptPubKey", err)
	}
	out.ScriptPubKey = script
	return out, nil
}

func writeTxOutWitness(w io.Writer, tw *TxOutWitness) error {
	if err := wire.WriteVarBytes(w, pver, tw.SurjectionProof); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, pver, tw.RangeProof)
}

func readTxOutWitness(r io.Reader) (*TxOutWitness, error) {
	surjection, err := wire.ReadVarBytes(r, pver, maxProofLen, "surjectionProof")
	if err != nil {
		return nil, malformed("surjection proof", err)
	}
	rangeProof, err := wire.ReadVarBytes(r, pver, maxProofLen, "rangeProof")
	if err != nil {
		return nil, malformed("range proof", err)
	}
	return &TxOutWitness{SurjectionProof: nilIfEmpty(surjection), RangeProof: nilIfEmpty(rangeProof)}, nil
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func writeAsset(w io.Writer, a Asset) error {
	switch {
	case a.explicit != nil:
		if _, err := w.Write([]byte{prefixExplicit}); err != nil {
			return err
		}
		_, err := w.Write(a.explicit[:])
		return err
	case a.commitment != nil:
		_, err := w.Write(a.commitment)
		return err
	default:
		_, err := w.Write([]byte{prefixNull})
		return err
	}
}

func readAsset(r io.Reader) (Asset, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Asset{}, malformed("asset", err)
	}
	switch prefix[0] {
	case prefixNull:
		return Asset{}, nil
	case prefixExplicit:
		var id AssetID
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return Asset{}, malformed("asset id", err)
		}
		return ExplicitAsset(id), nil
	case 0x0a, 0x0b:
		c := make([]byte, CommitmentLen)
		c[0] = prefix[0]
		if _, err := io.ReadFull(r, c[1:]); err != nil {
			return Asset{}, malformed("asset commitment", err)
		}
		return Asset{commitment: c}, nil
	default:
		return Asset{}, fmt.Errorf("%w: asset prefix 0x%02x", ErrMalformed, prefix[0])
	}
}

func writeValue(w io.Writer, v Value) error {
	switch {
	case v.explicit != nil:
		if _, err := w.Write([]byte{prefixExplicit}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, *v.explicit)
	case v.commitment != nil:
		_, err := w.Write(v.commitment)
		return err
	default:
		_, err := w.Write([]byte{prefixNull})
		return err
	}
}

func readValue(r io.Reader) (Value, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Value{}, malformed("value", err)
	}
	switch prefix[0] {
	case prefixNull:
		return Value{}, nil
	case prefixExplicit:
		var v uint64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return Value{}, malformed("explicit value", err)
		}
		return ExplicitValue(v), nil
	case 0x08, 0x09:
		c := make([]byte, CommitmentLen)
		c[0] = prefix[0]
		if _, err := io.ReadFull(r, c[1:]); err != nil {
			return Value{}, malformed("value commitment", err)
		}
		return Value{commitment: c}, nil
	default:
		return Value{}, fmt.Errorf("%w: value prefix 0x%02x", ErrMalformed, prefix[0])
	}
}

// serializeOutPoint is the outpoint encoding hashed into issuance entropy.
func serializeOutPoint(op OutPoint) []byte {
	var buf bytes.Buffer
	_ = writeOutPoint(&buf, op, op.Vout)
	return buf.Bytes()
}

// HashFromBytes converts a 32-byte slice into a chainhash.Hash.
func HashFromBytes(b []byte) (chainhash.Hash, error) {
	h, err := chainhash.NewHash(b)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return *h, nil
}
