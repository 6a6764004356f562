package program

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

var (
	ErrInvalidDerivation  = errors.New("invalid contract derivation")
	ErrDerivationMismatch = errors.New("derivation does not commit to program")

	tagContractLeaf = []byte("coinstore/contract-leaf")
)

// Derivation identifies one deployed instance of a contract: the taproot
// output key commits to the program's commitment root and a per-instance seed.
// Its canonical form is "<seed>:<internal key>:<address>".
type Derivation struct {
	Seed        [32]byte
	InternalKey *btcec.PublicKey
	Address     *btcutil.AddressTaproot
}

// NewDerivation deploys prog under internalKey for the given network.
func NewDerivation(prog *Program, internalKey *btcec.PublicKey, seed [32]byte, params *chaincfg.Params) (*Derivation, error) {
	outputKey := outputKeyFor(prog, internalKey, seed)
	addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), params)
	if err != nil {
		return nil, err
	}
	return &Derivation{Seed: seed, InternalKey: internalKey, Address: addr}, nil
}

// ParseDerivation decodes the canonical string form.
func ParseDerivation(s string, params *chaincfg.Params) (*Derivation, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expect 3 parts, got %d", ErrInvalidDerivation, len(parts))
	}

	seedBytes, err := hex.DecodeString(parts[0])
	if err != nil || len(seedBytes) != 32 {
		return nil, fmt.Errorf("%w: seed", ErrInvalidDerivation)
	}
	keyBytes, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: internal key", ErrInvalidDerivation)
	}
	internalKey, err := schnorr.ParsePubKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: internal key: %v", ErrInvalidDerivation, err)
	}
	decoded, err := btcutil.DecodeAddress(parts[2], params)
	if err != nil {
		return nil, fmt.Errorf("%w: address: %v", ErrInvalidDerivation, err)
	}
	addr, ok := decoded.(*btcutil.AddressTaproot)
	if !ok {
		return nil, fmt.Errorf("%w: not a taproot address", ErrInvalidDerivation)
	}
	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("%w: address is not for network %s", ErrInvalidDerivation, params.Name)
	}

	d := &Derivation{InternalKey: internalKey, Address: addr}
	copy(d.Seed[:], seedBytes)
	return d, nil
}

func (d *Derivation) String() string {
	return fmt.Sprintf("%x:%x:%s", d.Seed[:], schnorr.SerializePubKey(d.InternalKey), d.Address.EncodeAddress())
}

func (d *Derivation) ScriptPubKey() ([]byte, error) {
	return txscript.PayToAddrScript(d.Address)
}

// Verify checks that the address commits to prog and belongs to params.
func (d *Derivation) Verify(prog *Program, params *chaincfg.Params) error {
	if !d.Address.IsForNet(params) {
		return fmt.Errorf("%w: address is not for network %s", ErrDerivationMismatch, params.Name)
	}
	expected := schnorr.SerializePubKey(outputKeyFor(prog, d.InternalKey, d.Seed))
	if !bytes.Equal(expected, d.Address.ScriptAddress()) {
		return fmt.Errorf("%w: commitment root %s", ErrDerivationMismatch, prog.CommitmentRoot())
	}
	return nil
}

func outputKeyFor(prog *Program, internalKey *btcec.PublicKey, seed [32]byte) *btcec.PublicKey {
	root := prog.CommitmentRoot()
	leaf := chainhash.TaggedHash(tagContractLeaf, root[:], seed[:])
	return txscript.ComputeTaprootOutputKey(internalKey, leaf[:])
}
