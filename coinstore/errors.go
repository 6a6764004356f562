package coinstore

import (
	"errors"

	"github.com/TEENet-io/coin-store/blinding"
	"github.com/TEENet-io/coin-store/program"
)

var (
	// store lifecycle
	ErrAlreadyExists  = errors.New("store already exists")
	ErrNotFound       = errors.New("store not found")
	ErrNotInitialized = errors.New("store not initialized")

	// preconditions
	ErrUtxoAlreadyExists     = errors.New("utxo already exists")
	ErrContractAlreadyExists = errors.New("contract already exists")
	ErrContractNotFound      = errors.New("contract not found")
	ErrInvalidOutput         = errors.New("output has null asset or value")
	ErrValueOutOfRange       = errors.New("value exceeds the storable range")

	// integrity
	ErrMissingBlinderKey = errors.New("missing blinder key for confidential output")
	ErrMissingWitness    = errors.New("missing witness for confidential output")
	ErrCorrupted         = errors.New("stored data is corrupted")
	ErrValueOverflow     = errors.New("sum of values overflows")

	ErrUnblind            = blinding.ErrUnblind
	ErrCompile            = program.ErrCompile
	ErrDerivationMismatch = program.ErrDerivationMismatch
	ErrInvalidDerivation  = program.ErrInvalidDerivation
)
