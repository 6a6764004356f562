package program

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const optionSource = `assert!(verify(param::OWNER, witness::SIG));
assert!(check_lock_height(param::EXPIRY));`

type countingCompiler struct {
	calls atomic.Int64
}

func (c *countingCompiler) Compile(source string, args Arguments) (*Program, error) {
	c.calls.Add(1)
	return TemplateCompiler{}.Compile(source, args)
}

func optionArgs() Arguments {
	return Arguments{"OWNER": "0x02aa", "EXPIRY": "800000"}
}

func TestTemplateCompiler(t *testing.T) {
	p, err := TemplateCompiler{}.Compile(optionSource, optionArgs())
	require.NoError(t, err)
	assert.Contains(t, string(p.Code), "verify(0x02aa, witness::SIG)")
	assert.Contains(t, string(p.Code), "check_lock_height(800000)")

	again, err := TemplateCompiler{}.Compile(optionSource, optionArgs())
	require.NoError(t, err)
	assert.Equal(t, p.CommitmentRoot(), again.CommitmentRoot())

	other, err := TemplateCompiler{}.Compile(optionSource, Arguments{"OWNER": "0x02aa", "EXPIRY": "800001"})
	require.NoError(t, err)
	assert.NotEqual(t, p.CommitmentRoot(), other.CommitmentRoot())

	_, err = TemplateCompiler{}.Compile(optionSource, Arguments{"OWNER": "0x02aa"})
	assert.ErrorIs(t, err, ErrCompile)

	args := optionArgs()
	args["EXTRA"] = "1"
	_, err = TemplateCompiler{}.Compile(optionSource, args)
	assert.ErrorIs(t, err, ErrCompile)

	_, err = TemplateCompiler{}.Compile("  ", nil)
	assert.ErrorIs(t, err, ErrCompile)
}

func TestArgumentsEncoding(t *testing.T) {
	a, err := optionArgs().Encode()
	require.NoError(t, err)
	b, err := Arguments{"EXPIRY": "800000", "OWNER": "0x02aa"}.Encode()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	decoded, err := DecodeArguments(a)
	require.NoError(t, err)
	assert.Equal(t, optionArgs(), decoded)

	_, err = DecodeArguments(nil)
	assert.Error(t, err)

	assert.NotEqual(t, Key(optionSource, a), Key(optionSource+" ", a))
	assert.Equal(t, Key(optionSource, a), Key(optionSource, b))
}

func TestContextMemoizes(t *testing.T) {
	compiler := &countingCompiler{}
	encoded, err := optionArgs().Encode()
	require.NoError(t, err)

	ctx := NewContext(compiler, nil)
	var wg sync.WaitGroup
	programs := make([]*Program, 16)
	for i := range programs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := ctx.Program(optionSource, encoded)
			assert.NoError(t, err)
			programs[i] = p
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), compiler.calls.Load())
	assert.Equal(t, int64(1), ctx.Compiled())
	assert.Equal(t, int64(len(programs)-1), ctx.Reused())
	for _, p := range programs {
		assert.Same(t, programs[0], p)
	}
}

func TestSharedCacheSpansContexts(t *testing.T) {
	compiler := &countingCompiler{}
	shared := NewCache(4)
	encoded, err := optionArgs().Encode()
	require.NoError(t, err)

	_, err = NewContext(compiler, shared).Program(optionSource, encoded)
	require.NoError(t, err)
	second := NewContext(compiler, shared)
	_, err = second.Program(optionSource, encoded)
	require.NoError(t, err)

	assert.Equal(t, int64(1), compiler.calls.Load())
	assert.Equal(t, int64(0), second.Compiled())
	assert.Equal(t, int64(1), second.Reused())
	_, ok := shared.Get(Key(optionSource, encoded))
	assert.True(t, ok)

	// a second request in the same context hits its memo
	_, err = second.Program(optionSource, encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Reused())

	// without a shared cache every query compiles again
	_, err = NewContext(compiler, nil).Program(optionSource, encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(2), compiler.calls.Load())

	assert.Nil(t, NewCache(0))
	_, ok = NewCache(0).Get(Key(optionSource, encoded))
	assert.False(t, ok)
}

func TestContextCompileError(t *testing.T) {
	encoded, err := Arguments{"OWNER": "0x02aa"}.Encode()
	require.NoError(t, err)

	ctx := NewContext(TemplateCompiler{}, nil)
	_, err = ctx.Program(optionSource, encoded)
	assert.ErrorIs(t, err, ErrCompile)
	assert.Equal(t, int64(0), ctx.Compiled())
	assert.Equal(t, int64(0), ctx.Reused())
}

func TestDerivation(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	prog, err := TemplateCompiler{}.Compile(optionSource, optionArgs())
	require.NoError(t, err)

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	seed := [32]byte{1, 2, 3}

	d, err := NewDerivation(prog, key.PubKey(), seed, params)
	require.NoError(t, err)
	require.NoError(t, d.Verify(prog, params))

	parsed, err := ParseDerivation(d.String(), params)
	require.NoError(t, err)
	assert.Equal(t, d.String(), parsed.String())
	assert.Equal(t, seed, parsed.Seed)
	require.NoError(t, parsed.Verify(prog, params))

	script, err := d.ScriptPubKey()
	require.NoError(t, err)
	assert.Len(t, script, 34)

	other, err := TemplateCompiler{}.Compile(optionSource, Arguments{"OWNER": "0x02bb", "EXPIRY": "800000"})
	require.NoError(t, err)
	assert.ErrorIs(t, d.Verify(other, params), ErrDerivationMismatch)

	otherSeed, err := NewDerivation(prog, key.PubKey(), [32]byte{9}, params)
	require.NoError(t, err)
	assert.NotEqual(t, d.String(), otherSeed.String())

	_, err = ParseDerivation("nonsense", params)
	assert.ErrorIs(t, err, ErrInvalidDerivation)
	_, err = ParseDerivation(d.String(), &chaincfg.MainNetParams)
	assert.ErrorIs(t, err, ErrInvalidDerivation)
}
