package program

import (
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

var (
	ErrCompile = errors.New("program compilation failed")

	tagCommitment = []byte("coinstore/program-commitment")

	paramPattern = regexp.MustCompile(`param::([A-Za-z_][A-Za-z0-9_]*)`)
)

// Program is an immutable compiled contract.
type Program struct {
	Source    string
	Arguments Arguments
	Code      []byte

	commitmentRoot chainhash.Hash
}

func NewProgram(source string, args Arguments, code []byte) *Program {
	return &Program{
		Source:         source,
		Arguments:      args,
		Code:           code,
		commitmentRoot: *chainhash.TaggedHash(tagCommitment, code),
	}
}

// CommitmentRoot identifies the compiled program independently of the
// address it is deployed at.
func (p *Program) CommitmentRoot() chainhash.Hash {
	return p.commitmentRoot
}

// Compiler turns a contract template plus arguments into a program.
// Implementations may be slow; callers memoize through Cache and Context.
type Compiler interface {
	Compile(source string, args Arguments) (*Program, error)
}

// TemplateCompiler resolves `param::NAME` placeholders in the template. Every
// placeholder needs an argument and every argument must be used.
type TemplateCompiler struct{}

func (TemplateCompiler) Compile(source string, args Arguments) (*Program, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: empty source", ErrCompile)
	}

	used := make(map[string]bool, len(args))
	var missing []string
	code := paramPattern.ReplaceAllStringFunc(source, func(m string) string {
		name := m[len("param::"):]
		value, ok := args[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		used[name] = true
		return value
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing arguments %v", ErrCompile, missing)
	}

	var unused []string
	for name := range args {
		if !used[name] {
			unused = append(unused, name)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		return nil, fmt.Errorf("%w: unused arguments %v", ErrCompile, unused)
	}

	return NewProgram(source, args, []byte(code)), nil
}

// Key is the content address of a (source, encoded arguments) pair.
func Key(source string, encodedArgs []byte) [32]byte {
	buf := make([]byte, 0, 8+len(source)+len(encodedArgs))
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(source)))
	buf = append(buf, source...)
	buf = append(buf, encodedArgs...)
	return chainhash.HashH(buf)
}
