package coinstore

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
)

func TestPlanDefaults(t *testing.T) {
	p := buildPlan(NewFilter(), 0, 0)

	assert.Equal(t, joinSet(0), p.joins)
	assert.True(t, strings.HasPrefix(p.query, selectCoin+selectNoEntropy+selectNoContract+fromCoin))
	assert.Contains(t, p.query, "WHERE u.is_spent = 0")
	assert.True(t, strings.HasSuffix(p.query, orderCoin))
	assert.Empty(t, p.args)
}

func TestPlanLimitAndSpent(t *testing.T) {
	p := buildPlan(NewFilter().WithSpent().WithAsset(testAsset), 10, 20)

	assert.NotContains(t, p.query, "is_spent = 0")
	assert.True(t, strings.HasSuffix(p.query, orderCoin+" LIMIT ? OFFSET ?"))
	assert.Equal(t, []interface{}{testAsset[:], 10, 20}, p.args)
}

func TestPlanEntropyJoin(t *testing.T) {
	p := buildPlan(NewFilter().WithEntropy(), 0, 0)

	assert.Equal(t, joinEntropy, p.joins)
	assert.Contains(t, p.query, selectEntropy)
	assert.Contains(t, p.query, clauseEntropy)
	assert.NotContains(t, p.query, "contracts c")
}

func TestPlanContractJoin(t *testing.T) {
	root := chainhash.Hash{1}
	filters := []*Filter{
		NewFilter().WithDerivation("d"),
		NewFilter().WithSource("src"),
		NewFilter().WithCommitmentRoot(root),
	}
	for _, f := range filters {
		p := buildPlan(f, 0, 0)
		assert.Equal(t, joinContract, p.joins)
		assert.Contains(t, p.query, selectContract)
		assert.Contains(t, p.query, clauseContract)
		assert.NotContains(t, p.query, "contract_tokens")
		assert.Len(t, p.args, 1)
	}

	p := buildPlan(NewFilter().WithDerivation("d").WithSource("src").WithCommitmentRoot(root), 0, 0)
	src := HashSource("src")
	assert.Equal(t, []interface{}{"d", src[:], root[:]}, p.args)
	assert.Contains(t, p.query, "c.derivation = ? AND c.source_hash = ? AND c.commitment_root = ?")
}

func TestPlanTokenJoinReplacesScriptPath(t *testing.T) {
	p := buildPlan(NewFilter().WithTokenTag("option").WithDerivation("d").WithAsset(testAsset), 5, 0)

	assert.Equal(t, joinToken, p.joins)
	assert.Contains(t, p.query, clauseTokenHead+" AND c2.derivation = ?"+clauseTokenTail)
	assert.NotContains(t, p.query, clauseContract)
	// contract conditions narrow the token subquery, not the outer select
	assert.NotContains(t, p.query, "c.derivation = ?")
	assert.Equal(t, []interface{}{"option", "d", testAsset[:], 5, 0}, p.args)
	assert.Equal(t, strings.Count(p.query, "?"), len(p.args))
}

func TestPlanTokenSubqueryCarriesAllContractConditions(t *testing.T) {
	root := chainhash.Hash{2}
	f := NewFilter().WithTokenTag("option").WithDerivation("d").WithSource("src").WithCommitmentRoot(root)
	p := buildPlan(f, 0, 0)

	assert.Contains(t, p.query, "t2.tag = ? AND c2.derivation = ? AND c2.source_hash = ? AND c2.commitment_root = ?"+clauseTokenTail)
	assert.Equal(t, []interface{}{"option", "d", f.SourceHash[:], root[:]}, p.args)
	assert.Equal(t, strings.Count(p.query, "?"), len(p.args))
}

func TestPlanIsDeterministic(t *testing.T) {
	f := NewFilter().WithEntropy().WithSource("src").WithScriptPubKey([]byte{1})
	assert.Equal(t, buildPlan(f, 3, 6).query, buildPlan(f, 3, 9).query)
	assert.Equal(t, buildPlan(f, 3, 6).query, buildPlan(f, 3, 6).query)
}
