package coinstore

import (
	"strings"
)

type joinSet uint8

const (
	joinEntropy joinSet = 1 << iota
	joinContract
	joinToken
)

func (j joinSet) has(o joinSet) bool {
	return j&o != 0
}

const (
	selectCoin = `SELECT u.txid, u.vout, u.serialized, u.serialized_witness, u.asset_id, u.value, u.is_confidential, u.is_spent, b.blinding_key`

	selectEntropy   = `, e.asset_id, e.token_id, e.is_confidential, e.entropy`
	selectNoEntropy = `, NULL, NULL, NULL, NULL`

	selectContract   = `, c.derivation, c.script_pubkey, c.commitment_root, c.source_hash, c.arguments, c.metadata, s.source`
	selectNoContract = `, NULL, NULL, NULL, NULL, NULL, NULL, NULL`

	fromCoin = ` FROM utxos u LEFT JOIN blinder_keys b ON b.txid = u.txid AND b.vout = u.vout`

	clauseEntropy = ` LEFT JOIN asset_entropy e ON e.asset_id = u.asset_id OR e.token_id = u.asset_id`

	clauseContract = ` INNER JOIN contracts c ON c.script_pubkey = u.script_pubkey` +
		` INNER JOIN contract_sources s ON s.source_hash = c.source_hash`

	// One token row per output even when several instances tag the same
	// asset: the smallest derivation among the instances matching the filter.
	clauseTokenHead = ` INNER JOIN contract_tokens t ON t.rowid = (` +
		`SELECT t2.rowid FROM contract_tokens t2 INNER JOIN contracts c2 ON c2.derivation = t2.derivation` +
		` WHERE t2.asset_id = u.asset_id AND t2.tag = ?`
	clauseTokenTail = ` ORDER BY t2.derivation LIMIT 1)` +
		` INNER JOIN contracts c ON c.derivation = t.derivation` +
		` INNER JOIN contract_sources s ON s.source_hash = c.source_hash`

	orderCoin = ` ORDER BY u.value DESC, u.txid ASC, u.vout ASC`
)

// plan is a parameterized select for one filter page.
type plan struct {
	query string
	args  []interface{}
	joins joinSet
}

// buildPlan maps the fields of f to a fixed set of joins and conditions.
// limit <= 0 means no limit.
func buildPlan(f *Filter, limit, offset int) *plan {
	p := &plan{}

	if f.IncludeEntropy {
		p.joins |= joinEntropy
	}
	if f.TokenTag != "" {
		p.joins |= joinToken
	} else if f.Derivation != "" || f.SourceHash != nil || f.CommitmentRoot != nil {
		p.joins |= joinContract
	}

	var b strings.Builder
	b.WriteString(selectCoin)
	if p.joins.has(joinEntropy) {
		b.WriteString(selectEntropy)
	} else {
		b.WriteString(selectNoEntropy)
	}
	if p.joins.has(joinContract | joinToken) {
		b.WriteString(selectContract)
	} else {
		b.WriteString(selectNoContract)
	}

	b.WriteString(fromCoin)
	if p.joins.has(joinEntropy) {
		b.WriteString(clauseEntropy)
	}
	var conds []string
	switch {
	case p.joins.has(joinToken):
		// contract conditions narrow the instance picked for the token
		b.WriteString(clauseTokenHead)
		p.args = append(p.args, f.TokenTag)
		for _, c := range contractConds(f, "c2") {
			b.WriteString(" AND " + c.expr)
			p.args = append(p.args, c.arg)
		}
		b.WriteString(clauseTokenTail)
	case p.joins.has(joinContract):
		b.WriteString(clauseContract)
	}

	if !f.IncludeSpent {
		conds = append(conds, "u.is_spent = 0")
	}
	if f.AssetID != nil {
		conds = append(conds, "u.asset_id = ?")
		p.args = append(p.args, f.AssetID[:])
	}
	if f.ScriptPubKey != nil {
		conds = append(conds, "u.script_pubkey = ?")
		p.args = append(p.args, f.ScriptPubKey)
	}
	if p.joins.has(joinContract) {
		for _, c := range contractConds(f, "c") {
			conds = append(conds, c.expr)
			p.args = append(p.args, c.arg)
		}
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	b.WriteString(orderCoin)
	if limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		p.args = append(p.args, limit, offset)
	}

	p.query = b.String()
	return p
}

type cond struct {
	expr string
	arg  interface{}
}

// contractConds are the contract identity conditions of f on table alias.
func contractConds(f *Filter, alias string) []cond {
	var conds []cond
	if f.Derivation != "" {
		conds = append(conds, cond{alias + ".derivation = ?", f.Derivation})
	}
	if f.SourceHash != nil {
		conds = append(conds, cond{alias + ".source_hash = ?", f.SourceHash[:]})
	}
	if f.CommitmentRoot != nil {
		conds = append(conds, cond{alias + ".commitment_root = ?", f.CommitmentRoot[:]})
	}
	return conds
}
