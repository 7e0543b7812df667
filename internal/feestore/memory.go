package feestore

import (
	"context"

	"github.com/noah-isme/backend-bidcalc/internal/fees"
)

// MemoryStore serves a fixed rule list. Used when no database is configured and by
// the offline CLI.
type MemoryStore struct {
	rules []fees.Rule
}

// NewMemoryStore copies rules into a new store.
func NewMemoryStore(rules []fees.Rule) *MemoryStore {
	return &MemoryStore{rules: append([]fees.Rule(nil), rules...)}
}

// RulesForVehicleType implements Store.
func (s *MemoryStore) RulesForVehicleType(ctx context.Context, vt fees.VehicleType) ([]fees.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rules := applicable(s.rules, vt)
	if len(rules) == 0 {
		return nil, noRules(vt)
	}
	return rules, nil
}
