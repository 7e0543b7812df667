package feestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/backend-bidcalc/internal/fees"
)

// ErrNoRules is returned when no active fee rule applies to a vehicle type. This is a
// configuration error; an empty rule set is never a valid answer.
var ErrNoRules = errors.New("no fee configurations found")

// Store resolves the active fee rules for a vehicle type.
type Store interface {
	RulesForVehicleType(ctx context.Context, vt fees.VehicleType) ([]fees.Rule, error)
}

// applicable keeps the rules that are unscoped or scoped to vt, ordered by display
// order. Input order is preserved among equal display orders.
func applicable(rules []fees.Rule, vt fees.VehicleType) []fees.Rule {
	out := make([]fees.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.AppliesTo(vt) {
			out = append(out, rule)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out
}

func noRules(vt fees.VehicleType) error {
	return fmt.Errorf("%w for vehicle type %q", ErrNoRules, vt.Code())
}
