package fees

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fraction digits kept on applied fee amounts.
const AmountPlaces = 2

// Calculator dispatches rule groups to the strategy registered for their fee code.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	strategies map[string]Strategy
}

// NewCalculator registers the given strategies by code. A later strategy replaces
// an earlier one with the same code.
func NewCalculator(strategies ...Strategy) *Calculator {
	registry := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		if s == nil || s.Code() == "" {
			continue
		}
		registry[s.Code()] = s
	}
	return &Calculator{strategies: registry}
}

// DefaultCalculator returns a calculator wired with the buyer, special, association
// and storage fee strategies.
func DefaultCalculator() *Calculator {
	return NewCalculator(
		PercentageWithClamp{FeeCode: CodeBuyerFee},
		FlatPercentage{FeeCode: CodeSpecialFee},
		TieredFixedAmount{FeeCode: CodeAssociationFee},
		FixedAmount{FeeCode: CodeStorageFee},
	)
}

// Supports reports whether a strategy is registered for code.
func (c *Calculator) Supports(code string) bool {
	_, ok := c.strategies[code]
	return ok
}

// Calculate evaluates every supported rule group in display order and returns the
// breakdown. Unknown fee codes are skipped. Any strategy failure aborts the whole
// calculation.
func (c *Calculator) Calculate(price decimal.Decimal, vehicleType VehicleType, rules []Rule) (Result, error) {
	if !price.IsPositive() {
		return Result{}, ErrInvalidPrice
	}
	if !vehicleType.Valid() {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidVehicleType, int(vehicleType))
	}

	groups := GroupRules(rules)
	applied := make([]AppliedFee, 0, len(groups))
	for _, group := range groups {
		strategy, ok := c.strategies[group.FeeCode]
		if !ok {
			continue
		}
		amount, err := strategy.Evaluate(price, group.Rules)
		if err != nil {
			return Result{}, err
		}
		applied = append(applied, AppliedFee{
			FeeCode:      group.FeeCode,
			FeeName:      group.FeeName,
			Amount:       amount.Round(AmountPlaces),
			DisplayOrder: group.DisplayOrder,
		})
	}
	return Result{BasePrice: price, Fees: applied}, nil
}

type groupKey struct {
	code  string
	name  string
	order int
}

// GroupRules partitions rules by (fee code, fee name, display order) and returns the
// groups sorted by display order. Rules keep their input order inside a group and
// groups with equal display order keep first-seen order.
func GroupRules(rules []Rule) []RuleGroup {
	index := make(map[groupKey]int, len(rules))
	groups := make([]RuleGroup, 0, len(rules))
	for _, rule := range rules {
		key := groupKey{code: rule.FeeCode, name: rule.FeeName, order: rule.DisplayOrder}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, RuleGroup{
				FeeCode:      rule.FeeCode,
				FeeName:      rule.FeeName,
				DisplayOrder: rule.DisplayOrder,
			})
		}
		groups[i].Rules = append(groups[i].Rules, rule)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].DisplayOrder < groups[j].DisplayOrder
	})
	return groups
}
