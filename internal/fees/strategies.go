package fees

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Strategy evaluates one rule group against a vehicle price.
type Strategy interface {
	Code() string
	Evaluate(price decimal.Decimal, rules []Rule) (decimal.Decimal, error)
}

// PercentageWithClamp charges a percentage of the price bounded by the rule's
// minimum and maximum amounts.
type PercentageWithClamp struct {
	FeeCode string
}

// Code implements Strategy.
func (s PercentageWithClamp) Code() string { return s.FeeCode }

// Evaluate implements Strategy.
func (s PercentageWithClamp) Evaluate(price decimal.Decimal, rules []Rule) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %w", s.FeeCode, ErrInvalidPrice)
	}
	if len(rules) == 0 {
		return decimal.Zero, misconfigured(s.FeeCode, "no configuration found")
	}
	rule := rules[0]
	if !rule.Percentage.Valid {
		return decimal.Zero, misconfigured(s.FeeCode, "percentage not configured")
	}

	fee := price.Mul(rule.Percentage.Decimal)
	if rule.MinAmountToApply.Valid {
		if fee.LessThan(rule.MinAmountToApply.Decimal) {
			return rule.MinAmountToApply.Decimal, nil
		}
	} else if fee.IsNegative() {
		return decimal.Zero, nil
	}
	if rule.MaxAmountToApply.Valid && fee.GreaterThan(rule.MaxAmountToApply.Decimal) {
		return rule.MaxAmountToApply.Decimal, nil
	}
	return fee, nil
}

// FlatPercentage charges a percentage of the price without bounds.
type FlatPercentage struct {
	FeeCode string
}

// Code implements Strategy.
func (s FlatPercentage) Code() string { return s.FeeCode }

// Evaluate implements Strategy.
func (s FlatPercentage) Evaluate(price decimal.Decimal, rules []Rule) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %w", s.FeeCode, ErrInvalidPrice)
	}
	if len(rules) == 0 {
		return decimal.Zero, misconfigured(s.FeeCode, "no configuration found")
	}
	if !rules[0].Percentage.Valid {
		return decimal.Zero, misconfigured(s.FeeCode, "percentage not configured")
	}
	return price.Mul(rules[0].Percentage.Decimal), nil
}

// FixedAmount charges the configured amount regardless of price. Price validation
// is left to the calculator.
type FixedAmount struct {
	FeeCode string
}

// Code implements Strategy.
func (s FixedAmount) Code() string { return s.FeeCode }

// Evaluate implements Strategy.
func (s FixedAmount) Evaluate(_ decimal.Decimal, rules []Rule) (decimal.Decimal, error) {
	if len(rules) == 0 {
		return decimal.Zero, misconfigured(s.FeeCode, "no configuration found")
	}
	if !rules[0].FixedAmount.Valid {
		return decimal.Zero, misconfigured(s.FeeCode, "fixed amount not configured")
	}
	return rules[0].FixedAmount.Decimal, nil
}

// TieredFixedAmount charges the fixed amount of the price tier containing the
// price. Tiers are open at the bottom and closed at the top: (min, max].
type TieredFixedAmount struct {
	FeeCode string
}

// Code implements Strategy.
func (s TieredFixedAmount) Code() string { return s.FeeCode }

// Evaluate implements Strategy.
func (s TieredFixedAmount) Evaluate(price decimal.Decimal, rules []Rule) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %w", s.FeeCode, ErrInvalidPrice)
	}

	tiers := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.MinVehicleValue.Valid && rule.FixedAmount.Valid {
			tiers = append(tiers, rule)
		}
	}
	if len(tiers) == 0 {
		return decimal.Zero, misconfigured(s.FeeCode, "no tiers configured")
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinVehicleValue.Decimal.LessThan(tiers[j].MinVehicleValue.Decimal)
	})

	for _, tier := range tiers {
		if !price.GreaterThan(tier.MinVehicleValue.Decimal) {
			continue
		}
		if tier.MaxVehicleValue.Valid && price.GreaterThan(tier.MaxVehicleValue.Decimal) {
			continue
		}
		return tier.FixedAmount.Decimal, nil
	}
	return decimal.Zero, misconfigured(s.FeeCode, "vehicle price %s is out of configured range", price.String())
}
