package fees

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Fee codes with a registered evaluation strategy.
const (
	CodeBuyerFee       = "BUYER_FEE"
	CodeSpecialFee     = "SPECIAL_FEE"
	CodeAssociationFee = "ASSOCIATION_FEE"
	CodeStorageFee     = "STORAGE_FEE"
)

// VehicleType classifies a vehicle for category scoped fee rules.
type VehicleType int

const (
	Common VehicleType = 1
	Luxury VehicleType = 2
)

// Valid reports whether v is a known vehicle type.
func (v VehicleType) Valid() bool {
	return v == Common || v == Luxury
}

// Code returns the storage code used to scope fee rules.
func (v VehicleType) Code() string {
	switch v {
	case Common:
		return "COMMON"
	case Luxury:
		return "LUXURY"
	default:
		return ""
	}
}

func (v VehicleType) String() string {
	switch v {
	case Common:
		return "common"
	case Luxury:
		return "luxury"
	default:
		return fmt.Sprintf("vehicle_type(%d)", int(v))
	}
}

// ParseVehicleType accepts a storage code, a lowercase name, or the numeric form.
func ParseVehicleType(value string) (VehicleType, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "COMMON", "1":
		return Common, nil
	case "LUXURY", "2":
		return Luxury, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidVehicleType, value)
}

// Rule is one fee configuration row. Several rules may share a fee code, either one
// per vehicle type or one per price tier.
type Rule struct {
	FeeCode      string `json:"feeCode"`
	FeeName      string `json:"feeName"`
	DisplayOrder int    `json:"displayOrder"`
	// VehicleTypeCode scopes the rule to one vehicle type. Empty applies to all.
	VehicleTypeCode string `json:"vehicleTypeCode,omitempty"`

	Percentage       decimal.NullDecimal `json:"percentage"`
	MinAmountToApply decimal.NullDecimal `json:"minAmountToApply"`
	MaxAmountToApply decimal.NullDecimal `json:"maxAmountToApply"`
	FixedAmount      decimal.NullDecimal `json:"fixedAmount"`
	MinVehicleValue  decimal.NullDecimal `json:"minVehicleValue"`
	MaxVehicleValue  decimal.NullDecimal `json:"maxVehicleValue"`
}

// AppliesTo reports whether the rule is unscoped or scoped to v.
func (r Rule) AppliesTo(v VehicleType) bool {
	return r.VehicleTypeCode == "" || strings.EqualFold(r.VehicleTypeCode, v.Code())
}

// RuleGroup holds every rule sharing the same fee code, name and display order.
type RuleGroup struct {
	FeeCode      string
	FeeName      string
	DisplayOrder int
	Rules        []Rule
}

// AppliedFee is the evaluated amount for one rule group.
type AppliedFee struct {
	FeeCode      string
	FeeName      string
	Amount       decimal.Decimal
	DisplayOrder int
}

// Result is the outcome of a calculation. The total is always derived from the
// base price and the applied fees.
type Result struct {
	BasePrice decimal.Decimal
	Fees      []AppliedFee
}

// Total returns the base price plus every applied fee amount.
func (r Result) Total() decimal.Decimal {
	total := r.BasePrice
	for _, fee := range r.Fees {
		total = total.Add(fee.Amount)
	}
	return total
}

// Fee returns the applied fee with the given code, if present.
func (r Result) Fee(code string) (AppliedFee, bool) {
	for _, fee := range r.Fees {
		if fee.FeeCode == code {
			return fee, true
		}
	}
	return AppliedFee{}, false
}
