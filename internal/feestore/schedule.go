package feestore

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-bidcalc/internal/fees"
)

// DefaultSchedule returns the standard fee schedule. It matches the rows seeded by
// the database migrations.
func DefaultSchedule() []fees.Rule {
	const (
		buyerName       = "Basic Buyer Fee"
		specialName     = "Special Fee"
		associationName = "Association Fee"
		storageName     = "Storage Fee"
	)
	tier := func(min, max, amount string) fees.Rule {
		r := fees.Rule{
			FeeCode:         fees.CodeAssociationFee,
			FeeName:         associationName,
			DisplayOrder:    3,
			MinVehicleValue: amountOf(min),
			FixedAmount:     amountOf(amount),
		}
		if max != "" {
			r.MaxVehicleValue = amountOf(max)
		}
		return r
	}
	return []fees.Rule{
		{
			FeeCode: fees.CodeBuyerFee, FeeName: buyerName, DisplayOrder: 1, VehicleTypeCode: fees.Common.Code(),
			Percentage: amountOf("0.10"), MinAmountToApply: amountOf("10"), MaxAmountToApply: amountOf("50"),
		},
		{
			FeeCode: fees.CodeBuyerFee, FeeName: buyerName, DisplayOrder: 1, VehicleTypeCode: fees.Luxury.Code(),
			Percentage: amountOf("0.10"), MinAmountToApply: amountOf("25"), MaxAmountToApply: amountOf("200"),
		},
		{FeeCode: fees.CodeSpecialFee, FeeName: specialName, DisplayOrder: 2, VehicleTypeCode: fees.Common.Code(), Percentage: amountOf("0.02")},
		{FeeCode: fees.CodeSpecialFee, FeeName: specialName, DisplayOrder: 2, VehicleTypeCode: fees.Luxury.Code(), Percentage: amountOf("0.04")},
		tier("0", "500", "5"),
		tier("500", "1000", "10"),
		tier("1000", "3000", "15"),
		tier("3000", "", "20"),
		{FeeCode: fees.CodeStorageFee, FeeName: storageName, DisplayOrder: 4, FixedAmount: amountOf("100")},
	}
}

func amountOf(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}
