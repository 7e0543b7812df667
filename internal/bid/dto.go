package bid

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-bidcalc/internal/fees"
)

// CalculateRequest is the payload accepted by the calculate endpoint. The price
// decodes from a JSON number or a numeric string.
type CalculateRequest struct {
	VehicleBasePrice decimal.Decimal `json:"vehicleBasePrice" validate:"gt=0,lte=79228162514264337593543950335"`
	VehicleType      int             `json:"vehicleType" validate:"oneof=1 2"`
}

// CalculateResponse is the fee breakdown returned to the form.
type CalculateResponse struct {
	VehicleBasePrice Money        `json:"vehicleBasePrice"`
	AppliedFees      []AppliedFee `json:"appliedFees"`
	TotalCost        Money        `json:"totalCost"`
}

// AppliedFee is one line of the breakdown.
type AppliedFee struct {
	FeeCode      string `json:"feeCode"`
	FeeName      string `json:"feeName"`
	Amount       Money  `json:"amount"`
	DisplayOrder int    `json:"displayOrder"`
}

// Money renders as a JSON number with exactly two fraction digits.
type Money decimal.Decimal

// Decimal returns the underlying value.
func (m Money) Decimal() decimal.Decimal { return decimal.Decimal(m) }

// String formats the amount with two fraction digits.
func (m Money) String() string { return decimal.Decimal(m).StringFixed(fees.AmountPlaces) }

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// NewResponse maps an engine result onto the wire shape.
func NewResponse(res fees.Result) CalculateResponse {
	applied := make([]AppliedFee, 0, len(res.Fees))
	for _, fee := range res.Fees {
		applied = append(applied, AppliedFee{
			FeeCode:      fee.FeeCode,
			FeeName:      fee.FeeName,
			Amount:       Money(fee.Amount),
			DisplayOrder: fee.DisplayOrder,
		})
	}
	return CalculateResponse{
		VehicleBasePrice: Money(res.BasePrice),
		AppliedFees:      applied,
		TotalCost:        Money(res.Total()),
	}
}
