package feestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-bidcalc/internal/fees"
)

const rulesForVehicleTypeSQL = `
SELECT ft.code,
       ft.name,
       ft.display_order,
       COALESCE(vt.code, ''),
       fc.percentage,
       fc.min_amount_to_apply,
       fc.max_amount_to_apply,
       fc.fixed_amount,
       fc.min_vehicle_value,
       fc.max_vehicle_value
FROM fee_configurations fc
JOIN fee_types ft ON ft.id = fc.fee_type_id
LEFT JOIN vehicle_types vt ON vt.id = fc.vehicle_type_id
WHERE ft.is_active
  AND (fc.vehicle_type_id IS NULL OR vt.code = $1)
ORDER BY ft.display_order, fc.id`

// Querier is the subset of pgxpool.Pool used by PGStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore reads fee rules from PostgreSQL.
type PGStore struct {
	DB Querier
}

// RulesForVehicleType implements Store.
func (s PGStore) RulesForVehicleType(ctx context.Context, vt fees.VehicleType) ([]fees.Rule, error) {
	if s.DB == nil {
		return nil, errors.New("feestore: database not configured")
	}
	code := vt.Code()
	if code == "" {
		return nil, fmt.Errorf("%w: %d", fees.ErrInvalidVehicleType, int(vt))
	}
	rows, err := s.DB.Query(ctx, rulesForVehicleTypeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("query fee rules: %w", err)
	}
	rules, err := pgx.CollectRows(rows, scanRule)
	if err != nil {
		return nil, fmt.Errorf("scan fee rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, noRules(vt)
	}
	return rules, nil
}

func scanRule(row pgx.CollectableRow) (fees.Rule, error) {
	var (
		rule         fees.Rule
		displayOrder int32
		numerics     [6]pgtype.Numeric
	)
	if err := row.Scan(
		&rule.FeeCode,
		&rule.FeeName,
		&displayOrder,
		&rule.VehicleTypeCode,
		&numerics[0],
		&numerics[1],
		&numerics[2],
		&numerics[3],
		&numerics[4],
		&numerics[5],
	); err != nil {
		return fees.Rule{}, err
	}
	rule.DisplayOrder = int(displayOrder)

	targets := []*decimal.NullDecimal{
		&rule.Percentage,
		&rule.MinAmountToApply,
		&rule.MaxAmountToApply,
		&rule.FixedAmount,
		&rule.MinVehicleValue,
		&rule.MaxVehicleValue,
	}
	for i, target := range targets {
		value, err := numericToDecimal(numerics[i])
		if err != nil {
			return fees.Rule{}, fmt.Errorf("%s column %d: %w", rule.FeeCode, i+5, err)
		}
		*target = value
	}
	return rule, nil
}

func numericToDecimal(n pgtype.Numeric) (decimal.NullDecimal, error) {
	if !n.Valid {
		return decimal.NullDecimal{}, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.NullDecimal{}, errors.New("non-finite numeric")
	}
	if n.Int == nil {
		return decimal.NewNullDecimal(decimal.Zero), nil
	}
	return decimal.NewNullDecimal(decimal.NewFromBigInt(n.Int, n.Exp)), nil
}
