package feestore

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-bidcalc/internal/fees"
)

type fakeRows struct {
	data   [][]any
	pos    int
	closed bool
	err    error
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch target := d.(type) {
		case *string:
			*target = row[i].(string)
		case *int32:
			*target = row[i].(int32)
		case *pgtype.Numeric:
			*target = row[i].(pgtype.Numeric)
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

type fakeQuerier struct {
	rows    *fakeRows
	err     error
	lastSQL string
	args    []any
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.lastSQL = sql
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func num(unscaled int64, exp int32) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(unscaled), Exp: exp, Valid: true}
}

var null = pgtype.Numeric{}

func TestPGStoreMapsRows(t *testing.T) {
	rows := &fakeRows{data: [][]any{
		{"BUYER_FEE", "Basic Buyer Fee", int32(1), "LUXURY", num(100000, -6), num(2500, -2), num(20000, -2), null, null, null},
		{"ASSOCIATION_FEE", "Association Fee", int32(3), "", null, null, null, num(2000, -2), num(300000, -2), null},
		{"STORAGE_FEE", "Storage Fee", int32(4), "", null, null, null, num(100, 0), null, null},
	}}
	q := &fakeQuerier{rows: rows}
	store := PGStore{DB: q}

	rules, err := store.RulesForVehicleType(context.Background(), fees.Luxury)
	require.NoError(t, err)
	require.True(t, rows.closed)
	require.Equal(t, []any{"LUXURY"}, q.args)
	require.Contains(t, q.lastSQL, "ft.is_active")
	require.Len(t, rules, 3)

	buyer := rules[0]
	require.Equal(t, "BUYER_FEE", buyer.FeeCode)
	require.Equal(t, 1, buyer.DisplayOrder)
	require.Equal(t, "LUXURY", buyer.VehicleTypeCode)
	require.Equal(t, "0.1", buyer.Percentage.Decimal.String())
	require.Equal(t, "25", buyer.MinAmountToApply.Decimal.String())
	require.Equal(t, "200", buyer.MaxAmountToApply.Decimal.String())
	require.False(t, buyer.FixedAmount.Valid)

	tier := rules[1]
	require.Empty(t, tier.VehicleTypeCode)
	require.True(t, tier.MinVehicleValue.Valid)
	require.Equal(t, "3000", tier.MinVehicleValue.Decimal.String())
	require.False(t, tier.MaxVehicleValue.Valid)
	require.Equal(t, "20", tier.FixedAmount.Decimal.String())

	require.Equal(t, "100", rules[2].FixedAmount.Decimal.String())
}

func TestPGStoreEmptyResult(t *testing.T) {
	store := PGStore{DB: &fakeQuerier{rows: &fakeRows{}}}
	_, err := store.RulesForVehicleType(context.Background(), fees.Common)
	require.ErrorIs(t, err, ErrNoRules)
	require.Contains(t, err.Error(), "COMMON")
}

func TestPGStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := PGStore{DB: &fakeQuerier{err: boom}}.RulesForVehicleType(context.Background(), fees.Common)
	require.ErrorIs(t, err, boom)

	_, err = PGStore{DB: &fakeQuerier{rows: &fakeRows{err: boom}}}.RulesForVehicleType(context.Background(), fees.Common)
	require.ErrorIs(t, err, boom)

	_, err = PGStore{DB: &fakeQuerier{rows: &fakeRows{}}}.RulesForVehicleType(context.Background(), fees.VehicleType(9))
	require.ErrorIs(t, err, fees.ErrInvalidVehicleType)

	_, err = PGStore{}.RulesForVehicleType(context.Background(), fees.Common)
	require.Error(t, err)

	nan := pgtype.Numeric{NaN: true, Valid: true}
	rows := &fakeRows{data: [][]any{{"SPECIAL_FEE", "Special Fee", int32(2), "COMMON", nan, null, null, null, null, null}}}
	_, err = PGStore{DB: &fakeQuerier{rows: rows}}.RulesForVehicleType(context.Background(), fees.Common)
	require.ErrorContains(t, err, "non-finite")
}
