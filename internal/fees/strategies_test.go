package fees

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func nd(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(v))
}

func TestPercentageWithClamp(t *testing.T) {
	strategy := PercentageWithClamp{FeeCode: CodeBuyerFee}
	rules := []Rule{{FeeCode: CodeBuyerFee, Percentage: nd("0.10"), MinAmountToApply: nd("10"), MaxAmountToApply: nd("50")}}

	cases := []struct {
		price string
		want  string
	}{
		{"57", "10"},
		{"398", "39.8"},
		{"501", "50"},
		{"100", "10"},
		{"500", "50"},
	}
	for _, tc := range cases {
		got, err := strategy.Evaluate(dec(tc.price), rules)
		require.NoError(t, err, tc.price)
		require.True(t, got.Equal(dec(tc.want)), "price %s: expected %s got %s", tc.price, tc.want, got)
	}
}

func TestPercentageWithClampUnbounded(t *testing.T) {
	strategy := PercentageWithClamp{FeeCode: CodeBuyerFee}
	rules := []Rule{{FeeCode: CodeBuyerFee, Percentage: nd("0.10")}}
	got, err := strategy.Evaluate(dec("1000000"), rules)
	require.NoError(t, err)
	require.Equal(t, "100000", got.String())
}

func TestPercentageWithClampRequiresPercentage(t *testing.T) {
	strategy := PercentageWithClamp{FeeCode: CodeBuyerFee}
	_, err := strategy.Evaluate(dec("100"), []Rule{{FeeCode: CodeBuyerFee, MinAmountToApply: nd("10")}})
	require.ErrorIs(t, err, ErrMisconfigured)
	require.Contains(t, err.Error(), "percentage not configured")

	_, err = strategy.Evaluate(dec("100"), nil)
	require.ErrorIs(t, err, ErrMisconfigured)
}

func TestPercentageStrategiesRejectNonPositivePrice(t *testing.T) {
	rules := []Rule{{Percentage: nd("0.10")}}
	for _, s := range []Strategy{PercentageWithClamp{FeeCode: CodeBuyerFee}, FlatPercentage{FeeCode: CodeSpecialFee}} {
		for _, price := range []string{"0", "-1"} {
			_, err := s.Evaluate(dec(price), rules)
			require.ErrorIs(t, err, ErrInvalidPrice, "%s price %s", s.Code(), price)
		}
	}
}

func TestFlatPercentage(t *testing.T) {
	strategy := FlatPercentage{FeeCode: CodeSpecialFee}
	got, err := strategy.Evaluate(dec("398"), []Rule{{Percentage: nd("0.02")}})
	require.NoError(t, err)
	require.True(t, got.Equal(dec("7.96")), "got %s", got)

	_, err = strategy.Evaluate(dec("398"), []Rule{{FixedAmount: nd("1")}})
	require.ErrorIs(t, err, ErrMisconfigured)
}

func TestFixedAmount(t *testing.T) {
	strategy := FixedAmount{FeeCode: CodeStorageFee}
	got, err := strategy.Evaluate(dec("1"), []Rule{{FixedAmount: nd("100")}})
	require.NoError(t, err)
	require.True(t, got.Equal(dec("100")))

	// price is validated by the calculator, not here
	got, err = strategy.Evaluate(dec("0"), []Rule{{FixedAmount: nd("100")}})
	require.NoError(t, err)
	require.True(t, got.Equal(dec("100")))

	_, err = strategy.Evaluate(dec("1"), []Rule{{Percentage: nd("0.1")}})
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, CodeStorageFee, cfgErr.FeeCode)
	require.Equal(t, "fixed amount not configured", cfgErr.Reason)
}

func associationTiers() []Rule {
	return []Rule{
		{MinVehicleValue: nd("3000"), FixedAmount: nd("20")},
		{MinVehicleValue: nd("1000"), MaxVehicleValue: nd("3000"), FixedAmount: nd("15")},
		{MinVehicleValue: nd("0"), MaxVehicleValue: nd("500"), FixedAmount: nd("5")},
		{MinVehicleValue: nd("500"), MaxVehicleValue: nd("1000"), FixedAmount: nd("10")},
	}
}

func TestTieredFixedAmountBoundaries(t *testing.T) {
	strategy := TieredFixedAmount{FeeCode: CodeAssociationFee}
	cases := []struct {
		price string
		want  string
	}{
		{"0.01", "5"},
		{"500", "5"},
		{"500.01", "10"},
		{"1000", "10"},
		{"1000.01", "15"},
		{"3000", "15"},
		{"3000.01", "20"},
		{"1000000", "20"},
	}
	for _, tc := range cases {
		got, err := strategy.Evaluate(dec(tc.price), associationTiers())
		require.NoError(t, err, tc.price)
		require.True(t, got.Equal(dec(tc.want)), "price %s: expected %s got %s", tc.price, tc.want, got)
	}
}

func TestTieredFixedAmountFailures(t *testing.T) {
	strategy := TieredFixedAmount{FeeCode: CodeAssociationFee}

	_, err := strategy.Evaluate(dec("0"), associationTiers())
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = strategy.Evaluate(dec("100"), []Rule{{FixedAmount: nd("5")}})
	require.ErrorIs(t, err, ErrMisconfigured)
	require.Contains(t, err.Error(), "no tiers configured")

	gap := []Rule{{MinVehicleValue: nd("1000"), MaxVehicleValue: nd("2000"), FixedAmount: nd("5")}}
	_, err = strategy.Evaluate(dec("999.99"), gap)
	require.ErrorIs(t, err, ErrMisconfigured)
	require.Contains(t, err.Error(), "out of configured range")

	_, err = strategy.Evaluate(dec("2000.01"), gap)
	require.ErrorIs(t, err, ErrMisconfigured)
}
