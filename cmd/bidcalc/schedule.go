package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-bidcalc/internal/db"
	"github.com/noah-isme/backend-bidcalc/internal/fees"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var vehicleType string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "List the fee rules that apply to a vehicle type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vt, err := fees.ParseVehicleType(vehicleType)
			if err != nil {
				return err
			}
			store, release, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			rules, err := store.RulesForVehicleType(cmd.Context(), vt)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), rules)
			}
			return writeSchedule(cmd.OutOrStdout(), rules)
		},
	}
	cmd.Flags().StringVarP(&vehicleType, "vehicle-type", "t", "common", "vehicle type: common (1) or luxury (2)")
	return cmd
}

func writeSchedule(w io.Writer, rules []fees.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tCODE\tSCOPE\tPERCENT\tMIN\tMAX\tFIXED\tPRICE RANGE")
	for _, r := range rules {
		scope := r.VehicleTypeCode
		if scope == "" {
			scope = "ALL"
		}
		percent := "-"
		if r.Percentage.Valid {
			percent = r.Percentage.Decimal.Shift(2).String() + "%"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.DisplayOrder, r.FeeCode, scope, percent,
			nullable(r.MinAmountToApply), nullable(r.MaxAmountToApply), nullable(r.FixedAmount),
			priceRange(r))
	}
	return tw.Flush()
}

func nullable(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(fees.AmountPlaces)
}

func priceRange(r fees.Rule) string {
	if !r.MinVehicleValue.Valid {
		return "-"
	}
	upper := "∞"
	if r.MaxVehicleValue.Valid {
		upper = r.MaxVehicleValue.Decimal.StringFixed(fees.AmountPlaces)
	}
	return fmt.Sprintf("(%s, %s]", r.MinVehicleValue.Decimal.StringFixed(fees.AmountPlaces), upper)
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the fee schema and seed the default schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.requireDatabase(); err != nil {
				return err
			}
			version, err := db.Migrate(opts.databaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}
