package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-bidcalc/internal/bid"
	"github.com/noah-isme/backend-bidcalc/internal/fees"
	"github.com/noah-isme/backend-bidcalc/internal/obs"
)

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	var (
		price       string
		vehicleType string
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the total cost for a vehicle price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid --price %q: %w", price, err)
			}
			vt, err := fees.ParseVehicleType(vehicleType)
			if err != nil {
				return err
			}

			store, release, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			svc, err := bid.NewService(bid.ServiceConfig{Store: store})
			if err != nil {
				return err
			}
			logger := obs.NewLoggerTo(cmd.ErrOrStderr(), "console", opts.logLevel)
			logger.Debug().Str("price", amount.String()).Stringer("vehicle_type", vt).Msg("quoting")

			res, err := svc.Quote(cmd.Context(), amount, vt)
			if err != nil {
				return err
			}
			resp := bid.NewResponse(res)
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			return writeQuote(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&price, "price", "p", "", "vehicle base price")
	cmd.Flags().StringVarP(&vehicleType, "vehicle-type", "t", "common", "vehicle type: common (1) or luxury (2)")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeQuote(w io.Writer, resp bid.CalculateResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Vehicle price\t%s\t\n", resp.VehicleBasePrice)
	for _, fee := range resp.AppliedFees {
		fmt.Fprintf(tw, "%s\t%s\t\n", fee.FeeName, fee.Amount)
	}
	fmt.Fprintf(tw, "Total\t%s\t\n", resp.TotalCost)
	return tw.Flush()
}
