package bid

import (
	"context"
	"errors"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-bidcalc/internal/common"
	"github.com/noah-isme/backend-bidcalc/internal/fees"
	"github.com/noah-isme/backend-bidcalc/internal/feestore"
	"github.com/noah-isme/backend-bidcalc/internal/obs"
)

// Service validates bid requests, loads the applicable fee rules and runs the engine.
type Service struct {
	store    feestore.Store
	calc     *fees.Calculator
	validate *validator.Validate
	tracer   trace.Tracer
}

// ServiceConfig configures the Service dependencies.
type ServiceConfig struct {
	Store feestore.Store
	// Calculator defaults to fees.DefaultCalculator.
	Calculator *fees.Calculator
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("bid service requires a fee store")
	}
	calc := cfg.Calculator
	if calc == nil {
		calc = fees.DefaultCalculator()
	}
	return &Service{
		store:    cfg.Store,
		calc:     calc,
		validate: newValidator(),
		tracer:   otel.Tracer("bidcalc/bid"),
	}, nil
}

// Calculate validates the request and returns the fee breakdown. Failures are
// *common.AppError values carrying the HTTP status to render.
func (s *Service) Calculate(ctx context.Context, req CalculateRequest) (CalculateResponse, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		obs.ObserveCalculation(fees.VehicleType(req.VehicleType).Code(), "invalid")
		return CalculateResponse{}, validationError(err)
	}
	res, err := s.Quote(ctx, req.VehicleBasePrice, fees.VehicleType(req.VehicleType))
	if err != nil {
		return CalculateResponse{}, toAppError(err)
	}
	return NewResponse(res), nil
}

// Quote loads the rules for the vehicle type and evaluates them against price.
// Errors are returned unwrapped from the engine and the store.
func (s *Service) Quote(ctx context.Context, price decimal.Decimal, vt fees.VehicleType) (res fees.Result, err error) {
	ctx, span := s.tracer.Start(ctx, "bid.Quote", trace.WithAttributes(
		attribute.String("bid.vehicle_type", vt.Code()),
		attribute.String("bid.base_price", price.String()),
	))
	defer func() {
		obs.ObserveCalculation(vt.Code(), outcome(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("bid.fee_count", len(res.Fees)),
				attribute.String("bid.total_cost", res.Total().StringFixed(fees.AmountPlaces)),
			)
		}
		span.End()
	}()

	if !price.IsPositive() {
		return fees.Result{}, fees.ErrInvalidPrice
	}
	if !vt.Valid() {
		return fees.Result{}, fees.ErrInvalidVehicleType
	}

	start := time.Now()
	rules, err := s.store.RulesForVehicleType(ctx, vt)
	lookup := "success"
	if err != nil {
		lookup = "error"
	}
	obs.ObserveRuleLookup(lookup, time.Since(start))
	if err != nil {
		return fees.Result{}, err
	}
	return s.calc.Calculate(price, vt, rules)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, fees.ErrInvalidPrice), errors.Is(err, fees.ErrInvalidVehicleType):
		return "invalid"
	case errors.Is(err, fees.ErrMisconfigured), errors.Is(err, feestore.ErrNoRules):
		return "misconfigured"
	default:
		return "error"
	}
}

func toAppError(err error) error {
	switch {
	case errors.Is(err, fees.ErrInvalidPrice):
		return common.BadRequest(common.CodeInvalidPrice, fees.ErrInvalidPrice.Error(), err)
	case errors.Is(err, fees.ErrInvalidVehicleType):
		return common.BadRequest(common.CodeInvalidVehicleType, "vehicle type must be 1 (Common) or 2 (Luxury)", err)
	default:
		return common.Internal(err)
	}
}
