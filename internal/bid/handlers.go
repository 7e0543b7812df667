package bid

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-bidcalc/internal/common"
	"github.com/noah-isme/backend-bidcalc/internal/security"
)

// Handler exposes the bid calculator endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Calculate handles POST /api/v1/bid-calculator/calculate.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		h.writeError(w, r, common.Internal(nil))
		return
	}
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if security.IsTooLarge(err) {
			security.WriteTooLarge(w)
			return
		}
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request payload", nil)
		return
	}
	resp, err := h.service.Calculate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := common.AsAppError(err)
	if !ok {
		appErr = common.Internal(err)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		traceID := requestTraceID(r)
		evt := zerolog.Ctx(r.Context()).Error().Str("trace_id", traceID)
		if appErr.Err != nil {
			evt = evt.Err(appErr.Err)
		}
		evt.Msg("bid calculation failed")
		appErr = appErr.WithDetails(map[string]string{"traceId": traceID})
	}
	common.WriteAppError(w, appErr)
}

// requestTraceID prefers the request id so clients can quote it to support.
func requestTraceID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
