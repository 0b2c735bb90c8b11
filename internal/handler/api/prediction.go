package api

import (
	"context"
	"errors"
	"time"

	"PriceCast/internal/domain/models"
	svcmetrics "PriceCast/internal/service/metrics"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/usecase"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PredictionHandler serves the prediction and product price endpoints.
type PredictionHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	products  *usecase.ProductService
	limiter   *ratelimit.Limiter // nil disables rate limiting
	metrics   *svcmetrics.AnalyticsMetrics
}

func NewPredictionHandler(
	logger *xlogger.Logger,
	predictor *usecase.Predictor,
	products *usecase.ProductService,
	limiter *ratelimit.Limiter,
	metrics *svcmetrics.AnalyticsMetrics,
) *PredictionHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &PredictionHandler{logger: logger, predictor: predictor, products: products, limiter: limiter, metrics: metrics}
}

func (h *PredictionHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)

	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.POST("/predict", h.Predict, h.rateLimit("predict"))
	g.POST("/batch-predict", h.BatchPredict, h.rateLimit("batch_predict"))
	g.POST("/predict/batch", h.BatchPredict, h.rateLimit("batch_predict"))
	g.POST("/analyze/trend", h.AnalyzeTrend, h.rateLimit("analyze_trend"))

	p := g.Group("/products/:id")
	p.POST("/prices", h.AppendPrices)
	p.GET("/history", h.History)
	p.POST("/predict", h.ProductPredict, h.rateLimit("product_predict"))
}

func (h *PredictionHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.predictor.Health())
}

func (h *PredictionHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.products.Ready(ctx); err != nil {
		h.logger.Warn("readiness check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("price store unavailable"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ready"})
}

func (h *PredictionHandler) Predict(c echo.Context) error {
	defer h.observe("predict", time.Now())
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.count("predict", "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.predictor.Predict(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "predict", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionHandler) BatchPredict(c echo.Context) error {
	defer h.observe("batch_predict", time.Now())
	req := &models.BatchPredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.count("batch_predict", "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.predictor.BatchPredict(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "batch_predict", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionHandler) AnalyzeTrend(c echo.Context) error {
	defer h.observe("analyze_trend", time.Now())
	req := &models.AnalyzeTrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.count("analyze_trend", "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.predictor.AnalyzeTrend(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "analyze_trend", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionHandler) AppendPrices(c echo.Context) error {
	defer h.observe("append_prices", time.Now())
	req := &models.AppendPricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.count("append_prices", "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.products.Append(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.fail(c, "append_prices", err)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *PredictionHandler) History(c echo.Context) error {
	defer h.observe("product_history", time.Now())
	res, err := h.products.History(c.Request().Context(), c.Param("id"), xhttp.QueryInt(c, "limit", 0))
	if err != nil {
		return h.fail(c, "product_history", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionHandler) ProductPredict(c echo.Context) error {
	defer h.observe("product_predict", time.Now())
	req := &models.ProductPredictRequest{}
	// Bind skips query params on POST
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, req); err != nil {
		h.count("product_predict", "ERR_VALIDATION")
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("invalid query parameters").WithError(err))
	}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.count("product_predict", "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.products.PredictProduct(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.fail(c, "product_predict", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// fail maps usecase errors to transport errors. Internal details are logged,
// never returned.
func (h *PredictionHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, models.ErrNotFound):
		appErr = xhttp.NotFoundError(err.Error())
	case models.IsClientError(err):
		appErr = xhttp.BadRequestError(err.Error())
	default:
		h.logger.Error("usecase error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
		appErr = xhttp.InternalError("Internal server error during prediction")
	}
	h.count(endpoint, appErr.Code)
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}

func (h *PredictionHandler) rateLimit(endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if h.limiter != nil && !h.limiter.Allow(xhttp.ClientKey(c)) {
				h.count(endpoint, "ERR_RATE_LIMITED")
				c.Response().Header().Set("Retry-After", "1")
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}

func (h *PredictionHandler) observe(endpoint string, start time.Time) {
	if h.metrics != nil {
		h.metrics.Observe(endpoint, time.Since(start).Seconds())
	}
}

func (h *PredictionHandler) count(endpoint, code string) {
	if h.metrics != nil {
		h.metrics.Error(endpoint, code)
	}
}

var _ xhttp.Handler = (*PredictionHandler)(nil)

