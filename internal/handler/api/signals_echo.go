package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "SentiTrade/internal/domain/models"
	domrepo "SentiTrade/internal/domain/repository"
	"SentiTrade/internal/services/engine"
	"SentiTrade/internal/usecase"
	xhttp "SentiTrade/pkg/http"
	xlogger "SentiTrade/pkg/logger"
)

// SignalsEchoHandler serves the signal lifecycle and backtest endpoints.
type SignalsEchoHandler struct {
	logger  *xlogger.Logger
	gen     *usecase.SignalGenerator
	runner  *usecase.BacktestRunner
	store   domrepo.SignalStore
	candles *usecase.CandlesUseCase
	health  func(ctx context.Context) error
	legacy  *SignalsHandler
}

func NewSignalsEchoHandler(logger *xlogger.Logger, gen *usecase.SignalGenerator, runner *usecase.BacktestRunner, store domrepo.SignalStore, candles *usecase.CandlesUseCase) *SignalsEchoHandler {
	return &SignalsEchoHandler{logger: logger, gen: gen, runner: runner, store: store, candles: candles}
}

// SetHealthCheck injects the infrastructure health check for /healthz.
func (h *SignalsEchoHandler) SetHealthCheck(fn func(ctx context.Context) error) { h.health = fn }

// SetLegacy mounts the cached plain net/http read surface under /signals.
func (h *SignalsEchoHandler) SetLegacy(lh *SignalsHandler) { h.legacy = lh }

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	g := e.Group("/api")
	g.GET("/signals/latest", h.Latest)
	g.POST("/signals/evaluate", h.Evaluate)
	g.POST("/signals/:id/accept", h.Accept)
	g.POST("/signals/:id/dismiss", h.Dismiss)
	g.GET("/signals/history", h.History)
	g.GET("/candles", h.Candles)
	g.POST("/backtest/run", h.BacktestRun)
	g.GET("/backtest/status/:id", h.BacktestStatus)

	// Cached read surface for dashboard polling.
	if h.legacy != nil {
		e.GET("/signals/latest", echo.WrapHandler(h.legacy.Latest()))
		e.GET("/signals/history", echo.WrapHandler(h.legacy.History()))
	}
}

func (h *SignalsEchoHandler) Healthz(c echo.Context) error {
	if h.health != nil {
		if err := h.health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SignalsEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sig, err := h.gen.GetLatest(c.Request().Context(), req.Asset)
	if err != nil {
		return h.fail(c, "latest", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, sig)
}

func (h *SignalsEchoHandler) Evaluate(c echo.Context) error {
	start := time.Now()
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	eval, err := h.gen.Evaluate(c.Request().Context(), req.Asset)
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	h.logger.Info("evaluation served",
		xlogger.String("asset", req.Asset),
		xlogger.Duration("duration_ms", time.Since(start)),
	)
	return xhttp.SuccessResponse(c, eval)
}

func (h *SignalsEchoHandler) Accept(c echo.Context) error {
	sig, err := h.gen.Accept(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "accept", err)
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *SignalsEchoHandler) Dismiss(c echo.Context) error {
	sig, err := h.gen.Dismiss(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "dismiss", err)
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *SignalsEchoHandler) History(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.store == nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("signal store unavailable"))
	}
	rows, err := h.store.History(c.Request().Context(), req.Asset, req.Limit)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SignalsEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, okF := xhttp.ParseTime(req.From)
	to, okT := xhttp.ParseTime(req.To)
	if !okF || !okT {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("from/to must be RFC3339 or unix seconds"))
	}
	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Asset:     req.Asset,
		From:      from,
		To:        to,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		Limit:     req.Limit,
	})
	if err != nil {
		return h.fail(c, "candles", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) BacktestRun(c echo.Context) error {
	req := &models.BacktestRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, jobID, err := h.runner.Run(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "backtest_run", err)
	}
	if jobID != "" {
		return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"job_id": jobID})
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) BacktestStatus(c echo.Context) error {
	p, err := h.runner.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "backtest_status", err)
	}
	return xhttp.SuccessResponse(c, p)
}

// fail logs and maps engine error kinds onto HTTP statuses.
func (h *SignalsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	h.logger.Error(endpoint+" error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, mapError(err))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrSignalNotFound), errors.Is(err, usecase.ErrJobNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrTerminalState):
		return xhttp.NewAppError("ERR_TERMINAL_STATE", "", err.Error(), http.StatusConflict).WithError(err)
	}
	switch engine.KindOf(err) {
	case engine.KindInsufficientData:
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case engine.KindInvalidRiskParameters, engine.KindInvalidConfiguration:
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case engine.KindStaleFeed:
		return xhttp.NewAppError("ERR_STALE_FEED", "", err.Error(), http.StatusServiceUnavailable).WithError(err)
	case engine.KindSimulationTimeout:
		return xhttp.NewAppError("ERR_SIMULATION_TIMEOUT", "", err.Error(), http.StatusGatewayTimeout).WithError(err)
	}
	return err
}
