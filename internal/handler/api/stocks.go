package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"StockDesk/internal/domain/models"
	"StockDesk/internal/service/ratelimit"
	"StockDesk/pkg/fanout"
	xhttp "StockDesk/pkg/http"
	xlogger "StockDesk/pkg/logger"
	"StockDesk/pkg/util"

	"github.com/labstack/echo/v4"
)

// maxWait caps the wait query parameter.
const maxWait = 30 * time.Second

type DetailLoader interface {
	Load(ctx context.Context, owner, ticker string, wait time.Duration) (*models.StockDetail, error)
}

type PortfolioLoader interface {
	Load(ctx context.Context, owner string, wait time.Duration) (*models.Portfolio, error)
}

type WatchlistService interface {
	Load(ctx context.Context, owner string, wait time.Duration) (*models.Watchlist, error)
	Add(ctx context.Context, ticker, name string) (models.WatchlistEntry, error)
	Remove(ctx context.Context, ticker string) error
}

type TradeExecutor interface {
	Execute(ctx context.Context, order models.TradeOrder) (*models.TradeResult, error)
}

type SymbolSearcher interface {
	Search(ctx context.Context, query string) ([]models.SymbolMatch, error)
}

type JournalReader interface {
	History(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.TradeEvent, error)
}

// StockHandler serves the screens of the app under /api.
type StockHandler struct {
	logger    *xlogger.Logger
	detail    DetailLoader
	portfolio PortfolioLoader
	watchlist WatchlistService
	trades    TradeExecutor
	search    SymbolSearcher
	journal   JournalReader
	limiter   *ratelimit.Limiter
}

func NewStockHandler(
	logger *xlogger.Logger,
	detail DetailLoader,
	portfolio PortfolioLoader,
	watchlist WatchlistService,
	trades TradeExecutor,
	search SymbolSearcher,
	journal JournalReader,
	limiter *ratelimit.Limiter,
) *StockHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &StockHandler{
		logger:    logger,
		detail:    detail,
		portfolio: portfolio,
		watchlist: watchlist,
		trades:    trades,
		search:    search,
		journal:   journal,
		limiter:   limiter,
	}
}

func (h *StockHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(ratelimit.Middleware(h.limiter))
	}
	g.GET("/portfolio", h.Portfolio)
	g.GET("/watchlist", h.Watchlist)
	g.POST("/watchlist", h.AddWatch)
	g.DELETE("/watchlist/:ticker", h.RemoveWatch)
	g.GET("/stocks/:ticker", h.Detail)
	g.POST("/stocks/:ticker/trade", h.Trade)
	g.GET("/search", h.Search)
	g.GET("/trades", h.Trades)
}

func (h *StockHandler) Detail(c echo.Context) error {
	req := &models.DetailRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	wait, err := parseWait(req.Wait)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	res, err := h.detail.Load(c.Request().Context(), ratelimit.ClientKey(c), req.Ticker, wait)
	if err != nil {
		return h.fail(c, "detail", err)
	}
	return viewResponse(c, res.Status, res)
}

func (h *StockHandler) Portfolio(c echo.Context) error {
	req := &models.ViewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	wait, err := parseWait(req.Wait)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	res, err := h.portfolio.Load(c.Request().Context(), ratelimit.ClientKey(c), wait)
	if err != nil {
		return h.fail(c, "portfolio", err)
	}
	return viewResponse(c, res.Status, res)
}

func (h *StockHandler) Watchlist(c echo.Context) error {
	req := &models.ViewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	wait, err := parseWait(req.Wait)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	res, err := h.watchlist.Load(c.Request().Context(), ratelimit.ClientKey(c), wait)
	if err != nil {
		return h.fail(c, "watchlist", err)
	}
	return viewResponse(c, res.Status, res)
}

func (h *StockHandler) AddWatch(c echo.Context) error {
	req := &models.WatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	entry, err := h.watchlist.Add(c.Request().Context(), req.Ticker, req.Name)
	if err != nil {
		return h.fail(c, "watchlist add", err)
	}
	return xhttp.CreatedResponse(c, entry)
}

func (h *StockHandler) RemoveWatch(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.watchlist.Remove(c.Request().Context(), req.Ticker); err != nil {
		return h.fail(c, "watchlist remove", err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"ticker": util.NormalizeTicker(req.Ticker)})
}

func (h *StockHandler) Trade(c echo.Context) error {
	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.trades.Execute(c.Request().Context(), models.TradeOrder{
		Ticker:   req.Ticker,
		Action:   models.TradeAction(req.Action),
		Quantity: req.Quantity,
	})
	if err != nil {
		return h.fail(c, "trade", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StockHandler) Search(c echo.Context) error {
	req := &models.SearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	matches, err := h.search.Search(c.Request().Context(), req.Query)
	if err != nil {
		return h.fail(c, "search", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.ListResponse(c, matches, int64(len(matches)))
}

func (h *StockHandler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var from, to time.Time
	if req.From != "" {
		t, ok := util.ParseTime(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from is not a valid time").WithParam("value", req.From))
		}
		from = t
	}
	if req.To != "" {
		t, ok := util.ParseTime(req.To)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to is not a valid time").WithParam("value", req.To))
		}
		to = t
	}

	events, err := h.journal.History(c.Request().Context(), req.Ticker, from, to, req.Limit)
	if err != nil {
		return h.fail(c, "trades", err)
	}
	return xhttp.ListResponse(c, events, int64(len(events)))
}

// fail maps use case errors onto API errors and logs them.
func (h *StockHandler) fail(c echo.Context, op string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case models.IsTradeRejection(err):
		appErr = xhttp.NewAppError("ERR_TRADE_REJECTED", "quantity", err.Error(), http.StatusBadRequest)
	case errors.Is(err, fanout.ErrSuperseded):
		appErr = xhttp.ConflictError("superseded by a newer request from the same client")
	case errors.Is(err, models.ErrUnknownTicker):
		appErr = xhttp.NotFoundErrorf("unknown ticker")
	case errors.Is(err, models.ErrJournalDisabled):
		appErr = xhttp.UnavailableError(models.ErrJournalDisabled.Error())
	case errors.Is(err, models.ErrNoQuote):
		appErr = xhttp.UnavailableError("no current price, try again later")
	default:
		appErr = xhttp.AsAppError(err)
	}

	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.String("code", appErr.Code), xlogger.Error(err))
	} else {
		h.logger.Warn(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// viewResponse answers 202 in the envelope while the view is still loading.
func viewResponse(c echo.Context, status models.LoadStatus, data interface{}) error {
	if status.State == fanout.StateLoading {
		return xhttp.AcceptedResponse(c, data)
	}
	return xhttp.SuccessResponse(c, data)
}

func parseWait(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, xhttp.BadRequestError("wait must be a non-negative duration such as 5s").WithParam("value", s)
	}
	return min(d, maxWait), nil
}
