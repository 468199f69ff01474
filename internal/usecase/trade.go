package usecase

import (
	"context"
	"fmt"
	"time"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
	applogger "StockDesk/pkg/logger"
	"StockDesk/pkg/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// TradeRecorder accepts executed trades for the journal.
type TradeRecorder interface {
	Record(ctx context.Context, e *models.TradeEvent) error
}

// TradeUseCase executes simulated buy and sell orders against the account.
type TradeUseCase struct {
	market  domrepo.MarketData
	account domrepo.AccountStore
	journal TradeRecorder
	metrics domrepo.Metrics
	log     *applogger.Logger
	now     func() time.Time
	newID   func() string
}

func NewTradeUseCase(market domrepo.MarketData, account domrepo.AccountStore, journal TradeRecorder, metrics domrepo.Metrics, l *applogger.Logger) *TradeUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	return &TradeUseCase{
		market:  market,
		account: account,
		journal: journal,
		metrics: metrics,
		log:     l,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// tradeInputs is the account and market state an order is checked against.
type tradeInputs struct {
	balance  float64
	quote    models.StockQuote
	profile  models.CompanyProfile
	holdings []models.PortfolioStock
}

// Execute validates the order against the current balance and holding, then
// writes the new balance and holding. Rule violations are TradeRejection errors.
func (u *TradeUseCase) Execute(ctx context.Context, order models.TradeOrder) (*models.TradeResult, error) {
	start := time.Now()
	order.Ticker = util.NormalizeTicker(order.Ticker)

	res, err := u.execute(ctx, order)
	if u.metrics != nil {
		u.metrics.RecordTrade(string(order.Action), err == nil)
		u.metrics.RecordLatency("trade", time.Since(start).Seconds())
	}
	if err != nil {
		if models.IsTradeRejection(err) {
			u.log.Info("trade rejected",
				applogger.String("ticker", order.Ticker),
				applogger.String("action", string(order.Action)),
				applogger.String("reason", err.Error()),
			)
		} else {
			u.log.Error("trade failed",
				applogger.String("ticker", order.Ticker),
				applogger.String("action", string(order.Action)),
				applogger.Error(err),
			)
		}
		return nil, err
	}
	return res, nil
}

func (u *TradeUseCase) execute(ctx context.Context, order models.TradeOrder) (*models.TradeResult, error) {
	if order.Action != models.TradeBuy && order.Action != models.TradeSell {
		return nil, fmt.Errorf("trade %s: unknown action %q", order.Ticker, order.Action)
	}

	in, err := u.load(ctx, order.Ticker)
	if err != nil {
		return nil, err
	}
	held, isHeld := models.FindHolding(in.holdings, order.Ticker)

	var n int
	if order.Quantity != nil {
		n = *order.Quantity
	}
	price := decimal.NewFromFloat(in.quote.C)
	total := price.Mul(decimal.NewFromInt(int64(n)))
	balance := decimal.NewFromFloat(in.balance)

	if order.Action == models.TradeBuy {
		err = checkBuy(order.Quantity, total, balance)
	} else {
		err = checkSell(order.Quantity, held, isHeld)
	}
	if err != nil {
		return nil, err
	}
	if in.quote.C <= 0 {
		return nil, fmt.Errorf("trade %s: %w", order.Ticker, models.ErrNoQuote)
	}

	name := in.profile.Name
	if name == "" {
		name = held.Name
	}

	var (
		newBalance decimal.Decimal
		update     *models.HoldingUpdate
	)
	switch order.Action {
	case models.TradeBuy:
		newBalance = balance.Sub(total)
		cost := total
		qty := n
		if isHeld {
			cost = decimal.NewFromFloat(held.TotalCost).Add(total)
			qty = held.Quantity + n
		}
		update = &models.HoldingUpdate{Ticker: order.Ticker, Name: name, TotalCost: cost.InexactFloat64(), Quantity: qty}
	case models.TradeSell:
		newBalance = balance.Add(total)
		if n != held.Quantity {
			cost := decimal.NewFromFloat(held.TotalCost).Sub(total)
			update = &models.HoldingUpdate{Ticker: order.Ticker, Name: name, TotalCost: cost.InexactFloat64(), Quantity: held.Quantity - n}
		}
	}

	if err := u.apply(ctx, order.Ticker, in.balance, newBalance.InexactFloat64(), update); err != nil {
		return nil, err
	}

	res := &models.TradeResult{
		Action:   order.Action,
		Ticker:   order.Ticker,
		Name:     name,
		Quantity: n,
		Price:    in.quote.C,
		Total:    total.InexactFloat64(),
		Balance:  newBalance.InexactFloat64(),
		Message:  tradeMessage(order.Action, n, name),
	}
	heldAfter := 0
	if update != nil {
		h := models.PortfolioStock{Ticker: update.Ticker, Name: update.Name, TotalCost: update.TotalCost, Quantity: update.Quantity}
		h = h.WithQuote(in.quote)
		res.Holding = &h
		heldAfter = update.Quantity
	}

	u.record(ctx, res, heldAfter)
	return res, nil
}

// load reads balance, quote, profile and holdings in parallel; the first failure cancels the rest.
func (u *TradeUseCase) load(ctx context.Context, ticker string) (tradeInputs, error) {
	var in tradeInputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		in.balance, err = u.account.Balance(gctx)
		return err
	})
	g.Go(func() (err error) {
		in.quote, err = u.market.Quote(gctx, ticker)
		return err
	})
	g.Go(func() (err error) {
		in.profile, err = u.market.Profile(gctx, ticker)
		return err
	})
	g.Go(func() (err error) {
		in.holdings, err = u.account.Portfolio(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return in, fmt.Errorf("trade %s: load account state: %w", ticker, err)
	}
	return in, nil
}

// apply writes the balance, then the holding. If the holding write fails the
// previous balance is written back.
func (u *TradeUseCase) apply(ctx context.Context, ticker string, oldBalance, newBalance float64, update *models.HoldingUpdate) error {
	if err := u.account.SetBalance(ctx, newBalance); err != nil {
		return fmt.Errorf("trade %s: set balance: %w", ticker, err)
	}

	var err error
	if update != nil {
		err = u.account.UpsertHolding(ctx, *update)
	} else {
		err = u.account.RemoveHolding(ctx, ticker)
	}
	if err == nil {
		return nil
	}

	if rerr := u.account.SetBalance(context.WithoutCancel(ctx), oldBalance); rerr != nil {
		u.log.Error("trade: balance restore failed",
			applogger.String("ticker", ticker),
			applogger.Float64("balance", oldBalance),
			applogger.Error(rerr),
		)
	}
	return fmt.Errorf("trade %s: update holding: %w", ticker, err)
}

func (u *TradeUseCase) record(ctx context.Context, res *models.TradeResult, heldAfter int) {
	if u.journal == nil {
		return
	}
	e := &models.TradeEvent{
		ID:           u.newID(),
		Ticker:       res.Ticker,
		Name:         res.Name,
		Action:       res.Action,
		Quantity:     res.Quantity,
		Price:        res.Price,
		Total:        res.Total,
		BalanceAfter: res.Balance,
		HeldAfter:    heldAfter,
		ExecutedAt:   u.now().UTC(),
	}
	// the trade already happened; a journal failure must not undo it
	if err := u.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		u.log.Warn("trade not journaled", applogger.String("id", e.ID), applogger.Error(err))
	}
}

func checkBuy(qty *int, total, balance decimal.Decimal) error {
	switch {
	case total.GreaterThan(balance):
		return models.ErrInsufficientFunds
	case qty == nil:
		return models.ErrInvalidAmount
	case *qty <= 0:
		return models.ErrNonPositiveBuy
	}
	return nil
}

func checkSell(qty *int, held models.PortfolioStock, isHeld bool) error {
	switch {
	case !isHeld:
		return models.ErrNotEnoughShares
	case qty == nil:
		return models.ErrInvalidAmount
	case *qty > held.Quantity:
		return models.ErrNotEnoughShares
	case *qty <= 0:
		return models.ErrNonPositiveSell
	}
	return nil
}

func tradeMessage(action models.TradeAction, n int, name string) string {
	verb := "bought"
	if action == models.TradeSell {
		verb = "sold"
	}
	unit := "shares"
	if n == 0 || n == 1 {
		unit = "share"
	}
	return fmt.Sprintf("You have successfully %s %d %s of %s", verb, n, unit, name)
}
