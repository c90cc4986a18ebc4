package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pricelock/ledger-engine/internal/metrics"
	"github.com/pricelock/ledger-engine/internal/model"
	"github.com/pricelock/ledger-engine/internal/safemath"
)

// CreateMarketRequest describes one market to open.
type CreateMarketRequest struct {
	Question     string `json:"question"`
	TargetPrice  uint64 `json:"target_price"`
	ExpiryHeight uint64 `json:"expiry_height"`
}

// BetRequest describes one stake to place.
type BetRequest struct {
	MarketID uint64     `json:"market_id"`
	Side     model.Side `json:"side"`
	Amount   uint64     `json:"amount"`
}

// CreateMarket opens a new market and returns its id. Ids are assigned
// sequentially from 1 and never reused.
func (e *Engine) CreateMarket(ctx context.Context, caller model.AccountID, req CreateMarketRequest) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkHalted(); err != nil {
		return 0, err
	}
	if err := e.checkRateLimit(caller); err != nil {
		return 0, err
	}

	m, err := e.stageMarket(caller, req, e.counter)
	if err != nil {
		return 0, err
	}

	if err := e.store.CreateMarket(ctx, m); err != nil {
		return 0, err
	}
	e.counter = m.ID

	metrics.MarketsCreated.Inc()
	slog.Info("market created",
		"id", m.ID,
		"creator", caller,
		"target_price", m.TargetPrice,
		"expiry_height", m.ExpiryHeight,
	)
	e.publish(Event{Type: EventMarketCreated, MarketID: m.ID, Account: caller})
	return m.ID, nil
}

// BatchCreateMarkets opens up to MaxBatchCreate markets with per-item
// validation. Any item's failure aborts the whole batch: either every
// market is created or none is. Returns the number created.
func (e *Engine) BatchCreateMarkets(ctx context.Context, caller model.AccountID, reqs []CreateMarketRequest) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(reqs) == 0 || len(reqs) > MaxBatchCreate {
		return 0, fmt.Errorf("%w: batch size %d outside 1..%d", ErrInvalidAmount, len(reqs), MaxBatchCreate)
	}
	if err := e.checkHalted(); err != nil {
		return 0, err
	}
	if err := e.checkRateLimit(caller); err != nil {
		return 0, err
	}

	staged := make([]*model.Market, 0, len(reqs))
	counter := e.counter
	for i, req := range reqs {
		m, err := e.stageMarket(caller, req, counter)
		if err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		counter = m.ID
		staged = append(staged, m)
	}

	if err := e.store.CreateMarkets(ctx, staged); err != nil {
		return 0, err
	}
	e.counter = counter

	metrics.MarketsCreated.Add(float64(len(staged)))
	slog.Info("markets batch created", "count", len(staged), "creator", caller)
	for _, m := range staged {
		e.publish(Event{Type: EventMarketCreated, MarketID: m.ID, Account: caller})
	}
	return len(staged), nil
}

// stageMarket validates one creation request and builds the record with the
// next id after prevID. Caller commits the counter only after the store
// write succeeds.
func (e *Engine) stageMarket(caller model.AccountID, req CreateMarketRequest, prevID uint64) (*model.Market, error) {
	if err := e.guard.ValidateQuestion(req.Question); err != nil {
		return nil, err
	}
	if err := e.guard.ValidatePrice(req.TargetPrice); err != nil {
		return nil, err
	}
	height := e.clk.Height()
	if req.ExpiryHeight <= height {
		return nil, fmt.Errorf("%w: expiry height %d not beyond current height %d",
			ErrInvalidAmount, req.ExpiryHeight, height)
	}

	id, err := safemath.Add(prevID, 1)
	if err != nil {
		return nil, err
	}
	return &model.Market{
		ID:            id,
		Creator:       caller,
		Question:      req.Question,
		TargetPrice:   req.TargetPrice,
		ExpiryHeight:  req.ExpiryHeight,
		CreatedHeight: height,
	}, nil
}

// PlaceBet stakes amount on one side of an open market. The stake moves
// into custody before any ledger write, and the whole call aborts if the
// transfer fails.
func (e *Engine) PlaceBet(ctx context.Context, caller model.AccountID, req BetRequest) error {
	ctx, err := e.acquire(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkHalted(); err != nil {
		return err
	}
	if err := e.checkRateLimit(caller); err != nil {
		return err
	}

	market, position, err := e.stageBet(ctx, caller, req, nil, nil)
	if err != nil {
		return err
	}

	if _, err := e.bank.Debit(ctx, caller, req.Amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := e.store.CommitBets(ctx, []*model.Market{market}, []*model.Position{position}); err != nil {
		e.refund(ctx, caller, req.Amount)
		return err
	}

	metrics.BetsTotal.WithLabelValues(string(req.Side)).Inc()
	metrics.StakeVolume.WithLabelValues(string(req.Side)).Add(float64(req.Amount))
	slog.Info("bet placed",
		"market", req.MarketID,
		"account", caller,
		"side", req.Side,
		"amount", req.Amount,
	)
	e.publish(Event{Type: EventBetPlaced, MarketID: req.MarketID, Account: caller, Side: req.Side, Amount: req.Amount})
	return nil
}

// BatchPlaceBets folds up to MaxBatchBets stakes, possibly across different
// markets, with per-item validation, one shared reentrancy acquisition, and
// a single aggregated custody debit. Any item's failure aborts the entire
// batch. Returns the number of bets placed.
func (e *Engine) BatchPlaceBets(ctx context.Context, caller model.AccountID, reqs []BetRequest) (int, error) {
	if len(reqs) == 0 || len(reqs) > MaxBatchBets {
		return 0, fmt.Errorf("%w: batch size %d outside 1..%d", ErrInvalidAmount, len(reqs), MaxBatchBets)
	}
	ctx, err := e.acquire(ctx)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkHalted(); err != nil {
		return 0, err
	}
	if err := e.checkRateLimit(caller); err != nil {
		return 0, err
	}

	// Items are folded against staged copies so later items in the batch
	// see the totals earlier items produced.
	stagedMarkets := make(map[uint64]*model.Market)
	stagedPositions := make(map[uint64]*model.Position)
	var total uint64
	for i, req := range reqs {
		if _, _, err := e.stageBet(ctx, caller, req, stagedMarkets, stagedPositions); err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		total, err = safemath.Add(total, req.Amount)
		if err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
	}

	if _, err := e.bank.Debit(ctx, caller, total); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	markets := make([]*model.Market, 0, len(stagedMarkets))
	for _, m := range stagedMarkets {
		markets = append(markets, m)
	}
	positions := make([]*model.Position, 0, len(stagedPositions))
	for _, p := range stagedPositions {
		positions = append(positions, p)
	}
	if err := e.store.CommitBets(ctx, markets, positions); err != nil {
		e.refund(ctx, caller, total)
		return 0, err
	}

	for _, req := range reqs {
		metrics.BetsTotal.WithLabelValues(string(req.Side)).Inc()
		metrics.StakeVolume.WithLabelValues(string(req.Side)).Add(float64(req.Amount))
		e.publish(Event{Type: EventBetPlaced, MarketID: req.MarketID, Account: caller, Side: req.Side, Amount: req.Amount})
	}
	slog.Info("bets batch placed", "count", len(reqs), "account", caller, "total", total)
	return len(reqs), nil
}

// stageBet validates one bet and applies it to staged copies of the market
// and position. When the staged maps are nil (single-bet path) fresh copies
// are loaded from the store. No store write happens here.
func (e *Engine) stageBet(ctx context.Context, caller model.AccountID, req BetRequest,
	stagedMarkets map[uint64]*model.Market, stagedPositions map[uint64]*model.Position,
) (*model.Market, *model.Position, error) {
	if !req.Side.Valid() {
		return nil, nil, fmt.Errorf("%w: side must be YES or NO", ErrInvalidAmount)
	}
	if req.Amount < MinBet || req.Amount > MaxBet {
		return nil, nil, fmt.Errorf("%w: bet %d outside %d..%d", ErrInvalidAmount, req.Amount, MinBet, MaxBet)
	}

	market, ok := stagedMarkets[req.MarketID]
	if !ok {
		loaded, err := e.store.GetMarket(ctx, req.MarketID)
		if err != nil {
			return nil, nil, translateStoreErr(err, req.MarketID)
		}
		market = loaded
		if stagedMarkets != nil {
			stagedMarkets[req.MarketID] = market
		}
	}

	height := e.clk.Height()
	if height > market.ExpiryHeight {
		return nil, nil, fmt.Errorf("%w: market %d expired at height %d", ErrMarketExpired, market.ID, market.ExpiryHeight)
	}
	if market.Resolved {
		return nil, nil, fmt.Errorf("%w: market %d is resolved", ErrMarketClosed, market.ID)
	}

	// Batches come from a single caller, so staged positions key on
	// market id alone.
	position, ok := stagedPositions[req.MarketID]
	if !ok {
		loaded, err := e.store.GetPosition(ctx, req.MarketID, caller)
		if err != nil {
			return nil, nil, err
		}
		position = loaded
		if stagedPositions != nil {
			stagedPositions[req.MarketID] = position
		}
	}

	// Checked arithmetic into the staged copies; nothing is written until
	// the caller commits.
	var err error
	if req.Side == model.SideYes {
		if market.TotalYes, err = safemath.Add(market.TotalYes, req.Amount); err != nil {
			return nil, nil, err
		}
		if position.YesAmount, err = safemath.Add(position.YesAmount, req.Amount); err != nil {
			return nil, nil, err
		}
	} else {
		if market.TotalNo, err = safemath.Add(market.TotalNo, req.Amount); err != nil {
			return nil, nil, err
		}
		if position.NoAmount, err = safemath.Add(position.NoAmount, req.Amount); err != nil {
			return nil, nil, err
		}
	}
	return market, position, nil
}

// refund compensates a custody debit after a failed commit. A refund
// failure means value is stranded in the vault; it is loud in the logs.
func (e *Engine) refund(ctx context.Context, account model.AccountID, amount uint64) {
	if _, err := e.bank.Credit(ctx, account, amount); err != nil {
		slog.Error("refund after failed commit failed",
			"account", account, "amount", amount, "err", err)
	}
}
