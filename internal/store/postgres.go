package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricelock/ledger-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Stake amounts are stored as NUMERIC and round-tripped through strings so
// the full uint64 range survives.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateMarket(ctx context.Context, m *model.Market) error {
	_, err := s.pool.Exec(ctx, insertMarketSQL, insertMarketArgs(m)...)
	return err
}

func (s *PostgresStore) CreateMarkets(ctx context.Context, ms []*model.Market) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, m := range ms {
			if _, err := tx.Exec(ctx, insertMarketSQL, insertMarketArgs(m)...); err != nil {
				return err
			}
		}
		return nil
	})
}

const insertMarketSQL = `
	INSERT INTO markets (id, creator, question, target_price, expiry_height,
	                     created_height, total_yes, total_no, resolved)
	VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7::NUMERIC, $8::NUMERIC, $9)`

func insertMarketArgs(m *model.Market) []any {
	return []any{
		int64(m.ID), string(m.Creator), m.Question,
		strconv.FormatUint(m.TargetPrice, 10),
		int64(m.ExpiryHeight), int64(m.CreatedHeight),
		strconv.FormatUint(m.TotalYes, 10), strconv.FormatUint(m.TotalNo, 10),
		m.Resolved,
	}
}

const selectMarketSQL = `
	SELECT id, creator, question, target_price::TEXT, expiry_height,
	       created_height, total_yes::TEXT, total_no::TEXT, resolved,
	       outcome, resolution_price::TEXT
	FROM markets`

func scanMarket(row pgx.Row) (*model.Market, error) {
	var m model.Market
	var id, expiry, created int64
	var creator, target, totalYes, totalNo string
	var outcome *bool
	var resPrice *string

	if err := row.Scan(&id, &creator, &m.Question, &target, &expiry,
		&created, &totalYes, &totalNo, &m.Resolved, &outcome, &resPrice); err != nil {
		return nil, err
	}

	m.ID = uint64(id)
	m.Creator = model.AccountID(creator)
	m.ExpiryHeight = uint64(expiry)
	m.CreatedHeight = uint64(created)
	m.Outcome = outcome

	var err error
	if m.TargetPrice, err = strconv.ParseUint(target, 10, 64); err != nil {
		return nil, fmt.Errorf("parse target_price %q: %w", target, err)
	}
	if m.TotalYes, err = strconv.ParseUint(totalYes, 10, 64); err != nil {
		return nil, fmt.Errorf("parse total_yes %q: %w", totalYes, err)
	}
	if m.TotalNo, err = strconv.ParseUint(totalNo, 10, 64); err != nil {
		return nil, fmt.Errorf("parse total_no %q: %w", totalNo, err)
	}
	if resPrice != nil {
		p, err := strconv.ParseUint(*resPrice, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse resolution_price %q: %w", *resPrice, err)
		}
		m.ResolutionPrice = &p
	}
	return &m, nil
}

func (s *PostgresStore) GetMarket(ctx context.Context, id uint64) (*model.Market, error) {
	row := s.pool.QueryRow(ctx, selectMarketSQL+` WHERE id = $1`, int64(id))
	m, err := scanMarket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: market %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get market %d: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx, selectMarketSQL+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) MaxMarketID(ctx context.Context) (uint64, error) {
	var max int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM markets`).Scan(&max)
	if err != nil {
		return 0, err
	}
	return uint64(max), nil
}

func (s *PostgresStore) GetPosition(ctx context.Context, marketID uint64, account model.AccountID) (*model.Position, error) {
	var yes, no string
	p := &model.Position{MarketID: marketID, Account: account}

	err := s.pool.QueryRow(ctx,
		`SELECT yes_amount::TEXT, no_amount::TEXT, claimed
		 FROM positions WHERE market_id = $1 AND account = $2`,
		int64(marketID), string(account)).
		Scan(&yes, &no, &p.Claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		// Absent positions read as zero-valued, unclaimed.
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position %d/%s: %w", marketID, account, err)
	}

	if p.YesAmount, err = strconv.ParseUint(yes, 10, 64); err != nil {
		return nil, fmt.Errorf("parse yes_amount %q: %w", yes, err)
	}
	if p.NoAmount, err = strconv.ParseUint(no, 10, 64); err != nil {
		return nil, fmt.Errorf("parse no_amount %q: %w", no, err)
	}
	return p, nil
}

func (s *PostgresStore) CommitBets(ctx context.Context, markets []*model.Market, positions []*model.Position) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, m := range markets {
			tag, err := tx.Exec(ctx,
				`UPDATE markets SET total_yes = $2::NUMERIC, total_no = $3::NUMERIC
				 WHERE id = $1 AND NOT resolved`,
				int64(m.ID),
				strconv.FormatUint(m.TotalYes, 10),
				strconv.FormatUint(m.TotalNo, 10))
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: market %d", ErrNotFound, m.ID)
			}
		}
		for _, p := range positions {
			if _, err := tx.Exec(ctx,
				`INSERT INTO positions (market_id, account, yes_amount, no_amount, claimed)
				 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5)
				 ON CONFLICT (market_id, account)
				 DO UPDATE SET yes_amount = EXCLUDED.yes_amount,
				               no_amount = EXCLUDED.no_amount`,
				int64(p.MarketID), string(p.Account),
				strconv.FormatUint(p.YesAmount, 10),
				strconv.FormatUint(p.NoAmount, 10),
				p.Claimed); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) SetResolved(ctx context.Context, m *model.Market) error {
	var resPrice *string
	if m.ResolutionPrice != nil {
		v := strconv.FormatUint(*m.ResolutionPrice, 10)
		resPrice = &v
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET resolved = TRUE, outcome = $2, resolution_price = $3::NUMERIC
		 WHERE id = $1 AND NOT resolved`,
		int64(m.ID), m.Outcome, resPrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: market %d", ErrNotFound, m.ID)
	}
	return nil
}

func (s *PostgresStore) SetClaimed(ctx context.Context, p *model.Position) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions SET claimed = TRUE
		 WHERE market_id = $1 AND account = $2 AND NOT claimed`,
		int64(p.MarketID), string(p.Account))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: position %d/%s", ErrNotFound, p.MarketID, p.Account)
	}
	return nil
}
