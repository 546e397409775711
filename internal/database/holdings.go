package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/portfolio"
)

const holdingColumns = `id, asset_id, symbol, name, category, quantity, purchase_price, purchase_date, notes`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetAllHoldings retrieves every holding in insertion order
func (db *DB) GetAllHoldings(ctx context.Context) ([]models.PortfolioHolding, error) {
	stored, err := storedHoldings(ctx, db.conn)
	if err != nil {
		return nil, err
	}
	holdings := make([]models.PortfolioHolding, 0, len(stored))
	for _, sh := range stored {
		holdings = append(holdings, sh.PortfolioHolding)
	}
	return holdings, nil
}

// GetLastSync returns the last successful quote fetch, or nil if none was recorded
func (db *DB) GetLastSync(ctx context.Context) (*time.Time, error) {
	return lastSync(ctx, db.conn)
}

// Load reads the whole portfolio
func (db *DB) Load(ctx context.Context) (portfolio.State, error) {
	holdings, err := db.GetAllHoldings(ctx)
	if err != nil {
		return portfolio.State{}, err
	}
	lastSync, err := db.GetLastSync(ctx)
	if err != nil {
		return portfolio.State{}, err
	}
	return portfolio.State{Holdings: holdings, LastSync: lastSync}, nil
}

// Save makes the stored portfolio match state in one transaction. Only rows
// that were removed, added, edited or moved are written, so created_at
// survives and a sync-only change touches portfolio_state alone.
func (db *DB) Save(ctx context.Context, state portfolio.State) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stored, err := storedHoldings(ctx, tx)
	if err != nil {
		return err
	}

	wanted := make(map[string]int, len(state.Holdings))
	for i, h := range state.Holdings {
		wanted[h.ID] = i
	}
	current := make(map[string]storedHolding, len(stored))
	for _, sh := range stored {
		if _, ok := wanted[sh.ID]; !ok {
			if err := deleteHolding(ctx, tx, sh.ID); err != nil {
				return err
			}
			continue
		}
		current[sh.ID] = sh
	}

	now := time.Now()
	for i, h := range state.Holdings {
		if sh, ok := current[h.ID]; ok && sh.position == i && sameHolding(sh.PortfolioHolding, h) {
			continue
		}
		if err := upsertHolding(ctx, tx, h, i, now); err != nil {
			return err
		}
	}

	prev, err := lastSync(ctx, tx)
	if err != nil {
		return err
	}
	if !sameSync(prev, state.LastSync) {
		if err := setLastSync(ctx, tx, state.LastSync); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type storedHolding struct {
	models.PortfolioHolding
	position int
}

func storedHoldings(ctx context.Context, q querier) ([]storedHolding, error) {
	query := `SELECT position, ` + holdingColumns + ` FROM holdings ORDER BY position ASC, created_at ASC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	stored := []storedHolding{}
	for rows.Next() {
		var sh storedHolding
		h, err := scanHolding(rows, &sh.position)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		sh.PortfolioHolding = h
		stored = append(stored, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}
	return stored, nil
}

// upsertHolding writes h at position. An existing row keeps its created_at.
func upsertHolding(ctx context.Context, q querier, h models.PortfolioHolding, position int, now time.Time) error {
	query := `
		INSERT INTO holdings (
			id, position, asset_id, symbol, name, category,
			quantity, purchase_price, purchase_date, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			asset_id = EXCLUDED.asset_id,
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			quantity = EXCLUDED.quantity,
			purchase_price = EXCLUDED.purchase_price,
			purchase_date = EXCLUDED.purchase_date,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		h.ID, position, h.AssetID, h.Symbol, h.Name, string(h.Category),
		h.Quantity, h.PurchasePrice, nullString(h.PurchaseDate), nullString(h.Notes), now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.ID, err)
	}
	return nil
}

func deleteHolding(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM holdings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", id, err)
	}
	return nil
}

func sameHolding(a, b models.PortfolioHolding) bool {
	return a.ID == b.ID &&
		a.AssetID == b.AssetID &&
		a.Symbol == b.Symbol &&
		a.Name == b.Name &&
		a.Category == b.Category &&
		a.Quantity.Equal(b.Quantity) &&
		a.PurchasePrice.Equal(b.PurchasePrice) &&
		a.PurchaseDate == b.PurchaseDate &&
		a.Notes == b.Notes
}

// sameSync compares at the microsecond precision Postgres stores
func sameSync(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(time.Microsecond).Equal(b.Truncate(time.Microsecond))
}

func lastSync(ctx context.Context, q querier) (*time.Time, error) {
	var v sql.NullTime
	err := q.QueryRowContext(ctx, `SELECT last_sync FROM portfolio_state WHERE id = 1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last sync: %w", err)
	}
	if !v.Valid {
		return nil, nil
	}
	t := v.Time.UTC()
	return &t, nil
}

// setLastSync records the last successful quote fetch. A nil t clears it.
func setLastSync(ctx context.Context, q querier, t *time.Time) error {
	query := `
		INSERT INTO portfolio_state (id, last_sync, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			last_sync = EXCLUDED.last_sync,
			updated_at = EXCLUDED.updated_at
	`
	var v sql.NullTime
	if t != nil {
		v = sql.NullTime{Time: *t, Valid: true}
	}
	if _, err := q.ExecContext(ctx, query, v); err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanHolding reads holdingColumns, after any leading columns given in lead
func scanHolding(row rowScanner, lead ...any) (models.PortfolioHolding, error) {
	var h models.PortfolioHolding
	var category string
	var purchaseDate, notes sql.NullString

	dest := append(lead,
		&h.ID, &h.AssetID, &h.Symbol, &h.Name, &category,
		&h.Quantity, &h.PurchasePrice, &purchaseDate, &notes,
	)
	err := row.Scan(dest...)
	if err != nil {
		return models.PortfolioHolding{}, err
	}

	h.Category = models.AssetCategory(category)
	if purchaseDate.Valid {
		h.PurchaseDate = purchaseDate.String
	}
	if notes.Valid {
		h.Notes = notes.String
	}
	return h, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
