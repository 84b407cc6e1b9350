package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"liftbay/internal/config"
	"liftbay/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// --- elevators ---

func (r Repo) InsertElevator(ctx context.Context, tx *sql.Tx, e domain.Elevator) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO elevators(id,category,status,created_at) VALUES (?,?,?,?)`,
		e.ID, e.Category, e.Status, e.CreatedAt)
	return err
}

func (r Repo) GetElevator(ctx context.Context, id string) (domain.Elevator, error) {
	return scanElevator(r.DB.QueryRowContext(ctx, `SELECT id,category,status,created_at FROM elevators WHERE id=?`, id))
}

func (r Repo) GetElevatorTx(ctx context.Context, tx *sql.Tx, id string) (domain.Elevator, error) {
	return scanElevator(tx.QueryRowContext(ctx, `SELECT id,category,status,created_at FROM elevators WHERE id=?`, id))
}

func scanElevator(row *sql.Row) (domain.Elevator, error) {
	var e domain.Elevator
	err := row.Scan(&e.ID, &e.Category, &e.Status, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	return e, err
}

// ListElevators returns elevators, optionally filtered by status.
func (r Repo) ListElevators(ctx context.Context, status string) ([]domain.Elevator, error) {
	query := `SELECT id,category,status,created_at FROM elevators ORDER BY created_at ASC, id ASC`
	var args []any
	if status != "" {
		query = `SELECT id,category,status,created_at FROM elevators WHERE status=? ORDER BY created_at ASC, id ASC`
		args = append(args, status)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Elevator
	for rows.Next() {
		var e domain.Elevator
		if err := rows.Scan(&e.ID, &e.Category, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// AcquireElevatorTx flips an Available elevator to Occupied. It is a
// compare-and-swap: a concurrent acquirer that lost the race sees zero
// affected rows and must fail rather than queue.
func (r Repo) AcquireElevatorTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE elevators SET status=? WHERE id=? AND status=?`,
		domain.ElevatorOccupied, id, domain.ElevatorAvailable)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseElevatorTx sets the elevator back to Available regardless of its
// prior state.
func (r Repo) ReleaseElevatorTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE elevators SET status=? WHERE id=?`, domain.ElevatorAvailable, id)
	return err
}

func (r Repo) SetElevatorStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE elevators SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- consumables ---

func (r Repo) InsertConsumable(ctx context.Context, tx *sql.Tx, c domain.Consumable) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO consumables(id,name,quantity,unit_price,threshold,created_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.Name, c.Quantity, c.UnitPrice, c.Threshold, c.CreatedAt)
	return err
}

func (r Repo) GetConsumable(ctx context.Context, id string) (domain.Consumable, error) {
	return scanConsumable(r.DB.QueryRowContext(ctx, `SELECT id,name,quantity,unit_price,threshold,created_at FROM consumables WHERE id=?`, id))
}

func (r Repo) GetConsumableTx(ctx context.Context, tx *sql.Tx, id string) (domain.Consumable, error) {
	return scanConsumable(tx.QueryRowContext(ctx, `SELECT id,name,quantity,unit_price,threshold,created_at FROM consumables WHERE id=?`, id))
}

func scanConsumable(row *sql.Row) (domain.Consumable, error) {
	var c domain.Consumable
	err := row.Scan(&c.ID, &c.Name, &c.Quantity, &c.UnitPrice, &c.Threshold, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListConsumables(ctx context.Context) ([]domain.Consumable, error) {
	return r.listConsumables(ctx, `SELECT id,name,quantity,unit_price,threshold,created_at FROM consumables ORDER BY name ASC`)
}

// ListLowConsumables returns items at or below their reorder threshold.
func (r Repo) ListLowConsumables(ctx context.Context) ([]domain.Consumable, error) {
	return r.listConsumables(ctx, `SELECT id,name,quantity,unit_price,threshold,created_at FROM consumables WHERE quantity <= threshold ORDER BY name ASC`)
}

func (r Repo) listConsumables(ctx context.Context, query string) ([]domain.Consumable, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Consumable
	for rows.Next() {
		var c domain.Consumable
		if err := rows.Scan(&c.ID, &c.Name, &c.Quantity, &c.UnitPrice, &c.Threshold, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) AdjustConsumableQuantityTx(ctx context.Context, tx *sql.Tx, id string, delta int) error {
	res, err := tx.ExecContext(ctx, `UPDATE consumables SET quantity = quantity + ? WHERE id=?`, delta, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- shop config ---

func (r Repo) UpsertShopConfig(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.DB.ExecContext(ctx, `INSERT INTO shop_config(id,config_json,created_at,updated_at) VALUES (1,?,?,?)
ON CONFLICT(id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, string(payload), now, now)
	return err
}

func (r Repo) GetShopConfig(ctx context.Context) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM shop_config WHERE id=1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

// --- events ---

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events WHERE 1=1`
	var args []any
	if evtType != "" {
		query += ` AND type=?`
		args = append(args, evtType)
	}
	if entityKind != "" {
		query += ` AND entity_kind=?`
		args = append(args, entityKind)
	}
	if entityID != "" {
		query += ` AND entity_id=?`
		args = append(args, entityID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entID sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		if entID.Valid {
			e.EntityID = entID.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
