package repo

import (
	"context"
	"database/sql"
	"strings"

	"liftbay/internal/domain"
)

const repairColumns = `id,client_id,elevator_id,mechanic_id,description,scheduled_at,status,cost,notes,created_at,updated_at,completed_at`

func (r Repo) InsertRepairTx(ctx context.Context, tx *sql.Tx, rep domain.Repair) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO repairs(`+repairColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rep.ID, rep.ClientID, rep.ElevatorID, nullableStringPtr(rep.MechanicID), rep.Description, rep.ScheduledAt,
		rep.Status, nullableFloatPtr(rep.Cost), nullable(rep.Notes), rep.CreatedAt, rep.UpdatedAt, nullableStringPtr(rep.CompletedAt))
	return err
}

func (r Repo) UpdateRepairTx(ctx context.Context, tx *sql.Tx, rep domain.Repair) error {
	_, err := tx.ExecContext(ctx, `UPDATE repairs SET elevator_id=?, mechanic_id=?, description=?, scheduled_at=?, status=?, cost=?, notes=?, updated_at=?, completed_at=? WHERE id=?`,
		rep.ElevatorID, nullableStringPtr(rep.MechanicID), rep.Description, rep.ScheduledAt, rep.Status,
		nullableFloatPtr(rep.Cost), nullable(rep.Notes), rep.UpdatedAt, nullableStringPtr(rep.CompletedAt), rep.ID)
	return err
}

func (r Repo) GetRepair(ctx context.Context, id string) (domain.Repair, error) {
	return scanRepair(r.DB.QueryRowContext(ctx, `SELECT `+repairColumns+` FROM repairs WHERE id=?`, id))
}

func (r Repo) GetRepairTx(ctx context.Context, tx *sql.Tx, id string) (domain.Repair, error) {
	return scanRepair(tx.QueryRowContext(ctx, `SELECT `+repairColumns+` FROM repairs WHERE id=?`, id))
}

func scanRepair(row *sql.Row) (domain.Repair, error) {
	var rep domain.Repair
	var mechanicID, notes, completedAt sql.NullString
	var cost sql.NullFloat64
	err := row.Scan(&rep.ID, &rep.ClientID, &rep.ElevatorID, &mechanicID, &rep.Description, &rep.ScheduledAt,
		&rep.Status, &cost, &notes, &rep.CreatedAt, &rep.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return rep, ErrNotFound
	}
	if err != nil {
		return rep, err
	}
	if mechanicID.Valid {
		rep.MechanicID = &mechanicID.String
	}
	if cost.Valid {
		c := cost.Float64
		rep.Cost = &c
	}
	if notes.Valid {
		rep.Notes = notes.String
	}
	if completedAt.Valid {
		rep.CompletedAt = &completedAt.String
	}
	return rep, nil
}

type RepairFilters struct {
	ClientID   string
	MechanicID string
	ElevatorID string
	Status     string
	Limit      int
}

func (r Repo) ListRepairs(ctx context.Context, f RepairFilters) ([]domain.Repair, error) {
	var clauses []string
	var args []any
	if f.ClientID != "" {
		clauses = append(clauses, "client_id=?")
		args = append(args, f.ClientID)
	}
	if f.MechanicID != "" {
		clauses = append(clauses, "mechanic_id=?")
		args = append(args, f.MechanicID)
	}
	if f.ElevatorID != "" {
		clauses = append(clauses, "elevator_id=?")
		args = append(args, f.ElevatorID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + repairColumns + ` FROM repairs ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Repair
	for rows.Next() {
		var rep domain.Repair
		var mechanicID, notes, completedAt sql.NullString
		var cost sql.NullFloat64
		if err := rows.Scan(&rep.ID, &rep.ClientID, &rep.ElevatorID, &mechanicID, &rep.Description, &rep.ScheduledAt,
			&rep.Status, &cost, &notes, &rep.CreatedAt, &rep.UpdatedAt, &completedAt); err != nil {
			return nil, err
		}
		if mechanicID.Valid {
			rep.MechanicID = &mechanicID.String
		}
		if cost.Valid {
			c := cost.Float64
			rep.Cost = &c
		}
		if notes.Valid {
			rep.Notes = notes.String
		}
		if completedAt.Valid {
			rep.CompletedAt = &completedAt.String
		}
		res = append(res, rep)
	}
	return res, rows.Err()
}
