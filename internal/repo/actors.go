package repo

import (
	"context"
	"database/sql"

	"liftbay/internal/domain"
)

func (r Repo) InsertActorTx(ctx context.Context, tx *sql.Tx, a domain.Actor) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO actors(id,name,role,created_at) VALUES (?,?,?,?)`,
		a.ID, nullable(a.Name), string(a.Role), a.CreatedAt)
	return err
}

func (r Repo) EnsureActorTx(ctx context.Context, tx *sql.Tx, a domain.Actor) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO actors(id,name,role,created_at) VALUES (?,?,?,?)`,
		a.ID, nullable(a.Name), string(a.Role), a.CreatedAt)
	return err
}

func (r Repo) GetActor(ctx context.Context, id string) (domain.Actor, error) {
	return scanActor(r.DB.QueryRowContext(ctx, `SELECT id,name,role,created_at FROM actors WHERE id=?`, id))
}

func (r Repo) GetActorTx(ctx context.Context, tx *sql.Tx, id string) (domain.Actor, error) {
	return scanActor(tx.QueryRowContext(ctx, `SELECT id,name,role,created_at FROM actors WHERE id=?`, id))
}

func scanActor(row *sql.Row) (domain.Actor, error) {
	var a domain.Actor
	var name sql.NullString
	var role string
	err := row.Scan(&a.ID, &name, &role, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if name.Valid {
		a.Name = name.String
	}
	a.Role = domain.Role(role)
	return a, nil
}

// ListActors returns actors, optionally filtered by role.
func (r Repo) ListActors(ctx context.Context, role domain.Role) ([]domain.Actor, error) {
	query := `SELECT id,name,role,created_at FROM actors ORDER BY created_at ASC, id ASC`
	var args []any
	if role != "" {
		query = `SELECT id,name,role,created_at FROM actors WHERE role=? ORDER BY created_at ASC, id ASC`
		args = append(args, string(role))
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Actor
	for rows.Next() {
		var a domain.Actor
		var name sql.NullString
		var roleStr string
		if err := rows.Scan(&a.ID, &name, &roleStr, &a.CreatedAt); err != nil {
			return nil, err
		}
		if name.Valid {
			a.Name = name.String
		}
		a.Role = domain.Role(roleStr)
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) DeleteActorTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM actors WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
