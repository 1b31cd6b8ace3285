package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prodige/prodige/internal/utils"
	log "github.com/sirupsen/logrus"
)

// SQLStore persists events in Postgres. Ids are assigned in Go (uuid v4) so
// both backends produce identical identifiers, and all writes go through the
// same prepare helpers as the file store to keep validation in one place.
type SQLStore struct {
	db    *sql.DB
	clock utils.Clock
}

func NewSQLStore(db *sql.DB, clock utils.Clock) *SQLStore {
	return &SQLStore{db: db, clock: clock}
}

const eventColumns = `id, title, start_time, end_time, client, description, status, assigned_to, created_by, is_shared, created_at, updated_at`

func (s *SQLStore) Create(ctx context.Context, e Event) (Event, error) {
	prepared, err := prepareCreate(e, s.clock.Now())
	if err != nil {
		return Event{}, err
	}

	query := `INSERT INTO events (` + eventColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = s.db.ExecContext(ctx, query,
		prepared.ID,
		prepared.Title,
		prepared.Start,
		prepared.End,
		prepared.Client,
		nullString(prepared.Description),
		string(prepared.Status),
		nullString(prepared.AssignedTo),
		prepared.CreatedBy,
		prepared.IsShared,
		prepared.CreatedAt,
		prepared.UpdatedAt,
	)
	if err != nil {
		err = fmt.Errorf("could not insert event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return prepared, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		err = fmt.Errorf("could not query event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return e, nil
}

func (s *SQLStore) Find(ctx context.Context, filter Filter) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var (
		clauses []string
		args    []any
	)
	if filter.hasWindow() {
		// Interval overlap with the window, not containment, so events
		// spanning a boundary are returned for both sides.
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("start_time <= $%d", len(args)))
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("end_time >= $%d", len(args)))
	}
	if filter.Viewer != "" {
		args = append(args, filter.Viewer)
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(created_by = $%d OR assigned_to = $%d OR is_shared)", n, n))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY start_time"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("could not query events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 10)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			err = fmt.Errorf("could not scan event row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLStore) Update(ctx context.Context, id string, patch Patch) (Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Event{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	stored, err := scanEvent(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		err = fmt.Errorf("could not load event for update: %w", err)
		log.Error(err)
		return Event{}, err
	}

	merged, err := prepareUpdate(stored, patch, s.clock.Now())
	if err != nil {
		return Event{}, err
	}

	updateQuery := `UPDATE events
                    SET title = $1, start_time = $2, end_time = $3, client = $4, description = $5,
                        status = $6, assigned_to = $7, is_shared = $8, updated_at = $9
                    WHERE id = $10`
	_, err = tx.ExecContext(ctx, updateQuery,
		merged.Title,
		merged.Start,
		merged.End,
		merged.Client,
		nullString(merged.Description),
		string(merged.Status),
		nullString(merged.AssignedTo),
		merged.IsShared,
		merged.UpdatedAt,
		merged.ID,
	)
	if err != nil {
		err = fmt.Errorf("could not update event: %w", err)
		log.Error(err)
		return Event{}, err
	}

	if err := tx.Commit(); err != nil {
		return Event{}, fmt.Errorf("commit transaction: %w", err)
	}
	return merged, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		err = fmt.Errorf("could not delete event: %w", err)
		log.Error(err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var (
		e           Event
		description sql.NullString
		assignedTo  sql.NullString
		status      string
	)
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Start,
		&e.End,
		&e.Client,
		&description,
		&status,
		&assignedTo,
		&e.CreatedBy,
		&e.IsShared,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return Event{}, err
	}
	e.Description = description.String
	e.AssignedTo = assignedTo.String
	e.Status = Status(status)
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*SQLStore)(nil)
