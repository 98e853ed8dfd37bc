package collaboration

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"estatedesk/db"
)

var (
	// ErrNotFound signals the requested collaboration does not exist.
	ErrNotFound = errors.New("collaboration: not found")
	// ErrInteractionNotFound signals the note does not exist under the collaboration.
	ErrInteractionNotFound = errors.New("collaboration: interaction not found")
)

// Repository is the data access required by Service.
type Repository interface {
	List(ctx context.Context) ([]Collaboration, error)
	Get(ctx context.Context, id int64) (Collaboration, error)
	Create(ctx context.Context, c Collaboration) (Collaboration, error)
	Update(ctx context.Context, c Collaboration) (Collaboration, error)
	Delete(ctx context.Context, id int64) error
	ListInteractions(ctx context.Context, collaborationID int64) ([]Interaction, error)
	CreateInteraction(ctx context.Context, in Interaction) (Interaction, error)
	DeleteInteraction(ctx context.Context, collaborationID, interactionID int64) error
}

// PGRepository implements Repository on the collaborations tables.
type PGRepository struct {
	db db.DBTX
}

// NewRepository creates a PostgreSQL-backed collaboration repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const collaborationColumns = `id, supplier, category, service, contact_person, contact_number, email,
	start_date, due_date, total_amount, paid_amount, pending_amount`

// List returns every collaboration ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Collaboration, error) {
	rows, err := r.db.Query(ctx, `SELECT `+collaborationColumns+` FROM collaborations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("collaboration: list: %w", err)
	}
	defer rows.Close()

	out := make([]Collaboration, 0, 16)
	for rows.Next() {
		c, err := scanCollaboration(rows)
		if err != nil {
			return nil, fmt.Errorf("collaboration: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collaboration: iterate: %w", err)
	}
	return out, nil
}

// Get fetches a collaboration by primary key.
func (r *PGRepository) Get(ctx context.Context, id int64) (Collaboration, error) {
	c, err := scanCollaboration(r.db.QueryRow(ctx, `SELECT `+collaborationColumns+` FROM collaborations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Collaboration{}, ErrNotFound
		}
		return Collaboration{}, fmt.Errorf("collaboration: get: %w", err)
	}
	return c, nil
}

// Create inserts c and returns the stored row.
func (r *PGRepository) Create(ctx context.Context, c Collaboration) (Collaboration, error) {
	const insertSQL = `
		INSERT INTO collaborations (supplier, category, service, contact_person, contact_number, email,
			start_date, due_date, total_amount, paid_amount, pending_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + collaborationColumns

	out, err := scanCollaboration(r.db.QueryRow(ctx, insertSQL,
		c.Supplier, c.Category, c.Service, c.ContactPerson, c.ContactNumber, c.Email,
		c.StartDate, c.DueDate, c.TotalAmount, c.PaidAmount, c.PendingAmount))
	if err != nil {
		return Collaboration{}, fmt.Errorf("collaboration: create: %w", err)
	}
	return out, nil
}

// Update overwrites every column of the row identified by c.ID.
func (r *PGRepository) Update(ctx context.Context, c Collaboration) (Collaboration, error) {
	const updateSQL = `
		UPDATE collaborations
		SET supplier = $2, category = $3, service = $4, contact_person = $5, contact_number = $6,
		    email = $7, start_date = $8, due_date = $9, total_amount = $10, paid_amount = $11,
		    pending_amount = $12
		WHERE id = $1
		RETURNING ` + collaborationColumns

	out, err := scanCollaboration(r.db.QueryRow(ctx, updateSQL,
		c.ID, c.Supplier, c.Category, c.Service, c.ContactPerson, c.ContactNumber, c.Email,
		c.StartDate, c.DueDate, c.TotalAmount, c.PaidAmount, c.PendingAmount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Collaboration{}, ErrNotFound
		}
		return Collaboration{}, fmt.Errorf("collaboration: update: %w", err)
	}
	return out, nil
}

// Delete removes the collaboration; its notes go with it by cascade.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM collaborations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("collaboration: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListInteractions returns the notes of a collaboration, newest first.
func (r *PGRepository) ListInteractions(ctx context.Context, collaborationID int64) ([]Interaction, error) {
	const query = `
		SELECT id, collaboration_id, note, date
		FROM collaboration_interactions
		WHERE collaboration_id = $1
		ORDER BY date DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, collaborationID)
	if err != nil {
		return nil, fmt.Errorf("collaboration: list interactions: %w", err)
	}
	defer rows.Close()

	out := make([]Interaction, 0, 8)
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.CollaborationID, &in.Note, &in.Date); err != nil {
			return nil, fmt.Errorf("collaboration: scan interaction: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collaboration: iterate interactions: %w", err)
	}
	return out, nil
}

// CreateInteraction appends a note.
func (r *PGRepository) CreateInteraction(ctx context.Context, in Interaction) (Interaction, error) {
	const insertSQL = `
		INSERT INTO collaboration_interactions (collaboration_id, note, date)
		VALUES ($1, $2, $3)
		RETURNING id, collaboration_id, note, date
	`

	var out Interaction
	err := r.db.QueryRow(ctx, insertSQL, in.CollaborationID, in.Note, in.Date).
		Scan(&out.ID, &out.CollaborationID, &out.Note, &out.Date)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Interaction{}, ErrNotFound
		}
		return Interaction{}, fmt.Errorf("collaboration: create interaction: %w", err)
	}
	return out, nil
}

// DeleteInteraction removes one note, only if it belongs to collaborationID.
func (r *PGRepository) DeleteInteraction(ctx context.Context, collaborationID, interactionID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM collaboration_interactions WHERE id = $1 AND collaboration_id = $2`,
		interactionID, collaborationID)
	if err != nil {
		return fmt.Errorf("collaboration: delete interaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInteractionNotFound
	}
	return nil
}

func scanCollaboration(row pgx.Row) (Collaboration, error) {
	var c Collaboration
	err := row.Scan(
		&c.ID,
		&c.Supplier,
		&c.Category,
		&c.Service,
		&c.ContactPerson,
		&c.ContactNumber,
		&c.Email,
		&c.StartDate,
		&c.DueDate,
		&c.TotalAmount,
		&c.PaidAmount,
		&c.PendingAmount,
	)
	return c, err
}
