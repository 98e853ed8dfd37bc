package property

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"estatedesk/db"
)

var (
	// ErrNotFound signals the requested property does not exist.
	ErrNotFound = errors.New("property: not found")
	// ErrDuplicateSaleToken signals the sale token was already consumed.
	ErrDuplicateSaleToken = errors.New("property: duplicate sale token")
)

// Repository is the data access required by Service.
type Repository interface {
	List(ctx context.Context) ([]Property, error)
	Get(ctx context.Context, id int64) (Property, error)
	Create(ctx context.Context, p Property) (Property, error)
	Update(ctx context.Context, p Property) (Property, error)
	Delete(ctx context.Context, id int64) error
	MarkSold(ctx context.Context, q db.DBTX, id int64, soldPrice decimal.Decimal) (Property, error)
	InsertSaleToken(ctx context.Context, tx pgx.Tx, token string, id int64, soldPrice decimal.Decimal) error
	ListInteractions(ctx context.Context, propertyID int64) ([]Interaction, error)
	CreateInteraction(ctx context.Context, in Interaction) (Interaction, error)
}

// PGRepository implements Repository on the properties tables.
type PGRepository struct {
	db db.DBTX
}

// NewRepository creates a PostgreSQL-backed property repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const propertyColumns = `id, title, type, location, size, price, owner, contact, status, sold_price`

// List returns every property ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Property, error) {
	rows, err := r.db.Query(ctx, `SELECT `+propertyColumns+` FROM properties ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("property: list: %w", err)
	}
	defer rows.Close()

	out := make([]Property, 0, 16)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("property: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("property: iterate: %w", err)
	}
	return out, nil
}

// Get fetches a property by primary key.
func (r *PGRepository) Get(ctx context.Context, id int64) (Property, error) {
	p, err := scanProperty(r.db.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("property: get: %w", err)
	}
	return p, nil
}

// Create inserts p and returns the stored row.
func (r *PGRepository) Create(ctx context.Context, p Property) (Property, error) {
	const insertSQL = `
		INSERT INTO properties (title, type, location, size, price, owner, contact, status, sold_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + propertyColumns

	out, err := scanProperty(r.db.QueryRow(ctx, insertSQL,
		p.Title, p.Type, p.Location, p.Size, p.Price, p.Owner, p.Contact, p.Status, p.SoldPrice))
	if err != nil {
		return Property{}, fmt.Errorf("property: create: %w", err)
	}
	return out, nil
}

// Update overwrites every column of the row identified by p.ID.
func (r *PGRepository) Update(ctx context.Context, p Property) (Property, error) {
	const updateSQL = `
		UPDATE properties
		SET title = $2, type = $3, location = $4, size = $5, price = $6,
		    owner = $7, contact = $8, status = $9, sold_price = $10
		WHERE id = $1
		RETURNING ` + propertyColumns

	out, err := scanProperty(r.db.QueryRow(ctx, updateSQL,
		p.ID, p.Title, p.Type, p.Location, p.Size, p.Price, p.Owner, p.Contact, p.Status, p.SoldPrice))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("property: update: %w", err)
	}
	return out, nil
}

// Delete removes the property; its interactions go with it by cascade.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("property: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSold sets status and sold price in a single statement on q. A nil q
// runs against the repository's own connection.
func (r *PGRepository) MarkSold(ctx context.Context, q db.DBTX, id int64, soldPrice decimal.Decimal) (Property, error) {
	if q == nil {
		q = r.db
	}
	const updateSQL = `
		UPDATE properties
		SET status = 'Sold', sold_price = $2
		WHERE id = $1
		RETURNING ` + propertyColumns

	out, err := scanProperty(q.QueryRow(ctx, updateSQL, id, soldPrice))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("property: mark sold: %w", err)
	}
	return out, nil
}

// InsertSaleToken reserves token inside tx.
func (r *PGRepository) InsertSaleToken(ctx context.Context, tx pgx.Tx, token string, id int64, soldPrice decimal.Decimal) error {
	key, err := uuid.Parse(token)
	if err != nil {
		return ErrInvalidSaleToken
	}

	_, err = tx.Exec(ctx, `INSERT INTO sale_requests (token, property_id, sold_price) VALUES ($1, $2, $3)`, key, id, soldPrice)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrDuplicateSaleToken
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("property: insert sale token: %w", err)
	}
	return nil
}

// ListInteractions returns the interaction log of a property, newest first.
func (r *PGRepository) ListInteractions(ctx context.Context, propertyID int64) ([]Interaction, error) {
	const query = `
		SELECT id, property_id, customer_name, contact, notes, date
		FROM property_interactions
		WHERE property_id = $1
		ORDER BY date DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("property: list interactions: %w", err)
	}
	defer rows.Close()

	out := make([]Interaction, 0, 8)
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.PropertyID, &in.CustomerName, &in.Contact, &in.Notes, &in.Date); err != nil {
			return nil, fmt.Errorf("property: scan interaction: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("property: iterate interactions: %w", err)
	}
	return out, nil
}

// CreateInteraction appends in to its property's log.
func (r *PGRepository) CreateInteraction(ctx context.Context, in Interaction) (Interaction, error) {
	const insertSQL = `
		INSERT INTO property_interactions (property_id, customer_name, contact, notes, date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, property_id, customer_name, contact, notes, date
	`

	var out Interaction
	err := r.db.QueryRow(ctx, insertSQL, in.PropertyID, in.CustomerName, in.Contact, in.Notes, dateOnly(in.Date)).
		Scan(&out.ID, &out.PropertyID, &out.CustomerName, &out.Contact, &out.Notes, &out.Date)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Interaction{}, ErrNotFound
		}
		return Interaction{}, fmt.Errorf("property: create interaction: %w", err)
	}
	return out, nil
}

func scanProperty(row pgx.Row) (Property, error) {
	var p Property
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Type,
		&p.Location,
		&p.Size,
		&p.Price,
		&p.Owner,
		&p.Contact,
		&p.Status,
		&p.SoldPrice,
	)
	return p, err
}

// dateOnly strips the clock so the DATE column receives the civil day of t
// in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
