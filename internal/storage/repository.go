package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier abstracts the subset of pgxpool.Pool used by FavoritesRepository.
// This allows injection of a mock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Favorite is one stored favorite city row.
type Favorite struct {
	ID         uuid.UUID
	IdentityID string
	City       string
	CreatedAt  time.Time
}

// FavoritesRepository stores favorite cities keyed by identity. Every query is
// filtered by identity_id; rows of one identity are never visible to another.
type FavoritesRepository struct {
	q     Querier
	newID func() (uuid.UUID, error)
}

// NewFavoritesRepository constructs a FavoritesRepository backed by the given pool.
func NewFavoritesRepository(pool *pgxpool.Pool) *FavoritesRepository {
	return &FavoritesRepository{q: pool, newID: uuid.NewV7}
}

// NewFavoritesRepositoryWithQuerier constructs a FavoritesRepository with a custom Querier (for tests).
func NewFavoritesRepositoryWithQuerier(q Querier) *FavoritesRepository {
	return &FavoritesRepository{q: q, newID: uuid.NewV7}
}

// List returns the identity's favorites, oldest first. Ids are UUIDv7, so they
// break created_at ties in insertion order.
func (r *FavoritesRepository) List(ctx context.Context, identityID string) ([]Favorite, error) {
	const q = `
		SELECT id, identity_id, city_name, created_at
		FROM favorites
		WHERE identity_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, q, identityID)
	if err != nil {
		return nil, fmt.Errorf("querying favorites for identity %s: %w", identityID, err)
	}
	defer rows.Close()

	favorites := []Favorite{}
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ID, &f.IdentityID, &f.City, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning favorite row: %w", err)
		}
		favorites = append(favorites, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorite rows: %w", err)
	}

	return favorites, nil
}

// Insert stores city for the identity. It reports false when the pair
// already exists; the original row and its position are kept.
func (r *FavoritesRepository) Insert(ctx context.Context, identityID, city string) (bool, error) {
	id, err := r.newID()
	if err != nil {
		return false, fmt.Errorf("generating favorite id: %w", err)
	}

	const q = `
		INSERT INTO favorites (id, identity_id, city_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_id, city_name) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, q, id, identityID, city)
	if err != nil {
		return false, fmt.Errorf("inserting favorite %s for identity %s: %w", city, identityID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// Delete removes the (identity, city) row. It reports whether a row existed.
func (r *FavoritesRepository) Delete(ctx context.Context, identityID, city string) (bool, error) {
	const q = `
		DELETE FROM favorites
		WHERE identity_id = $1 AND city_name = $2
	`

	tag, err := r.q.Exec(ctx, q, identityID, city)
	if err != nil {
		return false, fmt.Errorf("deleting favorite %s for identity %s: %w", city, identityID, err)
	}

	return tag.RowsAffected() > 0, nil
}
