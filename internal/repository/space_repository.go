package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

const spaceColumns = `id, name, type, capacity, equipment, status, created_at, updated_at`

// SpaceRepository reads the facilities directory.
type SpaceRepository struct {
	db *sqlx.DB
}

// NewSpaceRepository constructs repository.
func NewSpaceRepository(db *sqlx.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

// List returns every space ordered by ID.
func (r *SpaceRepository) List(ctx context.Context) ([]models.Space, error) {
	query := `SELECT ` + spaceColumns + ` FROM spaces ORDER BY id`
	var spaces []models.Space
	if err := r.db.SelectContext(ctx, &spaces, query); err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	return spaces, nil
}

// FindByID loads a single space.
func (r *SpaceRepository) FindByID(ctx context.Context, id string) (*models.Space, error) {
	query := `SELECT ` + spaceColumns + ` FROM spaces WHERE id = $1`
	var space models.Space
	if err := r.db.GetContext(ctx, &space, query, id); err != nil {
		return nil, err
	}
	return &space, nil
}

// FindByIDs loads the requested spaces; unknown IDs are skipped.
func (r *SpaceRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Space, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + spaceColumns + ` FROM spaces WHERE id = ANY($1) ORDER BY id`
	var spaces []models.Space
	if err := r.db.SelectContext(ctx, &spaces, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find spaces: %w", err)
	}
	return spaces, nil
}

// Upsert mirrors a space record from the facilities collaborator.
func (r *SpaceRepository) Upsert(ctx context.Context, space *models.Space) error {
	if space.Equipment == nil {
		space.Equipment = pq.StringArray{}
	}
	if space.Status == "" {
		space.Status = models.SpaceStatusAvailable
	}
	now := time.Now().UTC()
	if space.CreatedAt.IsZero() {
		space.CreatedAt = now
	}
	space.UpdatedAt = now

	const query = `
INSERT INTO spaces (id, name, type, capacity, equipment, status, created_at, updated_at)
VALUES (:id, :name, :type, :capacity, :equipment, :status, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type, capacity = EXCLUDED.capacity,
    equipment = EXCLUDED.equipment, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, space); err != nil {
		return fmt.Errorf("upsert space: %w", err)
	}
	return nil
}
