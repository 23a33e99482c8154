package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campushq/schedule-api/internal/models"
)

// RoomRepository reads the room catalog of a venue. Rooms are reference
// data here; their administration lives elsewhere.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListBySite returns the active rooms of a site ordered by name.
func (r *RoomRepository) ListBySite(ctx context.Context, siteID string) ([]models.Room, error) {
	const query = `SELECT id, site_id, name, capacity, active, created_at, updated_at FROM rooms WHERE site_id = $1 AND active = TRUE ORDER BY name ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, siteID); err != nil {
		return nil, fmt.Errorf("list rooms by site: %w", err)
	}
	return rooms, nil
}

// FindByID loads a room by id.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, site_id, name, capacity, active, created_at, updated_at FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindSite loads a site by id.
func (r *RoomRepository) FindSite(ctx context.Context, id string) (*models.Site, error) {
	const query = `SELECT id, name, address, created_at, updated_at FROM sites WHERE id = $1`
	var site models.Site
	if err := r.db.GetContext(ctx, &site, query, id); err != nil {
		return nil, err
	}
	return &site, nil
}
