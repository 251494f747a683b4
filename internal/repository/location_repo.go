package repository

import (
	"context"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
)

type LocationRepository struct {
	db DBTX
}

func NewLocationRepository(db DBTX) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) Create(
	ctx context.Context,
	trainerID int64,
	name string,
	travelMinutes int,
) (*models.Location, error) {
	query := `
		INSERT INTO locations (trainer_id, name, travel_minutes)
		VALUES ($1, $2, $3)
		RETURNING id, trainer_id, name, travel_minutes, created_at
	`
	var location models.Location
	err := r.db.QueryRow(ctx, query, trainerID, name, travelMinutes).
		Scan(&location.ID, &location.TrainerID, &location.Name, &location.TravelMinutes, &location.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *LocationRepository) GetByID(ctx context.Context, locationID int64) (*models.Location, error) {
	query := `
		SELECT id, trainer_id, name, travel_minutes, created_at
		FROM locations
		WHERE id = $1
	`
	var location models.Location
	err := r.db.QueryRow(ctx, query, locationID).
		Scan(&location.ID, &location.TrainerID, &location.Name, &location.TravelMinutes, &location.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *LocationRepository) ListByTrainer(
	ctx context.Context,
	trainerID int64,
) ([]models.Location, error) {
	query := `
		SELECT id, trainer_id, name, travel_minutes, created_at
		FROM locations
		WHERE trainer_id = $1
		ORDER BY name ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]models.Location, 0)
	for rows.Next() {
		var location models.Location
		if err := rows.Scan(
			&location.ID,
			&location.TrainerID,
			&location.Name,
			&location.TravelMinutes,
			&location.CreatedAt,
		); err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return locations, nil
}

// TravelMinutes satisfies the conflict detector's LocationReader.
func (r *LocationRepository) TravelMinutes(ctx context.Context, locationID int64) (int, error) {
	var minutes int
	err := r.db.QueryRow(
		ctx,
		`SELECT travel_minutes FROM locations WHERE id = $1`,
		locationID,
	).Scan(&minutes)
	if err != nil {
		return 0, err
	}
	return minutes, nil
}
