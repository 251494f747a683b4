package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
)

type CreateDayOffInput struct {
	TrainerID int64
	Day       time.Time
	StartHM   string
	EndHM     string
	Reason    *string
}

type DayOffRepository struct {
	db DBTX
}

func NewDayOffRepository(db DBTX) *DayOffRepository {
	return &DayOffRepository{db: db}
}

func (r *DayOffRepository) Create(
	ctx context.Context,
	input CreateDayOffInput,
) (*models.DayOff, error) {
	query := `
		INSERT INTO day_offs (trainer_id, day, start_hm, end_hm, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, trainer_id, day, start_hm, end_hm, reason, created_at
	`
	var off models.DayOff
	err := r.db.QueryRow(
		ctx,
		query,
		input.TrainerID,
		input.Day,
		input.StartHM,
		input.EndHM,
		input.Reason,
	).Scan(&off.ID, &off.TrainerID, &off.Day, &off.StartHM, &off.EndHM, &off.Reason, &off.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &off, nil
}

func (r *DayOffRepository) ListByTrainer(
	ctx context.Context,
	trainerID int64,
) ([]models.DayOff, error) {
	query := `
		SELECT id, trainer_id, day, start_hm, end_hm, reason, created_at
		FROM day_offs
		WHERE trainer_id = $1
		ORDER BY day ASC, start_hm ASC
	`
	rows, err := r.db.Query(ctx, query, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dayOffs := make([]models.DayOff, 0)
	for rows.Next() {
		var off models.DayOff
		if err := rows.Scan(
			&off.ID,
			&off.TrainerID,
			&off.Day,
			&off.StartHM,
			&off.EndHM,
			&off.Reason,
			&off.CreatedAt,
		); err != nil {
			return nil, err
		}
		dayOffs = append(dayOffs, off)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dayOffs, nil
}

// Delete removes a trainer's own day-off block. pgx.ErrNoRows when the
// block does not exist or belongs to another trainer.
func (r *DayOffRepository) Delete(ctx context.Context, dayOffID, trainerID int64) error {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM day_offs WHERE id = $1 AND trainer_id = $2`,
		dayOffID,
		trainerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
