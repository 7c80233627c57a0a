package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostgresSubmissions is the lib/pq backed audit-trail repository.
type PostgresSubmissions struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresSubmissions(db *sql.DB, logger *zap.Logger) *PostgresSubmissions {
	return &PostgresSubmissions{db: db, logger: logger}
}

func (r *PostgresSubmissions) Insert(ctx context.Context, s *Submission) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO plant_check_submissions
			(submission_id, week_key, equipment_type, plant_id, site, check_date,
			 operator, hours, defects, action_taken, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.WeekKey, s.EquipmentType, s.PlantID, s.Site, s.Date,
		s.Operator, s.Hours, s.Defects, s.ActionTaken, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (r *PostgresSubmissions) ListByWeekKey(ctx context.Context, weekKey string) ([]*Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT submission_id, week_key, equipment_type, plant_id, site,
		       to_char(check_date, 'YYYY-MM-DD'),
		       operator, hours, defects, action_taken, created_at
		FROM plant_check_submissions
		WHERE week_key = $1
		ORDER BY created_at ASC`,
		weekKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*Submission
	for rows.Next() {
		s := &Submission{}
		if err := rows.Scan(
			&s.ID, &s.WeekKey, &s.EquipmentType, &s.PlantID, &s.Site,
			&s.Date, &s.Operator, &s.Hours, &s.Defects, &s.ActionTaken, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}
