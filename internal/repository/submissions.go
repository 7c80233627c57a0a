package repository

import (
	"context"
	"time"
)

// Submission is one accepted day submission, kept verbatim in the audit
// trail. The KV week record is lossy when a checklist definition drops a
// label; this table is where the raw inputs survive.
type Submission struct {
	ID            string
	WeekKey       string
	EquipmentType string
	PlantID       string
	Site          string
	Date          string // ISO calendar date of the inspected day
	Operator      string
	Hours         string
	Defects       string
	ActionTaken   string
	CreatedAt     time.Time
}

// SubmissionsRepository is the audit-trail store.
type SubmissionsRepository interface {
	// Insert records one accepted submission. A zero ID is assigned.
	Insert(ctx context.Context, s *Submission) error

	// ListByWeekKey returns the submissions for one week key, oldest first.
	ListByWeekKey(ctx context.Context, weekKey string) ([]*Submission, error)
}

// Schema is the audit-trail DDL, applied by deploy tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS plant_check_submissions (
    submission_id  UUID PRIMARY KEY,
    week_key       TEXT NOT NULL,
    equipment_type TEXT NOT NULL,
    plant_id       TEXT NOT NULL,
    site           TEXT NOT NULL DEFAULT '',
    check_date     DATE NOT NULL,
    operator       TEXT NOT NULL DEFAULT '',
    hours          TEXT NOT NULL DEFAULT '',
    defects        TEXT NOT NULL DEFAULT '',
    action_taken   TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_plant_check_submissions_week_key
    ON plant_check_submissions (week_key, created_at);
`
