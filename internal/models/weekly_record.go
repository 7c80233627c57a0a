package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"plantchecks/internal/week"
)

// Status is one cell of the 7-day check matrix.
// Unset is the explicit "no result recorded" value and travels as JSON null,
// distinct from the three substantive statuses.
type Status string

const (
	StatusUnset  Status = ""
	StatusOK     Status = "OK"
	StatusDefect Status = "DEFECT"
	StatusNA     Status = "NA"
)

// Valid reports whether s is one of the three substantive statuses.
// Unset and anything unrecognized are not valid merge inputs.
func (s Status) Valid() bool {
	return s == StatusOK || s == StatusDefect || s == StatusNA
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s == StatusUnset {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *Status) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = StatusUnset
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Status(raw)
	return nil
}

// DaysPerWeek is the fixed row width: Monday=0 ... Sunday=6.
const DaysPerWeek = 7

// Row is one label's 7-day status sequence.
type Row [DaysPerWeek]Status

// WeeklyRecord is the persisted entity for one equipment/plant/week.
// It is created lazily on the first submission for its key, fully overwritten
// on every later write to the same key, and never deleted by this service.
type WeeklyRecord struct {
	EquipmentType  string   `json:"equipmentType"`
	PlantID        string   `json:"plantId"`
	Site           string   `json:"site,omitempty"`
	WeekCommencing string   `json:"weekCommencingDate"` // ISO date, always a Monday
	Labels         []string `json:"labels"`
	Statuses       []Row    `json:"statuses"`
}

// Check verifies the structural invariants that must hold after every write:
// one status row per label, 7 cells per row, unique labels, and a Monday
// week-commencing date. A violation is a programming error in the caller.
func (r *WeeklyRecord) Check() error {
	if len(r.Statuses) != len(r.Labels) {
		return fmt.Errorf("record has %d labels but %d status rows", len(r.Labels), len(r.Statuses))
	}
	seen := make(map[string]struct{}, len(r.Labels))
	for _, label := range r.Labels {
		if _, dup := seen[label]; dup {
			return fmt.Errorf("duplicate label %q", label)
		}
		seen[label] = struct{}{}
	}
	d, err := week.ParseDate(r.WeekCommencing)
	if err != nil {
		return fmt.Errorf("week commencing %q: %w", r.WeekCommencing, err)
	}
	if !week.IsMonday(d) {
		return fmt.Errorf("week commencing %q is not a Monday", r.WeekCommencing)
	}
	return nil
}

// Clone returns a deep copy. Reconciliation builds the next record value
// without mutating the previous one.
func (r *WeeklyRecord) Clone() *WeeklyRecord {
	out := *r
	out.Labels = append([]string(nil), r.Labels...)
	out.Statuses = append([]Row(nil), r.Statuses...)
	return &out
}

// DaySubmission is one day's worth of checklist results for one machine.
// It is transient input: validated at the HTTP boundary, merged into the
// week record, and kept raw only in the audit trail.
type DaySubmission struct {
	EquipmentType string
	PlantID       string
	Site          string
	Date          time.Time // calendar date, not necessarily a Monday
	Labels        []string  // checklist definition as of this submission; may be empty
	Statuses      map[string]Status

	// Free-text fields forwarded to the notification email and the audit
	// trail; never stored in the week record.
	Operator    string
	Hours       string
	Defects     string
	ActionTaken string

	// Optional recipient override for the notification email; configured
	// defaults apply when empty.
	ToEmail string
	ToName  string
}

// WeekKey builds the deterministic store key for one equipment/plant/week.
// Two submissions share a key exactly when they share equipment type, plant
// id, and Monday-to-Sunday week.
func WeekKey(equipmentType, plantID, weekCommencingISO string) string {
	return fmt.Sprintf("plantchecks:%s:%s:%s", equipmentType, plantID, weekCommencingISO)
}
