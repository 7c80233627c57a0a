// Package reconcile merges a single day's inspection submission into the
// persistent week record for its equipment/plant/week, without touching any
// other day's data. It is pure value transformation: no I/O, no clock.
package reconcile

import (
	"errors"
	"fmt"

	"plantchecks/internal/models"
	"plantchecks/internal/week"
)

// Checklists maps an equipment type to its default label set, used when the
// first submission for a week supplies no labels of its own. Passed in as
// configuration so the engine stays equipment-type-agnostic.
type Checklists map[string][]string

// ErrNoLabels means a fresh record had no label source: the submission
// carried none and no default checklist exists for its equipment type.
var ErrNoLabels = errors.New("no labels for new record")

// Next produces the next week-record value from the previous one (nil when
// no record exists yet) and a validated day submission. prev is never
// mutated. Replaying the same submission yields the same result.
func Next(prev *models.WeeklyRecord, sub models.DaySubmission, defaults Checklists) (*models.WeeklyRecord, error) {
	var rec *models.WeeklyRecord
	if prev == nil {
		labels := sub.Labels
		if len(labels) == 0 {
			labels = defaults[sub.EquipmentType]
		}
		if len(labels) == 0 {
			return nil, fmt.Errorf("%w: equipment type %q", ErrNoLabels, sub.EquipmentType)
		}
		rec = &models.WeeklyRecord{
			EquipmentType:  sub.EquipmentType,
			PlantID:        sub.PlantID,
			WeekCommencing: week.FormatDate(week.Commencing(sub.Date)),
			Labels:         append([]string(nil), labels...),
			Statuses:       make([]models.Row, len(labels)),
		}
	} else {
		rec = prev.Clone()
		// Checklist definition changed since the record was created:
		// rebuild the row set by label identity. Rows keep their 7-day
		// history when the exact label text survives; dropped labels lose
		// theirs (the audit trail keeps the raw submissions).
		if len(sub.Labels) > 0 && !labelsEqual(sub.Labels, rec.Labels) {
			byLabel := make(map[string]models.Row, len(rec.Labels))
			for i, label := range rec.Labels {
				byLabel[label] = rec.Statuses[i]
			}
			rows := make([]models.Row, len(sub.Labels))
			for i, label := range sub.Labels {
				if row, ok := byLabel[label]; ok {
					rows[i] = row
				}
			}
			rec.Labels = append([]string(nil), sub.Labels...)
			rec.Statuses = rows
		}
	}

	// Day merge: only an explicit, valid status overwrites a cell. A label
	// the submission omits, or maps to anything outside OK/DEFECT/NA, leaves
	// the cell exactly as it was.
	day := week.DayOffset(sub.Date)
	for i, label := range rec.Labels {
		if st, ok := sub.Statuses[label]; ok && st.Valid() {
			rec.Statuses[i][day] = st
		}
	}

	// Metadata is last-write-wins when supplied.
	if sub.EquipmentType != "" {
		rec.EquipmentType = sub.EquipmentType
	}
	if sub.PlantID != "" {
		rec.PlantID = sub.PlantID
	}
	if sub.Site != "" {
		rec.Site = sub.Site
	}

	if err := rec.Check(); err != nil {
		return nil, fmt.Errorf("reconcile produced invalid record: %w", err)
	}
	return rec, nil
}

func labelsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
