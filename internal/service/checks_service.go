package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"plantchecks/internal/config"
	"plantchecks/internal/events"
	"plantchecks/internal/mailer"
	"plantchecks/internal/models"
	"plantchecks/internal/reconcile"
	"plantchecks/internal/repository"
	"plantchecks/internal/store"
	"plantchecks/internal/week"
)

var (
	// ErrBadRequest means the caller must correct its input; nothing was
	// written.
	ErrBadRequest = errors.New("bad request")

	// ErrStoreUnavailable means the KV store errored or timed out. The whole
	// read/reconcile/write sequence is safe to retry from scratch.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Mailer sends the inspection-report email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// EventPublisher announces record updates to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.RecordUpdated) error
}

// WeekView is the read-side result for one equipment/plant/date.
type WeekView struct {
	WeekKey        string               `json:"weekKey"`
	WeekCommencing string               `json:"weekCommencing"`
	DayOffset      int                  `json:"dayOffset"`
	Record         *models.WeeklyRecord `json:"record"` // nil: no record yet, a normal state
}

// SubmitResult reports what a submission did.
type SubmitResult struct {
	WeekKey string
	Record  *models.WeeklyRecord
}

// ChecksService owns the read/reconcile/write cycle for week records.
//
// Writes are a plain read-modify-write with no lock or version check: two
// concurrent submissions for the same week key race, and the last write
// replaces the whole record. Accepted trait of the design; retrying a failed
// submit is safe because reconciliation is a pure function of current state
// and the submission.
type ChecksService struct {
	kv           store.KV
	audit        repository.SubmissionsRepository // nil: audit disabled
	mail         Mailer                           // nil: delivery disabled
	events       EventPublisher                   // nil: events disabled
	defaults     reconcile.Checklists
	mailCfg      config.MailConfig
	storeTimeout time.Duration
	logger       *zap.Logger
}

func NewChecksService(
	kv store.KV,
	audit repository.SubmissionsRepository,
	mail Mailer,
	publisher EventPublisher,
	defaults reconcile.Checklists,
	mailCfg config.MailConfig,
	storeTimeout time.Duration,
	logger *zap.Logger,
) *ChecksService {
	return &ChecksService{
		kv:           kv,
		audit:        audit,
		mail:         mail,
		events:       publisher,
		defaults:     defaults,
		mailCfg:      mailCfg,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// LoadWeek resolves the week key for the given date and fetches the record.
// A missing record is not an error: the view comes back with Record nil.
func (s *ChecksService) LoadWeek(ctx context.Context, equipmentType, plantID string, date time.Time) (*WeekView, error) {
	weekISO := week.FormatDate(week.Commencing(date))
	key := models.WeekKey(equipmentType, plantID, weekISO)

	rec, err := s.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	return &WeekView{
		WeekKey:        key,
		WeekCommencing: weekISO,
		DayOffset:      week.DayOffset(date),
		Record:         rec,
	}, nil
}

// SubmitDay merges one day's results into the week record and persists it,
// then runs the best-effort side effects: audit insert, stream event, email.
// When the email fails after a successful write, SubmitDay returns the result
// together with an error matching mailer.ErrDelivery; the stored record
// stands.
func (s *ChecksService) SubmitDay(ctx context.Context, sub models.DaySubmission, pdfBase64 string) (*SubmitResult, error) {
	weekISO := week.FormatDate(week.Commencing(sub.Date))
	key := models.WeekKey(sub.EquipmentType, sub.PlantID, weekISO)

	prev, err := s.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	next, err := reconcile.Next(prev, sub, s.defaults)
	if err != nil {
		if errors.Is(err, reconcile.ErrNoLabels) {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		return nil, err
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", key, err)
	}

	putCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.kv.Set(putCtx, key, string(raw), 0); err != nil {
		return nil, fmt.Errorf("%w: put %s: %v", ErrStoreUnavailable, key, err)
	}

	s.logger.Info("Stored week record",
		zap.String("week_key", key),
		zap.String("date", week.FormatDate(sub.Date)),
		zap.Int("labels", len(next.Labels)),
	)

	result := &SubmitResult{WeekKey: key, Record: next}
	dateISO := week.FormatDate(sub.Date)

	if s.audit != nil {
		err := s.audit.Insert(ctx, &repository.Submission{
			WeekKey:       key,
			EquipmentType: sub.EquipmentType,
			PlantID:       sub.PlantID,
			Site:          sub.Site,
			Date:          dateISO,
			Operator:      sub.Operator,
			Hours:         sub.Hours,
			Defects:       sub.Defects,
			ActionTaken:   sub.ActionTaken,
		})
		if err != nil {
			s.logger.Warn("Audit insert failed", zap.String("week_key", key), zap.Error(err))
		}
	}

	if s.events != nil {
		err := s.events.Publish(ctx, events.RecordUpdated{
			WeekKey:        key,
			EquipmentType:  sub.EquipmentType,
			PlantID:        sub.PlantID,
			WeekCommencing: weekISO,
			Date:           dateISO,
		})
		if err != nil {
			s.logger.Warn("Event publish failed", zap.String("week_key", key), zap.Error(err))
		}
	}

	if s.mail != nil {
		msg := mailer.BuildInspectionMessage(sub, pdfBase64)
		msg.FromEmail = s.mailCfg.FromEmail
		msg.FromName = s.mailCfg.FromName
		msg.ToEmail = sub.ToEmail
		msg.ToName = sub.ToName
		if msg.ToEmail == "" {
			msg.ToEmail = s.mailCfg.ToEmail
			msg.ToName = s.mailCfg.ToName
		}

		if err := s.mail.Send(ctx, msg); err != nil {
			s.logger.Warn("Report email failed, record already stored",
				zap.String("week_key", key),
				zap.Error(err),
			)
			return result, err
		}
	}

	return result, nil
}

// ListWeeks returns the week-commencing dates that have a stored record for
// one machine, oldest first.
func (s *ChecksService) ListWeeks(ctx context.Context, equipmentType, plantID string) ([]string, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	pattern := models.WeekKey(equipmentType, plantID, "*")
	keys, err := s.kv.ScanKeys(scanCtx, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", ErrStoreUnavailable, pattern, err)
	}

	prefix := models.WeekKey(equipmentType, plantID, "")
	weeks := make([]string, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		weeks = append(weeks, strings.TrimPrefix(key, prefix))
	}
	sort.Strings(weeks)
	return weeks, nil
}

// WeekSubmissions lists the audit-trail entries for the week the date falls
// in, oldest first. Returns nil when auditing is disabled.
func (s *ChecksService) WeekSubmissions(ctx context.Context, equipmentType, plantID string, date time.Time) ([]*repository.Submission, error) {
	if s.audit == nil {
		return nil, nil
	}
	weekISO := week.FormatDate(week.Commencing(date))
	key := models.WeekKey(equipmentType, plantID, weekISO)

	subs, err := s.audit.ListByWeekKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list submissions %s: %w", key, err)
	}
	return subs, nil
}

// fetch reads and decodes one week record; nil means no record exists.
func (s *ChecksService) fetch(ctx context.Context, key string) (*models.WeeklyRecord, error) {
	getCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	raw, err := s.kv.Get(getCtx, key)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrStoreUnavailable, key, err)
	}

	rec := &models.WeeklyRecord{}
	if err := json.Unmarshal([]byte(raw), rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", key, err)
	}
	return rec, nil
}
