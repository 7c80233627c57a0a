package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"plantchecks/internal/config"
	"plantchecks/internal/events"
	"plantchecks/internal/mailer"
	"plantchecks/internal/models"
	"plantchecks/internal/reconcile"
	"plantchecks/internal/repository"
	"plantchecks/internal/service"
	"plantchecks/internal/store"
	"plantchecks/internal/week"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// in-memory KV for unit tests
type fakeKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeAudit struct {
	inserted []*repository.Submission
	err      error
}

func (a *fakeAudit) Insert(ctx context.Context, s *repository.Submission) error {
	if a.err != nil {
		return a.err
	}
	a.inserted = append(a.inserted, s)
	return nil
}

func (a *fakeAudit) ListByWeekKey(ctx context.Context, weekKey string) ([]*repository.Submission, error) {
	return a.inserted, nil
}

type fakePublisher struct {
	published []events.RecordUpdated
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, ev events.RecordUpdated) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, ev)
	return nil
}

var testDefaults = reconcile.Checklists{"dumper": {"Brakes", "Tyres"}}

func newService(kv store.KV, audit *fakeAudit, mail *fakeMailer, pub *fakePublisher) *service.ChecksService {
	mailCfg := config.MailConfig{
		FromEmail: "checks@example.com",
		FromName:  "Plant Checks",
		ToEmail:   "agent@example.com",
		ToName:    "Site Agent",
	}
	var auditRepo repository.SubmissionsRepository
	if audit != nil {
		auditRepo = audit
	}
	var m service.Mailer
	if mail != nil {
		m = mail
	}
	var p service.EventPublisher
	if pub != nil {
		p = pub
	}
	return service.NewChecksService(kv, auditRepo, m, p, testDefaults, mailCfg, time.Second, zap.NewNop())
}

func mustDate(t *testing.T, s string) time.Time {
	d, err := week.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestLoadWeek_NoRecordYet(t *testing.T) {
	svc := newService(newFakeKV(), nil, nil, nil)

	view, err := svc.LoadWeek(context.Background(), "excavator", "EX-12", mustDate(t, "2024-06-05"))
	require.NoError(t, err)

	require.Equal(t, "plantchecks:excavator:EX-12:2024-06-03", view.WeekKey)
	require.Equal(t, "2024-06-03", view.WeekCommencing)
	require.Equal(t, 2, view.DayOffset)
	require.Nil(t, view.Record)
}

func TestLoadWeek_StoreErrorIsStoreUnavailable(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	svc := newService(kv, nil, nil, nil)

	_, err := svc.LoadWeek(context.Background(), "excavator", "EX-12", mustDate(t, "2024-06-05"))
	require.ErrorIs(t, err, service.ErrStoreUnavailable)
}

func TestSubmitDay_EndToEndWeek(t *testing.T) {
	kv := newFakeKV()
	audit := &fakeAudit{}
	mail := &fakeMailer{}
	pub := &fakePublisher{}
	svc := newService(kv, audit, mail, pub)
	ctx := context.Background()

	mon := models.DaySubmission{
		EquipmentType: "excavator",
		PlantID:       "EX-12",
		Date:          mustDate(t, "2024-06-03"),
		Labels:        []string{"Lights"},
		Statuses:      map[string]models.Status{"Lights": models.StatusOK},
	}
	res, err := svc.SubmitDay(ctx, mon, "JVBERi0=")
	require.NoError(t, err)
	require.Equal(t, "plantchecks:excavator:EX-12:2024-06-03", res.WeekKey)
	require.Equal(t, models.Row{models.StatusOK}, res.Record.Statuses[0])

	wed := models.DaySubmission{
		EquipmentType: "excavator",
		PlantID:       "EX-12",
		Date:          mustDate(t, "2024-06-05"),
		Statuses:      map[string]models.Status{"Lights": models.StatusDefect},
	}
	res, err = svc.SubmitDay(ctx, wed, "JVBERi0=")
	require.NoError(t, err)

	want := models.Row{models.StatusOK, models.StatusUnset, models.StatusDefect}
	require.Equal(t, want, res.Record.Statuses[0])

	// persisted value matches the returned record
	view, err := svc.LoadWeek(ctx, "excavator", "EX-12", mustDate(t, "2024-06-09"))
	require.NoError(t, err)
	require.Equal(t, res.Record, view.Record)

	// side effects ran once per submission
	require.Len(t, audit.inserted, 2)
	require.Equal(t, "2024-06-05", audit.inserted[1].Date)
	require.Len(t, pub.published, 2)
	require.Len(t, mail.sent, 2)
	require.Equal(t, "agent@example.com", mail.sent[0].ToEmail)
	require.Equal(t, "checks@example.com", mail.sent[0].FromEmail)
}

func TestSubmitDay_RecipientOverride(t *testing.T) {
	mail := &fakeMailer{}
	svc := newService(newFakeKV(), nil, mail, nil)

	sub := models.DaySubmission{
		EquipmentType: "dumper",
		PlantID:       "D-7",
		Date:          mustDate(t, "2024-06-03"),
		Statuses:      map[string]models.Status{"Brakes": models.StatusOK},
		ToEmail:       "foreman@example.com",
		ToName:        "Foreman",
	}
	_, err := svc.SubmitDay(context.Background(), sub, "JVBERi0=")
	require.NoError(t, err)

	require.Len(t, mail.sent, 1)
	require.Equal(t, "foreman@example.com", mail.sent[0].ToEmail)
	require.Equal(t, "Foreman", mail.sent[0].ToName)
}

func TestSubmitDay_DeliveryFailureIsPartialSuccess(t *testing.T) {
	kv := newFakeKV()
	mail := &fakeMailer{err: mailer.ErrDelivery}
	svc := newService(kv, nil, mail, nil)

	sub := models.DaySubmission{
		EquipmentType: "excavator",
		PlantID:       "EX-12",
		Date:          mustDate(t, "2024-06-03"),
		Labels:        []string{"Lights"},
		Statuses:      map[string]models.Status{"Lights": models.StatusOK},
	}
	res, err := svc.SubmitDay(context.Background(), sub, "JVBERi0=")

	require.ErrorIs(t, err, mailer.ErrDelivery)
	require.NotNil(t, res)
	require.Equal(t, "plantchecks:excavator:EX-12:2024-06-03", res.WeekKey)

	// record stayed persisted
	raw, getErr := kv.Get(context.Background(), res.WeekKey)
	require.NoError(t, getErr)
	var rec models.WeeklyRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	require.Equal(t, models.StatusOK, rec.Statuses[0][0])
}

func TestSubmitDay_AuditAndEventFailuresAreNonFatal(t *testing.T) {
	audit := &fakeAudit{err: errors.New("db down")}
	pub := &fakePublisher{err: errors.New("stream down")}
	mail := &fakeMailer{}
	svc := newService(newFakeKV(), audit, mail, pub)

	sub := models.DaySubmission{
		EquipmentType: "dumper",
		PlantID:       "D-7",
		Date:          mustDate(t, "2024-06-04"),
		Statuses:      map[string]models.Status{"Tyres": models.StatusNA},
	}
	_, err := svc.SubmitDay(context.Background(), sub, "JVBERi0=")
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
}

func TestSubmitDay_StoreGetFailure(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("timeout")
	svc := newService(kv, nil, nil, nil)

	sub := models.DaySubmission{
		EquipmentType: "dumper",
		PlantID:       "D-7",
		Date:          mustDate(t, "2024-06-04"),
	}
	_, err := svc.SubmitDay(context.Background(), sub, "JVBERi0=")
	require.ErrorIs(t, err, service.ErrStoreUnavailable)
}

func TestSubmitDay_StoreSetFailure(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("timeout")
	mail := &fakeMailer{}
	svc := newService(kv, nil, mail, nil)

	sub := models.DaySubmission{
		EquipmentType: "dumper",
		PlantID:       "D-7",
		Date:          mustDate(t, "2024-06-04"),
		Statuses:      map[string]models.Status{"Brakes": models.StatusOK},
	}
	_, err := svc.SubmitDay(context.Background(), sub, "JVBERi0=")

	require.ErrorIs(t, err, service.ErrStoreUnavailable)
	// no email after a failed write
	require.Empty(t, mail.sent)
}

func TestListWeeks_FiltersAndSorts(t *testing.T) {
	kv := newFakeKV()
	kv.data["plantchecks:excavator:EX-12:2024-06-10"] = `{}`
	kv.data["plantchecks:excavator:EX-12:2024-06-03"] = `{}`
	kv.data["plantchecks:dumper:D-7:2024-06-03"] = `{}`
	svc := newService(kv, nil, nil, nil)

	weeks, err := svc.ListWeeks(context.Background(), "excavator", "EX-12")
	require.NoError(t, err)
	require.Equal(t, []string{"2024-06-03", "2024-06-10"}, weeks)
}

func TestSubmitDay_UnknownTypeWithoutLabelsIsBadRequest(t *testing.T) {
	svc := newService(newFakeKV(), nil, nil, nil)

	sub := models.DaySubmission{
		EquipmentType: "telehandler",
		PlantID:       "T-1",
		Date:          mustDate(t, "2024-06-03"),
	}
	_, err := svc.SubmitDay(context.Background(), sub, "JVBERi0=")
	require.ErrorIs(t, err, service.ErrBadRequest)
}
