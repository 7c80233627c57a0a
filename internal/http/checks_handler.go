package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"plantchecks/internal/mailer"
	"plantchecks/internal/models"
	"plantchecks/internal/repository"
	"plantchecks/internal/service"
	"plantchecks/internal/week"
)

// base64 PDFs run to a few MB; anything past this is not a legitimate form.
const maxSubmitBody = 20 << 20

// ChecksHandler serves the weekly-check operations. Every route is guarded by
// the shared-secret link token.
type ChecksHandler struct {
	svc    *service.ChecksService
	token  string
	logger *zap.Logger
}

func NewChecksHandler(svc *service.ChecksService, token string, logger *zap.Logger) *ChecksHandler {
	return &ChecksHandler{svc: svc, token: token, logger: logger}
}

// authorized compares the supplied token with the configured secret. An
// unconfigured secret rejects everything.
func (h *ChecksHandler) authorized(token string) bool {
	if h.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) == 1
}

// GET /api/week?t=&type=&plantId=&date=
// Returns the week key, week-commencing date, day offset and the stored
// record (null when no record exists yet; that is a normal state, not an
// error).
func (h *ChecksHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	view, ok := h.loadWeekFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GET /api/week/export?t=&type=&plantId=&date=
// Returns the week matrix as an .xlsx download.
func (h *ChecksHandler) ExportWeek(w http.ResponseWriter, r *http.Request) {
	view, ok := h.loadWeekFromQuery(w, r)
	if !ok {
		return
	}
	if view.Record == nil {
		writeError(w, http.StatusNotFound, "No record for this week")
		return
	}

	data, err := GenerateWeekExport(view.Record)
	if err != nil {
		h.logger.Error("Week export failed", zap.String("week_key", view.WeekKey), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	filename := exportFilename(view.Record)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GET /api/weeks?t=&type=&plantId=
// Lists the week-commencing dates that have a stored record for the machine.
func (h *ChecksHandler) ListWeeks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !h.authorized(q.Get("t")) {
		writeError(w, http.StatusUnauthorized, "Invalid link token")
		return
	}

	equipmentType := strings.ToLower(strings.TrimSpace(q.Get("type")))
	plantID := strings.TrimSpace(q.Get("plantId"))
	if equipmentType == "" || plantID == "" {
		writeError(w, http.StatusBadRequest, "Missing type or plantId")
		return
	}

	weeks, err := h.svc.ListWeeks(r.Context(), equipmentType, plantID)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable")
		} else {
			h.logger.Error("List weeks failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weeks": weeks})
}

// GET /api/week/submissions?t=&type=&plantId=&date=
// Lists the audit-trail entries for the week, oldest first.
func (h *ChecksHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	equipmentType, plantID, date, ok := h.queryParams(w, r)
	if !ok {
		return
	}

	subs, err := h.svc.WeekSubmissions(r.Context(), equipmentType, plantID, date)
	if err != nil {
		h.logger.Error("List submissions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if subs == nil {
		// audit disabled or nothing recorded; both render as an empty list
		subs = []*repository.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

// submitPayload is the untyped inbound submission shape. Field aliases keep
// older form clients working.
type submitPayload struct {
	EquipmentType string `json:"equipmentType"`
	Type          string `json:"type"` // alias used by the form client
	PlantID       string `json:"plantId"`
	Site          string `json:"site"`
	Date          string `json:"date"`
	DateISO       string `json:"dateISO"` // alias used by the form client

	Labels   []string                 `json:"labels"`
	Statuses map[string]models.Status `json:"statuses"`

	Operator    string `json:"operator"`
	Hours       string `json:"hours"`
	Defects     string `json:"defectsText"`
	ActionTaken string `json:"actionTaken"`

	To     string `json:"to"`
	ToName string `json:"toName"`
}

type submitRequest struct {
	Token     string         `json:"token"`
	Payload   *submitPayload `json:"payload"`
	PDFBase64 string         `json:"pdfBase64"`
}

// POST /api/submit
// Validates, merges the day into the week record, persists, then delivers
// the PDF by email. A delivery failure after a successful write is reported
// as 502 with saved:true; the record is not rolled back.
func (h *ChecksHandler) SubmitDay(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := readBodyJSON(r, maxSubmitBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if !h.authorized(req.Token) {
		writeError(w, http.StatusUnauthorized, "Invalid link token")
		return
	}
	if req.Payload == nil || req.PDFBase64 == "" {
		writeError(w, http.StatusBadRequest, "Missing PDF or payload")
		return
	}

	sub, errMsg := req.Payload.toSubmission()
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	result, err := h.svc.SubmitDay(r.Context(), sub, req.PDFBase64)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "weekKey": result.WeekKey})
	case errors.Is(err, mailer.ErrDelivery):
		// partial success: record stored, notification not sent
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   "Email send failed",
			"saved":   true,
			"weekKey": result.WeekKey,
		})
	case errors.Is(err, service.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Store unavailable")
	default:
		h.logger.Error("Submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

// toSubmission validates and coerces the untyped payload into a
// DaySubmission. Returns a non-empty message on validation failure.
func (p *submitPayload) toSubmission() (models.DaySubmission, string) {
	equipmentType := strings.ToLower(strings.TrimSpace(p.EquipmentType))
	if equipmentType == "" {
		equipmentType = strings.ToLower(strings.TrimSpace(p.Type))
	}
	dateStr := p.Date
	if dateStr == "" {
		dateStr = p.DateISO
	}

	if equipmentType == "" || strings.TrimSpace(p.PlantID) == "" || dateStr == "" {
		return models.DaySubmission{}, "Missing type, plantId or date"
	}

	date, err := week.ParseDate(dateStr)
	if err != nil {
		return models.DaySubmission{}, "Invalid date"
	}

	seen := make(map[string]struct{}, len(p.Labels))
	for _, label := range p.Labels {
		if _, dup := seen[label]; dup {
			return models.DaySubmission{}, "Duplicate checklist label: " + label
		}
		seen[label] = struct{}{}
	}

	return models.DaySubmission{
		EquipmentType: equipmentType,
		PlantID:       strings.TrimSpace(p.PlantID),
		Site:          p.Site,
		Date:          date,
		Labels:        p.Labels,
		Statuses:      p.Statuses,
		Operator:      p.Operator,
		Hours:         p.Hours,
		Defects:       p.Defects,
		ActionTaken:   p.ActionTaken,
		ToEmail:       p.To,
		ToName:        p.ToName,
	}, ""
}

// queryParams authenticates and validates the shared read-side query
// parameters. ok=false means the response has been written.
func (h *ChecksHandler) queryParams(w http.ResponseWriter, r *http.Request) (equipmentType, plantID string, date time.Time, ok bool) {
	q := r.URL.Query()
	if !h.authorized(q.Get("t")) {
		writeError(w, http.StatusUnauthorized, "Invalid link token")
		return
	}

	equipmentType = strings.ToLower(strings.TrimSpace(q.Get("type")))
	plantID = strings.TrimSpace(q.Get("plantId"))
	dateStr := q.Get("date")
	if equipmentType == "" || plantID == "" || dateStr == "" {
		writeError(w, http.StatusBadRequest, "Missing type, plantId or date")
		return
	}

	date, err := week.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}
	ok = true
	return
}

func (h *ChecksHandler) loadWeekFromQuery(w http.ResponseWriter, r *http.Request) (*service.WeekView, bool) {
	equipmentType, plantID, date, ok := h.queryParams(w, r)
	if !ok {
		return nil, false
	}

	view, err := h.svc.LoadWeek(r.Context(), equipmentType, plantID, date)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable")
		} else {
			h.logger.Error("Load week failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return nil, false
	}
	return view, true
}
