package mailer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"plantchecks/internal/mailer"
	"plantchecks/internal/models"
	"plantchecks/internal/week"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSend_PostsMailjetMessage(t *testing.T) {
	var gotPath, gotAuthUser string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuthUser, _, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := mailer.NewClient(srv.URL, "api-key", "secret-key", zap.NewNop())
	err := c.Send(context.Background(), mailer.Message{
		FromEmail: "checks@example.com",
		FromName:  "Plant Checks",
		ToEmail:   "agent@example.com",
		ToName:    "Site Agent",
		Subject:   "EXCAVATOR check - EX-12 - 2024-06-03",
		TextPart:  "PDF attached.",
		Filename:  "EXCAVATOR-EX-12-2024-06-03.pdf",
		PDFBase64: "JVBERi0=",
	})
	require.NoError(t, err)

	require.Equal(t, "/v3.1/send", gotPath)
	require.Equal(t, "api-key", gotAuthUser)

	messages := gotBody["Messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	require.Equal(t, "EXCAVATOR check - EX-12 - 2024-06-03", msg["Subject"])
	require.Equal(t, "checks@example.com", msg["From"].(map[string]any)["Email"])

	atts := msg["Attachments"].([]any)
	require.Len(t, atts, 1)
	att := atts[0].(map[string]any)
	require.Equal(t, "application/pdf", att["ContentType"])
	require.Equal(t, "JVBERi0=", att["Base64Content"])
}

func TestSend_RejectionIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := mailer.NewClient(srv.URL, "api-key", "secret-key", zap.NewNop())
	err := c.Send(context.Background(), mailer.Message{ToEmail: "agent@example.com"})
	require.ErrorIs(t, err, mailer.ErrDelivery)
}

func TestSend_MissingKeysIsDeliveryError(t *testing.T) {
	c := mailer.NewClient("http://localhost:0", "", "", zap.NewNop())
	err := c.Send(context.Background(), mailer.Message{})
	require.ErrorIs(t, err, mailer.ErrDelivery)
}

func TestBuildInspectionMessage(t *testing.T) {
	d, err := week.ParseDate("2024-06-03")
	require.NoError(t, err)

	msg := mailer.BuildInspectionMessage(models.DaySubmission{
		EquipmentType: "excavator",
		PlantID:       "EX 12",
		Site:          "North Quarry",
		Date:          d,
		Operator:      "J. Smith",
		Hours:         "8",
		Defects:       "worn bucket tooth",
	}, "JVBERi0=")

	require.Equal(t, "EXCAVATOR check - EX 12 - 2024-06-03", msg.Subject)
	require.Equal(t, "EXCAVATOR-EX_12-2024-06-03.pdf", msg.Filename)
	require.Contains(t, msg.TextPart, "Site: North Quarry")
	require.Contains(t, msg.TextPart, "Operator: J. Smith")
	require.Contains(t, msg.TextPart, "Defects identified: worn bucket tooth")
	require.Contains(t, msg.TextPart, "PDF attached.")
	require.Equal(t, "JVBERi0=", msg.PDFBase64)
}

func TestBuildInspectionMessage_UnknownTypeFallsBackToPlant(t *testing.T) {
	d, _ := week.ParseDate("2024-06-03")
	msg := mailer.BuildInspectionMessage(models.DaySubmission{PlantID: "P-1", Date: d}, "")
	require.Equal(t, "PLANT check - P-1 - 2024-06-03", msg.Subject)
}
