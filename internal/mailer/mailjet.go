// Package mailer delivers the rendered inspection PDF through the Mailjet
// transactional-email API. Delivery is best-effort notification: the week
// record is the durable source of truth and is never rolled back when a send
// fails.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"plantchecks/internal/models"
	"plantchecks/internal/week"
)

// ErrDelivery means the email collaborator rejected or timed out. Callers
// report it distinctly from storage failures.
var ErrDelivery = errors.New("email delivery failed")

// Message is one inspection-report email: addressing, subject, plain-text
// body and the pre-rendered PDF as a base64 attachment.
type Message struct {
	FromEmail string
	FromName  string
	ToEmail   string
	ToName    string
	Subject   string
	TextPart  string
	Filename  string
	PDFBase64 string
}

// Client is the Mailjet v3.1 send client.
type Client struct {
	http      *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
}

// NewClient creates a Mailjet client. baseURL is overridable for tests.
func NewClient(baseURL, apiKey, secretKey string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:      httpClient,
		apiKey:    strings.TrimSpace(apiKey),
		secretKey: strings.TrimSpace(secretKey),
		logger:    logger,
	}
}

type emailParty struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type attachment struct {
	Filename      string `json:"Filename"`
	ContentType   string `json:"ContentType"`
	Base64Content string `json:"Base64Content"`
}

type mailjetMessage struct {
	From        emailParty   `json:"From"`
	To          []emailParty `json:"To"`
	Subject     string       `json:"Subject"`
	TextPart    string       `json:"TextPart"`
	Attachments []attachment `json:"Attachments,omitempty"`
}

type sendRequest struct {
	Messages []mailjetMessage `json:"Messages"`
}

// Send posts the message to the Mailjet v3.1 send endpoint.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.apiKey == "" || c.secretKey == "" {
		return fmt.Errorf("%w: mailjet API keys not configured", ErrDelivery)
	}

	body := sendRequest{
		Messages: []mailjetMessage{{
			From:     emailParty{Email: msg.FromEmail, Name: msg.FromName},
			To:       []emailParty{{Email: msg.ToEmail, Name: msg.ToName}},
			Subject:  msg.Subject,
			TextPart: msg.TextPart,
		}},
	}
	if msg.PDFBase64 != "" {
		body.Messages[0].Attachments = []attachment{{
			Filename:      msg.Filename,
			ContentType:   "application/pdf",
			Base64Content: msg.PDFBase64,
		}}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.apiKey, c.secretKey).
		SetBody(body).
		Post("/v3.1/send")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if !resp.IsSuccess() {
		c.logger.Warn("Mailjet rejected send",
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()),
		)
		return fmt.Errorf("%w: mailjet returned status %d", ErrDelivery, resp.StatusCode())
	}
	return nil
}

var whitespace = regexp.MustCompile(`\s+`)

// BuildInspectionMessage composes the report email for one accepted
// submission: subject "{TYPE} check - {plantId} - {date}" and a text body
// with the inspection metadata.
func BuildInspectionMessage(sub models.DaySubmission, pdfBase64 string) Message {
	equipmentType := strings.ToUpper(sub.EquipmentType)
	if equipmentType == "" {
		equipmentType = "PLANT"
	}
	date := week.FormatDate(sub.Date)

	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s\n", sub.Site)
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Plant: %s\n", sub.PlantID)
	fmt.Fprintf(&b, "Operator: %s\n", sub.Operator)
	if sub.Hours != "" {
		fmt.Fprintf(&b, "Hours/Shift: %s\n", sub.Hours)
	}
	if sub.Defects != "" {
		fmt.Fprintf(&b, "Defects identified: %s\n", sub.Defects)
	}
	if sub.ActionTaken != "" {
		fmt.Fprintf(&b, "Reported to / action taken: %s\n", sub.ActionTaken)
	}
	b.WriteString("\nPDF attached.")

	return Message{
		Subject:   strings.TrimSpace(fmt.Sprintf("%s check - %s - %s", equipmentType, sub.PlantID, date)),
		TextPart:  b.String(),
		Filename:  whitespace.ReplaceAllString(fmt.Sprintf("%s-%s-%s.pdf", equipmentType, sub.PlantID, date), "_"),
		PDFBase64: pdfBase64,
	}
}
