// Package notify delivers submission notifications: staff and auto-responder
// emails, signed webhooks and CRM pushes.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
)

const (
	DefaultAutoResponderSubject = "Thank you for your submission"
	DefaultAutoResponderMessage = "Thank you for contacting us. We will get back to you soon."

	SignatureHeader = "X-Webhook-Signature"
	DeliveryHeader  = "X-Delivery-ID"
)

// Options configures a Notifier.
type Options struct {
	Mailer     Mailer
	HTTPClient *http.Client
	// BaseURL is used for the admin link in staff emails.
	BaseURL   string
	UserAgent string
	Logger    *zap.Logger
}

// Notifier sends the outbound side effects of a processed submission.
// Each method is independent and safe for concurrent use.
type Notifier struct {
	mailer    Mailer
	http      *http.Client
	baseURL   string
	userAgent string
	log       *zap.Logger
	now       func() time.Time
}

func New(opts Options) *Notifier {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Mailer == nil {
		opts.Mailer = NewLogMailer(opts.Logger)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "OxiSite-Webhook/1.0"
	}
	return &Notifier{
		mailer:    opts.Mailer,
		http:      opts.HTTPClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		log:       opts.Logger.Named("notify"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var staffTemplate = template.Must(template.New("staff").Parse(`
<h2>New {{.Form}} Submission</h2>
<p><strong>Submission ID:</strong> {{.ID}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
<hr>
<h3>Submission Details:</h3>
<table style="border-collapse: collapse; width: 100%;">
{{- range .Rows}}
  <tr>
    <td style="border: 1px solid #ddd; padding: 8px; font-weight: bold;">{{.Label}}</td>
    <td style="border: 1px solid #ddd; padding: 8px;">{{.Value}}</td>
  </tr>
{{- end}}
</table>
<hr>
<p><a href="{{.AdminURL}}">View in Admin</a></p>
`))

type row struct{ Label, Value string }

// StaffEmailBody renders the notification sent to form recipients.
func (n *Notifier) StaffEmailBody(form *models.Form, data map[string]any, submissionID string) (string, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]row, len(keys))
	for i, k := range keys {
		rows[i] = row{Label: form.Label(k), Value: fmt.Sprint(data[k])}
	}

	var buf bytes.Buffer
	err := staffTemplate.Execute(&buf, map[string]any{
		"Form":     form.Name,
		"ID":       submissionID,
		"Date":     n.now().Format(time.RFC1123),
		"Rows":     rows,
		"AdminURL": template.URL(n.baseURL + "/admin/collections/form-submissions/" + submissionID),
	})
	if err != nil {
		return "", fmt.Errorf("notify: render email: %w", err)
	}
	return buf.String(), nil
}

// Email notifies every configured recipient and, when enabled, sends the
// auto-responder to the submitter. All sends are attempted; failures are
// joined.
func (n *Notifier) Email(ctx context.Context, form *models.Form, data map[string]any, submissionID string) error {
	body, err := n.StaffEmailBody(form, data, submissionID)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range form.Notifications.NotificationEmails {
		if r.Email == "" {
			continue
		}
		if err := n.mailer.Send(ctx, Email{
			To:      r.Email,
			Subject: fmt.Sprintf("New %s submission", form.Name),
			HTML:    body,
		}); err != nil {
			errs = append(errs, err)
		}
	}

	ar := form.Notifications.AutoResponder
	if to := lead.Email(data); ar.Enabled && to != "" {
		subject, msg := ar.Subject, ar.Message
		if subject == "" {
			subject = DefaultAutoResponderSubject
		}
		if msg == "" {
			msg = DefaultAutoResponderMessage
		}
		if err := n.mailer.Send(ctx, Email{To: to, Subject: subject, HTML: msg}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WebhookPayload is the body posted to a form's webhook URL.
type WebhookPayload struct {
	Event      string         `json:"event"`
	Form       WebhookForm    `json:"form"`
	Submission map[string]any `json:"submission"`
	Timestamp  string         `json:"timestamp"`
}

type WebhookForm struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Type models.FormType `json:"type"`
}

// Sign returns the hex HMAC-SHA256 of body under secret, prefixed "sha256=".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Webhook posts the submission to the form's webhook URL. The body is
// canonical JSON so receivers can verify the signature byte for byte.
func (n *Notifier) Webhook(ctx context.Context, form *models.Form, data map[string]any) error {
	raw, err := json.Marshal(WebhookPayload{
		Event:      "form_submission",
		Form:       WebhookForm{ID: form.ID, Name: form.Name, Type: form.Type},
		Submission: data,
		Timestamp:  n.now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("notify: marshal webhook: %w", err)
	}
	body, err := jcs.Transform(raw)
	if err != nil {
		return fmt.Errorf("notify: canonicalize webhook: %w", err)
	}

	headers := map[string]string{
		"User-Agent":   n.userAgent,
		DeliveryHeader: uuid.NewString(),
	}
	if secret := form.Notifications.WebhookSecret; secret != "" {
		headers[SignatureHeader] = Sign(secret, body)
	}
	status, err := n.post(ctx, form.Notifications.WebhookURL, body, headers)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("webhook failed with status %d", status)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, url string, body []byte, headers map[string]string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := n.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("notify: post %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}
