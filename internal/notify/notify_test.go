package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/oxisite/internal/models"
)

type memMailer struct {
	mu   sync.Mutex
	sent []Email
	fail map[string]error
}

func (m *memMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[e.To]; err != nil {
		return err
	}
	m.sent = append(m.sent, e)
	return nil
}

func newNotifier(m Mailer) *Notifier {
	n := New(Options{Mailer: m, BaseURL: "https://example.com/", UserAgent: "test-agent"})
	n.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return n
}

func contactForm() *models.Form {
	return &models.Form{
		ID:   "12",
		Name: "Contact",
		Type: models.FormContact,
		Fields: []models.FieldDefinition{
			{Name: "email", Label: "Email address"},
		},
		Notifications: models.FormNotifications{
			EmailNotifications: true,
			NotificationEmails: []models.NotificationEmail{{Email: "sales@example.com"}, {Email: "ops@example.com"}},
			AutoResponder:      models.AutoResponder{Enabled: true},
		},
	}
}

func TestStaffEmailBody(t *testing.T) {
	n := newNotifier(&memMailer{})
	body, err := n.StaffEmailBody(contactForm(), map[string]any{
		"email":   "a@b.com",
		"message": "<script>x</script>",
	}, "99")
	require.NoError(t, err)
	assert.Contains(t, body, "<h2>New Contact Submission</h2>")
	assert.Contains(t, body, "<strong>Submission ID:</strong> 99")
	assert.Contains(t, body, "Email address")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, `href="https://example.com/admin/collections/form-submissions/99"`)
}

func TestEmailSendsToRecipientsAndSubmitter(t *testing.T) {
	m := &memMailer{}
	err := newNotifier(m).Email(context.Background(), contactForm(), map[string]any{"email": "lead@acme.io"}, "1")
	require.NoError(t, err)
	require.Len(t, m.sent, 3)
	assert.Equal(t, "sales@example.com", m.sent[0].To)
	assert.Equal(t, "New Contact submission", m.sent[0].Subject)
	assert.Equal(t, "lead@acme.io", m.sent[2].To)
	assert.Equal(t, DefaultAutoResponderSubject, m.sent[2].Subject)
	assert.Equal(t, DefaultAutoResponderMessage, m.sent[2].HTML)
}

func TestEmailKeepsGoingAfterFailure(t *testing.T) {
	m := &memMailer{fail: map[string]error{"sales@example.com": errors.New("relay down")}}
	err := newNotifier(m).Email(context.Background(), contactForm(), map[string]any{}, "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
	require.Len(t, m.sent, 1)
	assert.Equal(t, "ops@example.com", m.sent[0].To)
}

func TestWebhook(t *testing.T) {
	var (
		gotBody    []byte
		gotHeaders http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	form := contactForm()
	form.Notifications.WebhookURL = srv.URL
	form.Notifications.WebhookSecret = "s3cret"

	err := newNotifier(&memMailer{}).Webhook(context.Background(), form, map[string]any{"name": "Ann", "email": "a@b.com"})
	require.NoError(t, err)

	assert.Equal(t,
		`{"event":"form_submission","form":{"id":"12","name":"Contact","type":"contact"},"submission":{"email":"a@b.com","name":"Ann"},"timestamp":"2026-01-02T03:04:05Z"}`,
		string(gotBody))
	assert.Equal(t, "test-agent", gotHeaders.Get("User-Agent"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, Sign("s3cret", gotBody), gotHeaders.Get(SignatureHeader))
	assert.Len(t, gotHeaders.Get(DeliveryHeader), 36)
}

func TestWebhookNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	form := contactForm()
	form.Notifications.WebhookURL = srv.URL
	err := newNotifier(&memMailer{}).Webhook(context.Background(), form, map[string]any{})
	require.EqualError(t, err, "webhook failed with status 502")
}

func TestWebhookUnsigned(t *testing.T) {
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(SignatureHeader)
	}))
	defer srv.Close()

	form := contactForm()
	form.Notifications.WebhookURL = srv.URL
	require.NoError(t, newNotifier(&memMailer{}).Webhook(context.Background(), form, map[string]any{}))
	assert.Empty(t, sig)
}

func TestSyncCRMCustom(t *testing.T) {
	var (
		auth string
		got  map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	crm := models.CRMIntegration{
		Enabled:  true,
		Provider: models.CRMCustom,
		APIKey:   "tok",
		APIURL:   srv.URL,
		FieldMapping: []models.FieldMapping{
			{FormField: "email", CRMField: "EmailAddress"},
			{FormField: "phone", CRMField: "Phone"},
		},
	}
	data := map[string]any{"email": "a@b.com", "phone": ""}
	require.NoError(t, newNotifier(nil).SyncCRM(context.Background(), crm, data, "L1"))

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "L1", got["leadId"])
	assert.Equal(t, map[string]any{"EmailAddress": "a@b.com"}, got["data"])
	assert.Equal(t, map[string]any{"email": "a@b.com", "phone": ""}, got["originalData"])
}

func TestSyncCRMHubSpot(t *testing.T) {
	var (
		path string
		got  map[string]map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	crm := models.CRMIntegration{Provider: models.CRMHubSpot, APIKey: "k", APIURL: srv.URL}
	err := newNotifier(nil).SyncCRM(context.Background(), crm, map[string]any{"email": "a@b.com", "firstName": "Ann"}, "L1")
	require.NoError(t, err)
	assert.Equal(t, "/crm/v3/objects/contacts", path)
	assert.Equal(t, map[string]any{"email": "a@b.com", "firstname": "Ann"}, got["properties"])
}

func TestSyncCRMPipedrive(t *testing.T) {
	var (
		token string
		got   map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.URL.Query().Get("api_token")
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	crm := models.CRMIntegration{Provider: models.CRMPipedrive, APIKey: "a&b", APIURL: srv.URL}
	require.NoError(t, newNotifier(nil).SyncCRM(context.Background(), crm, map[string]any{"email": "a@b.com"}, "L1"))
	assert.Equal(t, "a&b", token)
	assert.Equal(t, "a@b.com", got["name"])
	assert.Equal(t, []any{"a@b.com"}, got["email"])
}

func TestSyncCRMSalesforceDefaults(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, salesforceAPI, r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	crm := models.CRMIntegration{Provider: models.CRMSalesforce, APIKey: "k", APIURL: srv.URL + "/"}
	require.NoError(t, newNotifier(nil).SyncCRM(context.Background(), crm, map[string]any{"email": "a@b.com"}, "L1"))
	assert.Equal(t, "Unknown", got["LastName"])
	assert.Equal(t, "Unknown", got["Company"])
	assert.Equal(t, "Web", got["LeadSource"])
}

func TestSyncCRMFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := newNotifier(nil)
	err := n.SyncCRM(context.Background(), models.CRMIntegration{Provider: models.CRMCustom, APIURL: srv.URL}, nil, "L1")
	require.EqualError(t, err, "custom sync failed with status 401")

	err = n.SyncCRM(context.Background(), models.CRMIntegration{Provider: models.CRMZoho}, nil, "L1")
	require.EqualError(t, err, "unsupported CRM provider: zoho")

	err = n.SyncCRM(context.Background(), models.CRMIntegration{Provider: models.CRMSalesforce}, nil, "L1")
	require.Error(t, err)
}
