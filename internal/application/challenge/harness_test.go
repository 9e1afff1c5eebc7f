package challenge

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-idp-security/internal/application/delivery"
	"github.com/go-idp-security/internal/application/lifecycle"
	"github.com/go-idp-security/internal/application/session"
	"github.com/go-idp-security/internal/domain"
	"github.com/go-idp-security/internal/pkg/totp"
	"github.com/pquerna/otp"
	otptotp "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// --- in-memory collaborators ---

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]domain.Account
}

func (m *memAccounts) Get(_ context.Context, accountID string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[accountID]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return &a, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range m.byID {
		if a.Email == email && a.DeletedAt == nil {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
}

func (m *memAccounts) Put(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.AccountID] = *a
	return nil
}

func (m *memAccounts) SoftDelete(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.byID[accountID]
	now := time.Now()
	a.DeletedAt = &now
	m.byID[accountID] = a
	return nil
}

type revoker struct{ calls map[string]int }

func (r *revoker) SoftDeleteByAccount(_ context.Context, accountID string) error {
	r.calls[accountID]++
	return nil
}

type memDeliveries struct {
	mu      sync.Mutex
	records map[string]domain.DeliveryRecord
	order   []string
}

func (m *memDeliveries) Create(_ context.Context, rec *domain.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.DeliveryID] = *rec
	m.order = append(m.order, rec.DeliveryID)
	return nil
}

func (m *memDeliveries) Save(_ context.Context, rec *domain.DeliveryRecord, expected int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur := m.records[rec.DeliveryID]; cur.Archived || cur.SendAttempts != expected {
		return domain.ErrConflict
	}
	m.records[rec.DeliveryID] = *rec
	return nil
}

func (m *memDeliveries) Get(_ context.Context, id string) (*domain.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (m *memDeliveries) Latest(_ context.Context, accountID, purpose string) (*domain.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		rec := m.records[m.order[i]]
		if rec.AccountID == accountID && rec.Purpose == purpose {
			return &rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

type sentMail struct{ to, subject, body string }

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (c *captureMailer) SendEmail(_ context.Context, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMail{to, subject, body})
	return nil
}

func (c *captureMailer) From() string { return "noreply@idp.test" }

func (c *captureMailer) count(subject string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.sent {
		if m.subject == subject {
			n++
		}
	}
	return n
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// lastCode returns the code in the newest mail with subject.
func (c *captureMailer) lastCode(t *testing.T, subject string) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].subject == subject {
			code := codePattern.FindString(c.sent[i].body)
			require.NotEmpty(t, code)
			return code
		}
	}
	t.Fatalf("no mail with subject %q", subject)
	return ""
}

type fakeSessions struct{ started int }

func (f *fakeSessions) Start(_ context.Context, a *domain.Account) (*session.Grant, error) {
	f.started++
	return &session.Grant{
		Bearer:  "bearer-" + a.AccountID,
		Session: &domain.Session{SessionID: fmt.Sprintf("sess-%d", f.started), AccountID: a.AccountID, Enable: true},
	}, nil
}

func (f *fakeSessions) GetCurrent(context.Context, string) (*domain.Session, error) { return nil, nil }
func (f *fakeSessions) SignOut(context.Context, string) error                       { return nil }

// --- harness ---

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc      Service
	accounts *memAccounts
	mailer   *captureMailer
	revoked  *revoker
	sessions *fakeSessions
	clock    *time.Time
}

func newHarness(t *testing.T, accounts ...*domain.Account) *harness {
	t.Helper()
	clock := t0
	h := &harness{
		accounts: &memAccounts{byID: map[string]domain.Account{}},
		mailer:   &captureMailer{},
		revoked:  &revoker{calls: map[string]int{}},
		sessions: &fakeSessions{},
		clock:    &clock,
	}
	for _, a := range accounts {
		h.accounts.byID[a.AccountID] = *a
	}
	now := func() time.Time { return *h.clock }

	life := lifecycle.NewService(h.accounts, h.revoked, h.mailer, nil, lifecycle.Options{
		LockoutThreshold: 3,
		LockoutDuration:  15 * time.Minute,
		Now:              now,
	})
	deliveries := delivery.NewService(&memDeliveries{records: map[string]domain.DeliveryRecord{}}, h.mailer, now)
	h.svc = NewService(ServiceDeps{
		Lifecycle:     life,
		Deliveries:    deliveries,
		Sessions:      h.sessions,
		Generic:       totp.NewProvider(totp.KindGeneric, totp.Options{Pepper: []byte("pepper"), Now: now}),
		Authenticator: totp.NewProvider(totp.KindAuthenticator, totp.Options{Now: now}),
		Mailer:        h.mailer,
		Issuer:        "IdP Test",
		Now:           now,
	})
	return h
}

func (h *harness) account(t *testing.T, id string) domain.Account {
	t.Helper()
	a, ok := h.accounts.byID[id]
	require.True(t, ok)
	return a
}

func (h *harness) advance(d time.Duration) { *h.clock = h.clock.Add(d) }

func authenticatorCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := otptotp.GenerateCodeCustom(secret, at, otptotp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func registeredAccount(t *testing.T) *domain.Account {
	t.Helper()
	key, err := totp.NewAuthenticatorKey("IdP Test", "user@example.com")
	require.NoError(t, err)
	return &domain.Account{
		AccountID:             "acc-1",
		Email:                 "user@example.com",
		EmailConfirmed:        true,
		AccountRegistered:     true,
		TOTPEnabled:           true,
		EmailChallengeEnabled: true,
		AuthenticatorKey:      key.Secret,
		SecurityStamp:         "stamp-0",
		Role:                  domain.RoleUser,
	}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
