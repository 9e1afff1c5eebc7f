package http

import (
	"context"
	"time"

	"github.com/go-idp-security/internal/domain"
)

// AccountRepository is the minimal interface the router requires from an account store.
type AccountRepository interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
	SoftDelete(ctx context.Context, accountID string) error
}

// SessionRepository is the minimal interface the router requires from a session store.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	SoftDeleteByAccount(ctx context.Context, accountID string) error
}

// DeliveryRepository stores verification delivery records. Save is a
// compare-and-swap on the send attempt count.
type DeliveryRepository interface {
	Create(ctx context.Context, rec *domain.DeliveryRecord) error
	Save(ctx context.Context, rec *domain.DeliveryRecord, expectedAttempts int) error
	Get(ctx context.Context, deliveryID string) (*domain.DeliveryRecord, error)
	Latest(ctx context.Context, accountID, purpose string) (*domain.DeliveryRecord, error)
}

// ClientCatalog lists the relying parties to notify about account events.
type ClientCatalog interface {
	ListActive(ctx context.Context) ([]domain.Client, error)
}

type StepUpStore interface {
	Put(ctx context.Context, claim *domain.StepUpClaim, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*domain.StepUpClaim, error)
	Delete(ctx context.Context, sessionID string) error
}

// ReportStore keeps fan-out remediation reports.
type ReportStore interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
	GetJSON(ctx context.Context, key string, v any) error
}

type LogoutPublisher interface {
	PublishLogout(ctx context.Context, accountID string) error
}

// BackchannelNotifier delivers one signed event token to a relying party.
type BackchannelNotifier interface {
	Notify(ctx context.Context, baseURL, token string) error
}
