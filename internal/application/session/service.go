// Package session creates and ends authenticated sessions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-idp-security/internal/domain"
	"github.com/go-idp-security/internal/pkg/id"
)

type SessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
}

// AccountStamper is the part of the lifecycle service sessions need.
type AccountStamper interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	RotateStamp(ctx context.Context, account *domain.Account) error
}

// ClaimRevoker drops a session's step-up claim.
type ClaimRevoker interface {
	Delete(ctx context.Context, sessionID string) error
}

type JWTSigner interface {
	Sign(accountID, role, sessionID string) (string, error)
}

// Grant is what a client receives when a flow ends in an authenticated session.
type Grant struct {
	Bearer  string          `json:"bearer"`
	Session *domain.Session `json:"session"`
}

type Service interface {
	Start(ctx context.Context, account *domain.Account) (*Grant, error)
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	SignOut(ctx context.Context, sessionID string) error
}

type ServiceDeps struct {
	SessionRepo SessionStore
	Accounts    AccountStamper
	JWTProvider JWTSigner
	StepUps     ClaimRevoker // optional
}

type service struct {
	sessionRepo SessionStore
	accounts    AccountStamper
	jwtProvider JWTSigner
	stepUps     ClaimRevoker
}

func NewService(deps ServiceDeps) Service {
	return &service{
		sessionRepo: deps.SessionRepo,
		accounts:    deps.Accounts,
		jwtProvider: deps.JWTProvider,
		stepUps:     deps.StepUps,
	}
}

func (s *service) Start(ctx context.Context, account *domain.Account) (*Grant, error) {
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID: id.New(),
		AccountID: account.AccountID,
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	bearer, err := s.jwtProvider.Sign(account.AccountID, account.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.Account = account
	return &Grant{Bearer: bearer, Session: sess}, nil
}

// GetCurrent returns an enabled session whose account may still be used.
func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session ended: %w", domain.ErrUnauthorized)
	}
	a, err := s.accounts.Get(ctx, sess.AccountID)
	if err != nil {
		return nil, fmt.Errorf("session account: %w", domain.ErrUnauthorized)
	}
	if a.Blocked {
		return nil, fmt.Errorf("account blocked: %w", domain.ErrUnauthorized)
	}
	sess.Account = a
	return sess, nil
}

// SignOut ends the session, drops its step-up claim and rotates the account's
// stamp so codes issued during it stop validating.
func (s *service) SignOut(ctx context.Context, sessionID string) error {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessionRepo.Update(ctx, sessionID, map[string]interface{}{"enable": false}); err != nil {
		return err
	}
	if s.stepUps != nil {
		if err := s.stepUps.Delete(ctx, sessionID); err != nil {
			slog.Warn("drop step-up claim failed", "session_id", sessionID, "error", err)
		}
	}
	a, err := s.accounts.Get(ctx, sess.AccountID)
	if err != nil {
		return err
	}
	return s.accounts.RotateStamp(ctx, a)
}
