// Package delivery dispatches one-time-code emails and applies the resend,
// cancel and one-shot consumption rules to their delivery records.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-idp-security/internal/domain"
	"github.com/go-idp-security/internal/infrastructure/smtp"
	"github.com/go-idp-security/internal/pkg/id"
)

type Store interface {
	Create(ctx context.Context, rec *domain.DeliveryRecord) error
	Save(ctx context.Context, rec *domain.DeliveryRecord, expectedAttempts int) error
	Get(ctx context.Context, deliveryID string) (*domain.DeliveryRecord, error)
	Latest(ctx context.Context, accountID, purpose string) (*domain.DeliveryRecord, error)
}

type Service interface {
	Dispatch(ctx context.Context, account *domain.Account, purpose, subject, body string) (*domain.DeliveryRecord, error)
	Resend(ctx context.Context, deliveryID, subject, body string) (*domain.DeliveryRecord, error)
	Cancel(ctx context.Context, deliveryID string) (*domain.DeliveryRecord, error)
	Consume(ctx context.Context, accountID, purpose string) error
	Latest(ctx context.Context, accountID, purpose string) (*domain.DeliveryRecord, error)
}

type service struct {
	store  Store
	mailer smtp.Mailer
	now    func() time.Time
}

func NewService(store Store, mailer smtp.Mailer, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{store: store, mailer: mailer, now: now}
}

// Dispatch records and sends a new code email. The record exists even when the
// send fails, so the user can ask for a resend.
func (s *service) Dispatch(ctx context.Context, account *domain.Account, purpose, subject, body string) (*domain.DeliveryRecord, error) {
	now := s.now().UTC()
	rec := &domain.DeliveryRecord{
		DeliveryID: id.New(),
		AccountID:  account.AccountID,
		Purpose:    purpose,
		SentFrom:   s.mailer.From(),
		SentTo:     account.Email,
		Subject:    subject,
		Body:       body,
		CreatedAt:  now,
	}
	rec.RecordSend(now)
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create delivery: %w", err)
	}
	if err := s.mailer.SendEmail(ctx, rec.SentTo, subject, body); err != nil {
		return rec, fmt.Errorf("send %s code: %w", purpose, err)
	}
	return rec, nil
}

// Resend re-sends a record with a fresh body. The attempt is claimed in storage
// before the email goes out, so two racing resends cannot both send.
func (s *service) Resend(ctx context.Context, deliveryID, subject, body string) (*domain.DeliveryRecord, error) {
	rec, err := s.store.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := rec.CheckResend(now); err != nil {
		return rec, err
	}
	expected := rec.SendAttempts
	rec.Subject = subject
	rec.Body = body
	rec.RecordSend(now)
	if err := s.save(ctx, rec, expected); err != nil {
		return rec, err
	}
	if err := s.mailer.SendEmail(ctx, rec.SentTo, subject, body); err != nil {
		return rec, fmt.Errorf("resend %s code: %w", rec.Purpose, err)
	}
	return rec, nil
}

// Cancel records a cancellation. It costs an attempt and makes the current
// code unusable until the next resend.
func (s *service) Cancel(ctx context.Context, deliveryID string) (*domain.DeliveryRecord, error) {
	rec, err := s.store.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if rec.Archived {
		return rec, domain.ErrResendBlocked
	}
	expected := rec.SendAttempts
	rec.RecordCancel(s.now().UTC())
	if err := s.save(ctx, rec, expected); err != nil {
		return rec, err
	}
	return rec, nil
}

// Consume archives the latest live record for the purpose. It fails with
// ErrNotFound when there is no live record or another caller archived it first,
// which makes every code one-shot.
func (s *service) Consume(ctx context.Context, accountID, purpose string) error {
	rec, err := s.store.Latest(ctx, accountID, purpose)
	if err != nil {
		return err
	}
	if !rec.Live() {
		return fmt.Errorf("no live %s code: %w", purpose, domain.ErrNotFound)
	}
	expected := rec.SendAttempts
	rec.Archive()
	if err := s.store.Save(ctx, rec, expected); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("%s code already used: %w", purpose, domain.ErrNotFound)
		}
		return fmt.Errorf("archive delivery: %w", err)
	}
	return nil
}

func (s *service) Latest(ctx context.Context, accountID, purpose string) (*domain.DeliveryRecord, error) {
	return s.store.Latest(ctx, accountID, purpose)
}

func (s *service) save(ctx context.Context, rec *domain.DeliveryRecord, expected int) error {
	err := s.store.Save(ctx, rec, expected)
	if errors.Is(err, domain.ErrConflict) {
		slog.Info("delivery changed concurrently", "delivery_id", rec.DeliveryID)
		return domain.ErrResendCooldown
	}
	return err
}
