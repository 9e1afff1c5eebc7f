// Package fanout notifies relying-party clients about account lifecycle events.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-idp-security/internal/domain"
	"github.com/go-idp-security/internal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

type ClientCatalog interface {
	ListActive(ctx context.Context) ([]domain.Client, error)
}

type TokenSigner interface {
	SignBackchannel(subject, audience string, ttl time.Duration) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, baseURL, token string) error
}

type LogoutPublisher interface {
	PublishLogout(ctx context.Context, accountID string) error
}

type ReportStore interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
	GetJSON(ctx context.Context, key string, v any) error
}

// ClientFailure is one relying party that did not acknowledge the event.
type ClientFailure struct {
	ClientID string `json:"client_id"`
	Endpoint string `json:"base_url"`
	Error    string `json:"error"`
}

// Report is written for operator follow-up whenever a delete broadcast is not a full success.
type Report struct {
	AccountID  string          `json:"account_id"`
	Event      string          `json:"event"`
	Result     Result          `json:"result"`
	Total      int             `json:"total"`
	Failures   []ClientFailure `json:"failures"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Service interface {
	BroadcastLogout(ctx context.Context, account *domain.Account) error
	BroadcastDelete(ctx context.Context, account *domain.Account) (Result, error)
	DeletionReport(ctx context.Context, accountID string) (*Report, error)
}

type service struct {
	clients  ClientCatalog
	signer   TokenSigner
	notifier Notifier
	logout   LogoutPublisher
	reports  ReportStore
	tokenTTL time.Duration
}

func NewService(clients ClientCatalog, signer TokenSigner, notifier Notifier, logout LogoutPublisher, reports ReportStore, tokenTTL time.Duration) Service {
	return &service{
		clients:  clients,
		signer:   signer,
		notifier: notifier,
		logout:   logout,
		reports:  reports,
		tokenTTL: tokenTTL,
	}
}

// BroadcastLogout hands the event to the bulk publisher; per-client results are not tracked.
func (s *service) BroadcastLogout(ctx context.Context, account *domain.Account) error {
	if err := s.logout.PublishLogout(ctx, account.AccountID); err != nil {
		metrics.FanoutResults.WithLabelValues("logout", ResultFailure.String()).Inc()
		return fmt.Errorf("broadcast logout for %s: %w", account.AccountID, err)
	}
	metrics.FanoutResults.WithLabelValues("logout", ResultSuccess.String()).Inc()
	return nil
}

// BroadcastDelete posts one signed token per client, all concurrently. A failing
// client never stops the others.
func (s *service) BroadcastDelete(ctx context.Context, account *domain.Account) (Result, error) {
	clients, err := s.clients.ListActive(ctx)
	if err != nil {
		return ResultFailure, fmt.Errorf("list clients: %w", err)
	}

	errs := make([]error, len(clients))
	var g errgroup.Group
	for i, c := range clients {
		i, c := i, c
		g.Go(func() error {
			errs[i] = s.notifyDelete(ctx, account.AccountID, c)
			return nil
		})
	}
	_ = g.Wait()

	var failures []ClientFailure
	for i, err := range errs {
		if err == nil {
			continue
		}
		slog.Warn("delete notification failed", "account_id", account.AccountID, "client_id", clients[i].ClientID, "err", err)
		failures = append(failures, ClientFailure{ClientID: clients[i].ClientID, Endpoint: clients[i].BaseURL, Error: err.Error()})
	}

	result := Aggregate(len(clients)-len(failures), len(clients))
	metrics.FanoutResults.WithLabelValues("delete", result.String()).Inc()
	if result != ResultSuccess {
		s.writeReport(ctx, &Report{
			AccountID:  account.AccountID,
			Event:      "delete",
			Result:     result,
			Total:      len(clients),
			Failures:   failures,
			OccurredAt: time.Now().UTC(),
		})
	}
	return result, nil
}

func (s *service) DeletionReport(ctx context.Context, accountID string) (*Report, error) {
	var r Report
	if err := s.reports.GetJSON(ctx, reportKey(accountID), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *service) notifyDelete(ctx context.Context, accountID string, c domain.Client) error {
	token, err := s.signer.SignBackchannel(accountID, c.ClientID, s.tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	return s.notifier.Notify(ctx, c.BaseURL, token)
}

func (s *service) writeReport(ctx context.Context, r *Report) {
	uri, err := s.reports.PutJSON(ctx, reportKey(r.AccountID), r)
	if err != nil {
		slog.Error("could not store fan-out report", "account_id", r.AccountID, "result", r.Result.String(), "err", err)
		return
	}
	slog.Warn("fan-out incomplete, report stored", "account_id", r.AccountID, "result", r.Result.String(), "report", uri)
}

func reportKey(accountID string) string {
	return "fanout/delete/" + accountID + ".json"
}
