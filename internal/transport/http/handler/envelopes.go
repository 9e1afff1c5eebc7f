package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-idp-security/internal/application/challenge"
	"github.com/go-idp-security/internal/application/fanout"
	"github.com/go-idp-security/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// OutcomeEnvelope is the answer to every flow step: either a challenge to show
// or a route to follow, plus whatever the step produced.
type OutcomeEnvelope struct {
	Challenge  string                        `json:"challenge,omitempty"`
	Redirect   string                        `json:"redirect,omitempty"`
	Notice     string                        `json:"notice,omitempty"`
	Enrollment *challenge.EnrollmentMaterial `json:"enrollment,omitempty"`
	Bearer     string                        `json:"Bearer,omitempty"`
	Session    *domain.Session               `json:"session,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type StepUpEnvelope struct {
	Authorized bool       `json:"authorized"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type DeletionEnvelope struct {
	AccountID string        `json:"account_id"`
	Result    fanout.Result `json:"result"`
}

func toOutcomeEnvelope(o challenge.Outcome) OutcomeEnvelope {
	env := OutcomeEnvelope{Notice: o.Notice(), Enrollment: o.Enrollment()}
	if kind, ok := o.Challenge(); ok {
		env.Challenge = kind.String()
	}
	if route, ok := o.Route(); ok {
		env.Redirect = route.String()
	}
	if g := o.Grant(); g != nil {
		env.Bearer = g.Bearer
		env.Session = g.Session
	}
	return env
}

func writeOutcome(w http.ResponseWriter, o challenge.Outcome, err error) {
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeEnvelope(o))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
