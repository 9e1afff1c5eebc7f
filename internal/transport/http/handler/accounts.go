package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-idp-security/internal/application/fanout"
	"github.com/go-idp-security/internal/application/lifecycle"
)

// AccountHandler serves the administrative account endpoints.
type AccountHandler struct {
	accounts lifecycle.Service
	fanout   fanout.Service
}

func NewAccountHandler(accounts lifecycle.Service, fan fanout.Service) *AccountHandler {
	return &AccountHandler{accounts: accounts, fanout: fan}
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.accounts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AccountHandler) Block(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Block(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account blocked"})
}

func (h *AccountHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Unblock(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account unblocked"})
}

// Delete answers 202 when some relying parties could not be notified; the
// remediation report is then available from DeletionReport.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	res, err := h.accounts.Delete(r.Context(), accountID)
	if err != nil {
		httpError(w, err)
		return
	}
	status := http.StatusOK
	if res != fanout.ResultSuccess {
		status = http.StatusAccepted
	}
	writeJSON(w, status, DeletionEnvelope{AccountID: accountID, Result: res})
}

func (h *AccountHandler) DeletionReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.fanout.DeletionReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
