package httptransport

import (
	"errors"
	"net/http"

	"hourfarm/internal/app/accounts"
	"hourfarm/internal/farm"

	"github.com/go-chi/chi/v5"
)

type AccountHandlers struct {
	svc *accounts.Service
}

func NewAccountHandlers(svc *accounts.Service) *AccountHandlers {
	return &AccountHandlers{svc: svc}
}

func (h *AccountHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, h.svc.List())
	}
}

func (h *AccountHandlers) Add() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.AddAccountRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
		view, err := h.svc.Add(req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, view)
	}
}

func (h *AccountHandlers) Remove() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Remove(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *AccountHandlers) SetFarmMode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.FarmModeRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
		view, err := h.svc.SetFarmMode(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}

func (h *AccountHandlers) ToggleFarm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.ToggleFarm(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *AccountHandlers) SubmitTwoFactor() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.TwoFactorRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
		if err := h.svc.SubmitTwoFactor(chi.URLParam(r, "id"), req); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *AccountHandlers) Relogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.ReloginRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
		if err := h.svc.Relogin(chi.URLParam(r, "id"), req); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *AccountHandlers) ToggleOffline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.ToggleOffline(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *AccountHandlers) FetchLibrary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.FetchLibrary(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, farm.ErrConflict):
		WriteHTTPError(w, http.StatusConflict, "account_exists", "an account with this id already exists")
	case errors.Is(err, farm.ErrNotFound):
		WriteHTTPError(w, http.StatusNotFound, "account_not_found", "no such account")
	case errors.Is(err, farm.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request", "missing or invalid fields")
	case errors.Is(err, farm.ErrNotAuthenticated):
		WriteHTTPError(w, http.StatusConflict, "not_authenticated", "the account has no authenticated session")
	case errors.Is(err, farm.ErrNoActiveChallenge):
		WriteHTTPError(w, http.StatusBadRequest, "no_active_challenge", "no pending two-factor challenge")
	case errors.Is(err, farm.ErrUpstreamUnavailable):
		WriteHTTPError(w, http.StatusInternalServerError, "upstream_unavailable", "the platform did not answer")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
