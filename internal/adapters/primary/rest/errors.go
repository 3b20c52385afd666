package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

// errForbidden : l'appelant est authentifié mais n'est pas propriétaire de la ressource.
var errForbidden = errors.New("forbidden")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError traduit une erreur du coeur en statut HTTP.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapDomainError(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrAlreadyRegistered),
		errors.Is(err, domain.ErrNotSubscribed),
		errors.Is(err, domain.ErrNotFriends):
		return http.StatusBadRequest, err.Error()
	default:
		// Erreur interne (DB down, etc.) -> ne pas fuiter les détails techniques
		return http.StatusInternalServerError, "internal server error"
	}
}

// --- PARAMÈTRES DE REQUÊTE ---

func requiredParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", fmt.Errorf("%w: query parameter %q is required", domain.ErrInvalidInput, name)
	}
	return v, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: query parameter %q must be an integer", domain.ErrInvalidInput, name)
	}
	return n, nil
}

// pageParam lit page/size/sort avec les valeurs par défaut de la route (sort=desc).
func pageParam(r *http.Request, defaultSize int) (domain.PageRequest, error) {
	page, err := intParam(r, "page", 0)
	if err != nil {
		return domain.PageRequest{}, err
	}
	size, err := intParam(r, "size", defaultSize)
	if err != nil {
		return domain.PageRequest{}, err
	}
	sort := r.URL.Query().Get("sort")
	if sort == "" {
		sort = string(domain.SortDesc)
	}
	return domain.PageRequest{Page: page, Size: size, Sort: domain.ParseSortDirection(sort)}, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
