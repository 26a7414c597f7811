package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors onto HTTP status codes and
// sends a JSON error response. Unknown errors become an opaque 500 so
// internal details never leak to clients.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInsufficientShares):
		writeError(w, http.StatusBadRequest, "insufficient shares")
	case errors.Is(err, domain.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "position already claimed")
	case errors.Is(err, domain.ErrMarketResolved):
		writeError(w, http.StatusConflict, "market already resolved")
	case errors.Is(err, domain.ErrMarketNotResolved):
		writeError(w, http.StatusConflict, "market not resolved")
	case errors.Is(err, domain.ErrDeadlineNotReached):
		writeError(w, http.StatusConflict, "market deadline not reached")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// parseListOpts extracts pagination and filter parameters from the query
// string. Defaults: limit=50 (max 200), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	opts := domain.ListOpts{
		Limit:    limit,
		Offset:   offset,
		Category: domain.MarketCategory(q.Get("category")),
		Search:   q.Get("search"),
	}

	if v := q.Get("resolved"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.Resolved = &b
		}
	}

	return opts
}

// pathParam extracts a named path parameter registered with Go 1.22+ method
// patterns.
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// parseSide converts the "yes"/"no" side string used by the API into the
// boolean the domain works with.
func parseSide(side string) (bool, error) {
	switch side {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, errors.New(`side must be "yes" or "no"`)
	}
}
