package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/querycache/auth"
	"github.com/jonwraymond/querycache/cache"
	"github.com/jonwraymond/querycache/observe"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handlers implements the cache routes.
type Handlers struct {
	cache    cache.QueryService
	settings cache.Settings
	logger   observe.Logger
}

// NewHandlers creates Handlers over svc. settings apply to entries written
// through PUT; zero settings mean cache.DefaultSettings.
func NewHandlers(svc cache.QueryService, settings cache.Settings, logger observe.Logger) *Handlers {
	if logger == nil {
		logger = observe.NopLogger()
	}
	if settings == (cache.Settings{}) {
		settings = cache.DefaultSettings()
	}
	return &Handlers{cache: svc, settings: settings, logger: logger}
}

// SetRequest is the body of PUT /cache/keys/{key}.
type SetRequest struct {
	Value   json.RawMessage `json:"value"`
	Failure bool            `json:"failure"`
	Tags    []string        `json:"tags"`
}

// InvalidateRequest is the body of POST /cache/tags/invalidate.
type InvalidateRequest struct {
	Tags []string `json:"tags"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SetKey handles PUT /cache/keys/{key}. It replaces the entry, for
// example to correct a cached failure before its TTL runs out.
func (h *Handlers) SetKey(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req SetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Value) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "value must not be empty"})
		return
	}

	tags := cache.NormalizeTags(req.Tags)
	if err := h.cache.Set(r.Context(), key, req.Value, req.Failure, h.settings, tags...); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "key set",
		observe.F("cache.key", key),
		observe.F("cache.tags", tags),
		observe.F("failure", req.Failure),
	)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveKey handles DELETE /cache/keys/{key}.
func (h *Handlers) RemoveKey(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := h.cache.Remove(r.Context(), key); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "key removed", observe.F("cache.key", key))
	w.WriteHeader(http.StatusNoContent)
}

// RemoveTag handles DELETE /cache/tags/{tag}.
func (h *Handlers) RemoveTag(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	if err := h.cache.RemoveByTag(r.Context(), tag); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "tag invalidated", observe.F("cache.tags", []string{tag}))
	w.WriteHeader(http.StatusNoContent)
}

// InvalidateTags handles POST /cache/tags/invalidate.
func (h *Handlers) InvalidateTags(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tags := cache.NormalizeTags(req.Tags)
	if len(tags) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tags must not be empty"})
		return
	}

	if err := h.cache.RemoveByTags(r.Context(), tags); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "tags invalidated", observe.F("cache.tags", tags))
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody decodes a bounded JSON body into v and answers 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *Handlers) audit(r *http.Request, msg string, fields ...observe.Field) {
	fields = append(fields, observe.F("principal", auth.PrincipalFromContext(r.Context())))
	h.logger.Info(r.Context(), msg, fields...)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "admin operation failed",
			observe.F("path", r.URL.Path),
			observe.F("error", err),
		)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// statusFor maps cache errors to response codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cache.ErrInvalidKey), errors.Is(err, cache.ErrKeyTooLong):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
