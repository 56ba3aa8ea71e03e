// Package httpx is the control plane's HTTP surface (A5): a chi router,
// a fixed middleware pipeline, and handlers for every endpoint spec.md §6
// names. Grounded on the teacher's interfaces/http/rest package: same
// chi.NewRouter()/router.Route() shape, same response-envelope-as-a-
// builder idea (internal/interfaces/http/response/builders.go), narrowed
// to the one envelope shape spec.md §6 actually specifies —
// `{ data?, error?: { code, message, details? }, metadata?: { timestamp,
// durationMs? } }` — rather than the teacher's fuller HATEOAS/pagination
// builder, since no endpoint here needs link or rate-limit metadata in
// the body (rate limit state is surfaced via headers instead, see
// middleware.go).
package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"archiplane/internal/apperr"
)

// Envelope is the canonical response wrapper spec.md §6 specifies.
type Envelope struct {
	Data     any           `json:"data,omitempty"`
	Error    *ErrorPayload `json:"error,omitempty"`
	Metadata *Metadata     `json:"metadata,omitempty"`
}

// ErrorPayload is the `{ code, message, details }` shape every error
// carries, per spec.md §7.
type ErrorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Metadata carries response timing the CLI can surface to a user.
type Metadata struct {
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"durationMs,omitempty"`
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps data in the canonical envelope and writes it with
// status, stamping Metadata.Timestamp and, if start is non-zero,
// Metadata.DurationMs.
func WriteData(w http.ResponseWriter, status int, data any, start time.Time) {
	meta := &Metadata{Timestamp: time.Now().UTC()}
	if !start.IsZero() {
		meta.DurationMs = time.Since(start).Milliseconds()
	}
	writeJSON(w, status, Envelope{Data: data, Metadata: meta})
}

// WriteError maps err onto its apperr.Code's HTTP status and writes the
// canonical error envelope. Non-*apperr.Error values are treated as
// CodeFatal per apperr.CodeOf's default.
func WriteError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	payload := &ErrorPayload{Code: code.String(), Message: err.Error()}
	if ae, ok := err.(*apperr.Error); ok {
		payload.Message = ae.Message
		if len(ae.Details) > 0 {
			payload.Details = ae.Details
		}
		if ae.ChangeIndex != nil || ae.TempID != nil {
			if payload.Details == nil {
				payload.Details = map[string]any{}
			}
			if ae.ChangeIndex != nil {
				payload.Details["changeIndex"] = *ae.ChangeIndex
			}
			if ae.TempID != nil {
				payload.Details["tempId"] = *ae.TempID
			}
		}
	}
	writeJSON(w, code.HTTPStatusCode(), Envelope{
		Error:    payload,
		Metadata: &Metadata{Timestamp: time.Now().UTC()},
	})
}

// decodeJSON decodes r's body into v, returning a *apperr.Error classed
// as UsageError on any malformed-JSON failure.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.NewUsage("malformed JSON body: " + err.Error())
	}
	return nil
}
