package httpx

import (
	"net/http"
	"strconv"
	"time"

	"archiplane/internal/apperr"
	"archiplane/internal/apply"
	"archiplane/internal/layout"
	"archiplane/internal/validate"
)

// applyConfigFromQuery builds an apply.Config from /model/apply's query
// string, per spec.md §6's "Configuration options" list.
func applyConfigFromQuery(r *http.Request) apply.Config {
	q := r.URL.Query()
	cfg := apply.Config{
		DuplicateStrategy: validate.DuplicatePolicy(q.Get("duplicateStrategy")),
		ContinueOnError:   q.Get("continueOnError") == "true",
		IdempotencyKey:    q.Get("idempotencyKey"),
		ResolveNames:      q.Get("resolveNames") == "true",
		LayoutAfter:       q.Get("layoutAfter") == "true",
		LayoutAlgorithm:   layout.Algorithm(q.Get("layoutAlgorithm")),
		SkipExisting:      q.Get("skipExisting") == "true",
		Fast:              q.Get("fast") == "true",
	}
	if v := q.Get("chunkSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChunkSize = n
		}
	}
	return cfg
}

// handleModelApply answers POST /model/apply: it submits a BOM to the
// apply engine and returns immediately with the queued operation (spec.md
// §6: apply is asynchronous, the caller polls /ops/status or blocks on
// /ops/wait).
func (s *Server) handleModelApply(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cfg := applyConfigFromQuery(r)
	cfg, err := cfg.Normalize()
	if err != nil {
		WriteError(w, err)
		return
	}

	doc, _, idFileMap, err := parseApplyLikeBody(r, cfg.ResolveNames)
	if err != nil {
		WriteError(w, err)
		return
	}

	op, err := s.Engine.Submit(r.Context(), doc, idFileMap, cfg)
	if err != nil {
		WriteError(w, apperr.Wrap(err, "apply"))
		return
	}
	WriteData(w, http.StatusAccepted, op, start)
}
