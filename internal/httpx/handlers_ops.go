package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"archiplane/internal/apperr"
	"archiplane/internal/model"
)

// handleOpsStatus answers GET /ops/status?opId=...: the current snapshot of
// one tracked operation.
func (s *Server) handleOpsStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := model.OperationID(r.URL.Query().Get("opId"))
	if id == "" {
		WriteError(w, apperr.NewUsage("opId is required"))
		return
	}
	op, ok := s.Ops.Get(id)
	if !ok {
		WriteError(w, apperr.NewNotFound("operation "+string(id)+" not found"))
		return
	}
	WriteData(w, http.StatusOK, op, start)
}

// handleOpsList answers GET /ops/list?cursor=&limit=: a page of tracked
// operations, newest first.
func (s *Server) handleOpsList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	page, err := s.Ops.List(q.Get("cursor"), limit)
	if err != nil {
		WriteError(w, apperr.Wrap(err, "list operations"))
		return
	}
	WriteData(w, http.StatusOK, page, start)
}

// handleOpsWait answers GET /ops/wait?opId=&timeoutMs=: blocks until the
// named operation reaches a terminal state or the timeout elapses (spec.md
// §6's long-poll alternative to repeated /ops/status calls).
func (s *Server) handleOpsWait(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	id := model.OperationID(q.Get("opId"))
	if id == "" {
		WriteError(w, apperr.NewUsage("opId is required"))
		return
	}

	timeout := 30 * time.Second
	if v := q.Get("timeoutMs"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Millisecond
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	op, err := s.Ops.Wait(ctx, id)
	if err != nil {
		WriteError(w, apperr.Wrap(err, "wait"))
		return
	}
	if op == nil {
		WriteError(w, apperr.NewNotFound("operation "+string(id)+" not found"))
		return
	}
	WriteData(w, http.StatusOK, op, start)
}
