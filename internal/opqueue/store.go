package opqueue

import (
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"

	"archiplane/internal/apperr"
	"archiplane/internal/model"
)

// Store is a concurrent in-memory Operation registry keyed by operation ID,
// with a secondary index from client idempotency key to operation ID so a
// resubmitted request with the same key returns the original operation
// instead of starting a second apply — the same Store/Get-by-hash shape as
// the teacher's InMemoryIdempotencyStore, generalized to a full record
// instead of an opaque result value.
type Store struct {
	mu          sync.RWMutex
	ops         map[model.OperationID]*Operation
	byIdempKey  map[string]model.OperationID
}

// NewStore returns an empty operation store.
func NewStore() *Store {
	return &Store{
		ops:        map[model.OperationID]*Operation{},
		byIdempKey: map[string]model.OperationID{},
	}
}

// Create registers a new queued Operation. If idempotencyKey is non-empty
// and already known, the existing Operation is returned instead and created
// reports false.
func (s *Store) Create(idempotencyKey string, totalChunks int, continueOnError bool, now time.Time) (op *Operation, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idempotencyKey != "" {
		if existingID, ok := s.byIdempKey[idempotencyKey]; ok {
			return s.ops[existingID], false
		}
	}
	o := &Operation{
		ID:             model.NewOperationID(),
		IdempotencyKey: idempotencyKey,
		Status:         StatusQueued,
		SubmittedAt:    now,
		UpdatedAt:      now,
		TotalChunks:    totalChunks,
		Chunks:         make([]ChunkOutcome, 0, totalChunks),
		TempToReal:     map[string]string{},
		ContinueOnErr:  continueOnError,
	}
	s.ops[o.ID] = o
	if idempotencyKey != "" {
		s.byIdempKey[idempotencyKey] = o.ID
	}
	return o, true
}

// Get returns an Operation by ID.
func (s *Store) Get(id model.OperationID) (*Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.ops[id]
	return o, ok
}

// MarkProcessing transitions a queued Operation to processing.
func (s *Store) MarkProcessing(id model.OperationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ops[id]
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("operation %s not found", id))
	}
	o.Status = StatusProcessing
	o.UpdatedAt = now
	return nil
}

// RecordChunk appends or replaces a chunk's outcome and folds any newly
// resolved tempIds into the operation's running map.
func (s *Store) RecordChunk(id model.OperationID, outcome ChunkOutcome, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ops[id]
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("operation %s not found", id))
	}
	for i := range o.Chunks {
		if o.Chunks[i].Index == outcome.Index {
			o.Chunks[i] = outcome
			o.UpdatedAt = now
			mergeTempToReal(o, outcome)
			return nil
		}
	}
	o.Chunks = append(o.Chunks, outcome)
	o.UpdatedAt = now
	mergeTempToReal(o, outcome)
	return nil
}

func mergeTempToReal(o *Operation, outcome ChunkOutcome) {
	for k, v := range outcome.TempToReal {
		o.TempToReal[k] = v
	}
}

// Finish transitions an Operation to a terminal state with its digest (on
// success) or error (on failure).
func (s *Store) Finish(id model.OperationID, digest *Digest, finishErr *apperr.Error, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ops[id]
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("operation %s not found", id))
	}
	o.UpdatedAt = now
	if finishErr != nil {
		o.Status = StatusError
		o.Error = finishErr
		return nil
	}
	o.Status = StatusComplete
	o.Digest = digest
	return nil
}

// Page is a cursor-paginated slice of operations, ordered newest-submitted
// first.
type Page struct {
	Operations []*Operation
	NextCursor string
}

// List returns up to limit operations ordered by SubmittedAt descending,
// starting after cursor (an opaque token returned from a previous List).
func (s *Store) List(cursor string, limit int) (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	all := make([]*Operation, 0, len(s.ops))
	for _, o := range s.ops {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].SubmittedAt.Equal(all[j].SubmittedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].SubmittedAt.After(all[j].SubmittedAt)
	})

	start := 0
	if cursor != "" {
		after, err := decodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		for i, o := range all {
			if string(o.ID) == after {
				start = i + 1
				break
			}
		}
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	page := all[start:end]
	next := ""
	if end < len(all) {
		next = encodeCursor(string(page[len(page)-1].ID))
	}
	return Page{Operations: page, NextCursor: next}, nil
}

func encodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", apperr.NewUsage("invalid pagination cursor")
	}
	return string(b), nil
}

// GC removes terminal operations whose last update is older than ttl,
// mirroring the teacher's idempotency Cleanup(ctx, expiration) sweep.
func (s *Store) GC(ttl time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-ttl)
	removed := 0
	for id, o := range s.ops {
		if o.Status.Terminal() && o.UpdatedAt.Before(cutoff) {
			delete(s.ops, id)
			if o.IdempotencyKey != "" {
				delete(s.byIdempKey, o.IdempotencyKey)
			}
			removed++
		}
	}
	return removed
}
