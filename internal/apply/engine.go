package apply

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"archiplane/internal/apperr"
	"archiplane/internal/bom"
	"archiplane/internal/layout"
	"archiplane/internal/model"
	"archiplane/internal/modelactor"
	"archiplane/internal/opqueue"
	"archiplane/internal/resolver"
	"archiplane/internal/undo"
	"archiplane/internal/validate"
)

// Engine is the Apply Engine (C4). One Engine serves one model actor;
// submissions run on their own goroutine and every model mutation they
// perform is dispatched through the actor. execute holds execMu for an
// operation's whole run, so operations run one at a time and two
// concurrent submissions never interleave their chunk compounds.
type Engine struct {
	actor    *modelactor.Actor
	ops      *opqueue.Notifier
	undoLog  *undo.Log
	logger   *zap.Logger

	mu      sync.Mutex
	running map[model.OperationID]*run

	execMu sync.Mutex
}

type run struct {
	doc       *bom.Document
	cfg       Config
	chunks    []Chunk
	refs      map[int]map[string]resolver.Ref
	cache     *chunkOutcomeCache
	preFailed []Outcome
}

// New returns an Engine driving actor's model and recording outcomes into
// ops.
func New(actor *modelactor.Actor, ops *opqueue.Notifier, undoLog *undo.Log, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{actor: actor, ops: ops, undoLog: undoLog, logger: logger, running: map[model.OperationID]*run{}}
}

// Submit validates, plans and dispatches doc asynchronously, returning
// immediately with the Operation record the caller polls or waits on. If
// cfg.IdempotencyKey matches a still-retained prior Operation, that
// Operation is returned unchanged and nothing is re-executed.
func (e *Engine) Submit(ctx context.Context, doc *bom.Document, idFileMap map[string]string, cfg Config) (*opqueue.Operation, error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}

	res := resolver.New(idFileMap, cfg.ResolveNames)
	res.RegisterTempIDs(doc)

	var preflightResult *validate.Result
	var preflightErr error
	if _, err := e.actor.DoRead(ctx, func(m *model.Model) (any, error) {
		preflightResult, preflightErr = validate.Preflight(doc, m, res, cfg.DuplicateStrategy, !cfg.ContinueOnError)
		return nil, nil
	}); err != nil {
		return nil, err
	}
	if preflightErr != nil && !cfg.ContinueOnError {
		return nil, preflightErr
	}

	// With continueOnError, changes that failed preflight are recorded as
	// pre-determined failures and excluded from planning/execution entirely,
	// rather than being sent downstream with an incomplete Ref set.
	invalid := map[int]string{}
	for _, issue := range preflightResult.Issues {
		invalid[issue.ChangeIndex] = issue.Cause
	}
	plannable := doc
	var preFailed []Outcome
	if len(invalid) > 0 {
		filtered := make([]bom.Change, 0, len(doc.Changes))
		for _, c := range doc.Changes {
			if cause, bad := invalid[c.Index]; bad {
				preFailed = append(preFailed, Outcome{Index: c.Index, Op: string(c.Op), TempID: c.TempID, Status: OutcomeFailed, SkipReason: cause})
				continue
			}
			filtered = append(filtered, c)
		}
		plannable = &bom.Document{Version: doc.Version, Description: doc.Description, IDFiles: doc.IDFiles, Changes: filtered}
	}

	chunks, err := Plan(plannable, preflightResult.Refs, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	op, created := e.ops.Create(cfg.IdempotencyKey, len(chunks), cfg.ContinueOnError, now())
	if !created {
		return op, nil
	}

	e.mu.Lock()
	e.running[op.ID] = &run{doc: plannable, cfg: cfg, chunks: chunks, refs: preflightResult.Refs, cache: newChunkOutcomeCache(), preFailed: preFailed}
	e.mu.Unlock()

	go e.execute(op.ID)

	return op, nil
}

// Wait blocks until op reaches a terminal state or ctx is done.
func (e *Engine) Wait(ctx context.Context, id model.OperationID) (*opqueue.Operation, error) {
	return e.ops.Wait(ctx, id)
}

func (e *Engine) execute(id model.OperationID) {
	e.mu.Lock()
	r, ok := e.running[id]
	e.mu.Unlock()
	if !ok {
		return
	}
	e.execMu.Lock()
	defer e.execMu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.running, id)
		e.mu.Unlock()
	}()

	ctx := context.Background()
	if err := e.ops.MarkProcessing(id, now()); err != nil {
		e.logger.Error("mark processing failed", zap.String("operation", string(id)), zap.Error(err))
		return
	}

	tempToReal := map[string]string{}
	// preFailed is only ever non-empty when ContinueOnError is true — Submit
	// returns before planning otherwise — so it never sets firstFailure.
	allOutcomes := make([]Outcome, 0, len(r.doc.Changes)+len(r.preFailed))
	allOutcomes = append(allOutcomes, r.preFailed...)
	var firstFailure *apperr.Error

	if len(r.preFailed) > 0 {
		_ = e.ops.RecordChunk(id, opqueue.ChunkOutcome{
			Index: -1, Label: "preflight-rejected", Status: opqueue.StatusComplete,
			Changes: toChangeOutcomes(r.preFailed),
		}, now())
	}

	for chunkPos, chunk := range r.chunks {
		if firstFailure != nil && !r.cfg.ContinueOnError {
			break
		}
		if chunkPos > 0 && r.cfg.throttle() {
			time.Sleep(interChunkDelay)
		}

		var key string
		if r.cfg.IdempotencyKey != "" {
			key = ChunkKey(r.cfg.IdempotencyKey, chunk)
			if cached, ok := r.cache.lookup(key); ok {
				allOutcomes = append(allOutcomes, cached...)
				continue
			}
		}

		outcomes, chunkErr := e.runChunk(ctx, chunk, r.refs, tempToReal, r.cfg)
		allOutcomes = append(allOutcomes, outcomes...)

		status := opqueue.StatusComplete
		var outcomeErr *apperr.Error
		if chunkErr != nil {
			status = opqueue.StatusError
			outcomeErr = apperr.Wrap(chunkErr, fmt.Sprintf("chunk %d failed", chunk.Index))
			if firstFailure == nil {
				firstFailure = outcomeErr
			}
		}

		if key != "" {
			r.cache.record(key, outcomes)
		}

		_ = e.ops.RecordChunk(id, opqueue.ChunkOutcome{
			Index: chunk.Index, Label: fmt.Sprintf("chunk-%d", chunk.Index),
			Status: status, TempToReal: tempToRealMap(outcomes), Error: outcomeErr,
			Changes: toChangeOutcomes(outcomes),
		}, now())
	}

	if r.cfg.LayoutAfter && firstFailure == nil {
		if err := e.layoutTouchedViews(ctx, allOutcomes, r.cfg.layoutOptions()); err != nil {
			e.logger.Error("post-apply layout failed", zap.String("operation", string(id)), zap.Error(err))
		}
	}

	digest := computeDigest(allOutcomes)
	if firstFailure != nil {
		_ = e.ops.FinishAndNotify(id, nil, retryHintError(firstFailure, allOutcomes), now())
		return
	}
	_ = e.ops.FinishAndNotify(id, digest, nil, now())
}

// layoutTouchedViews re-lays-out every view a successful change added a
// visual or connection to, per Config.LayoutAfter. Failing to lay out one
// view does not unwind or fail the submission — the BOM's mutations already
// committed — it only means that view keeps its submitted geometry.
func (e *Engine) layoutTouchedViews(ctx context.Context, outcomes []Outcome, opts layout.Options) error {
	seen := map[model.ViewID]bool{}
	var firstErr error
	for _, o := range outcomes {
		if o.ViewID == "" || o.Status == OutcomeFailed {
			continue
		}
		viewID := model.ViewID(o.ViewID)
		if seen[viewID] {
			continue
		}
		seen[viewID] = true
		err := e.actor.Do(ctx, func(m *model.Model) error {
			v, ok := m.GetView(viewID)
			if !ok {
				return nil // view was since deleted in a later chunk
			}
			return layout.Run(v, opts)
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// runChunk dispatches one chunk as a single atomic compound on the model
// actor. On failure with continueOnError=false the compound's already-run
// steps are unwound in place (it was never committed to the undo log);
// with continueOnError=true the same unwind happens but execute() proceeds
// to the next chunk regardless.
func (e *Engine) runChunk(ctx context.Context, chunk Chunk, refsByIndex map[int]map[string]resolver.Ref, tempToReal map[string]string, cfg Config) ([]Outcome, error) {
	var outcomes []Outcome
	var chunkErr error

	err := e.actor.Do(ctx, func(m *model.Model) error {
		compound := e.undoLog.Begin(fmt.Sprintf("apply chunk %d", chunk.Index))
		outcomes = make([]Outcome, 0, len(chunk.Changes))

		for _, ch := range chunk.Changes {
			refs := refsByIndex[ch.Index]
			out, err := executeChange(m, compound, ch, refs, tempToReal, cfg.DuplicateStrategy)
			if err != nil {
				out.Status = OutcomeFailed
				out.Error = apperr.Wrap(err, "change failed")
				outcomes = append(outcomes, out)
				e.unwindChunk(m, compound)
				chunkErr = err
				return nil // the compound itself is not an error; we record chunkErr separately
			}
			outcomes = append(outcomes, out)
		}

		if cfg.verifyGhosts() {
			if err := verifyGhostFree(m, chunk, outcomes); err != nil {
				e.unwindChunk(m, compound)
				chunkErr = err
				return nil
			}
		}

		e.undoLog.Commit(compound)
		return nil
	})
	if err != nil {
		return outcomes, err
	}
	return outcomes, chunkErr
}

// unwindChunk replays a not-yet-committed compound's inverses in reverse order,
// undoing every primitive the chunk managed to apply before it failed. A
// failure during unwind itself is logged rather than propagated — the
// original chunk error is what the caller needs to see.
func (e *Engine) unwindChunk(m *model.Model, c *undo.Compound) {
	if err := c.Unwind(m); err != nil {
		e.logger.Error("rollback of failed chunk left the model inconsistent", zap.Error(err))
	}
}

func now() time.Time { return time.Now() }
