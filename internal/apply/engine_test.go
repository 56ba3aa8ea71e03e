package apply

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"archiplane/internal/bom"
	"archiplane/internal/model"
	"archiplane/internal/modelactor"
	"archiplane/internal/opqueue"
	"archiplane/internal/undo"
)

func newTestEngine() (*Engine, *modelactor.Actor) {
	actor := modelactor.New(model.New(), 16, zap.NewNop())
	notifier := opqueue.NewNotifier(opqueue.NewStore())
	return New(actor, notifier, undo.NewLog(), zap.NewNop()), actor
}

func submitAndWait(t *testing.T, e *Engine, doc *bom.Document, cfg Config) *opqueue.Operation {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	op, err := e.Submit(ctx, doc, nil, cfg)
	require.NoError(t, err)
	op, err = e.Wait(ctx, op.ID)
	require.NoError(t, err)
	return op
}

func createElementChange(idx int, tempID, typ, name string) bom.Change {
	return bom.Change{Index: idx, Op: bom.OpCreateElement, TempID: tempID,
		Fields: bom.CreateElementFields{Type: typ, Name: name}}
}

func TestSubmit_SingleChunkHappyPath(t *testing.T) {
	e, _ := newTestEngine()
	doc := &bom.Document{Version: "1.0", Changes: []bom.Change{
		createElementChange(0, "e1", "application-component", "Billing"),
	}}

	op := submitAndWait(t, e, doc, Config{})

	require.Equal(t, opqueue.StatusComplete, op.Status)
	require.NotNil(t, op.Digest)
	assert.Equal(t, 1, op.Digest.ElementsCreated)
	assert.Len(t, op.TempToReal, 1)
	realID, ok := op.TempToReal["e1"]
	assert.True(t, ok)
	assert.NotEmpty(t, realID)
}

// Submitting changes out of dependency order (the relationship before the
// elements it references) must still succeed: Plan's topological sort
// reorders producers ahead of consumers regardless of chunk boundaries.
func TestSubmit_TopoSortReordersAcrossChunks(t *testing.T) {
	e, _ := newTestEngine()
	doc := &bom.Document{Version: "1.0", Changes: []bom.Change{
		{Index: 0, Op: bom.OpCreateRelationship, TempID: "r1", Fields: bom.CreateRelationshipFields{
			Type: "association", SourceID: "e1", TargetID: "e2",
		}},
		createElementChange(1, "e1", "business-actor", "Alice"),
		createElementChange(2, "e2", "business-role", "Approver"),
	}}

	op := submitAndWait(t, e, doc, Config{ChunkSize: 1})

	require.Equal(t, opqueue.StatusComplete, op.Status, "op error: %v", op.Error)
	assert.Equal(t, 3, op.TotalChunks)
	assert.Len(t, op.TempToReal, 3)
	assert.Equal(t, 1, op.Digest.RelationshipsCreated)
	assert.Equal(t, 2, op.Digest.ElementsCreated)
}

func TestSubmit_IdempotencyKeyShortCircuitsResubmission(t *testing.T) {
	e, _ := newTestEngine()
	doc := &bom.Document{Version: "1.0", Changes: []bom.Change{
		createElementChange(0, "e1", "application-component", "Billing"),
	}}
	cfg := Config{IdempotencyKey: "retry-1"}

	first := submitAndWait(t, e, doc, cfg)
	second := submitAndWait(t, e, doc, cfg)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.TempToReal, second.TempToReal)
}

func TestSubmit_ContinueOnError_RecordsPreFailedAndRunsValid(t *testing.T) {
	e, _ := newTestEngine()
	doc := &bom.Document{Version: "1.0", Changes: []bom.Change{
		createElementChange(0, "e1", "not-a-real-type", "Bogus"),
		createElementChange(1, "e2", "application-component", "Billing"),
	}}

	op := submitAndWait(t, e, doc, Config{ContinueOnError: true})

	require.Equal(t, opqueue.StatusComplete, op.Status)
	_, stillCreated := op.TempToReal["e2"]
	assert.True(t, stillCreated)
	_, badCreated := op.TempToReal["e1"]
	assert.False(t, badCreated)

	result := BuildResult(op)
	var sawFailed bool
	for _, o := range result.Outcomes {
		if o.TempID == "e1" {
			sawFailed = true
			assert.Equal(t, OutcomeFailed, o.Status)
			assert.NotEmpty(t, o.SkipReason)
		}
	}
	assert.True(t, sawFailed, "expected e1's preflight rejection to be recorded as an outcome")
}

// A change that fails preflight shifts the position of every change after
// it once filtered out of the plannable document; topoSort must still key
// its tempId-reference lookups by each change's original Index rather than
// its post-filtering position, or the producer/consumer edge is dropped and
// the consumer is placed (wrongly) ahead of its producer.
func TestSubmit_ContinueOnError_PreservesTopoOrderAfterFiltering(t *testing.T) {
	e, _ := newTestEngine()
	doc := &bom.Document{Version: "1.0", Changes: []bom.Change{
		createElementChange(0, "", "not-a-real-type", "Bogus"),
		{Index: 1, Op: bom.OpCreateRelationship, TempID: "r1", Fields: bom.CreateRelationshipFields{
			Type: "association", SourceID: "e1", TargetID: "e1",
		}},
		createElementChange(2, "e1", "business-actor", "Alice"),
	}}

	op := submitAndWait(t, e, doc, Config{ContinueOnError: true, ChunkSize: 1})

	require.Equal(t, opqueue.StatusComplete, op.Status, "op error: %v", op.Error)
	_, relCreated := op.TempToReal["r1"]
	assert.True(t, relCreated, "relationship referencing e1 should have executed after its producer")
	_, elemCreated := op.TempToReal["e1"]
	assert.True(t, elemCreated)
}

func TestSubmit_HaltsOnFirstFailureWithoutContinueOnError(t *testing.T) {
	e, _ := newTestEngine()
	doc := &bom.Document{Version: "1.0", Changes: []bom.Change{
		createElementChange(0, "e1", "not-a-real-type", "Bogus"),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := e.Submit(ctx, doc, nil, Config{})
	require.Error(t, err)
}

func TestSubmit_DuplicatePolicyReuse(t *testing.T) {
	e, _ := newTestEngine()

	first := submitAndWait(t, e, &bom.Document{Version: "1.0", Changes: []bom.Change{
		createElementChange(0, "e1", "application-component", "Billing"),
	}}, Config{})
	firstID := first.TempToReal["e1"]

	second := submitAndWait(t, e, &bom.Document{Version: "1.0", Changes: []bom.Change{
		createElementChange(0, "e1", "application-component", "Billing"),
	}}, Config{DuplicateStrategy: "reuse"})

	assert.Equal(t, firstID, second.TempToReal["e1"])
	assert.Equal(t, 0, second.Digest.ElementsCreated)
}

// LayoutAfter must actually invoke the Layout Engine on every view a
// submission touched: two visuals stacked at the same origin should end up
// apart once the post-apply pass runs.
func TestSubmit_LayoutAfterRelayoutsTouchedView(t *testing.T) {
	e, actor := newTestEngine()
	doc := &bom.Document{Version: "1.0", Changes: []bom.Change{
		{Index: 0, Op: bom.OpCreateView, TempID: "v1", Fields: bom.CreateViewFields{Name: "Overview"}},
		createElementChange(1, "e1", "business-actor", "Alice"),
		createElementChange(2, "e2", "business-role", "Approver"),
		{Index: 3, Op: bom.OpCreateRelationship, TempID: "r1", Fields: bom.CreateRelationshipFields{
			Type: "assignment", SourceID: "e1", TargetID: "e2",
		}},
		{Index: 4, Op: bom.OpAddToView, TempID: "o1", Fields: bom.AddToViewFields{
			ViewID: "v1", ElementID: "e1", X: 0, Y: 0, Width: 120, Height: 60,
		}},
		{Index: 5, Op: bom.OpAddToView, TempID: "o2", Fields: bom.AddToViewFields{
			ViewID: "v1", ElementID: "e2", X: 0, Y: 0, Width: 120, Height: 60,
		}},
		{Index: 6, Op: bom.OpAddConnectionToView, Fields: bom.AddConnectionToViewFields{
			ViewID: "v1", RelationshipID: "r1", SourceVisualID: "o1", TargetVisualID: "o2",
		}},
	}}

	op := submitAndWait(t, e, doc, Config{ChunkSize: 1, LayoutAfter: true})
	require.Equal(t, opqueue.StatusComplete, op.Status, "op error: %v", op.Error)

	viewID := model.ViewID(op.TempToReal["v1"])
	snap, err := actor.Snapshot(context.Background())
	require.NoError(t, err)
	v, ok := snap.GetView(viewID)
	require.True(t, ok)

	o1 := v.Objects[model.VisualID(op.TempToReal["o1"])]
	o2 := v.Objects[model.VisualID(op.TempToReal["o2"])]
	require.NotNil(t, o1)
	require.NotNil(t, o2)
	assert.False(t, o1.X == o2.X && o1.Y == o2.Y, "layout should have separated the two visuals that were both submitted at (0,0)")
}

func TestSubmit_FastModeForcesThroughputChunkSize(t *testing.T) {
	e, _ := newTestEngine()
	changes := make([]bom.Change, 0, 25)
	for i := 0; i < 25; i++ {
		changes = append(changes, createElementChange(i, "", "application-component", "Comp-"+string(rune('A'+i))))
	}
	doc := &bom.Document{Version: "1.0", Changes: changes}

	op := submitAndWait(t, e, doc, Config{Fast: true})

	require.Equal(t, opqueue.StatusComplete, op.Status)
	assert.Equal(t, 2, op.TotalChunks) // 25 changes at chunkSize 20 -> 2 chunks
}
