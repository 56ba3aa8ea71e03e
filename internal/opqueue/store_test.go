package opqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/opqueue"
)

func TestCreate_IdempotencyKeyReturnsSameOperation(t *testing.T) {
	s := opqueue.NewStore()
	now := time.Now()
	first, created := s.Create("req-1", 3, false, now)
	require.True(t, created)
	second, created := s.Create("req-1", 3, false, now.Add(time.Second))
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestRecordChunk_MergesTempToReal(t *testing.T) {
	s := opqueue.NewStore()
	now := time.Now()
	op, _ := s.Create("", 1, false, now)
	require.NoError(t, s.MarkProcessing(op.ID, now))
	require.NoError(t, s.RecordChunk(op.ID, opqueue.ChunkOutcome{
		Index: 0, Label: "chunk-0", Status: opqueue.StatusComplete,
		TempToReal: map[string]string{"t1": "elem_abc"},
	}, now))
	reloaded, ok := s.Get(op.ID)
	require.True(t, ok)
	assert.Equal(t, "elem_abc", reloaded.TempToReal["t1"])
	assert.Equal(t, opqueue.StatusProcessing, reloaded.Status)
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	s := opqueue.NewStore()
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Create("", 1, false, base.Add(time.Duration(i)*time.Minute))
	}
	page, err := s.List("", 2)
	require.NoError(t, err)
	assert.Len(t, page.Operations, 2)
	assert.NotEmpty(t, page.NextCursor)

	next, err := s.List(page.NextCursor, 2)
	require.NoError(t, err)
	assert.Len(t, next.Operations, 2)
}

func TestGC_RemovesOnlyExpiredTerminalOperations(t *testing.T) {
	s := opqueue.NewStore()
	now := time.Now()
	op, _ := s.Create("", 1, false, now.Add(-time.Hour))
	require.NoError(t, s.Finish(op.ID, &opqueue.Digest{}, nil, now.Add(-time.Hour)))
	live, _ := s.Create("", 1, false, now)

	removed := s.GC(time.Minute, now)
	assert.Equal(t, 1, removed)
	_, stillThere := s.Get(live.ID)
	assert.True(t, stillThere)
	_, gone := s.Get(op.ID)
	assert.False(t, gone)
}

func TestNotifier_WaitUnblocksOnFinish(t *testing.T) {
	n := opqueue.NewNotifier(opqueue.NewStore())
	now := time.Now()
	op, _ := n.Create("", 1, false, now)

	done := make(chan struct{})
	go func() {
		_, err := n.Wait(context.Background(), op.ID)
		assert.NoError(t, err)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, n.FinishAndNotify(op.ID, &opqueue.Digest{ElementsCreated: 1}, nil, time.Now()))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after FinishAndNotify")
	}
}
