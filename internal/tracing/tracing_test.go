package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledProducesWorkingNoopProvider(t *testing.T) {
	p, err := Init(Config{ServiceName: "archiplane-test", Enabled: false})
	require.NoError(t, err)

	ctx, span := p.StartSpan(context.Background(), "unit.test")
	assert.NotNil(t, ctx)
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestEndWithError_RecordsErrorWithoutPanicking(t *testing.T) {
	p, err := Init(Config{ServiceName: "archiplane-test", Enabled: false})
	require.NoError(t, err)

	_, span := p.StartApplySpan(context.Background(), "op1", 0, 3)
	applyErr := errors.New("boom")
	EndWithError(span, &applyErr)
}

func TestStartLayoutSpanAndStartExportSpan_DoNotPanic(t *testing.T) {
	p, err := Init(Config{ServiceName: "archiplane-test", Enabled: false})
	require.NoError(t, err)

	_, layoutSpan := p.StartLayoutSpan(context.Background(), "view1", "dagre")
	layoutSpan.End()

	_, exportSpan := p.StartExportSpan(context.Background(), "view1", "png")
	exportSpan.End()
}
