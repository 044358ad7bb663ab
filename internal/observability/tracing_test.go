package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracerSpawnSpanCarriesAttributes(t *testing.T) {
	tracer := NewTracer(TraceConfig{ServiceName: "convengine-test"})
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.SpawnSpan(context.Background(), "claude", "/tmp/work")
	require.NotNil(t, span)
	assert.True(t, span.SpanContext().IsValid())

	_, approvalSpan := tracer.ApprovalSpan(ctx, "bash", "call-1")
	require.NotNil(t, approvalSpan)
	EndWithError(approvalSpan, nil)
	EndWithError(span, errors.New("spawn failed"))
}

func TestNewTracerDefaultsServiceName(t *testing.T) {
	tracer := NewTracer(TraceConfig{})
	defer tracer.Shutdown(context.Background())
	require.NotNil(t, tracer)
}
