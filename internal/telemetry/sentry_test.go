package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoDSN(t *testing.T) {
	shutdown, err := Init(Config{})

	require.NoError(t, err)
	assert.NotPanics(t, shutdown)
}

func TestStartSpan_ChildOfTransaction(t *testing.T) {
	ctx, job := StartTransaction(context.Background(), "ingest.job", "queue.process")
	defer job.End()

	childCtx, embed := StartSpan(ctx, "embedding.embed", SpanAttributes{
		DocumentID: "doc-1",
		Namespace:  "medical-docs",
		Operation:  "embed",
	})
	embed.SetData("texts", 3)
	embed.SetOK()
	embed.End()

	parent := sentry.SpanFromContext(ctx)
	child := sentry.SpanFromContext(childCtx)
	require.NotNil(t, parent)
	require.NotNil(t, child)
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentSpanID)
	assert.Equal(t, "embedding.embed", child.Op)
	assert.Equal(t, sentry.SpanStatusOK, child.Status)
	assert.Equal(t, 3, child.Data["texts"])
	assert.Equal(t, "embed", child.Data["operation"])
	assert.Equal(t, "doc-1", child.Tags["document_id"])
	assert.Equal(t, "medical-docs", child.Tags["namespace"])
}

func TestSpan_SetError(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "rag.answer", SpanAttributes{Stage: "generating"})
	defer span.End()

	span.SetError(errors.New("generation failed"))

	assert.Equal(t, sentry.SpanStatusInternalError, sentry.SpanFromContext(ctx).Status)
}

func TestSpan_NilSafe(t *testing.T) {
	var s Span

	assert.NotPanics(t, func() {
		s.SetData("k", 1)
		s.SetOK()
		s.SetError(errors.New("x"))
		s.End()
	})
}
