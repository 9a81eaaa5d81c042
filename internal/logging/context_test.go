package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_RequestAndProject(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithProject(ctx, "Alpha")

	fields := ContextFields(ctx)
	keys := make(map[string]string)
	for _, f := range fields {
		keys[f.Key] = f.String
	}
	assert.Equal(t, "req-123", keys["request.id"])
	assert.Equal(t, "Alpha", keys["project"])
}

func TestContextFields_Trace(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tl := NewTestLogger()
	tl.Info(ctx, "traced")
	tl.AssertField(t, "traced", "trace_id", traceID.String())
	tl.AssertField(t, "traced", "trace_sampled", true)
}

func TestWithRequestID_DropsInvalid(t *testing.T) {
	tests := []string{"", "has space", "semi;colon", strings.Repeat("a", maxIDLen+1)}
	for _, id := range tests {
		ctx := WithRequestID(context.Background(), id)
		assert.Empty(t, RequestIDFromContext(ctx), "id %q", id)
	}
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}
