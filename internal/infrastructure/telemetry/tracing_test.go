package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestStartSpan(t *testing.T) {
	recorder := useRecorder(t)
	orderID := uuid.New()

	ctx, span := StartSpan(context.Background(), "checkout", "handle_webhook",
		SpanAttrOrderID, orderID,
		SpanAttrAmountCents, int64(4256),
		"dangling")
	assert.NotEmpty(t, TraceID(ctx))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "checkout.handle_webhook", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String(SpanAttrOrderID, orderID.String()))
	assert.Contains(t, ended[0].Attributes(), attribute.Int64(SpanAttrAmountCents, 4256))
	assert.Len(t, ended[0].Attributes(), 2)
}

func TestRecordErrorAndEvents(t *testing.T) {
	recorder := useRecorder(t)

	_, span := StartSpan(context.Background(), "order", "refund")
	SetAttributes(span, SpanAttrOrderNumber, "FS-1", "paid", true)
	AddEvent(span, "refund_requested", SpanAttrPaymentIntent, "pi_1")
	RecordError(span, errors.New("stripe unavailable"))
	RecordError(span, nil)
	span.End()

	s := recorder.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Contains(t, s.Attributes(), attribute.Bool("paid", true))
	names := []string{}
	for _, e := range s.Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "refund_requested")
	assert.Contains(t, names, "exception")
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestNilSpanHelpersAreSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		SetAttributes(nil, "k", "v")
		AddEvent(nil, "e")
		RecordError(nil, errors.New("x"))
	})
}

func TestToAttribute(t *testing.T) {
	assert.Equal(t, attribute.String("k", "v"), toAttribute("k", "v"))
	assert.Equal(t, attribute.Int("k", 3), toAttribute("k", 3))
	assert.Equal(t, attribute.Float64("k", 1.5), toAttribute("k", 1.5))
	assert.Equal(t, attribute.StringSlice("k", []string{"a"}), toAttribute("k", []string{"a"}))
	assert.Equal(t, attribute.String("k", "[1 2]"), toAttribute("k", [2]int{1, 2}))
}
