package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(1).Description())
	assert.Contains(t, newSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "agora-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "agora-test", Enabled: true, Exporter: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestEndSpan_StatusByErrorKind(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := Tracer
	Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test")
	t.Cleanup(func() { Tracer = prev })

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"success", nil, codes.Unset},
		{"plain error", errors.New("boom"), codes.Error},
		{"internal", models.NewInternalError(errors.New("disk full")), codes.Error},
		{"conflict", models.NewConflictError("busy", nil), codes.Error},
		{"validation", models.NewValidationError("content is required"), codes.Unset},
		{"forbidden", models.NewForbiddenError("not a member"), codes.Unset},
		{"not found", fmt.Errorf("load: %w", models.NewNotFoundError("Comment", 9)), codes.Unset},
	}
	for _, tt := range tests {
		_, span := StartSpan(context.Background(), "comment", tt.name)
		EndSpan(span, tt.err)
	}

	ended := rec.Ended()
	require.Len(t, ended, len(tests))
	for i, tt := range tests {
		assert.Equal(t, "comment."+tt.name, ended[i].Name())
		assert.Equal(t, tt.want, ended[i].Status().Code, tt.name)
	}
}
