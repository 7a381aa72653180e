package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProviderRecordsSpans(t *testing.T) {
	t.Parallel()
	rec := tracetest.NewSpanRecorder()
	tp, err := NewProvider(context.Background(), Config{ServiceName: "test", SampleRatio: 1}, rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, ok := tp.Tracer("t").Start(context.Background(), "ok")
	End(ok, nil)
	_, failed := tp.Tracer("t").Start(context.Background(), "failed")
	End(failed, errors.New("boom"))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ok", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
}

func TestProviderZeroRatioSamplesNothing(t *testing.T) {
	t.Parallel()
	rec := tracetest.NewSpanRecorder()
	tp, err := NewProvider(context.Background(), Config{ServiceName: "test", SampleRatio: 0}, rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("t").Start(context.Background(), "dropped")
	End(span, nil)
	assert.Empty(t, rec.Ended())
}

func TestStdoutExporter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	tp, err := NewProvider(context.Background(), Config{ServiceName: "test", Exporter: ExporterStdout, Writer: &buf, SampleRatio: 1})
	require.NoError(t, err)

	_, span := tp.Tracer("t").Start(context.Background(), "search.run")
	End(span, nil)
	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "search.run")
}

func TestUnknownExporter(t *testing.T) {
	t.Parallel()
	_, err := NewProvider(context.Background(), Config{ServiceName: "test", Exporter: "zipkin"})
	require.Error(t, err)
}
