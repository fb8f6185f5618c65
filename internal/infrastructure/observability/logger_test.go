package observability

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(ctx context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(ctx context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(ctx context.Context) error { return nil }

func TestOTelHook_EmitsRecords(t *testing.T) {
	exporter := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(NewOTelHook(provider.Logger("moodboard-test")))

	logger.Warn().Str("feedback_id", "fb-1").Msg("failed to publish feedback event")
	logger.Log().Msg("no level")

	require.Len(t, exporter.records, 1)
	record := exporter.records[0]
	assert.Equal(t, "failed to publish feedback event", record.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, record.Severity())
	assert.Equal(t, "warn", record.SeverityText())
	assert.Contains(t, buf.String(), "fb-1")
}

func TestOtelSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityInfo, otelSeverity(zerolog.InfoLevel))
	assert.Equal(t, otellog.SeverityError, otelSeverity(zerolog.ErrorLevel))
	assert.Equal(t, otellog.SeverityUndefined, otelSeverity(zerolog.NoLevel))
}
