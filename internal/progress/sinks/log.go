package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/progress"
)

// LogSink writes one structured log line per event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("search")}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("search_id", evt.SearchUUID().String()),
			zap.String("stage", string(evt.Stage)),
		}
		switch evt.Stage {
		case progress.StageStatus:
			fields = append(fields, zap.String("step", evt.Step))
		case progress.StageGeocode:
			fields = append(fields, zap.String("city", evt.City), zap.Float64("lat", evt.Lat), zap.Float64("lng", evt.Lng))
		case progress.StageOverpass:
			fields = append(fields, zap.Int("count", evt.Count))
		case progress.StageScored, progress.StageDone:
			fields = append(fields, zap.Int("candidates", len(evt.Candidates)), zap.Duration("dur", evt.Dur))
		case progress.StageEnrich:
			fields = append(fields, zap.Int("index", evt.Index), zap.Int("total", evt.Total))
		case progress.StageError:
			s.logger.Warn("search failed", append(fields, zap.String("message", evt.Message))...)
			continue
		}
		s.logger.Debug("search event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
