package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/progress"
)

// StreamEmitter writes search events as newline-delimited JSON and flushes
// after every line. Once a write fails the emitter is broken and drops all
// later events.
type StreamEmitter struct {
	mu     sync.Mutex
	w      io.Writer
	flush  func() error
	broken bool
	logger *zap.Logger
}

// NewStreamEmitter frames events onto w. HTTP response writers and buffered
// writers are flushed after each event.
func NewStreamEmitter(w io.Writer, logger *zap.Logger) *StreamEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &StreamEmitter{w: w, logger: logger}
	switch v := w.(type) {
	case http.ResponseWriter:
		rc := http.NewResponseController(v)
		e.flush = func() error {
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return err
			}
			return nil
		}
	case interface{ Flush() error }:
		e.flush = v.Flush
	}
	return e
}

// Emit writes one event line.
func (e *StreamEmitter) Emit(evt progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.broken {
		return
	}
	line, err := json.Marshal(evt)
	if err != nil {
		e.logger.Warn("encode stream event failed", zap.String("stage", string(evt.Stage)), zap.Error(err))
		return
	}
	line = append(line, '\n')
	if _, err := e.w.Write(line); err != nil {
		e.markBroken(err)
		return
	}
	if e.flush != nil {
		if err := e.flush(); err != nil {
			e.markBroken(err)
		}
	}
}

// Broken reports whether a write has failed.
func (e *StreamEmitter) Broken() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.broken
}

func (e *StreamEmitter) markBroken(err error) {
	e.broken = true
	e.logger.Debug("stream closed by client", zap.Error(err))
}
