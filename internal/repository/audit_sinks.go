package repository

import (
	"context"
	"sync"
	"time"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	applogger "VolSignals/pkg/logger"
)

// LogSink writes every audit event as one structured info line.
type LogSink struct {
	l *applogger.Logger
}

func NewLogSink(l *applogger.Logger) *LogSink {
	return &LogSink{l: l}
}

func (s *LogSink) Emit(_ context.Context, ev models.AuditEvent) {
	s.l.Info("audit "+string(ev.Kind),
		applogger.String("event_id", ev.ID),
		applogger.String("instrument", ev.Instrument),
		applogger.Time("at", ev.At),
		applogger.Any("payload", ev.Payload),
	)
}

// RingSink keeps the newest audit events in memory.
type RingSink struct {
	mu   sync.RWMutex
	buf  []models.AuditEvent
	next int
	full bool
}

func NewRingSink(size int) *RingSink {
	if size < 1 {
		size = 1
	}
	return &RingSink{buf: make([]models.AuditEvent, size)}
}

func (s *RingSink) Emit(_ context.Context, ev models.AuditEvent) {
	s.mu.Lock()
	s.buf[s.next] = ev
	s.next = (s.next + 1) % len(s.buf)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()
}

func (s *RingSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.buf)
	}
	return s.next
}

// Recent returns up to limit events newest first. An empty kind matches all;
// a zero since matches all.
func (s *RingSink) Recent(limit int, kind models.EventKind, since time.Time) []models.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.buf)
	}
	out := make([]models.AuditEvent, 0, min(limit, n))
	for i := 0; i < n && len(out) < limit; i++ {
		idx := (s.next - 1 - i + len(s.buf)) % len(s.buf)
		ev := s.buf[idx]
		if kind != "" && ev.Kind != kind {
			continue
		}
		if !since.IsZero() && ev.At.Before(since) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// FanoutSink forwards each event to every sink in order.
type FanoutSink struct {
	sinks []drepo.AuditSink
}

func NewFanoutSink(sinks ...drepo.AuditSink) *FanoutSink {
	f := &FanoutSink{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *FanoutSink) Emit(ctx context.Context, ev models.AuditEvent) {
	for _, s := range f.sinks {
		s.Emit(ctx, ev)
	}
}

var (
	_ drepo.AuditSink = (*LogSink)(nil)
	_ drepo.AuditSink = (*RingSink)(nil)
	_ drepo.AuditSink = (*FanoutSink)(nil)
)
