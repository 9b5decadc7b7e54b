package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/requestctx"
)

type securityLogSink interface {
	Record(ctx context.Context, event model.SecurityEvent) error
}

const auditWriteTimeout = 5 * time.Second

// AuditService writes security events to the security log off the request
// path. When the buffer is full new events are dropped and counted.
type AuditService struct {
	sink      securityLogSink
	ch        chan model.SecurityEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	now       func() time.Time
}

func NewAuditService(sink securityLogSink, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	s := &AuditService{
		sink: sink,
		ch:   make(chan model.SecurityEvent, bufferSize),
		done: make(chan struct{}),
		now:  time.Now,
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// Record enqueues event. The actor and creation time are taken from ctx now,
// because the write happens after the request has finished.
func (s *AuditService) Record(ctx context.Context, event model.SecurityEvent) {
	if s == nil || s.closed.Load() {
		return
	}

	if event.UserID == nil {
		event.UserID = requestctx.ActorID(ctx)
	}
	if event.IPAddress == "" {
		event.IPAddress = requestctx.ClientIP(ctx)
	}
	event.StampCreated(requestctx.ActorID(ctx), s.now().UTC())

	select {
	case s.ch <- event:
	case <-s.done:
	default:
		s.dropped.Add(1)
		slog.Warn("security event dropped", "event_type", event.EventType)
	}
}

func (s *AuditService) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

// Close stops accepting events and flushes what is already buffered.
func (s *AuditService) Close() {
	if s == nil {
		return
	}

	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
	})
}

func (s *AuditService) run() {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.ch:
			s.write(event)
		case <-s.done:
			for {
				select {
				case event := <-s.ch:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *AuditService) write(event model.SecurityEvent) {
	if s.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := s.sink.Record(ctx, event); err != nil {
		slog.Error("failed to write security event", "event_type", event.EventType, "error", err)
	}
}
