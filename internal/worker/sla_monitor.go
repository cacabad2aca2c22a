package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/events"
	"github.com/spec-kit/lifecycle-engine/internal/observability"
	"github.com/spec-kit/lifecycle-engine/internal/repository"
)

const breachScanBatchSize = 100

// SlaMonitor periodically scans for tickets whose first-response or
// resolution clock ran past its due instant, marks them breached and
// emits a breach event per clock. Marking makes the scan idempotent
// across restarts.
type SlaMonitor struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration

	wg sync.WaitGroup
}

// NewSlaMonitor constructs the monitor.
func NewSlaMonitor(tickets repository.TicketRepository, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *SlaMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SlaMonitor{
		tickets:    tickets,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		interval:   interval,
	}
}

// Start launches the scan loop. It stops when ctx is canceled.
func (m *SlaMonitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.scan(ctx)
			}
		}
	}()
}

// Wait blocks until the scan loop has exited.
func (m *SlaMonitor) Wait() {
	m.wg.Wait()
}

func (m *SlaMonitor) scan(ctx context.Context) {
	now := time.Now()
	overdue, err := m.tickets.ListOverdue(ctx, now, breachScanBatchSize)
	if err != nil {
		m.logger.Error("sla breach scan failed", zap.Error(err))
		return
	}
	for _, item := range overdue {
		if err := m.tickets.MarkBreached(ctx, item.Ticket.ID, item.Clock, now); err != nil {
			m.logger.Error("failed to mark sla breach",
				zap.String("ticket_id", item.Ticket.ID),
				zap.String("clock", item.Clock),
				zap.Error(err))
			continue
		}
		m.metrics.RecordBreach(item.Clock)
		m.logger.Warn("sla breached",
			zap.String("ticket_id", item.Ticket.ID),
			zap.String("clock", item.Clock),
			zap.Time("due_at", item.DueAt))
		if m.dispatcher != nil {
			_ = m.dispatcher.Publish(ctx, events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventTicketSlaBreached,
				TenantID:  item.Ticket.TenantID,
				TicketID:  item.Ticket.ID,
				Timestamp: now,
				Payload: events.SlaBreachedPayload{
					Clock: item.Clock,
					DueAt: item.DueAt,
				},
			})
		}
	}
}
