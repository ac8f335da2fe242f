package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Publisher decouples emitters from the sink. In sync mode Emit writes
// through; with an async buffer, events queue and a worker drains them so a
// slow sink never stalls a registration flow.
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	buffer chan Event
	wg     sync.WaitGroup
	once   sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given queue depth.
func WithAsyncBuffer(depth int) PublisherOption {
	return func(p *Publisher) {
		if depth > 0 {
			p.buffer = make(chan Event, depth)
		}
	}
}

// WithPublisherLogger overrides the default logger.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher constructs a Publisher over the sink.
func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records one event. In async mode a full buffer drops the event with
// a log line rather than blocking the caller.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p.buffer == nil {
		return p.sink.Emit(ctx, event)
	}
	select {
	case p.buffer <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
	}
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.sink.Emit(context.Background(), event); err != nil {
			p.logger.Error("audit emit failed", "action", event.Action, "error", err)
		}
	}
}

// Close drains any queued events and closes the sink.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
		p.sink.Close()
	})
}
