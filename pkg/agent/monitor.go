package agent

import (
	"context"
	"sync"

	"github.com/tabletalk-io/tabletalk/pkg/logger"
	"github.com/tabletalk-io/tabletalk/pkg/transcript"
	"github.com/tabletalk-io/tabletalk/pkg/trigger"
)

// Waiter blocks until the transcript may have new content. Satisfied by
// transcript.Watcher.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Monitor is the supervision loop: wake on transcript activity, run the
// detector, and when a mention fires, build context, run the agent loop and
// dispatch the response. A failed cycle is logged and the loop keeps going.
type Monitor struct {
	store      *transcript.Store
	detector   *trigger.Detector
	waiter     Waiter
	builder    *ContextBuilder
	loop       *AgentLoop
	dispatcher *Dispatcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMonitor(store *transcript.Store, detector *trigger.Detector, waiter Waiter, builder *ContextBuilder, loop *AgentLoop, dispatcher *Dispatcher) *Monitor {
	return &Monitor{
		store:      store,
		detector:   detector,
		waiter:     waiter,
		builder:    builder,
		loop:       loop,
		dispatcher: dispatcher,
	}
}

func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx)
	}()
	logger.InfoC("monitor", "Transcript monitor started")
}

func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	logger.InfoC("monitor", "Transcript monitor stopped")
}

func (m *Monitor) run(ctx context.Context) {
	for {
		if err := m.waiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WarnCF("monitor", "Transcript wait failed", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		if err := m.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.ErrorCF("monitor", "Detection pass failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// Poll runs one detection pass and, when a mention fired, one full
// response cycle. Exported so callers can drive a pass directly.
func (m *Monitor) Poll(ctx context.Context) error {
	outcome, err := m.detector.EvaluateNext()
	if err != nil {
		return err
	}
	if !outcome.Fired {
		return nil
	}

	logger.InfoCF("monitor", "Mention fired, starting response cycle", map[string]interface{}{
		"sender":   outcome.Record.Sender,
		"position": outcome.FiredAt,
	})

	records, err := m.store.Tail(m.builder.maxMessages)
	if err != nil {
		return err
	}

	messages := m.builder.BuildMessages(records)
	text := m.loop.Respond(ctx, messages)
	return m.dispatcher.Deliver(text)
}
