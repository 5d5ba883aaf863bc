package profiles

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/tabletalk-io/tabletalk/pkg/logger"
	"github.com/tabletalk-io/tabletalk/pkg/tools"
	"github.com/tabletalk-io/tabletalk/pkg/transcript"
)

// Analyzer runs food sentiment analysis over one message. Satisfied by the
// analyze_message_sentiment tool.
type Analyzer interface {
	Execute(ctx context.Context, args map[string]interface{}) *tools.ToolResult
}

// DigestWorker periodically re-scans new transcript messages for food
// preferences the in-conversation analysis may have missed. Schedule is a
// cron expression; progress is checkpointed so lines are analyzed once.
type DigestWorker struct {
	store      *Store
	transcript *transcript.Store
	analyzer   Analyzer
	schedule   string
	window     int
	responder  string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDigestWorker(store *Store, ts *transcript.Store, analyzer Analyzer, schedule string, window int, responder string) (*DigestWorker, error) {
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("invalid digest schedule %q", schedule)
	}
	if window <= 0 {
		window = 200
	}
	return &DigestWorker{
		store:      store,
		transcript: ts,
		analyzer:   analyzer,
		schedule:   schedule,
		window:     window,
		responder:  responder,
	}, nil
}

// Start launches the scheduling loop. Stop cancels it and waits.
func (w *DigestWorker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	logger.InfoCF("profiles", "Digest worker started", map[string]interface{}{
		"schedule": w.schedule,
		"window":   w.window,
	})
}

func (w *DigestWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	logger.InfoC("profiles", "Digest worker stopped")
}

func (w *DigestWorker) run(ctx context.Context) {
	for {
		next, err := gronx.NextTick(w.schedule, false)
		if err != nil {
			logger.ErrorCF("profiles", "Failed to compute next digest run", map[string]interface{}{
				"schedule": w.schedule,
				"error":    err.Error(),
			})
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := w.RunOnce(ctx); err != nil {
			logger.ErrorCF("profiles", "Digest run failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// RunOnce digests new transcript lines immediately, independent of the
// schedule.
func (w *DigestWorker) RunOnce(ctx context.Context) error {
	offset, err := w.store.DigestOffset(ctx)
	if err != nil {
		return err
	}

	entries, err := w.transcript.ReadFrom(offset)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	if len(entries) > w.window {
		entries = entries[len(entries)-w.window:]
	}

	analyzed := 0
	for _, entry := range entries {
		if strings.EqualFold(entry.Record.Sender, w.responder) {
			continue
		}
		result := w.analyzer.Execute(ctx, map[string]interface{}{
			"user":    entry.Record.Sender,
			"message": entry.Record.Message,
		})
		if result != nil && result.IsError {
			logger.WarnCF("profiles", "Digest analysis failed for message", map[string]interface{}{
				"line":  entry.Index,
				"error": result.ForLLM,
			})
			continue
		}
		analyzed++
	}

	lastLine := entries[len(entries)-1].Index + 1
	if err := w.store.SetDigestOffset(ctx, lastLine); err != nil {
		return err
	}

	logger.InfoCF("profiles", "Digest run completed", map[string]interface{}{
		"analyzed":  analyzed,
		"new_lines": len(entries),
		"offset":    lastLine,
	})
	return nil
}
