package agent

import (
	"fmt"

	"github.com/tabletalk-io/tabletalk/pkg/bus"
	"github.com/tabletalk-io/tabletalk/pkg/logger"
	"github.com/tabletalk-io/tabletalk/pkg/transcript"
)

// Dispatcher delivers a finished response: it is appended to the transcript
// first, then broadcast to every connected channel. The append is the
// source of truth; broadcast is best-effort.
type Dispatcher struct {
	store     *transcript.Store
	bus       *bus.MessageBus
	responder string
}

func NewDispatcher(store *transcript.Store, msgBus *bus.MessageBus, responder string) *Dispatcher {
	return &Dispatcher{store: store, bus: msgBus, responder: responder}
}

func (d *Dispatcher) Deliver(text string) error {
	if text == "" {
		return fmt.Errorf("refusing to deliver empty response")
	}

	if err := d.store.Append(transcript.Record{Sender: d.responder, Message: text}); err != nil {
		return fmt.Errorf("append response to transcript: %w", err)
	}

	d.bus.PublishOutbound(bus.OutboundMessage{Sender: d.responder, Content: text})
	logger.InfoCF("agent", "Response delivered",
		map[string]interface{}{
			"content_len": len(text),
		})
	return nil
}
