// TableTalk - group chat relay with a resident AI participant
// License: MIT
//
// Copyright (c) 2026 TableTalk contributors

package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tabletalk-io/tabletalk/pkg/bus"
	"github.com/tabletalk-io/tabletalk/pkg/config"
	"github.com/tabletalk-io/tabletalk/pkg/logger"
	"github.com/tabletalk-io/tabletalk/pkg/transcript"
)

// Manager owns the relay pipeline. Inbound participant messages are
// appended to the transcript and rebroadcast to every other connection;
// outbound messages (including the responder's) are fanned out to all
// channels.
type Manager struct {
	channels map[string]Channel
	bus      *bus.MessageBus
	config   *config.Config
	store    *transcript.Store
	hub      *HubChannel
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
}

func NewManager(cfg *config.Config, messageBus *bus.MessageBus, store *transcript.Store) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      messageBus,
		config:   cfg,
		store:    store,
	}

	if err := m.initChannels(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) initChannels() error {
	logger.InfoC("channels", "Initializing channel manager")

	// The websocket hub is always on; it is the relay itself.
	m.hub = NewHubChannel(m.bus)
	m.channels[m.hub.Name()] = m.hub

	if m.config.Channels.Discord.Enabled {
		if strings.TrimSpace(m.config.Channels.Discord.Token) == "" {
			return fmt.Errorf("channels.discord.token is required when discord is enabled")
		}
		discord, err := NewDiscordChannel(m.config.Channels.Discord, m.bus)
		if err != nil {
			return fmt.Errorf("initialize Discord channel: %w", err)
		}
		m.channels[discord.Name()] = discord
		logger.InfoC("channels", "Discord channel initialized")
	}

	logger.InfoCF("channels", "Channel initialization completed", map[string]interface{}{
		"enabled_channels": len(m.channels),
	})
	return nil
}

// Hub exposes the websocket channel so the relay server can mount its
// HTTP handler.
func (m *Manager) Hub() *HubChannel {
	return m.hub
}

func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	channelsCopy := make(map[string]Channel, len(m.channels))
	for name, channel := range m.channels {
		channelsCopy[name] = channel
	}
	m.mu.RUnlock()

	logger.InfoC("channels", "Starting all channels")

	var started []string
	var startErrors []string
	for name, channel := range channelsCopy {
		if err := channel.Start(ctx); err != nil {
			logger.ErrorCF("channels", "Failed to start channel", map[string]interface{}{
				"channel": name,
				"error":   err.Error(),
			})
			startErrors = append(startErrors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		started = append(started, name)
	}

	if len(startErrors) > 0 {
		for _, name := range started {
			if err := channelsCopy[name].Stop(ctx); err != nil {
				logger.WarnCF("channels", "Failed to stop partially-started channel", map[string]interface{}{
					"channel": name,
					"error":   err.Error(),
				})
			}
		}
		return fmt.Errorf("failed to start channels: %s", strings.Join(startErrors, "; "))
	}

	pipelineCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.relayInbound(pipelineCtx)
	}()
	go func() {
		defer m.wg.Done()
		m.dispatchOutbound(pipelineCtx)
	}()

	logger.InfoCF("channels", "All channels started", map[string]interface{}{
		"count": len(started),
	})
	return nil
}

func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	channelsCopy := make(map[string]Channel, len(m.channels))
	for name, channel := range m.channels {
		channelsCopy[name] = channel
	}
	m.mu.Unlock()

	m.wg.Wait()

	logger.InfoC("channels", "Stopping all channels")
	for name, channel := range channelsCopy {
		if err := channel.Stop(ctx); err != nil {
			logger.ErrorCF("channels", "Error stopping channel", map[string]interface{}{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}
	logger.InfoC("channels", "All channels stopped")
	return nil
}

// relayInbound is the transcript side of the relay: every participant
// message is appended to the chat log, then echoed back out so the other
// connections and channels see it. The transcript append is what wakes
// the responder's monitor.
func (m *Manager) relayInbound(ctx context.Context) {
	logger.InfoC("channels", "Inbound relay started")

	for {
		if ctx.Err() != nil {
			logger.InfoC("channels", "Inbound relay stopped")
			return
		}

		msg, ok := m.bus.ConsumeInbound(ctx)
		if !ok {
			continue
		}

		if err := m.store.Append(transcript.Record{Sender: msg.Sender, Message: msg.Content}); err != nil {
			logger.ErrorCF("channels", "Failed to append inbound message", map[string]interface{}{
				"channel": msg.Channel,
				"error":   err.Error(),
			})
			continue
		}

		m.bus.PublishOutbound(bus.OutboundMessage{
			Channel:  msg.Channel,
			OriginID: msg.OriginID,
			Sender:   msg.Sender,
			Content:  msg.Content,
		})
	}
}

// dispatchOutbound fans each outbound message out to every channel. Each
// channel skips the originating connection itself.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	logger.InfoC("channels", "Outbound dispatcher started")

	for {
		if ctx.Err() != nil {
			logger.InfoC("channels", "Outbound dispatcher stopped")
			return
		}

		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			continue
		}

		m.mu.RLock()
		channelsCopy := make([]Channel, 0, len(m.channels))
		for _, channel := range m.channels {
			channelsCopy = append(channelsCopy, channel)
		}
		m.mu.RUnlock()

		for _, channel := range channelsCopy {
			if err := channel.Send(ctx, msg); err != nil {
				logger.ErrorCF("channels", "Error sending message to channel", map[string]interface{}{
					"channel": channel.Name(),
					"error":   err.Error(),
				})
			}
		}
	}
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channel, ok := m.channels[name]
	return channel, ok
}

func (m *Manager) GetStatus() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]interface{})
	for name, channel := range m.channels {
		status[name] = map[string]interface{}{
			"enabled": true,
			"running": channel.IsRunning(),
		}
	}
	return status
}

func (m *Manager) GetEnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}
