package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tabletalk-io/tabletalk/pkg/agent"
	"github.com/tabletalk-io/tabletalk/pkg/bus"
	"github.com/tabletalk-io/tabletalk/pkg/channels"
	"github.com/tabletalk-io/tabletalk/pkg/config"
	"github.com/tabletalk-io/tabletalk/pkg/health"
	"github.com/tabletalk-io/tabletalk/pkg/logger"
	"github.com/tabletalk-io/tabletalk/pkg/profiles"
	"github.com/tabletalk-io/tabletalk/pkg/providers"
	"github.com/tabletalk-io/tabletalk/pkg/tools"
	"github.com/tabletalk-io/tabletalk/pkg/transcript"
	"github.com/tabletalk-io/tabletalk/pkg/trigger"
)

func serve(debug bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if debug {
		logger.SetLevel(logger.DEBUG)
	} else {
		logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	}

	if err := providers.ValidateProviderConfig(cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if err := os.MkdirAll(cfg.WorkspacePath(), 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	store := transcript.NewStore(cfg.TranscriptPath())
	offsets := transcript.NewOffsetStore(cfg.OffsetPath())
	summaries := transcript.NewSummaryStore(cfg.SummaryPath())

	watcher := transcript.NewWatcher(store.Path(), time.Duration(cfg.Responder.PollIntervalSeconds)*time.Second)
	defer watcher.Close()

	prefStore, err := profiles.NewStore(cfg.ProfilesPath())
	if err != nil {
		return fmt.Errorf("open profiles store: %w", err)
	}
	defer prefStore.Close()

	registry := tools.NewToolRegistry()
	registerToolset(cfg, provider, store, summaries, prefStore, registry)

	detector := trigger.NewDetector(store, offsets, cfg.Responder.TriggerWord, cfg.Responder.Name)
	builder := agent.NewContextBuilder(cfg.Responder.TriggerWord, cfg.Responder.Sigma, cfg.Responder.ImportanceThreshold, cfg.Responder.MaxMessages)
	loop := agent.NewAgentLoop(cfg, provider, registry)

	msgBus := bus.NewMessageBus()
	dispatcher := agent.NewDispatcher(store, msgBus, cfg.Responder.Name)
	monitor := agent.NewMonitor(store, detector, watcher, builder, loop, dispatcher)

	manager, err := channels.NewManager(cfg, msgBus, store)
	if err != nil {
		return fmt.Errorf("create channel manager: %w", err)
	}

	var digest *profiles.DigestWorker
	if cfg.Profiles.DigestEnabled {
		analyzer := tools.NewAnalyzeSentimentTool(provider, responderModel(cfg, provider), prefStore)
		digest, err = profiles.NewDigestWorker(prefStore, store, analyzer, cfg.Profiles.DigestSchedule, cfg.Profiles.DigestWindow, cfg.Responder.Name)
		if err != nil {
			return fmt.Errorf("create digest worker: %w", err)
		}
	}

	healthServer := health.NewServer(health.ListenAddr(cfg.Relay.Host, cfg.Relay.Port))
	healthServer.Handle("/ws", manager.Hub().Handler())
	healthServer.RegisterCheck("provider", func() error {
		return providers.ValidateProviderConfig(cfg)
	})
	healthServer.RegisterCheck("transcript", func() error {
		_, err := store.Len()
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	monitor.Start()
	if digest != nil {
		digest.Start()
	}
	healthServer.Start()

	fmt.Printf("✓ Relay listening on ws://%s/ws\n", healthServer.Addr())
	fmt.Printf("✓ Responder %q watching for %q\n", cfg.Responder.Name, cfg.Responder.TriggerWord)
	fmt.Printf("✓ Tools loaded: %d (%s)\n", registry.Count(), strings.Join(registry.List(), ", "))
	fmt.Printf("✓ Channels enabled: %s\n", strings.Join(manager.GetEnabledChannels(), ", "))
	if digest != nil {
		fmt.Printf("✓ Preference digest scheduled: %s\n", cfg.Profiles.DigestSchedule)
	}
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WarnCF("main", "HTTP shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if digest != nil {
		digest.Stop()
	}
	monitor.Stop()
	if err := manager.StopAll(shutdownCtx); err != nil {
		logger.WarnCF("main", "Channel shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	cancel()
	if err := registry.Close(); err != nil {
		logger.WarnCF("main", "Tool shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	msgBus.Close()

	fmt.Println("✓ Relay stopped")
	return nil
}

func responderModel(cfg *config.Config, provider providers.LLMProvider) string {
	if strings.TrimSpace(cfg.Responder.Model) != "" {
		return cfg.Responder.Model
	}
	return provider.GetDefaultModel()
}

// registerToolset wires every tool whose configuration is present. Missing
// API keys simply leave those tools out of the registry.
func registerToolset(cfg *config.Config, provider providers.LLMProvider, store *transcript.Store, summaries *transcript.SummaryStore, prefStore *profiles.Store, registry *tools.ToolRegistry) {
	registry.RegisterAll(
		tools.NewRecentMessagesTool(store, summaries),
		tools.NewConversationSummaryTool(store, summaries),
		tools.NewAnalyzeSentimentTool(provider, responderModel(cfg, provider), prefStore),
		tools.NewUserPreferencesTool(prefStore),
	)

	members := cfg.Tools.Group.Members
	if len(members) > 0 {
		registry.RegisterAll(
			tools.NewCheckAvailabilityTool(members),
			tools.NewAvailablePeopleTool(members),
			tools.NewCurrentLocationsTool(members),
			tools.NewCommonFreeTimeTool(members),
			tools.NewListGroupMembersTool(members),
		)
	}

	weatherKey := strings.TrimSpace(cfg.Tools.OpenWeather.APIKey)
	if weatherKey != "" {
		registry.RegisterAll(
			tools.NewCurrentWeatherTool(weatherKey),
			tools.NewCyclingConditionsTool(weatherKey),
		)
	}

	googleKey := strings.TrimSpace(cfg.Tools.Google.APIKey)
	if googleKey != "" {
		registry.RegisterAll(
			tools.NewFindRestaurantsTool(googleKey),
			tools.NewGeocodeAddressTool(googleKey),
			tools.NewRestaurantsByAddressTool(googleKey),
		)
		if len(members) > 0 {
			registry.RegisterAll(
				tools.NewGroupDirectionsTool(googleKey, members),
				tools.NewTravelTimeSummaryTool(googleKey, members),
			)
			if weatherKey != "" {
				registry.Register(tools.NewGroupDirectionsWeatherTool(googleKey, weatherKey, members))
			}
		}
	}
}
