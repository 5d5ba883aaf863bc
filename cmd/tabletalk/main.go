// TableTalk - group chat relay with a resident AI participant
// License: MIT
//
// Copyright (c) 2026 TableTalk contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tabletalk-io/tabletalk/pkg/config"
	"github.com/tabletalk-io/tabletalk/pkg/providers"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "tabletalk"

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func formatBuildInfo() (build string, goVer string) {
	if buildTime != "" {
		build = buildTime
	}
	goVer = goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	build, goVer := formatBuildInfo()
	if build != "" {
		fmt.Printf("  Build: %s\n", build)
	}
	if goVer != "" {
		fmt.Printf("  Go: %s\n", goVer)
	}
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tabletalk", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

func onboard() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s; edit it or remove it first", configPath)
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	if err := os.MkdirAll(cfg.WorkspacePath(), 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	fmt.Printf("%s is ready!\n", appName)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Add a provider API key to", configPath)
	fmt.Println("     (providers.anthropic.api_key or providers.openai.api_key)")
	fmt.Println("  2. Optional: add tool API keys (tools.google, tools.openweather)")
	fmt.Println("     and group members under tools.group.members")
	fmt.Println("  3. Run the relay: tabletalk serve")
	fmt.Println("  4. Join the chat: tabletalk chat --name Alice")
	fmt.Println("  5. Mention @ai in the chat to wake the responder")
	return nil
}

func statusCmd() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	configPath := getConfigPath()

	fmt.Printf("%s Status\n", appName)
	fmt.Printf("Version: %s\n", formatVersion())
	build, _ := formatBuildInfo()
	if build != "" {
		fmt.Printf("Build: %s\n", build)
	}
	fmt.Println()

	mark := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}

	_, cfgErr := os.Stat(configPath)
	fmt.Println("Config:", configPath, mark(cfgErr == nil))

	workspace := cfg.WorkspacePath()
	_, wsErr := os.Stat(workspace)
	fmt.Println("Workspace:", workspace, mark(wsErr == nil))

	if _, err := os.Stat(cfg.TranscriptPath()); err == nil {
		fmt.Println("Transcript:", cfg.TranscriptPath(), "✓")
	} else {
		fmt.Println("Transcript:", cfg.TranscriptPath(), "not created yet")
	}
	if _, err := os.Stat(cfg.ProfilesPath()); err == nil {
		fmt.Println("Profiles DB:", cfg.ProfilesPath(), "✓")
	} else {
		fmt.Println("Profiles DB:", cfg.ProfilesPath(), "not initialized")
	}
	fmt.Println()

	fmt.Printf("Responder: %s (trigger %q)\n", cfg.Responder.Name, cfg.Responder.TriggerWord)
	fmt.Printf("Provider: %s\n", providers.ActiveProviderName(cfg))

	providerReady := providers.ValidateProviderConfig(cfg) == nil
	fmt.Println("Provider key:", mark(providerReady))

	googleReady := strings.TrimSpace(cfg.Tools.Google.APIKey) != ""
	weatherReady := strings.TrimSpace(cfg.Tools.OpenWeather.APIKey) != ""
	fmt.Println("Google tools:", mark(googleReady))
	fmt.Println("Weather tools:", mark(weatherReady))
	fmt.Printf("Group members: %d\n", len(cfg.Tools.Group.Members))

	discordReady := !cfg.Channels.Discord.Enabled || strings.TrimSpace(cfg.Channels.Discord.Token) != ""
	if cfg.Channels.Discord.Enabled {
		fmt.Println("Discord bridge:", mark(discordReady))
	}

	fmt.Println("Relay ready:", mark(providerReady && discordReady))
	return nil
}
