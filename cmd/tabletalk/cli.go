package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "tabletalk",
		Short: "Group chat relay with a resident AI participant",
		Long: strings.TrimSpace(`tabletalk runs a websocket group chat relay where an AI responder
listens for mentions, reads the shared transcript, and replies with the help
of weather, restaurant, directions, and availability tools.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Initialize ~/.tabletalk config and workspace",
		Example: "  tabletalk onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard()
		},
	}
}

func newServeCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the chat relay and AI responder",
		Long:    "Start the websocket relay, transcript monitor, responder loop, tool registry, and optional Discord bridge.",
		Example: "  tabletalk serve --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newChatCommand() *cobra.Command {
	var (
		name string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join the group chat from the terminal",
		Example: strings.Join([]string{
			"  tabletalk chat --name Alice",
			"  tabletalk chat --name Bob --addr ws://example.com:8000/ws",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return chat(name, addr)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name in the chat (required)")
	cmd.Flags().StringVar(&addr, "addr", "", "Relay websocket URL (default derives from config)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and runtime readiness",
		Example: "  tabletalk status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusCmd()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  tabletalk version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}
