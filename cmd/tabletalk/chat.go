package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/gorilla/websocket"
)

// chatFrame matches the relay's websocket wire format.
type chatFrame struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

func chat(name, addr string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("--name is required")
	}

	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		host := cfg.Relay.Host
		if host == "0.0.0.0" || host == "" {
			host = "127.0.0.1"
		}
		addr = fmt.Sprintf("ws://%s:%d/ws", host, cfg.Relay.Port)
	}

	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return fmt.Errorf("connect to relay %s: %w", addr, err)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s as %s. Type a message, or 'exit' to leave.\n\n", addr, name)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s> ", name),
		HistoryFile:     filepath.Join(os.TempDir(), ".tabletalk_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	// Incoming frames print above the prompt.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame chatFrame
			if err := conn.ReadJSON(&frame); err != nil {
				fmt.Fprintln(rl.Stdout(), "\nDisconnected from relay.")
				return
			}
			fmt.Fprintf(rl.Stdout(), "\r%s: %s\n", frame.Sender, frame.Message)
			rl.Refresh()
		}
	}()

	for {
		select {
		case <-done:
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("Goodbye!")
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		payload, err := json.Marshal(chatFrame{Sender: name, Message: input})
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
}
