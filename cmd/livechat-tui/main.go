// Command livechat-tui is a terminal chat client for trying the SDK
// against a live server. Configuration comes from LIVECHAT_* env vars,
// optionally loaded from a .env file.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/younivision/livechat-go/chat"
	"github.com/younivision/livechat-go/client"
	"github.com/younivision/livechat-go/wallet"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	godotenv.Load()

	cfg, err := client.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger()

	opts := append(cfg.Options(), client.WithLogger(log))
	if cfg.APIBaseURL != "" {
		gw := wallet.NewClient(cfg.APIBaseURL,
			wallet.WithAPIKey(cfg.APIKey),
			wallet.WithLogger(log))
		opts = append(opts, client.WithGateway(gw))
	}

	var p *tea.Program
	opts = append(opts,
		client.OnConnect(func() {
			p.Send(connStateMsg{connected: true})
		}),
		client.OnDisconnect(func(err error) {
			p.Send(connStateMsg{connected: false})
		}),
		client.OnMessage(func(m chat.Message) {
			p.Send(incomingMsg{message: m})
		}),
		client.OnError(func(e string) {
			p.Send(serverErrMsg(e))
		}),
	)

	c := client.New(cfg.ServerURL, cfg.Identity(), opts...)

	p = tea.NewProgram(initialModel(c), tea.WithAltScreen())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	c.Connect(ctx)
	cancel()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
	c.Disconnect()
}

// newLogger writes structured logs to the file named by
// LIVECHAT_LOG_FILE, or discards them so they never corrupt the TUI.
func newLogger() *slog.Logger {
	path := os.Getenv("LIVECHAT_LOG_FILE")
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
