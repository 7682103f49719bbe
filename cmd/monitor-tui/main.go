package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kaber420/mikroisp-manager-sub000/internal/app"
	"github.com/kaber420/mikroisp-manager-sub000/internal/client"
	"github.com/kaber420/mikroisp-manager-sub000/internal/config"
	"github.com/kaber420/mikroisp-manager-sub000/internal/session"
)

func main() {
	deviceID := flag.String("device", "", "ID of the device to monitor (required)")
	cfgPath := flag.String("config", "", "Path to config.yaml (optional)")
	baseURL := flag.String("url", "", "API base URL, overrides config")
	token := flag.String("token", "", "API token, overrides config")
	flag.Parse()

	if *deviceID == "" {
		fmt.Fprintln(os.Stderr, "Usage: monitor-tui -device <id> [-config config.yaml]")
		os.Exit(2)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
		cfg.API.PushURL = derivePushURL(*baseURL)
	}
	if *token != "" {
		cfg.API.Token = *token
	}

	httpClient := client.NewHTTPClient(cfg.API.BaseURL, cfg.API.Token)
	push := client.NewPushListener(cfg.API.PushURL, cfg.API.Token)
	sched := session.NewLoopScheduler()

	m := app.New(cfg, httpClient, push, sched, *deviceID)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Timer callbacks re-enter the program as messages so session state only
	// ever changes on the update loop.
	sched.Bind(func(fn func()) {
		p.Send(app.InvokeMsg{Fn: fn})
	})

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// derivePushURL converts http://host:port → ws://host:port/ws
func derivePushURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return "ws://127.0.0.1:8420/ws"
	}
	scheme := "ws"
	if strings.HasPrefix(u.Scheme, "https") {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, u.Host)
}
