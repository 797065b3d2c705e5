// Command pulsewatch is a terminal monitor for a running NeuroPulse server.
//
// It maintains one logical connection to the hub, replays the latest cached
// snapshot on reconnect, and prints biometric updates and notifications as
// they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/NeuroPulse-App/neuropulse/internal/wsclient"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "websocket URL of the NeuroPulse hub")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := wsclient.New(wsclient.Config{
		URL:     *url,
		OnEvent: printEvent,
		OnStateChange: func(s wsclient.ConnState) {
			fmt.Printf("-- connection: %s\n", s)
		},
	})
	if err := manager.Start(ctx); err != nil {
		slog.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	manager.Stop()
}

func printEvent(ev models.Event) {
	switch ev.Type {
	case models.EventBiometricUpdate:
		var update models.BiometricUpdate
		if err := ev.Decode(&update); err != nil {
			return
		}
		line := "biometrics:"
		if update.HeartRate != nil {
			line += fmt.Sprintf(" hr=%.1f", *update.HeartRate)
		}
		if update.EEGAlpha != nil {
			line += fmt.Sprintf(" alpha=%.2f", *update.EEGAlpha)
		}
		for _, s := range update.EmotionalStates {
			line += fmt.Sprintf(" %s=%.0f(%s)", s.Kind, s.Level, s.Label)
		}
		fmt.Println(line)

	case models.EventNotification:
		var n models.Notification
		if err := ev.Decode(&n); err != nil {
			return
		}
		fmt.Printf("notification [%s] %s: %s\n", n.Category, n.Title, n.Message)
		for _, opt := range n.ResponseOptions {
			fmt.Printf("  - %s (%s)\n", opt.Label, opt.ActionID)
		}

	default:
		fmt.Printf("event: %s\n", ev.Type)
	}
}
