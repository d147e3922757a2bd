package main

import (
	"context"
	"log"
	"os"

	"github.com/SAP-F-2025/exam-delivery-service/internal/config"
	"github.com/SAP-F-2025/exam-delivery-service/internal/gateway"
	"github.com/SAP-F-2025/exam-delivery-service/internal/session"
	"github.com/SAP-F-2025/exam-delivery-service/internal/utils"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.LoadRunnerConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.AttemptID == 0 {
		log.Fatal("ATTEMPT_ID is required")
	}

	// The terminal belongs to the UI; logs go to a file.
	logFile, err := os.OpenFile("examrunner.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()
	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel, logFile).Slog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	gw := gateway.NewHTTPClient(gateway.HTTPClientConfig{
		BaseURL: cfg.GatewayURL,
		Token:   cfg.Token,
		Timeout: cfg.RequestTimeout,
	})
	ctrl := session.NewController(session.Config{
		AttemptID:     cfg.AttemptID,
		Gateway:       gw,
		Clock:         clock,
		Logger:        logger,
		BreakDuration: cfg.BreakDuration,
	})
	defer ctrl.Close()

	monitor := session.NewNetworkMonitor(ctrl, gw, clock, cfg.ProbeInterval, logger)
	go monitor.Run(ctx)

	p := tea.NewProgram(newModel(ctx, ctrl))
	ctrl.Subscribe(func(e session.Event) {
		// Listeners may run on the UI goroutine; never block it.
		go p.Send(eventMsg(e))
	})

	if _, err := p.Run(); err != nil {
		logger.Error("Exam runner stopped with error", "error", err)
		os.Exit(1)
	}
}
