package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/gateway"
	"github.com/jonboulle/clockwork"
)

const DefaultProbeInterval = 5 * time.Second

// NetworkMonitor probes the server and reports connectivity changes to the
// controller.
type NetworkMonitor struct {
	ctrl     *Controller
	pinger   gateway.Pinger
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
}

func NewNetworkMonitor(ctrl *Controller, pinger gateway.Pinger, clock clockwork.Clock, interval time.Duration, logger *slog.Logger) *NetworkMonitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NetworkMonitor{
		ctrl:     ctrl,
		pinger:   pinger,
		clock:    clock,
		interval: interval,
		logger:   logger.With("component", "network_monitor"),
	}
}

// Probe pings once and forwards the result. It returns the observed status.
func (m *NetworkMonitor) Probe(ctx context.Context) bool {
	online := m.pinger.Ping(ctx) == nil
	if online != m.ctrl.Online() {
		m.logger.Info("Connectivity changed", "online", online)
	}
	if err := m.ctrl.SetOnline(ctx, online); err != nil {
		m.logger.Warn("Reconnect handling failed", "error", err)
	}
	return online
}

// Run probes every interval until ctx is done.
func (m *NetworkMonitor) Run(ctx context.Context) {
	tk := m.clock.NewTicker(m.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.Chan():
			m.Probe(ctx)
		}
	}
}
