package drift

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	cron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const checkSchedule = "@every 1m"

var (
	clockDriftMs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "binance_exporter_clock_drift_ms",
			Help: "Exchange server time minus local time in milliseconds.",
		},
	)
	syncFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "binance_exporter_clock_sync_failures_total",
			Help: "Total number of failed exchange server time probes.",
		},
	)
)

// TimeSource is the server-clock surface the checker needs from the API
// client.
type TimeSource interface {
	ServerTime(ctx context.Context) (int64, error)
}

// Checker periodically probes the exchange clock and records how far the
// local clock has drifted. Probe failures are counted, never fatal: the
// checker observes, the scrape pipeline decides.
type Checker struct {
	source  TimeSource
	cron    *cron.Cron
	logger  *zap.SugaredLogger
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	lastDrift int64
}

// New constructs the checker and registers its metrics on registry.
func New(source TimeSource, registry *prometheus.Registry, logger *zap.SugaredLogger) *Checker {
	registry.MustRegister(clockDriftMs, syncFailures)
	return &Checker{
		source:  source,
		cron:    cron.New(),
		logger:  logger,
		timeout: 2 * time.Second,
		now:     time.Now,
	}
}

// Check runs a single probe.
func (c *Checker) Check() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	serverMs, err := c.source.ServerTime(ctx)
	if err != nil {
		syncFailures.Inc()
		c.logger.Warnw("clock sync probe failed", "error", err)
		return
	}
	drift := serverMs - c.now().UnixMilli()
	c.mu.Lock()
	c.lastDrift = drift
	c.mu.Unlock()
	clockDriftMs.Set(float64(drift))
	c.logger.Debugw("clock sync probe", "drift_ms", drift)
}

// LastDrift returns the most recent measured drift in milliseconds.
func (c *Checker) LastDrift() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDrift
}

// StartCron schedules the periodic probe and starts the scheduler.
func (c *Checker) StartCron() error {
	if _, err := c.cron.AddFunc(checkSchedule, c.Check); err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// StopCron stops the scheduler.
func (c *Checker) StopCron() {
	c.cron.Stop()
}
