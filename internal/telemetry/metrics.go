package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bot's instruments. They live on a private registry so that
// several instances (tests, CLI) never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	EventsTotal      *prometheus.CounterVec
	HandlerErrors    *prometheus.CounterVec
	HandlerDuration  *prometheus.HistogramVec
	TaskActivity     *prometheus.CounterVec
	RemindersSent    prometheus.Counter
	ActiveDialogues  prometheus.Gauge
	RecurringCreated prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_events_total",
				Help: "Inbound events by kind and route",
			},
			[]string{"kind", "route"},
		),
		HandlerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_handler_errors_total",
				Help: "Handler failures by route",
			},
			[]string{"route"},
		),
		HandlerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "todo_handler_duration_seconds",
				Help:    "Time spent handling one event",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind"},
		),
		TaskActivity: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_task_activity_total",
				Help: "Task lifecycle events (created, completed, deleted)",
			},
			[]string{"kind"},
		),
		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "todo_reminders_sent_total",
			Help: "Daily reminders delivered",
		}),
		ActiveDialogues: factory.NewGauge(prometheus.GaugeOpts{
			Name: "todo_active_dialogues",
			Help: "Users currently inside a multi-step dialogue",
		}),
		RecurringCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "todo_recurring_materialized_total",
			Help: "Tasks produced from recurring definitions",
		}),
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
