package metrics

import (
	"net/http"

	"beatwise/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the rewards service
type Metrics struct {
	registry *prometheus.Registry

	PointsCredited      *prometheus.CounterVec
	Credits             *prometheus.CounterVec
	VersionConflicts    prometheus.Counter
	TasksCompleted      *prometheus.CounterVec
	VerificationsFailed *prometheus.CounterVec
	GamesPlayed         prometheus.Counter
	Referrals           prometheus.Counter
	CacheRequests       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PointsCredited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beatwise_points_credited_total",
			Help: "Points credited, by category",
		}, []string{"category"}),
		Credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beatwise_credits_total",
			Help: "Credit operations applied, by category",
		}, []string{"category"}),
		VersionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beatwise_version_conflicts_total",
			Help: "Account saves rejected by the version check",
		}),
		TasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beatwise_tasks_completed_total",
			Help: "Social tasks completed, by task",
		}, []string{"task"}),
		VerificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beatwise_verifications_failed_total",
			Help: "Membership checks that failed or timed out, by platform",
		}, []string{"platform"}),
		GamesPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beatwise_games_played_total",
			Help: "Games counted against the daily quota",
		}),
		Referrals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beatwise_referrals_total",
			Help: "Referrals applied",
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beatwise_leaderboard_cache_requests_total",
			Help: "Leaderboard page cache lookups, by result",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PointsCredited,
		m.Credits,
		m.VersionConflicts,
		m.TasksCompleted,
		m.VerificationsFailed,
		m.GamesPlayed,
		m.Referrals,
		m.CacheRequests,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Credited(category entity.Category, amount int64) {
	m.PointsCredited.WithLabelValues(string(category)).Add(float64(amount))
	m.Credits.WithLabelValues(string(category)).Inc()
}

func (m *Metrics) Conflict() {
	m.VersionConflicts.Inc()
}

func (m *Metrics) TaskCompleted(kind entity.TaskKind) {
	m.TasksCompleted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) VerificationFailed(platform entity.Platform) {
	m.VerificationsFailed.WithLabelValues(string(platform)).Inc()
}

func (m *Metrics) GamePlayed() {
	m.GamesPlayed.Inc()
}

func (m *Metrics) Referred() {
	m.Referrals.Inc()
}

func (m *Metrics) CacheHit() {
	m.CacheRequests.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	m.CacheRequests.WithLabelValues("miss").Inc()
}
