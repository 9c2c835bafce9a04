package handlers

import (
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"frameworks/api_licensing/internal/enforcement"
	"frameworks/api_licensing/internal/ledger"
	"frameworks/api_licensing/internal/registry"
	"frameworks/api_licensing/internal/resolver"
	"frameworks/api_licensing/internal/tiers"
	"frameworks/api_licensing/pkg/cache"
	"frameworks/api_licensing/pkg/config"
	"frameworks/api_licensing/pkg/logging"
)

var (
	db        *sql.DB
	logger    logging.Logger
	metrics   *StewardMetrics
	catalogue *registry.Store
	tierStore *tiers.Store
	licenses  *ledger.Store
	features  *resolver.Resolver
	enforcer  *enforcement.Enforcer
	events    *EventPublisher
)

// StewardMetrics holds custom licensing metrics shared by handlers and jobs
type StewardMetrics struct {
	Resolutions     *prometheus.CounterVec   // outcome
	ResolutionTime  *prometheus.HistogramVec // outcome
	CacheEvents     *prometheus.CounterVec   // event
	Decisions       *prometheus.CounterVec   // surface, outcome
	Transactions    *prometheus.CounterVec   // type, status
	ReplenishEvents *prometheus.CounterVec   // result
	PoolSeats       *prometheus.GaugeVec     // tenant_id, tier_id, state

	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections *prometheus.GaugeVec
}

// Init initializes the handlers with database, logger, metrics and event
// publisher, and builds the store / resolver / enforcer stack on top of them
func Init(database *sql.DB, log logging.Logger, stewardMetrics *StewardMetrics, publisher *EventPublisher) {
	db = database
	logger = log
	metrics = stewardMetrics
	events = publisher
	if events == nil {
		events = NewEventPublisher(nil, nil, log)
	}

	catalogue = registry.NewStore(database, log)
	tierStore = tiers.NewStore(database, log)
	licenses = ledger.NewStore(database, log)

	ttl := time.Duration(config.GetEnvInt("FEATURE_CACHE_TTL", 300)) * time.Second
	features = resolver.New(catalogue, tierStore, licenses, resolver.Config{
		CacheTTL:   ttl,
		CacheHooks: cacheHooks(stewardMetrics),
	}, log)
	enforcer = enforcement.New(features, log)
}

// FeatureGate returns the enforcement middleware bound to the resolver stack
// built by Init. Mount it after the auth middleware.
func FeatureGate() gin.HandlerFunc {
	return enforcement.Middleware(enforcer, logger)
}

func cacheHooks(m *StewardMetrics) cache.MetricsHooks {
	if m == nil || m.CacheEvents == nil {
		return cache.MetricsHooks{}
	}
	count := func(event string) func(map[string]string) {
		return func(map[string]string) { m.CacheEvents.WithLabelValues(event).Inc() }
	}
	return cache.MetricsHooks{
		OnHit:   count("hit"),
		OnMiss:  count("miss"),
		OnStale: count("stale"),
		OnStore: count("store"),
		OnError: count("error"),
	}
}

func recordResolution(outcome string, start time.Time) {
	if metrics == nil {
		return
	}
	if metrics.Resolutions != nil {
		metrics.Resolutions.WithLabelValues(outcome).Inc()
	}
	if metrics.ResolutionTime != nil {
		metrics.ResolutionTime.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

func recordDecision(surface, outcome string) {
	if metrics == nil || metrics.Decisions == nil {
		return
	}
	metrics.Decisions.WithLabelValues(surface, outcome).Inc()
}

func recordTransaction(txType, status string) {
	if metrics == nil || metrics.Transactions == nil {
		return
	}
	metrics.Transactions.WithLabelValues(txType, status).Inc()
}

func recordReplenish(result string) {
	if metrics == nil || metrics.ReplenishEvents == nil {
		return
	}
	metrics.ReplenishEvents.WithLabelValues(result).Inc()
}

func recordPoolSeats(tenantID, tierID string, total, assigned, available int) {
	if metrics == nil || metrics.PoolSeats == nil {
		return
	}
	metrics.PoolSeats.WithLabelValues(tenantID, tierID, "total").Set(float64(total))
	metrics.PoolSeats.WithLabelValues(tenantID, tierID, "assigned").Set(float64(assigned))
	metrics.PoolSeats.WithLabelValues(tenantID, tierID, "available").Set(float64(available))
}

func recordPoolAvailable(tenantID, tierID string, available int) {
	if metrics == nil || metrics.PoolSeats == nil {
		return
	}
	metrics.PoolSeats.WithLabelValues(tenantID, tierID, "available").Set(float64(available))
}
