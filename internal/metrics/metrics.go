// Package metrics регистрирует счётчики Prometheus, которые отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "article_insights"

var (
	// ArticlesProcessed считает запросы на обработку статьи по исходу (ok или код ошибки).
	ArticlesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "articles_processed_total",
		Help:      "Article processing requests by outcome.",
	}, []string{"outcome"})

	// TokensConsumed считает списанные токены по тарифному уровню.
	TokensConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_consumed_total",
		Help:      "Tokens debited from account quotas.",
	}, []string{"tier"})

	// ArticlePersistFailures считает неудачные попытки сохранить запись истории.
	ArticlePersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "article_persist_failures_total",
		Help:      "History records that could not be saved after a successful request.",
	})

	// BillingEvents считает события платёжного провайдера.
	BillingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "billing_events_total",
		Help:      "Payment provider events by kind and outcome.",
	}, []string{"kind", "outcome"})

	// GenerationDuration измеряет длительность вызовов сервиса генерации.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Latency of translation and commentary calls.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
	}, []string{"operation", "status"})
)

// Исходы событий биллинга.
const (
	OutcomeApplied   = "applied"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)
