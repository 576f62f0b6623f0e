// Copyright 2024-2026 Aiku AI

// Package metrics defines the Prometheus metrics exported by the bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "proxybot"

// Failure reasons used with ProxyFailures.
const (
	ReasonName        = "name"
	ReasonPermission  = "permission"
	ReasonWebhook     = "webhook"
	ReasonSend        = "send"
	ReasonDatabase    = "database"
	ReasonDeleteOrig  = "delete_original"
	ReasonAttachment  = "attachment"
	ReasonUnspecified = "other"
)

// Deletion modes used with Deletions.
const (
	DeleteSelfService = "self_service"
	DeleteRaw         = "raw"
)

type Metrics struct {
	ProxiedMessages  prometheus.Counter
	ProxyFailures    *prometheus.CounterVec
	ProxyDuration    prometheus.Histogram
	WebhookCreations prometheus.Counter
	WebhookRetries   prometheus.Counter
	Deletions        *prometheus.CounterVec
	LogPosts         *prometheus.CounterVec
	Commands         *prometheus.CounterVec
	GatewayEvents    *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. A nil reg creates
// unregistered metrics, which is what tests use.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProxiedMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxied_messages_total",
			Help:      "number of messages reposted as a member",
		}),
		ProxyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_failures_total",
			Help:      "number of proxy attempts that matched a member but failed",
		}, []string{"reason"}),
		ProxyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_duration_seconds",
			Help:      "time from receiving a matching message to finishing the repost",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		WebhookCreations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_creations_total",
			Help:      "number of incoming webhooks created for proxying",
		}),
		WebhookRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_retries_total",
			Help:      "number of sends retried after a cached webhook disappeared",
		}),
		Deletions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_messages_total",
			Help:      "number of proxied messages removed",
		}, []string{"mode"}),
		LogPosts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_channel_posts_total",
			Help:      "number of audit records posted to log channels",
		}, []string{"kind", "result"}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "number of commands handled",
		}, []string{"command"}),
		GatewayEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_events_total",
			Help:      "number of websocket events received",
		}, []string{"type"}),
	}
}

// ObserveProxy records the duration of a proxy attempt that started at start.
func (m *Metrics) ObserveProxy(start time.Time) {
	m.ProxyDuration.Observe(time.Since(start).Seconds())
}
