// Package metrics exposes Prometheus collectors for moderation and XP activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CensorMatches counts matched words, labeled by tier index.
	CensorMatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scradd_censor_matches_total",
		Help: "Banned words matched by the censor",
	}, []string{"tier"})

	// MessagesModerated counts flagged messages, labeled by reason.
	MessagesModerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scradd_messages_moderated_total",
		Help: "Messages flagged by automod",
	}, []string{"reason"}) // reason = "language", "invite", "link", "nickname"

	StrikesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scradd_strikes_issued_total",
		Help: "Sum of strike weight issued",
	})

	// StrikeActions counts enforcement outcomes: "mute", "ban".
	StrikeActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scradd_strike_actions_total",
		Help: "Mutes and bans triggered by strike totals",
	}, []string{"action"})

	XPGranted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scradd_xp_granted_total",
		Help: "XP granted for messages",
	})

	LevelUps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scradd_level_ups_total",
		Help: "Members reaching a new level",
	})

	AuditEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scradd_audit_events_total",
		Help: "Audit log entries written",
	}, []string{"level"})
)

func init() {
	prometheus.MustRegister(
		CensorMatches,
		MessagesModerated,
		StrikesIssued,
		StrikeActions,
		XPGranted,
		LevelUps,
		AuditEvents,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
