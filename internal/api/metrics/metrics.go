// Package metrics defines the custom Prometheus metrics of the account
// service. Metrics register with the default registry on package init via
// promauto; request-level HTTP metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// SigninsTotal counts signin attempts.
// Label result: "success" or "invalid_credentials" or "error".
var SigninsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signins_total",
		Help:      "Total number of signin attempts, by result.",
	},
	[]string{"result"},
)

// SignupsTotal counts signup attempts.
// Label result: "created", "taken", "forbidden", "invalid" or "error".
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by result.",
	},
	[]string{"result"},
)

// TokensIssuedTotal counts tokens handed out.
// Label kind: "signin" or "refresh".
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of access tokens issued.",
	},
	[]string{"kind"},
)

// TokenValidationFailuresTotal counts bearer tokens rejected by the auth gate.
// Label reason: "expired", "invalid signature" or "malformed".
var TokenValidationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validation_failures_total",
		Help:      "Total number of rejected bearer tokens, by reason.",
	},
	[]string{"reason"},
)

// AccessDecisionsTotal counts route authorization outcomes.
// Labels: route ("GET /users/me") and decision ("allow" or "deny").
var AccessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_decisions_total",
		Help:      "Total number of route authorization decisions.",
	},
	[]string{"route", "decision"},
)
