// Package metrics exposes prometheus collectors for session and credential
// lifecycle events. Registration is explicit so embedders control the
// registry; the engine treats a nil *Metrics as disabled.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Validation result labels.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultRevoked = "revoked"
)

// Metrics bundles the lifecycle collectors.
type Metrics struct {
	sessionsCreated   prometheus.Counter
	sessionsDestroyed prometheus.Counter
	tokensIssued      *prometheus.CounterVec
	tokenValidations  *prometheus.CounterVec
	revocations       prometheus.Counter
	activeSessions    prometheus.Gauge
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_sessions_created_total",
			Help: "Sessions created at login.",
		}),
		sessionsDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_sessions_destroyed_total",
			Help: "Sessions destroyed by logout, logout-all, or sweep.",
		}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_tokens_issued_total",
			Help: "Credentials issued, by type.",
		}, []string{"type"}),
		tokenValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_token_validations_total",
			Help: "Access credential validations, by result.",
		}, []string{"result"}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_revocations_total",
			Help: "Access credentials added to the revocation list.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "authcore_active_sessions",
			Help: "Active sessions at the last statistics read.",
		}),
	}

	reg.MustRegister(
		m.sessionsCreated,
		m.sessionsDestroyed,
		m.tokensIssued,
		m.tokenValidations,
		m.revocations,
		m.activeSessions,
	)
	return m
}

// SessionCreated records a successful session write.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

// SessionsDestroyed records n destroyed sessions.
func (m *Metrics) SessionsDestroyed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsDestroyed.Add(float64(n))
}

// TokenIssued records a minted credential by type ("access" or "refresh").
func (m *Metrics) TokenIssued(tokenType string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(tokenType).Inc()
}

// TokenValidation records a validation outcome.
func (m *Metrics) TokenValidation(result string) {
	if m == nil {
		return
	}
	m.tokenValidations.WithLabelValues(result).Inc()
}

// Revoked records a new revocation entry.
func (m *Metrics) Revoked() {
	if m == nil {
		return
	}
	m.revocations.Inc()
}

// ObserveActiveSessions mirrors the latest statistics total onto the gauge.
func (m *Metrics) ObserveActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
