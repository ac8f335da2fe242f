// Package metrics registers the Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsStarted   prometheus.Counter
	RegistrationsCompleted prometheus.Counter
	InvitationsConsumed    prometheus.Counter
	SocialLogins           *prometheus.CounterVec
	DisposableRejections   prometheus.Counter
	EmailSendFailures      prometheus.Counter
	LoginLockouts          prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldish_registrations_started_total",
			Help: "Total number of pending registrations created",
		}),
		RegistrationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldish_registrations_completed_total",
			Help: "Total number of accounts activated through email verification",
		}),
		InvitationsConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldish_invitations_consumed_total",
			Help: "Total number of staff invitations consumed",
		}),
		SocialLogins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meldish_social_logins_total",
			Help: "Total number of social identity reconciliations by provider",
		}, []string{"provider"}),
		DisposableRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldish_disposable_email_rejections_total",
			Help: "Total number of registrations rejected for disposable email domains",
		}),
		EmailSendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldish_email_send_failures_total",
			Help: "Total number of verification email deliveries that failed",
		}),
		LoginLockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldish_login_lockouts_total",
			Help: "Total number of accounts locked after repeated login failures",
		}),
	}
}
