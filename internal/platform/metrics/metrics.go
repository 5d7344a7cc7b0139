package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersRegistered        prometheus.Counter
	ClaimsCreated          prometheus.Counter
	VotesCast              prometheus.Counter
	VerificationsSubmitted prometheus.Counter
	VerificationsApproved  prometheus.Counter
	WeightFallbacks        prometheus.Counter
	OTPSendFailures        prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_users_registered_total",
			Help: "Total number of accounts that completed OTP verification",
		}),
		ClaimsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_claims_created_total",
			Help: "Total number of claims submitted",
		}),
		VotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_votes_cast_total",
			Help: "Total number of votes accepted",
		}),
		VerificationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_verification_requests_submitted_total",
			Help: "Total number of credential verification requests submitted",
		}),
		VerificationsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_verifications_approved_total",
			Help: "Total number of credential verification requests approved",
		}),
		WeightFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_credibility_weight_fallback_total",
			Help: "Votes weighted with the default score because the voter's vector was unavailable",
		}),
		OTPSendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_otp_send_failures_total",
			Help: "OTP emails that could not be delivered",
		}),
	}
}
