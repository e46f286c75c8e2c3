package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Label values shared by the engine and dashboards.
const (
	StageLogin   = "password"
	StageOTP     = "otp"
	StageRequest = "request"
	StageConsume = "consume"

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeLocked   = "locked"
	OutcomeError    = "error"
)

// Options configures collector registration.
type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// Metrics holds the credential lifecycle collectors.
type Metrics struct {
	Logins           *prometheus.CounterVec
	Lockouts         prometheus.Counter
	OTPVerifications *prometheus.CounterVec
	PasswordChanges  *prometheus.CounterVec
	PasswordResets   *prometheus.CounterVec
	DecryptFailures  prometheus.Counter
}

// New constructs the collectors and registers them with opts.Registerer.
// Collectors that are already registered are reused.
func New(opts Options) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "gocred"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	logins, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Login attempts partitioned by stage and outcome.",
	}, []string{"stage", "outcome"})
	if err != nil {
		return nil, err
	}

	lockouts, err := registerCounter(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Accounts locked after repeated authentication failures.",
	})
	if err != nil {
		return nil, err
	}

	otp, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_verifications_total",
		Help:      "One-time code verifications partitioned by result.",
	}, []string{"result"})
	if err != nil {
		return nil, err
	}

	changes, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_changes_total",
		Help:      "Password change attempts partitioned by outcome.",
	}, []string{"outcome"})
	if err != nil {
		return nil, err
	}

	resets, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Password reset operations partitioned by stage and outcome.",
	}, []string{"stage", "outcome"})
	if err != nil {
		return nil, err
	}

	decrypt, err := registerCounter(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decrypt_failures_total",
		Help:      "Protected field reads that fell back to the placeholder.",
	})
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Logins:           logins,
		Lockouts:         lockouts,
		OTPVerifications: otp,
		PasswordChanges:  changes,
		PasswordResets:   resets,
		DecryptFailures:  decrypt,
	}, nil
}

// Login records one login attempt.
func (m *Metrics) Login(stage, outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(stage, outcome).Inc()
}

// Lockout records an account crossing the failure threshold.
func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.Lockouts.Inc()
}

// OTPVerification records a code verification result.
func (m *Metrics) OTPVerification(result string) {
	if m == nil {
		return
	}
	m.OTPVerifications.WithLabelValues(result).Inc()
}

// PasswordChange records a change attempt.
func (m *Metrics) PasswordChange(outcome string) {
	if m == nil {
		return
	}
	m.PasswordChanges.WithLabelValues(outcome).Inc()
}

// PasswordReset records a reset request or consumption.
func (m *Metrics) PasswordReset(stage, outcome string) {
	if m == nil {
		return
	}
	m.PasswordResets.WithLabelValues(stage, outcome).Inc()
}

// DecryptFailure records a placeholder substitution.
func (m *Metrics) DecryptFailure() {
	if m == nil {
		return
	}
	m.DecryptFailures.Inc()
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing %s collector has unexpected type %T", opts.Name, already.ExistingCollector)
		}
		return nil, fmt.Errorf("register %s collector: %w", opts.Name, err)
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, opts prometheus.CounterOpts) (prometheus.Counter, error) {
	counter := prometheus.NewCounter(opts)
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing %s collector has unexpected type %T", opts.Name, already.ExistingCollector)
		}
		return nil, fmt.Errorf("register %s collector: %w", opts.Name, err)
	}
	return counter, nil
}
