package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/spred/offline-downloader/internal/failure"
)

// Freshness is the local verdict on a token
type Freshness int

const (
	Fresh Freshness = iota
	Expired
	Unparseable
)

// String returns the string representation of Freshness
func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "Fresh"
	case Expired:
		return "Expired"
	case Unparseable:
		return "Unparseable"
	}
	return fmt.Sprintf("Freshness(%d)", int(f))
}

// UnparseablePolicy decides what a token without a readable expiry means
type UnparseablePolicy string

const (
	// TreatUnparseableAsFresh lets the server decide on tokens we cannot read
	TreatUnparseableAsFresh UnparseablePolicy = "fresh"

	// TreatUnparseableAsExpired fails fast on tokens we cannot read
	TreatUnparseableAsExpired UnparseablePolicy = "expired"
)

// DefaultUnparseablePolicy is the policy used when none is configured
const DefaultUnparseablePolicy = TreatUnparseableAsFresh

// ParsePolicy converts a configuration value into a policy
func ParsePolicy(value string) (UnparseablePolicy, error) {
	switch p := UnparseablePolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return DefaultUnparseablePolicy, nil
	case TreatUnparseableAsFresh, TreatUnparseableAsExpired:
		return p, nil
	}
	return "", fmt.Errorf("auth: unknown unparseable token policy %q", value)
}

// Validator checks token expiry against a clock
type Validator struct {
	policy UnparseablePolicy
	now    func() time.Time
	parser *jwt.Parser
}

// NewValidator creates a validator applying policy to unparseable tokens
func NewValidator(policy UnparseablePolicy) *Validator {
	if policy == "" {
		policy = DefaultUnparseablePolicy
	}
	return &Validator{
		policy: policy,
		now:    time.Now,
		parser: jwt.NewParser(),
	}
}

// WithClock returns a copy of v that reads time from now
func (v *Validator) WithClock(now func() time.Time) *Validator {
	c := *v
	c.now = now
	return &c
}

// Policy returns the configured unparseable token policy
func (v *Validator) Policy() UnparseablePolicy {
	return v.policy
}

// CheckFreshness decodes the exp claim of token. The signature is not verified.
func (v *Validator) CheckFreshness(token string) Freshness {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := v.parser.ParseUnverified(token, claims); err != nil {
		return Unparseable
	}
	if claims.ExpiresAt == nil {
		return Unparseable
	}
	if !v.now().Before(claims.ExpiresAt.Time) {
		return Expired
	}
	return Fresh
}

// Allow returns nil when a request carrying token may go to the network.
// Expired tokens, and unparseable ones under TreatUnparseableAsExpired, fail
// with failure.ErrAuthExpired. An empty token fails with failure.ErrAuthInvalid.
func (v *Validator) Allow(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("missing token: %w", failure.ErrAuthInvalid)
	}

	switch v.CheckFreshness(token) {
	case Expired:
		return failure.ErrAuthExpired
	case Unparseable:
		if v.policy == TreatUnparseableAsExpired {
			return fmt.Errorf("unreadable token expiry: %w", failure.ErrAuthExpired)
		}
	}
	return nil
}
