package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/spred/offline-downloader/internal/failure"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func TestCheckFreshness(t *testing.T) {
	v := NewValidator(TreatUnparseableAsFresh).WithClock(func() time.Time { return testNow })

	tests := []struct {
		name     string
		token    string
		expected Freshness
	}{
		{
			name:     "fresh",
			token:    signToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))}),
			expected: Fresh,
		},
		{
			name:     "expired five seconds ago",
			token:    signToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(-5 * time.Second))}),
			expected: Expired,
		},
		{
			name:     "expires now",
			token:    signToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow)}),
			expected: Expired,
		},
		{
			name:     "no exp claim",
			token:    signToken(t, jwt.RegisteredClaims{Subject: "user-1"}),
			expected: Unparseable,
		},
		{name: "garbage", token: "not-a-token", expected: Unparseable},
		{name: "two segments", token: "abc.def", expected: Unparseable},
		{name: "empty", token: "", expected: Unparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.CheckFreshness(tt.token); got != tt.expected {
				t.Errorf("CheckFreshness() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestAllowAppliesPolicy(t *testing.T) {
	expired := signToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(-5 * time.Second))})
	fresh := signToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Minute))})

	tests := []struct {
		name    string
		policy  UnparseablePolicy
		token   string
		wantErr error
	}{
		{"fresh token", TreatUnparseableAsFresh, fresh, nil},
		{"expired token", TreatUnparseableAsFresh, expired, failure.ErrAuthExpired},
		{"unparseable lenient", TreatUnparseableAsFresh, "opaque-token", nil},
		{"unparseable strict", TreatUnparseableAsExpired, "opaque-token", failure.ErrAuthExpired},
		{"empty token", TreatUnparseableAsFresh, "", failure.ErrAuthInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(tt.policy).WithClock(func() time.Time { return testNow })
			err := v.Allow(tt.token)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Allow() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Allow() error = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		value    string
		expected UnparseablePolicy
		wantErr  bool
	}{
		{"", DefaultUnparseablePolicy, false},
		{"fresh", TreatUnparseableAsFresh, false},
		{" Expired ", TreatUnparseableAsExpired, false},
		{"sometimes", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParsePolicy(%q) = %q, expected %q", tt.value, got, tt.expected)
		}
	}
}

func TestDefaultPolicy(t *testing.T) {
	if NewValidator("").Policy() != TreatUnparseableAsFresh {
		t.Error("Empty policy should default to treating unparseable tokens as fresh")
	}
}
