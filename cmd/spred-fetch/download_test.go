package main

import (
	"strings"
	"testing"

	"github.com/spred/offline-downloader/internal/failure"
	"github.com/spred/offline-downloader/internal/model"
)

func TestReport(t *testing.T) {
	if err := report(model.Completed("/tmp/a.mp4")); err != nil {
		t.Errorf("Completed outcome should not fail: %v", err)
	}
	if err := report(model.Cancelled()); err == nil {
		t.Error("Cancelled outcome should return an error")
	}

	err := report(model.Failed(failure.New(failure.ErrAuthExpired)))
	if err == nil {
		t.Fatal("Failed outcome should return an error")
	}
	if !strings.Contains(err.Error(), string(failure.AuthExpired)) {
		t.Errorf("Error %q should name the failure kind", err)
	}
	if !strings.Contains(err.Error(), failure.RemediationReLogin.Message()) {
		t.Errorf("Error %q should carry the remediation", err)
	}
}
