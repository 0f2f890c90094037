package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name       string
		indexes    map[string]IndexPinger
		embedding  EmbeddingChecker
		wantStatus Status
		wantChecks map[string]CheckResult
	}{
		{
			name:       "all healthy",
			indexes:    map[string]IndexPinger{"index": &mockPinger{}},
			embedding:  &mockChecker{},
			wantStatus: Healthy,
			wantChecks: map[string]CheckResult{"index": CheckOK, "embedding": CheckOK},
		},
		{
			name:       "embedding down degrades",
			indexes:    map[string]IndexPinger{"index": &mockPinger{}},
			embedding:  &mockChecker{err: down},
			wantStatus: Degraded,
			wantChecks: map[string]CheckResult{"index": CheckOK, "embedding": CheckError},
		},
		{
			name: "one index down degrades",
			indexes: map[string]IndexPinger{
				"primary": &mockPinger{err: down},
				"archive": &mockPinger{},
			},
			embedding:  &mockChecker{},
			wantStatus: Degraded,
			wantChecks: map[string]CheckResult{
				"primary": CheckError, "archive": CheckOK, "embedding": CheckOK,
			},
		},
		{
			name: "all indexes down is unhealthy",
			indexes: map[string]IndexPinger{
				"primary": &mockPinger{err: down},
				"archive": &mockPinger{err: down},
			},
			embedding:  &mockChecker{},
			wantStatus: Unhealthy,
			wantChecks: map[string]CheckResult{
				"primary": CheckError, "archive": CheckError, "embedding": CheckOK,
			},
		},
		{
			name:       "nil embedding is absent from checks",
			indexes:    map[string]IndexPinger{"index": &mockPinger{}},
			embedding:  nil,
			wantStatus: Healthy,
			wantChecks: map[string]CheckResult{"index": CheckOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := New(tt.indexes, tt.embedding).Check(context.Background())
			if report.Status != tt.wantStatus {
				t.Errorf("status: got %q, want %q", report.Status, tt.wantStatus)
			}
			if len(report.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks: got %v, want %v", report.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if report.Checks[name] != want {
					t.Errorf("check %q: got %q, want %q", name, report.Checks[name], want)
				}
			}
		})
	}
}
