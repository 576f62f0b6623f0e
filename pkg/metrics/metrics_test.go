// Copyright 2024-2026 Aiku AI

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegisters(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ProxiedMessages.Inc()
	m.ProxyFailures.WithLabelValues(ReasonPermission).Inc()
	m.Deletions.WithLabelValues(DeleteRaw).Add(2)

	if got := testutil.ToFloat64(m.ProxiedMessages); got != 1 {
		t.Errorf("proxied messages = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Deletions.WithLabelValues(DeleteRaw)); got != 2 {
		t.Errorf("raw deletions = %v, want 2", got)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("no metric families registered")
	}
}

func TestNewWithoutRegistry(t *testing.T) {
	t.Parallel()
	a := New(nil)
	b := New(nil)
	a.ProxiedMessages.Inc()
	if testutil.ToFloat64(b.ProxiedMessages) != 0 {
		t.Error("unregistered metrics should be independent")
	}
}
