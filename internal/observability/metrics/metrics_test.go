package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPortalMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPortalMetrics(reg)
	m.ObserveAPIRequest("bookings", 200, 0.2)
	m.ObserveAPIRequest("bookings", 0, 0.1)
	m.ObserveFetch("ok", 7)
	m.ObserveFetch("error", 0)
	m.ObserveDelete("ok")
	m.ObserveMessage("invalid_phone")
	m.ObserveSession("login")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	requests := byName["office_api_requests_total"]
	if requests == nil || len(requests.Metric) != 2 {
		t.Fatalf("expected two request series, got %+v", requests)
	}
	for _, metric := range requests.Metric {
		for _, lp := range metric.Label {
			if lp.GetName() == "status" && lp.GetValue() != "200" && lp.GetValue() != "error" {
				t.Fatalf("unexpected status label %q", lp.GetValue())
			}
		}
	}

	gauge := byName["office_cache_records"]
	if gauge == nil || gauge.Metric[0].GetGauge().GetValue() != 7 {
		t.Fatalf("expected cache gauge 7, got %+v", gauge)
	}
}

func TestPortalMetricsDefaultRegistry(t *testing.T) {
	m := NewPortalMetrics(nil)
	m.ObserveFetch("ok", 1)
	prometheus.DefaultRegisterer.Unregister(m.apiRequests)
	prometheus.DefaultRegisterer.Unregister(m.apiLatency)
	prometheus.DefaultRegisterer.Unregister(m.fetchTotal)
	prometheus.DefaultRegisterer.Unregister(m.cachedRecords)
	prometheus.DefaultRegisterer.Unregister(m.deleteTotal)
	prometheus.DefaultRegisterer.Unregister(m.messagesTotal)
	prometheus.DefaultRegisterer.Unregister(m.sessionEvents)
}

func TestPortalMetricsNilSafe(t *testing.T) {
	var m *PortalMetrics
	m.ObserveAPIRequest("bookings", 500, 0.1)
	m.ObserveFetch("ok", 3)
	m.ObserveDelete("error")
	m.ObserveMessage("ok")
	m.ObserveSession("logout")
}
