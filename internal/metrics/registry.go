package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var defaultDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

type providerKey struct {
	Provider      string
	Operation     string
	Status        string
	ErrorCategory string
}

type pipelineKey struct {
	Phase  string
	Status string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	count   uint64
	sum     float64
}

func newHistogram(buckets []float64) *histogram {
	cloned := append([]float64(nil), buckets...)
	return &histogram{
		buckets: cloned,
		counts:  make([]uint64, len(cloned)),
	}
}

func (h *histogram) Observe(value float64) {
	h.count++
	h.sum += value
	for i, upper := range h.buckets {
		if value <= upper {
			h.counts[i]++
		}
	}
}

type registry struct {
	mu sync.Mutex

	providerRequests map[providerKey]uint64
	providerLatency  map[providerKey]*histogram

	pipelineRequests map[pipelineKey]uint64
	pipelineLatency  map[pipelineKey]*histogram
}

func newRegistry() *registry {
	return &registry{
		providerRequests: make(map[providerKey]uint64),
		providerLatency:  make(map[providerKey]*histogram),
		pipelineRequests: make(map[pipelineKey]uint64),
		pipelineLatency:  make(map[pipelineKey]*histogram),
	}
}

var globalRegistry = newRegistry()

func RecordProviderCall(provider string, operation string, status string, errorCategory string, duration time.Duration) {
	globalRegistry.recordProviderCall(providerKey{
		Provider:      provider,
		Operation:     operation,
		Status:        status,
		ErrorCategory: errorCategory,
	}, duration)
}

func RecordPipelineRun(phase string, status string, duration time.Duration) {
	globalRegistry.recordPipelineRun(pipelineKey{
		Phase:  phase,
		Status: status,
	}, duration)
}

func PrometheusText() string {
	return globalRegistry.renderPrometheus()
}

func ResetForTests() {
	globalRegistry = newRegistry()
}

func (r *registry) recordProviderCall(key providerKey, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providerRequests[key]++
	h, ok := r.providerLatency[key]
	if !ok {
		h = newHistogram(defaultDurationBuckets)
		r.providerLatency[key] = h
	}
	h.Observe(duration.Seconds())
}

func (r *registry) recordPipelineRun(key pipelineKey, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pipelineRequests[key]++
	h, ok := r.pipelineLatency[key]
	if !ok {
		h = newHistogram(defaultDurationBuckets)
		r.pipelineLatency[key] = h
	}
	h.Observe(duration.Seconds())
}

func (r *registry) renderPrometheus() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var builder strings.Builder

	builder.WriteString("# HELP aiops_provider_requests_total Total model-backend requests.\n")
	builder.WriteString("# TYPE aiops_provider_requests_total counter\n")
	providerReqKeys := make([]providerKey, 0, len(r.providerRequests))
	for key := range r.providerRequests {
		providerReqKeys = append(providerReqKeys, key)
	}
	sort.Slice(providerReqKeys, func(i, j int) bool {
		return providerReqKeys[i].String() < providerReqKeys[j].String()
	})
	for _, key := range providerReqKeys {
		builder.WriteString(fmt.Sprintf(
			"aiops_provider_requests_total{provider=%q,operation=%q,status=%q,error_category=%q} %d\n",
			key.Provider, key.Operation, key.Status, key.ErrorCategory, r.providerRequests[key],
		))
	}

	builder.WriteString("# HELP aiops_provider_request_duration_seconds Model-backend request duration in seconds.\n")
	builder.WriteString("# TYPE aiops_provider_request_duration_seconds histogram\n")
	providerLatencyKeys := make([]providerKey, 0, len(r.providerLatency))
	for key := range r.providerLatency {
		providerLatencyKeys = append(providerLatencyKeys, key)
	}
	sort.Slice(providerLatencyKeys, func(i, j int) bool {
		return providerLatencyKeys[i].String() < providerLatencyKeys[j].String()
	})
	for _, key := range providerLatencyKeys {
		writeHistogram(
			&builder,
			"aiops_provider_request_duration_seconds",
			map[string]string{
				"provider":       key.Provider,
				"operation":      key.Operation,
				"status":         key.Status,
				"error_category": key.ErrorCategory,
			},
			r.providerLatency[key],
		)
	}

	builder.WriteString("# HELP aiops_pipeline_runs_total Total diagnosis pipeline runs.\n")
	builder.WriteString("# TYPE aiops_pipeline_runs_total counter\n")
	pipelineReqKeys := make([]pipelineKey, 0, len(r.pipelineRequests))
	for key := range r.pipelineRequests {
		pipelineReqKeys = append(pipelineReqKeys, key)
	}
	sort.Slice(pipelineReqKeys, func(i, j int) bool {
		return pipelineReqKeys[i].String() < pipelineReqKeys[j].String()
	})
	for _, key := range pipelineReqKeys {
		builder.WriteString(fmt.Sprintf(
			"aiops_pipeline_runs_total{phase=%q,status=%q} %d\n",
			key.Phase, key.Status, r.pipelineRequests[key],
		))
	}

	builder.WriteString("# HELP aiops_pipeline_run_duration_seconds Diagnosis pipeline run duration in seconds.\n")
	builder.WriteString("# TYPE aiops_pipeline_run_duration_seconds histogram\n")
	pipelineLatencyKeys := make([]pipelineKey, 0, len(r.pipelineLatency))
	for key := range r.pipelineLatency {
		pipelineLatencyKeys = append(pipelineLatencyKeys, key)
	}
	sort.Slice(pipelineLatencyKeys, func(i, j int) bool {
		return pipelineLatencyKeys[i].String() < pipelineLatencyKeys[j].String()
	})
	for _, key := range pipelineLatencyKeys {
		writeHistogram(
			&builder,
			"aiops_pipeline_run_duration_seconds",
			map[string]string{
				"phase":  key.Phase,
				"status": key.Status,
			},
			r.pipelineLatency[key],
		)
	}

	return builder.String()
}

func writeHistogram(builder *strings.Builder, metricName string, labels map[string]string, h *histogram) {
	cumulative := uint64(0)
	for i, bucket := range h.buckets {
		cumulative = h.counts[i]
		builder.WriteString(fmt.Sprintf(
			"%s_bucket{%s,le=%q} %d\n",
			metricName,
			formatLabels(labels),
			formatFloat(bucket),
			cumulative,
		))
	}
	builder.WriteString(fmt.Sprintf(
		"%s_bucket{%s,le=\"+Inf\"} %d\n",
		metricName,
		formatLabels(labels),
		h.count,
	))
	builder.WriteString(fmt.Sprintf("%s_sum{%s} %g\n", metricName, formatLabels(labels), h.sum))
	builder.WriteString(fmt.Sprintf("%s_count{%s} %d\n", metricName, formatLabels(labels), h.count))
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", key, labels[key]))
	}
	return strings.Join(parts, ",")
}

func formatFloat(value float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", value), "0"), ".")
}

func (k providerKey) String() string {
	return strings.Join([]string{k.Provider, k.Operation, k.Status, k.ErrorCategory}, "|")
}

func (k pipelineKey) String() string {
	return strings.Join([]string{k.Phase, k.Status}, "|")
}
