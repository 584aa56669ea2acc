package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal       uint64
	RequestsInProgress  int64
	RequestsSuccess     uint64
	RequestsFailed      uint64
	EvaluationsTotal    uint64
	EvaluationsAI       uint64
	EvaluationsFallback uint64
	PersistFailures     uint64
	StartTime           time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// RecordEvaluation counts one finished evaluation by the path that produced it
func (m *Metrics) RecordEvaluation(usedAI bool) {
	atomic.AddUint64(&m.EvaluationsTotal, 1)
	if usedAI {
		atomic.AddUint64(&m.EvaluationsAI, 1)
	} else {
		atomic.AddUint64(&m.EvaluationsFallback, 1)
	}
}

// RecordPersistFailure counts a history write that failed
func (m *Metrics) RecordPersistFailure() {
	atomic.AddUint64(&m.PersistFailures, 1)
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"requests_total":           atomic.LoadUint64(&m.RequestsTotal),
		"requests_in_progress":     atomic.LoadInt64(&m.RequestsInProgress),
		"requests_success":         atomic.LoadUint64(&m.RequestsSuccess),
		"requests_failed":          atomic.LoadUint64(&m.RequestsFailed),
		"evaluations_total":        atomic.LoadUint64(&m.EvaluationsTotal),
		"evaluations_ai":           atomic.LoadUint64(&m.EvaluationsAI),
		"evaluations_fallback":     atomic.LoadUint64(&m.EvaluationsFallback),
		"history_persist_failures": atomic.LoadUint64(&m.PersistFailures),
		"uptime_seconds":           time.Since(m.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&m.RequestsTotal, 1)
		atomic.AddInt64(&m.RequestsInProgress, 1)
		defer atomic.AddInt64(&m.RequestsInProgress, -1)

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			atomic.AddUint64(&m.RequestsSuccess, 1)
		} else {
			atomic.AddUint64(&m.RequestsFailed, 1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.Snapshot())
}
