package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Metrics struct {
	RequestCount    int64            `json:"request_count"`
	RequestDuration time.Duration    `json:"avg_request_duration_ns"`
	ActiveRequests  int64            `json:"active_requests"`
	ErrorCount      int64            `json:"error_count"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	Endpoints       map[string]int64 `json:"endpoint_calls"`
	StartTime       time.Time        `json:"start_time"`
	LastRequest     time.Time        `json:"last_request"`
}

type HealthCheck struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Required bool      `json:"required"`
	Message  string    `json:"message,omitempty"`
	LastRun  time.Time `json:"last_run"`
}

type HealthCheckFunc func(ctx context.Context) error

type registeredCheck struct {
	fn       HealthCheckFunc
	required bool
}

// Registry collects request metrics and readiness checks for one server.
type Registry struct {
	mu            sync.RWMutex
	metrics       Metrics
	totalDuration time.Duration

	checksMu     sync.RWMutex
	checks       map[string]registeredCheck
	sections     map[string]func() interface{}
	checkTimeout time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		metrics: Metrics{
			StatusCodes: make(map[string]int64),
			Endpoints:   make(map[string]int64),
			StartTime:   time.Now(),
		},
		checks:       make(map[string]registeredCheck),
		sections:     make(map[string]func() interface{}),
		checkTimeout: 5 * time.Second,
	}
}

// RegisterHealthCheck adds a readiness check. A failing optional check is
// reported but does not make the server unready.
func (r *Registry) RegisterHealthCheck(name string, required bool, fn HealthCheckFunc) {
	r.checksMu.Lock()
	defer r.checksMu.Unlock()
	r.checks[name] = registeredCheck{fn: fn, required: required}
}

// AddSection exposes extra stats, such as cache counters, on the metrics
// endpoint.
func (r *Registry) AddSection(name string, fn func() interface{}) {
	r.checksMu.Lock()
	defer r.checksMu.Unlock()
	r.sections[name] = fn
}

func (r *Registry) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		r.mu.Lock()
		r.metrics.ActiveRequests++
		r.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()
		if c.FullPath() == "" {
			endpoint = c.Request.Method + " unmatched"
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		r.metrics.RequestCount++
		r.metrics.ActiveRequests--
		r.totalDuration += duration
		r.metrics.RequestDuration = r.totalDuration / time.Duration(r.metrics.RequestCount)
		r.metrics.LastRequest = time.Now()
		if statusCode >= 400 {
			r.metrics.ErrorCount++
		}
		r.metrics.StatusCodes[strconv.Itoa(statusCode)]++
		r.metrics.Endpoints[endpoint]++
	}
}

func (r *Registry) Snapshot() Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := r.metrics
	snapshot.StatusCodes = make(map[string]int64, len(r.metrics.StatusCodes))
	snapshot.Endpoints = make(map[string]int64, len(r.metrics.Endpoints))
	for k, v := range r.metrics.StatusCodes {
		snapshot.StatusCodes[k] = v
	}
	for k, v := range r.metrics.Endpoints {
		snapshot.Endpoints[k] = v
	}
	return snapshot
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc_mb"`
	TotalAlloc   uint64 `json:"total_alloc_mb"`
	Sys          uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	NextGC       uint64 `json:"next_gc_mb"`
	GCPauseTotal string `json:"gc_pause_total"`
}

func (r *Registry) SystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Uptime: time.Since(r.metrics.StartTime).Round(time.Second).String(),
		MemoryUsage: MemoryStats{
			Alloc:        bToMb(m.Alloc),
			TotalAlloc:   bToMb(m.TotalAlloc),
			Sys:          bToMb(m.Sys),
			NumGC:        m.NumGC,
			NextGC:       bToMb(m.NextGC),
			GCPauseTotal: time.Duration(m.PauseTotalNs).String(),
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// RunHealthChecks runs every registered check and reports whether all
// required ones passed.
func (r *Registry) RunHealthChecks(ctx context.Context) ([]HealthCheck, bool) {
	r.checksMu.RLock()
	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	checks := make(map[string]registeredCheck, len(r.checks))
	for k, v := range r.checks {
		checks[k] = v
	}
	r.checksMu.RUnlock()
	sort.Strings(names)

	ready := true
	results := make([]HealthCheck, 0, len(names))
	for _, name := range names {
		check := checks[name]
		checkCtx, cancel := context.WithTimeout(ctx, r.checkTimeout)
		err := check.fn(checkCtx)
		cancel()

		result := HealthCheck{Name: name, Status: "healthy", Required: check.required, LastRun: time.Now()}
		if err != nil {
			result.Status = "unhealthy"
			result.Message = err.Error()
			if check.required {
				ready = false
			}
		}
		results = append(results, result)
	}
	return results, ready
}

func (r *Registry) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"application": r.Snapshot(),
			"system":      r.SystemMetrics(),
			"timestamp":   time.Now(),
		}

		r.checksMu.RLock()
		for name, fn := range r.sections {
			response[name] = fn()
		}
		r.checksMu.RUnlock()

		c.JSON(http.StatusOK, response)
	}
}

// HealthHandler is the plain liveness check used by the SPA.
func (r *Registry) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (r *Registry) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks, ready := r.RunHealthChecks(c.Request.Context())

		status := http.StatusOK
		label := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			label = "not ready"
		}
		c.JSON(status, gin.H{
			"status":    label,
			"checks":    checks,
			"timestamp": time.Now(),
		})
	}
}

func (r *Registry) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
			"uptime":    time.Since(r.metrics.StartTime).Round(time.Second).String(),
		})
	}
}
