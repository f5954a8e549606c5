package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/response"
)

const (
	metricsInterval = 7 * time.Second
	pingTimeout     = 2 * time.Second
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves health checks and streams host and runtime metrics.
type SystemHandler struct {
	db        Pinger
	rdb       *redis.Client
	storage   string
	startTime time.Time
	proc      *process.Process
	log       zerolog.Logger
}

// NewSystemHandler creates a SystemHandler. db may be nil for the memory store.
func NewSystemHandler(db Pinger, rdb *redis.Client, storage string, log zerolog.Logger) *SystemHandler {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn().Err(err).Msg("Process metrics unavailable")
	}
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		storage:   storage,
		startTime: time.Now(),
		proc:      proc,
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type dependencyStatus struct {
	Storage string `json:"storage"`
	DB      string `json:"db"`
	Redis   string `json:"redis"`
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// OS
	CPUPercent     float64 `json:"cpu_percent"`
	MemUsedBytes   uint64  `json:"mem_used_bytes"`
	MemTotalBytes  uint64  `json:"mem_total_bytes"`
	MemPercent     float64 `json:"mem_percent"`
	DiskUsedBytes  uint64  `json:"disk_used_bytes"`
	DiskTotalBytes uint64  `json:"disk_total_bytes"`
	DiskPercent    float64 `json:"disk_percent"`
	LoadAvg1       float64 `json:"load_avg_1"`
	LoadAvg5       float64 `json:"load_avg_5"`
	LoadAvg15      float64 `json:"load_avg_15"`

	// Go application
	Goroutines     int     `json:"goroutines"`
	HeapAlloc      uint64  `json:"heap_alloc"`
	NumGC          uint32  `json:"num_gc"`
	AppRSSBytes    uint64  `json:"app_rss_bytes"`
	AppCPUPercent  float64 `json:"app_cpu_percent"`
	GoVersion      string  `json:"go_version"`
	NumCPU         int     `json:"num_cpu"`
	CPUModel       string  `json:"cpu_model"`
	QueueViolation int64   `json:"queue_violations"`
}

// Health godoc
// GET /api/v1/health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	deps := dependencyStatus{Storage: h.storage, DB: "disabled", Redis: "disabled"}
	healthy := true
	if h.db != nil {
		deps.DB = "ok"
		if err := h.db.Ping(ctx); err != nil {
			deps.DB = "down"
			healthy = false
			h.log.Warn().Err(err).Msg("Database ping failed")
		}
	}
	if h.rdb != nil {
		deps.Redis = "ok"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			deps.Redis = "down"
			healthy = false
			h.log.Warn().Err(err).Msg("Redis ping failed")
		}
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	response.Success(c, code, gin.H{
		"status":       status,
		"dependencies": deps,
		"metrics":      h.collect(ctx),
	})
}

// SystemMetricsSSE godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Client connected to system metrics SSE")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	// Send immediately on connect, then every tick
	h.writeMetrics(c)

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Client disconnected from system metrics SSE")
			return
		case <-ticker.C:
			h.writeMetrics(c)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) {
	data, err := json.Marshal(h.collect(c.Request.Context()))
	if err != nil {
		return
	}
	writeSSE(c, data)
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp: time.Now().Unix(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
	}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		m.CPUPercent = pct[0]
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		m.CPUModel = infos[0].ModelName
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		m.MemTotalBytes = vm.Total
		m.MemUsedBytes = vm.Total - vm.Available
		m.MemPercent = vm.UsedPercent
	}
	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		m.DiskTotalBytes = du.Total
		m.DiskUsedBytes = du.Used
		m.DiskPercent = du.UsedPercent
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		m.LoadAvg1, m.LoadAvg5, m.LoadAvg15 = avg.Load1, avg.Load5, avg.Load15
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.NumGC = ms.NumGC

	if h.proc != nil {
		if info, err := h.proc.MemoryInfoWithContext(ctx); err == nil {
			m.AppRSSBytes = info.RSS
		}
		if pct, err := h.proc.CPUPercentWithContext(ctx); err == nil {
			m.AppCPUPercent = pct
		}
	}

	if h.rdb != nil {
		m.QueueViolation, _ = h.rdb.LLen(ctx, config.WorkerKey.IngestViolationsQueue).Result()
	}
	return m
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
