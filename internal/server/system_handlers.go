package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dalia-app/dalia/internal/api"
	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/di"
	"github.com/dalia-app/dalia/internal/scheduler"
)

// SystemHandlers serves process, database and job status
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	databases   []*database.DB
	scheduler   *scheduler.Scheduler
	jobs        map[string]scheduler.Job

	// Overridable in tests
	cpuPercent func() (float64, error)
	memPercent func() (float64, error)
	diskFreeGB func(path string) (float64, error)
}

// NewSystemHandlers creates system handlers. jobs may be nil.
func NewSystemHandlers(container *di.Container, jobs *di.JobInstances, dataDir string, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		scheduler:   container.Scheduler,
		jobs:        make(map[string]scheduler.Job),
		cpuPercent:  sampleCPU,
		memPercent:  sampleMemory,
		diskFreeGB:  freeDiskGB,
	}
	for _, db := range []*database.DB{container.LedgerDB, container.MarketDB} {
		if db != nil {
			h.databases = append(h.databases, db)
		}
	}
	if jobs != nil {
		for _, job := range []scheduler.Job{jobs.IssuerSync, jobs.WALCheckpoint, jobs.Maintenance, jobs.Backup} {
			if job != nil {
				h.jobs[job.Name()] = job
			}
		}
	}
	return h
}

// RegisterRoutes registers the system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Post("/jobs/{name}", h.HandleTriggerJob)
	})
}

// DatabaseStatus is the size report of one database
type DatabaseStatus struct {
	Name      string  `json:"name"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	Pages     int64   `json:"pages"`
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	DiskFreeGB    float64          `json:"disk_free_gb"`
	Databases     []DatabaseStatus `json:"databases"`
	Jobs          []string         `json:"jobs"`
}

// HandleSystemStatus reports process resources, database sizes and scheduled jobs
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		Databases:     make([]DatabaseStatus, 0, len(h.databases)),
		Jobs:          []string{},
	}

	var err error
	if resp.CPUPercent, err = h.cpuPercent(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	}
	if resp.MemoryPercent, err = h.memPercent(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	}
	if resp.DiskFreeGB, err = h.diskFreeGB(h.dataDir); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	for _, db := range h.databases {
		stats, err := db.GetStats(r.Context())
		if err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			resp.Status = "degraded"
			continue
		}
		resp.Databases = append(resp.Databases, DatabaseStatus{
			Name:      stats.Name,
			SizeMB:    float64(stats.SizeBytes) / 1024 / 1024,
			WALSizeMB: float64(stats.WALSizeBytes) / 1024 / 1024,
			Pages:     stats.PageCount,
		})
	}

	if h.scheduler != nil {
		resp.Jobs = h.scheduler.Jobs()
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok || h.scheduler == nil {
		api.WriteError(w, http.StatusNotFound, "unknown job: "+name)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	start := time.Now()
	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		api.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job":         name,
		"status":      "completed",
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// sampleCPU averages CPU usage over 100ms
func sampleCPU() (float64, error) {
	percents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percents) == 0 {
		return 0, err
	}
	return percents[0], nil
}

func sampleMemory() (float64, error) {
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return stat.UsedPercent, nil
}

func freeDiskGB(path string) (float64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return float64(usage.Free) / 1024 / 1024 / 1024, nil
}
