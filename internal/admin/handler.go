// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/lead"
	"github.com/atelierline/portal/internal/middleware"
	"github.com/atelierline/portal/internal/provision"
)

type ProjectCounter interface {
	Count(ctx context.Context) (int, error)
}

type RevenueReader interface {
	SumSucceeded(ctx context.Context) (int64, error)
}

type LeadCounter interface {
	CountByStatus(ctx context.Context) (map[lead.Status]int, error)
}

type NoticeResender interface {
	ResendAccessNotice(ctx context.Context, projectID, actor string) (*provision.Result, error)
}

type Handler struct {
	projects   ProjectCounter
	revenue    RevenueReader
	leads      LeadCounter
	notices    NoticeResender
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
}

type HandlerConfig struct {
	Projects   ProjectCounter
	Revenue    RevenueReader
	Leads      LeadCounter
	Notices    NoticeResender
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		projects:   cfg.Projects,
		revenue:    cfg.Revenue,
		leads:      cfg.Leads,
		notices:    cfg.Notices,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
		r.Post("/projects/{projectID}/resend-notice", h.ResendNotice)
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	business, err := h.businessStats(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, StatsResponse{
		Business: business,
		Database: DatabaseStatus{
			Healthy: ping(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: ping(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
	})
}

func (h *Handler) businessStats(ctx context.Context) (BusinessStats, error) {
	var stats BusinessStats

	if h.projects != nil {
		n, err := h.projects.Count(ctx)
		if err != nil {
			return stats, err
		}
		stats.Projects = n
	}

	if h.revenue != nil {
		total, err := h.revenue.SumSucceeded(ctx)
		if err != nil {
			return stats, err
		}
		stats.RevenueMinor = total
	}

	if h.leads != nil {
		counts, err := h.leads.CountByStatus(ctx)
		if err != nil {
			return stats, err
		}
		stats.Leads = make(map[string]int, len(counts))
		for status, n := range counts {
			stats.Leads[string(status)] = n
		}
	}

	return stats, nil
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	core.OK(w, RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	})
}

// ResendNotice re-sends a project's access notice and rotates the client's
// temporary password.
func (h *Handler) ResendNotice(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := uuid.Parse(projectID); err != nil {
		core.NotFound(w, "project")
		return
	}

	actor := middleware.GetAccountID(r.Context())

	res, err := h.notices.ResendAccessNotice(r.Context(), projectID, actor)
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "project")
		return
	case provision.IsNotificationError(err):
		core.JSONError(w, core.NewAppError(
			err,
			"access notice could not be delivered",
			http.StatusBadGateway,
			"NOTIFICATION_FAILED",
		))
		return
	case err != nil:
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ResendResponse{
		ProjectID:  res.Project.ID,
		AccessCode: res.AccessCode,
		Email:      res.Account.Email,
	})
}

func ping(ctx context.Context, fn func(ctx context.Context) error) bool {
	return fn == nil || fn(ctx) == nil
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

type StatsResponse struct {
	Business BusinessStats  `json:"business"`
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
}

type BusinessStats struct {
	Projects     int            `json:"projects"`
	RevenueMinor int64          `json:"revenue_minor"`
	Leads        map[string]int `json:"leads"`
}

type ResendResponse struct {
	ProjectID  string `json:"project_id"`
	AccessCode string `json:"access_code"`
	Email      string `json:"email"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
