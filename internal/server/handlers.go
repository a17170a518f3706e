package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/internal/database"
	"github.com/vfa-khuongdv/opsboard/internal/scheduler"
	"github.com/vfa-khuongdv/opsboard/internal/server/apierror"
	"github.com/vfa-khuongdv/opsboard/internal/source"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type memoryStats struct {
	Alloc     uint64 `json:"alloc"`
	HeapInuse uint64 `json:"heapInuse"`
	Sys       uint64 `json:"sys"`
}

type healthResponse struct {
	Status       string      `json:"status"`
	Uptime       float64     `json:"uptime"`
	Memory       memoryStats `json:"memory"`
	Goroutines   int         `json:"goroutines"`
	ResponseTime int64       `json:"responseTime"`
	Timestamp    int64       `json:"timestamp"`
}

type kanbanError struct {
	*source.Kanban
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// logFailure records a collector error that the response degrades around
func (s *Server) logFailure(r *http.Request, what string, err error) {
	s.logger.Warn("Collector failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("collector", what),
		zap.Error(err))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	start := s.now()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := s.now()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "healthy",
		Uptime:       now.Sub(s.started).Seconds(),
		Memory:       memoryStats{Alloc: mem.Alloc, HeapInuse: mem.HeapInuse, Sys: mem.Sys},
		Goroutines:   runtime.NumGoroutine(),
		ResponseTime: now.Sub(start).Milliseconds(),
		Timestamp:    now.UnixMilli(),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.dashboard.Agents(r.Context())
	if err != nil {
		s.logFailure(r, "agents", err)
		apierror.New(http.StatusInternalServerError, "Failed to fetch agents").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// handleCronJobs answers with the parsed job listing. A failing listing
// command still yields an empty array.
func (s *Server) handleCronJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.dashboard.CronJobs(r.Context())
	if err != nil {
		s.logFailure(r, "cron-jobs", err)
	}
	if jobs == nil {
		jobs = []source.CronJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleCronHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.dashboard.CronHealth(r.Context())
	if err != nil {
		s.logFailure(r, "cron-health", err)
		apierror.New(http.StatusInternalServerError, "Failed to fetch cron health").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleKanban(w http.ResponseWriter, r *http.Request) {
	board, err := s.dashboard.Kanban(r.Context())
	if err != nil {
		s.logFailure(r, "kanban", err)
		if board == nil {
			board = &source.Kanban{Issues: []source.Issue{}}
		}
		writeJSON(w, http.StatusInternalServerError, kanbanError{Kanban: board, Error: "Failed to parse backlog"})
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	repos, err := s.dashboard.Repos(r.Context())
	if err != nil {
		s.logFailure(r, "code", err)
	}
	if repos == nil {
		repos = []source.Repo{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"repos": repos})
}

func (s *Server) handleComms(w http.ResponseWriter, r *http.Request) {
	channels, err := s.dashboard.Comms(r.Context())
	if err != nil {
		s.logFailure(r, "comms", err)
	}
	if channels == nil {
		channels = []source.Channel{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"channels": channels})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.dashboard.Content(r.Context())
	if err != nil {
		s.logFailure(r, "content", err)
	}
	if content == nil {
		content = []source.ContentItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"content": content})
}

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	docs, err := s.dashboard.Knowledge(r.Context())
	if err != nil {
		s.logFailure(r, "knowledge", err)
	}
	if docs == nil {
		docs = []source.KnowledgeDoc{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"docs": docs})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.dashboard.Reports(r.Context())
	if err != nil {
		s.logFailure(r, "reports", err)
	}
	if reports == nil {
		reports = []source.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	revenue, err := s.dashboard.Revenue(r.Context())
	if err != nil {
		s.logFailure(r, "revenue", err)
		apierror.New(http.StatusInternalServerError, "Failed to fetch revenue").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, revenue)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.dashboard.Sessions(r.Context())
	if err != nil {
		s.logFailure(r, "sessions", err)
	}
	if sessions == nil {
		sessions = []source.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := s.dashboard.RecentActivity(r.Context())
	if err != nil {
		s.logFailure(r, "activity", err)
	}
	if activity == nil {
		activity = []source.Activity{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}

func (s *Server) handleSystemState(w http.ResponseWriter, r *http.Request) {
	state, err := s.dashboard.SystemState(r.Context())
	if err != nil {
		s.logFailure(r, "system-state", err)
		apierror.New(http.StatusInternalServerError, "Failed to fetch system state").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleJobHistory(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]

	limit, ok := queryInt(w, r, "limit", defaultHistoryLimit)
	if !ok {
		return
	}

	snapshots, err := s.history.GetSnapshotHistory(jobID, clampLimit(limit))
	if err != nil {
		s.logFailure(r, "history", err)
		apierror.New(http.StatusInternalServerError, "Failed to fetch job history").Write(w)
		return
	}
	if snapshots == nil {
		snapshots = []database.JobSnapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobId": jobID, "snapshots": snapshots})
}

func (s *Server) handleArchives(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultHistoryLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}

	archives, err := s.history.GetArchiveHistory(clampLimit(limit), offset)
	if err != nil {
		s.logFailure(r, "archives", err)
		apierror.New(http.StatusInternalServerError, "Failed to fetch archive history").Write(w)
		return
	}
	if archives == nil {
		archives = []database.ArchiveHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"archives": archives})
}

func (s *Server) handleScheduledJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": s.scheduler.GetScheduledJobs()})
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name != scheduler.JobPoll && name != scheduler.JobArchive {
		apierror.New(http.StatusNotFound, "unknown job: "+name).WithRequest(r).Write(w)
		return
	}

	if err := s.scheduler.RunNow(r.Context(), name); err != nil {
		s.logger.Error("Manual job run failed", zap.String("job", name), zap.Error(err))
		apierror.New(http.StatusInternalServerError, err.Error()).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job": name, "status": "ok"})
}

// queryInt reads a non-negative integer query parameter. It writes a 400 and
// returns false when the value is malformed.
func queryInt(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		apierror.New(http.StatusBadRequest, key+" must be a non-negative integer").WithRequest(r).Write(w)
		return 0, false
	}
	return n, true
}

func clampLimit(limit int) int {
	switch {
	case limit == 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}
