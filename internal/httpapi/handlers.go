package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/MimeLyc/srt-translate-bot/internal/jobs"
	"github.com/MimeLyc/srt-translate-bot/pkg/icron"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body := map[string]any{
		"status":   "ok",
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
		"sessions": s.sessions.Len(),
	}
	if s.sweepCron != "" {
		if info, err := icron.GetTriggerInfo(s.sweepCron, time.Now()); err == nil {
			body["next_sweep"] = info.Next.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	list := s.queue.List()
	if key := r.URL.Query().Get("session"); key != "" {
		list = filterBySession(list, key)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		list = filterByStatus(list, jobs.Status(status))
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}
	job, ok := s.queue.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type sessionsResponse struct {
	Active  int `json:"active"`
	Running int `json:"running_jobs"`
	Pending int `json:"pending_jobs"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := sessionsResponse{Active: s.sessions.Len()}
	for _, job := range s.queue.List() {
		switch job.Status {
		case jobs.StatusRunning:
			resp.Running++
		case jobs.StatusPending:
			resp.Pending++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func filterBySession(list []*jobs.TranslationJob, key string) []*jobs.TranslationJob {
	ret := make([]*jobs.TranslationJob, 0, len(list))
	for _, job := range list {
		if job.SessionKey == key {
			ret = append(ret, job)
		}
	}
	return ret
}

func filterByStatus(list []*jobs.TranslationJob, status jobs.Status) []*jobs.TranslationJob {
	ret := make([]*jobs.TranslationJob, 0, len(list))
	for _, job := range list {
		if job.Status == status {
			ret = append(ret, job)
		}
	}
	return ret
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
