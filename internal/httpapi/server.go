package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MimeLyc/srt-translate-bot/internal/jobs"
)

type jobLister interface {
	List() []*jobs.TranslationJob
	Get(id string) (*jobs.TranslationJob, bool)
}

type sessionCounter interface {
	Len() int
}

type Server struct {
	queue    jobLister
	sessions sessionCounter

	webhookPath    string
	webhookHandler http.Handler

	streamInterval time.Duration
	sweepCron      string
	startedAt      time.Time

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithWebhook mounts the chat webhook handler at path
func WithWebhook(path string, handler http.Handler) Option {
	return func(s *Server) {
		s.webhookPath = path
		s.webhookHandler = handler
	}
}

func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		s.streamInterval = d
	}
}

// WithSweepSchedule reports the next session sweep on /healthz
func WithSweepSchedule(cronExpr string) Option {
	return func(s *Server) {
		s.sweepCron = cronExpr
	}
}

func NewServer(queue jobLister, sessions sessionCounter, opts ...Option) *Server {
	s := &Server{
		queue:          queue,
		sessions:       sessions,
		streamInterval: time.Second,
		startedAt:      time.Now(),
		mux:            http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	if s.webhookHandler != nil && s.webhookPath != "" {
		s.mux.Handle(s.webhookPath, s.webhookHandler)
	}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/", s.handleJob)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/sessions", s.handleSessions)
}
