package jobs

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// EnqueueRequest asks for the current document of a session to be
// translated. At most one job per session is pending or running.
type EnqueueRequest struct {
	SessionKey string
	Epoch      uint64
	FileName   string
	Languages  []string
}

type TranslationJob struct {
	ID         string    `json:"id"`
	SessionKey string    `json:"session_key"`
	Epoch      uint64    `json:"epoch"`
	FileName   string    `json:"file_name"`
	Languages  []string  `json:"languages"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
