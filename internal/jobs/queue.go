package jobs

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
	"github.com/MimeLyc/srt-translate-bot/pkg/log"
)

const defaultMaxJobs = 1000

type Executor func(ctx context.Context, job *TranslationJob) error

// Queue runs translation jobs on a fixed pool of workers. Jobs are deduped by
// session key and epoch while pending or running, so a session that moved on
// to a new file gets a new job even while the old one is still running.
type Queue struct {
	workerCount int
	maxJobs     int

	mu         sync.RWMutex
	jobs       map[string]*TranslationJob
	active     map[string]string // dedupe key -> job id
	idCounter  uint64
	started    bool
	pendingIDs chan string

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewQueue(workerCount int) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		workerCount: workerCount,
		maxJobs:     defaultMaxJobs,
		jobs:        make(map[string]*TranslationJob),
		active:      make(map[string]string),
		pendingIDs:  make(chan string, 1024),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Enqueue adds a job for req.SessionKey at req.Epoch. When that session
// epoch already has a pending or running job, the job is returned with
// created=false.
func (q *Queue) Enqueue(req EnqueueRequest) (*TranslationJob, bool) {
	now := time.Now()
	key := dedupeKey(req.SessionKey, req.Epoch)

	q.mu.Lock()
	if id, ok := q.active[key]; ok {
		if existing, exists := q.jobs[id]; exists {
			snapshot := cloneJob(existing)
			q.mu.Unlock()
			return snapshot, false
		}
		delete(q.active, key)
	}

	id := fmt.Sprintf("job-%d", atomic.AddUint64(&q.idCounter, 1))
	job := &TranslationJob{
		ID:         id,
		SessionKey: req.SessionKey,
		Epoch:      req.Epoch,
		FileName:   req.FileName,
		Languages:  slices.Clone(req.Languages),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	q.jobs[id] = job
	if req.SessionKey != "" {
		q.active[key] = id
	}
	started := q.started
	snapshot := cloneJob(job)
	q.mu.Unlock()

	if started {
		q.enqueuePendingID(id)
	}
	return snapshot, true
}

func (q *Queue) Get(id string) (*TranslationJob, bool) {
	q.mu.RLock()
	job, ok := q.jobs[id]
	q.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// List returns snapshots of all known jobs, oldest first
func (q *Queue) List() []*TranslationJob {
	q.mu.RLock()
	ret := make([]*TranslationJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		ret = append(ret, cloneJob(job))
	}
	q.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.Before(ret[j].CreatedAt) ||
			(ret[i].CreatedAt.Equal(ret[j].CreatedAt) && ret[i].ID < ret[j].ID)
	})
	return ret
}

func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true

	pending := make([]string, 0)
	for id, job := range q.jobs {
		if job.Status == StatusPending {
			pending = append(pending, id)
		}
	}
	q.mu.Unlock()

	for _, id := range pending {
		q.enqueuePendingID(id)
	}

	for range q.workerCount {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

// Stop cancels running executors and waits for the workers to exit
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.cancel()
		q.wg.Wait()
	})
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case id := <-q.pendingIDs:
			job, ok := q.markRunning(id)
			if !ok {
				continue
			}

			err := apperr.SafeExecute(func() error {
				return exec(q.ctx, job)
			})
			if err != nil {
				log.Error("Job %s for session %s failed: %v", id, job.SessionKey, err)
				q.markDone(id, StatusFailed, err)
				continue
			}
			q.markDone(id, StatusSuccess, nil)
		}
	}
}

func (q *Queue) enqueuePendingID(id string) {
	select {
	case q.pendingIDs <- id:
	default:
		go func() {
			select {
			case q.pendingIDs <- id:
			case <-q.ctx.Done():
			}
		}()
	}
}

func (q *Queue) markRunning(id string) (*TranslationJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok || job.Status != StatusPending {
		return nil, false
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	return cloneJob(job), true
}

func (q *Queue) markDone(id string, status Status, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Error = ""
	if err != nil {
		job.Error = err.Error()
	}
	job.UpdatedAt = time.Now()
	q.releaseActiveLocked(job)
	q.pruneTerminalJobsLocked()
}

func (q *Queue) releaseActiveLocked(job *TranslationJob) {
	if job == nil || job.SessionKey == "" {
		return
	}
	key := dedupeKey(job.SessionKey, job.Epoch)
	if id, ok := q.active[key]; ok && id == job.ID {
		delete(q.active, key)
	}
}

func dedupeKey(sessionKey string, epoch uint64) string {
	return fmt.Sprintf("%s#%d", sessionKey, epoch)
}

func (q *Queue) pruneTerminalJobsLocked() {
	if q.maxJobs <= 0 || len(q.jobs) <= q.maxJobs {
		return
	}

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	terminal := make([]candidate, 0, len(q.jobs))
	for id, job := range q.jobs {
		if job == nil || !job.Status.Terminal() {
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: job.UpdatedAt})
	}
	if len(terminal) == 0 {
		return
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].updatedAt.Before(terminal[j].updatedAt)
	})

	toRemove := min(len(q.jobs)-q.maxJobs, len(terminal))
	for i := 0; i < toRemove; i++ {
		id := terminal[i].id
		if job := q.jobs[id]; job != nil {
			q.releaseActiveLocked(job)
		}
		delete(q.jobs, id)
	}
}

func cloneJob(job *TranslationJob) *TranslationJob {
	if job == nil {
		return nil
	}
	tmp := *job
	tmp.Languages = slices.Clone(job.Languages)
	return &tmp
}
