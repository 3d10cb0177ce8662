package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/liga-hub/tabellen-service/models"
)

var ErrJobNotFound = errors.New("calculation job not found")

// Calculator is the work a job performs: recompute the table for one
// (league, season) scope.
type Calculator interface {
	CalculateTable(ctx context.Context, leagueID, seasonID int) ([]*models.TableEntry, error)
}

type Config struct {
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffFactor float64
	BackoffCap    time.Duration
	JobTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffFactor <= 1 {
		c.BackoffFactor = 2
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = time.Minute
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Second
	}
	return c
}

type Status struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
}

type scopeKey struct {
	leagueID int
	seasonID int
}

// maxHistory bounds how many finished jobs stay queryable via JobResult.
const maxHistory = 512

// Manager is the in-process priority queue for recalculation jobs. Enqueue
// is safe from any goroutine; jobs are deduplicated per (league, season) so
// no two calculations for the same scope ever run concurrently.
type Manager struct {
	calc   Calculator
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	open    map[scopeKey]*models.CalculationJob // pending or processing
	history map[string]*models.CalculationJob   // all jobs by id, bounded
	order   []string                            // history insertion order
	paused  bool
	seq     int

	wake chan struct{}
}

func NewManager(calc Calculator, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		calc:    calc,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		open:    make(map[scopeKey]*models.CalculationJob),
		history: make(map[string]*models.CalculationJob),
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue submits a recalculation for the scope. If an open job already
// exists its priority is raised to the maximum of existing and requested and
// its id is returned; otherwise a new job is created.
func (m *Manager) Enqueue(leagueID, seasonID int, priority models.JobPriority) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scopeKey{leagueID: leagueID, seasonID: seasonID}
	if job, ok := m.open[key]; ok {
		if priority > job.Priority {
			m.logger.Info("upgrading queued job priority",
				slog.String("job_id", job.ID),
				slog.String("from", job.Priority.String()),
				slog.String("to", priority.String()))
			job.Priority = priority
		}
		m.signal()
		return job.ID
	}

	m.seq++
	now := time.Now()
	job := &models.CalculationJob{
		ID:          fmt.Sprintf("calc-%d-%d-%d", leagueID, seasonID, m.seq),
		LeagueID:    leagueID,
		SeasonID:    seasonID,
		Priority:    priority,
		Status:      models.JobStatusPending,
		SubmittedAt: now,
		MaxAttempts: m.cfg.MaxAttempts,
		NextRunAt:   now,
	}
	m.open[key] = job
	m.remember(job)
	m.logger.Info("calculation job enqueued",
		slog.String("job_id", job.ID),
		slog.Int("league_id", leagueID),
		slog.Int("season_id", seasonID),
		slog.String("priority", priority.String()))
	m.signal()
	return job.ID
}

// Status reports pending/processing counts of open jobs and how many of the
// retained jobs ended failed.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	var st Status
	for _, job := range m.open {
		switch job.Status {
		case models.JobStatusPending:
			st.Pending++
		case models.JobStatusProcessing:
			st.Processing++
		}
	}
	for _, job := range m.history {
		if job.Status == models.JobStatusFailed {
			st.Failed++
		}
	}
	return st
}

// Pause stops dequeuing. In-flight jobs finish; enqueue keeps working.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	m.logger.Info("queue paused")
}

func (m *Manager) Resume() {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	m.logger.Info("queue resumed")
	m.signal()
}

func (m *Manager) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// JobResult returns a copy of the job with the given id, including finished
// ones still retained in history.
func (m *Manager) JobResult(jobID string) (*models.CalculationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.history[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	jobCopy := *job
	return &jobCopy, nil
}

// Run drains the queue until the context is cancelled. Multiple Run
// goroutines may share one manager: scope exclusivity holds because a job is
// marked processing under the lock before it is handed to a worker.
func (m *Manager) Run(ctx context.Context) {
	m.logger.Info("queue worker started")
	for {
		job, wait := m.next()
		if job == nil {
			if wait <= 0 || wait > time.Minute {
				wait = time.Minute
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				m.logger.Info("queue worker stopped")
				return
			case <-m.wake:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}
		m.process(ctx, job)
	}
}

// next pops the best ready job: highest priority first, then oldest
// submission. When nothing is ready it returns how long to wait for the
// earliest backoff deadline.
func (m *Manager) next() (*models.CalculationJob, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused {
		return nil, 0
	}

	now := time.Now()
	var best *models.CalculationJob
	var earliest time.Time
	for _, job := range m.open {
		if job.Status != models.JobStatusPending {
			continue
		}
		if job.NextRunAt.After(now) {
			if earliest.IsZero() || job.NextRunAt.Before(earliest) {
				earliest = job.NextRunAt
			}
			continue
		}
		if best == nil || job.Priority > best.Priority ||
			(job.Priority == best.Priority && job.SubmittedAt.Before(best.SubmittedAt)) {
			best = job
		}
	}
	if best == nil {
		if earliest.IsZero() {
			return nil, 0
		}
		return nil, time.Until(earliest)
	}

	best.Status = models.JobStatusProcessing
	started := now
	best.StartedAt = &started
	return best, 0
}

func (m *Manager) process(ctx context.Context, job *models.CalculationJob) {
	jobCtx, cancel := context.WithTimeout(ctx, m.cfg.JobTimeout)
	defer cancel()

	m.logger.Info("processing calculation job",
		slog.String("job_id", job.ID),
		slog.Int("league_id", job.LeagueID),
		slog.Int("season_id", job.SeasonID),
		slog.Int("attempt", job.Attempts+1))

	_, err := m.calc.CalculateTable(jobCtx, job.LeagueID, job.SeasonID)

	m.mu.Lock()
	defer m.mu.Unlock()

	key := scopeKey{leagueID: job.LeagueID, seasonID: job.SeasonID}
	now := time.Now()
	job.Attempts++

	if err == nil {
		job.Status = models.JobStatusCompleted
		job.FinishedAt = &now
		job.LastError = ""
		delete(m.open, key)
		m.logger.Info("calculation job completed", slog.String("job_id", job.ID))
		return
	}

	job.LastError = err.Error()
	if job.Attempts >= job.MaxAttempts {
		job.Status = models.JobStatusFailed
		job.FinishedAt = &now
		delete(m.open, key)
		m.logger.Error("calculation job failed permanently",
			slog.String("job_id", job.ID),
			slog.Int("attempts", job.Attempts),
			slog.Any("error", err))
		return
	}

	delay := m.backoff(job.Attempts)
	job.Status = models.JobStatusPending
	job.NextRunAt = now.Add(delay)
	m.logger.Warn("calculation job failed, retrying",
		slog.String("job_id", job.ID),
		slog.Int("attempt", job.Attempts),
		slog.Duration("backoff", delay),
		slog.Any("error", err))
	m.signal()
}

// backoff returns base * factor^(attempt-1), capped.
func (m *Manager) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(float64(m.cfg.BackoffBase) * math.Pow(m.cfg.BackoffFactor, float64(attempt-1)))
	if delay > m.cfg.BackoffCap || delay <= 0 {
		delay = m.cfg.BackoffCap
	}
	return delay
}

// remember stores the job in history and prunes finished jobs beyond the
// retention bound. Open jobs are never pruned.
func (m *Manager) remember(job *models.CalculationJob) {
	m.history[job.ID] = job
	m.order = append(m.order, job.ID)

	for len(m.history) > maxHistory && len(m.order) > 0 {
		oldestID := m.order[0]
		oldest, ok := m.history[oldestID]
		if ok && (oldest.Status == models.JobStatusPending || oldest.Status == models.JobStatusProcessing) {
			break
		}
		m.order = m.order[1:]
		delete(m.history, oldestID)
	}
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
