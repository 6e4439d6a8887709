package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/oracle/internal/api"
	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 5.0
)

var _ TaskAPI = (*api.Client)(nil)

// TaskAPI is the part of the API the syncer needs. [*api.Client] implements it.
type TaskAPI interface {
	Tasks(ctx context.Context, filters url.Values) ([]models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, task models.Task) (*models.Task, error)
}

// SyncOpts configures a push.
type SyncOpts struct {
	NumWorkers int     // Concurrent workers (default: 4, max: 10)
	RateLimit  float64 // Requests per second (default: 5)
}

// TaskSyncResult is the outcome for one task.
type TaskSyncResult struct {
	TaskID  string
	Title   string
	Created bool
	Error   error
}

// SyncResult summarizes a push.
type SyncResult struct {
	Total   int
	Pushed  int
	Failed  int
	Results []TaskSyncResult
}

// Syncer moves tasks between a [Board] and the API.
type Syncer struct {
	api    TaskAPI
	logger *log.Logger
}

// NewSyncer creates a [Syncer].
func NewSyncer(client TaskAPI, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.Default()
	}
	return &Syncer{api: client, logger: shared.WithLogger(logger, "component", "sync")}
}

// PushAll sends every task to the API. Tasks the server does not know yet are created.
//
// Workers share one rate limiter. Failures are collected per task and do not stop the push.
func (s *Syncer) PushAll(ctx context.Context, progress chan<- ProgressUpdate, tasks []models.Task, opts SyncOpts) (*SyncResult, error) {
	if s.api == nil {
		return nil, fmt.Errorf("%w: task API not initialized", shared.ErrServiceUnavailable)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	total := len(tasks)
	result := &SyncResult{Total: total, Results: make([]TaskSyncResult, 0, total)}
	sendProgress(progress, pushStartedUpdate(total))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.Task, total)
	results := make(chan TaskSyncResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go s.pushWorker(ctx, &wg, limiter, jobs, results)
	}

	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Error == nil {
			result.Pushed++
			sendProgress(progress, pushedUpdate(completed, total, res))
		} else {
			result.Failed++
			sendProgress(progress, pushFailedUpdate(completed, total, res))
		}
	}

	s.logger.Info("push finished", "pushed", result.Pushed, "failed", result.Failed)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Syncer) pushWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan models.Task,
	results chan<- TaskSyncResult,
) {
	defer wg.Done()

	for task := range jobs {
		res := TaskSyncResult{TaskID: task.ID, Title: task.Title}
		if err := limiter.Wait(ctx); err != nil {
			res.Error = err
			results <- res
			continue
		}
		res.Created, res.Error = s.pushOne(ctx, task)
		results <- res
	}
}

func (s *Syncer) pushOne(ctx context.Context, task models.Task) (created bool, err error) {
	_, err = s.api.UpdateTask(ctx, task)
	if err == nil {
		return false, nil
	}
	if api.StatusCode(err) != http.StatusNotFound {
		return false, err
	}
	if _, err := s.api.CreateTask(ctx, task); err != nil {
		return false, err
	}
	return true, nil
}

// Pull fetches the remote tasks and merges them into board.
func (s *Syncer) Pull(ctx context.Context, progress chan<- ProgressUpdate, board *Board) (int, error) {
	if s.api == nil {
		return 0, fmt.Errorf("%w: task API not initialized", shared.ErrServiceUnavailable)
	}
	sendProgress(progress, pullingUpdate())

	remote, err := s.api.Tasks(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	sendProgress(progress, pulledUpdate(remote))

	changed, err := board.Merge(remote)
	if err != nil {
		return 0, err
	}
	sendProgress(progress, mergedUpdate(changed))
	return changed, nil
}
