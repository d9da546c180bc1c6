// Package urlsremover deletes short URLs in the background. Deletion requests
// from the JSON API are queued and applied in batches on every tick.
package urlsremover

import (
	"context"
	"time"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

type usersURLsRemover interface {
	RemoveUsersURLs(ctx context.Context, usersURLs map[string][]string) error
}

type task struct {
	userID      string
	urlToDelete string
}

type URLsRemover struct {
	queue                    chan *task
	db                       usersURLsRemover
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error
	done                     chan struct{}
}

func New(
	db usersURLsRemover,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *URLsRemover {
	return &URLsRemover{
		db:                       db,
		queue:                    make(chan *task, channelCapacity),
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
		done:                     make(chan struct{}),
	}
}

// ListenErrors passes every removal error to callback on a separate goroutine.
func (r *URLsRemover) ListenErrors(callback func(error)) {
	go func() {
		for err := range r.errorChannel {
			callback(err)
		}
	}()
}

func (r *URLsRemover) collectUrlsByUser(tasks []task) map[string][]string {
	result := map[string][]string{}
	for _, t := range tasks {
		result[t.userID] = append(result[t.userID], t.urlToDelete)
	}

	return result
}

func (r *URLsRemover) flush(ctx context.Context, tasks []task) []task {
	if len(tasks) == 0 {
		return tasks
	}
	err := r.db.RemoveUsersURLs(ctx, r.collectUrlsByUser(tasks))
	if err != nil {
		select {
		case r.errorChannel <- err:
		default:
			logger.Log.Errorln("dropping URLs remover error:", err)
		}
		return tasks
	}
	logger.Log.Infof("processed removing of %d URLs", len(tasks))

	return nil
}

// Run starts the worker. When ctx is cancelled the pending batch is
// flushed once more and Done is closed.
func (r *URLsRemover) Run(ctx context.Context) {
	go func() {
		defer close(r.done)
		defer close(r.errorChannel)

		ticker := time.NewTicker(r.delayBetweenQueueFetches)
		defer ticker.Stop()

		var tasks []task

		for {
			select {
			case t := <-r.queue:
				tasks = append(tasks, *t)
			case <-ticker.C:
				tasks = r.flush(ctx, tasks)
			case <-ctx.Done():
			drain:
				for {
					select {
					case t := <-r.queue:
						tasks = append(tasks, *t)
					default:
						break drain
					}
				}
				r.flush(context.Background(), tasks)
				return
			}
		}
	}()
}

// Done is closed once the worker has stopped.
func (r *URLsRemover) Done() <-chan struct{} {
	return r.done
}

// EnqueueJob queues every URL of job for deletion on behalf of job.UserID.
func (r *URLsRemover) EnqueueJob(job *models.URLDeleteJob) {
	for _, shortID := range job.URLsToDelete {
		r.queue <- &task{
			userID:      job.UserID,
			urlToDelete: shortID,
		}
	}
}
