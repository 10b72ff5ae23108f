package background

import (
	"context"
	"log"
	"time"

	"sellerhub/internal/jobs"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages the engine's background jobs. Singleton mode keeps a
// slow reconciliation pass from overlapping with the next tick.
type JobScheduler struct {
	scheduler  gocron.Scheduler
	reconciler *jobs.LinkReconciler
	interval   time.Duration
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(reconciler *jobs.LinkReconciler, interval time.Duration) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:  scheduler,
		reconciler: reconciler,
		interval:   interval,
	}

	js.registerJobs()

	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	_, err := js.scheduler.NewJob(
		gocron.DurationJob(js.interval),
		gocron.NewTask(func(ctx context.Context) {
			if err := js.reconciler.Run(ctx); err != nil {
				log.Printf("link-reconciler run failed: %v", err)
			}
		}, context.Background()),
		gocron.WithName("subscription-link-reconciler"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create link-reconciler job: %v", err)
	}
}
