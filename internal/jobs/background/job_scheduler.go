package background

import (
	"context"
	"log"
	"sync"
	"time"

	"shopfront/internal/jobs"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler runs the periodic maintenance jobs.
type JobScheduler struct {
	scheduler gocron.Scheduler
	sweeper   *jobs.OrphanSweeper
	jobJobs   map[string]gocron.Job
	mu        sync.RWMutex
}

func NewJobScheduler(sweeper *jobs.OrphanSweeper) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		sweeper:   sweeper,
		jobJobs:   make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

func (js *JobScheduler) registerJobs() {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.runOrphanSweep, context.Background()),
		gocron.WithName("staging-orphan-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to register orphan sweep job: %v", err)
		return
	}

	js.mu.Lock()
	js.jobJobs["staging-orphan-sweep"] = job
	js.mu.Unlock()
}

func (js *JobScheduler) runOrphanSweep(ctx context.Context) {
	if err := js.sweeper.Sweep(ctx); err != nil {
		log.Printf("Orphan sweep failed: %v", err)
	}
}

// Start starts the job scheduler.
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (js *JobScheduler) Stop() {
	if err := js.scheduler.Shutdown(); err != nil {
		log.Printf("Failed to shut down scheduler: %v", err)
	}
}
