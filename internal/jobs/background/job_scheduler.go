package background

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"saascore/internal/caching"
	"saascore/internal/services"
)

// JobScheduler runs the periodic maintenance jobs: sweeping expired session
// rows and probing cache health.
type JobScheduler struct {
	scheduler     gocron.Scheduler
	sessionSvc    services.SessionService
	cacheSvc      caching.CacheService
	sweepInterval time.Duration
	jobs          map[string]gocron.Job
	mu            sync.RWMutex
}

func NewJobScheduler(sessionSvc services.SessionService, cacheSvc caching.CacheService, sweepInterval time.Duration) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:     scheduler,
		sessionSvc:    sessionSvc,
		cacheSvc:      cacheSvc,
		sweepInterval: sweepInterval,
		jobs:          make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	sweepJob, err := js.scheduler.NewJob(
		gocron.DurationJob(js.sweepInterval),
		gocron.NewTask(js.sweepExpiredSessions),
		gocron.WithName("session-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create session sweep job: %v", err)
	} else {
		js.jobs["session-sweep"] = sweepJob
	}

	cacheJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.checkCacheHealth),
		gocron.WithName("cache-health"),
	)
	if err != nil {
		log.Printf("Failed to create cache health job: %v", err)
	} else {
		js.jobs["cache-health"] = cacheJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

// sweepExpiredSessions marks clock-expired active sessions as expired so a
// reader never sees a stale active row.
func (js *JobScheduler) sweepExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := js.sessionSvc.SweepExpired(ctx)
	if err != nil {
		log.Printf("Session sweep failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Session sweep marked %d sessions expired", count)
	}
}

func (js *JobScheduler) checkCacheHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := js.cacheSvc.Ping(ctx); err != nil {
		log.Printf("WARN: cache health check failed: %v", err)
	}
}
