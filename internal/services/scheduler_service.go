package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"propintel/internal/health"
)

const (
	rssRefreshInterval  = 15 * time.Minute
	healthSweepInterval = 10 * time.Minute
)

// SchedulerService runs the background jobs: periodic feed refresh so request
// paths stay on warm cache, and active provider health sweeps.
type SchedulerService struct {
	scheduler  gocron.Scheduler
	rss        *RSSService
	health     *health.Service
	instanceID string
}

// NewSchedulerService creates the background job scheduler
func NewSchedulerService(rss *RSSService, healthSvc *health.Service) (*SchedulerService, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &SchedulerService{
		scheduler:  scheduler,
		rss:        rss,
		health:     healthSvc,
		instanceID: uuid.New().String(),
	}, nil
}

// InstanceID identifies this server instance in job logs
func (s *SchedulerService) InstanceID() string {
	return s.instanceID
}

// Start registers the recurring jobs and starts the scheduler
func (s *SchedulerService) Start(ctx context.Context) error {
	log.Println("⏰ Starting scheduler service...")

	if s.rss != nil {
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(rssRefreshInterval),
			gocron.NewTask(func() {
				refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
				defer cancel()
				if err := s.rss.Refresh(refreshCtx); err != nil {
					log.Printf("⚠️ Scheduled feed refresh failed: %v", err)
				}
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to register feed refresh job: %w", err)
		}
	}

	if s.health != nil {
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(healthSweepInterval),
			gocron.NewTask(func() {
				s.health.CheckAll()
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to register health sweep job: %w", err)
		}
	}

	s.scheduler.Start()
	log.Printf("✅ Scheduler service started (instance %s)", s.instanceID)
	return nil
}

// Stop shuts down the scheduler, waiting for running jobs
func (s *SchedulerService) Stop() error {
	log.Println("⏹️ Stopping scheduler service...")
	return s.scheduler.Shutdown()
}
