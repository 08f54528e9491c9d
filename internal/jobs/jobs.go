// Package jobs wires the recurring background work to the scheduler.
package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/vrsandeep/antenna-go/internal/core"
	"github.com/vrsandeep/antenna-go/internal/epg"
)

// StartScheduler starts the background job scheduler and returns it so main
// can stop it on shutdown.
func StartScheduler(app *core.App, epgSvc *epg.Service) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startGuideRefreshJob(s, app, epgSvc)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func startGuideRefreshJob(s *gocron.Scheduler, app *core.App, epgSvc *epg.Service) {
	interval := app.Config.RefreshInterval
	if interval == 0 {
		log.Println("EPG refresh interval is 0, scheduled refresh is disabled.")
		return
	}

	jobId := "epg-refresh"
	log.Printf("Scheduling job: '%s' to run every %d minutes.", jobId, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		log.Println("Scheduler is triggering job:", jobId)
		// Submit through the job queue instead of running inline, so a
		// manually triggered refresh and the scheduled one never overlap
		// on the same guide file.
		if _, err := epgSvc.RefreshGuideJob(); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", jobId, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobId, err)
	}
}
