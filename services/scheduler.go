// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweeps wires the background jobs. Every sweep is idempotent and safe
// to run redundantly — a second replica running the same schedule changes
// nothing but timing.
func StartSweeps(economy *EconomyService, heist *HeistService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 30s: fire due heists, close overdue ones
	_, _ = sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			now := time.Now()
			heist.ActivateDue(now)
			heist.ExpireOverdue(now)
		}),
	)

	// Every 5 minutes: drop escrow entries past their window
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if err := economy.PurgeExpiredEscrow(time.Now()); err != nil {
				log.Printf("[Sweep] escrow purge failed: %v", err)
			}
		}),
	)

	// Every 10 minutes: clear lapsed buffs, collect territory upkeep
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			now := time.Now()
			if err := economy.ExpireBuffs(now); err != nil {
				log.Printf("[Sweep] buff expiry failed: %v", err)
			}
			if err := economy.ChargeUpkeep(now); err != nil {
				log.Printf("[Sweep] upkeep charge failed: %v", err)
			}
		}),
	)
}
