package lib

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// NewScheduler creates a gocron scheduler. With a locker, each job run is
// taken by only one instance.
func NewScheduler(locker gocron.Locker) (gocron.Scheduler, error) {
	var opts []gocron.SchedulerOption
	if locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(locker))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		log.Printf("Error initializing Scheduler: %s\n", err.Error())
		return nil, err
	}
	return sched, nil
}

// AddSweep registers fn to run now and then every interval. Overlapping
// runs are skipped.
func AddSweep(sched gocron.Scheduler, name string, every time.Duration, fn func(ctx context.Context) (int, error)) (gocron.Job, error) {
	j, err := sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func(ctx context.Context) {
			n, err := fn(ctx)
			if err != nil {
				log.Printf("[%s] sweep failed: %s\n", name, err.Error())
				return
			}
			log.Printf("[%s] sweep changed %d rows\n", name, n)
		}),
		gocron.WithName(name),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Error creating job %s: %s\n", name, err.Error())
		return nil, err
	}
	log.Printf("Job: %s %s every %s\n", j.ID().String(), j.Name(), every)
	return j, nil
}
