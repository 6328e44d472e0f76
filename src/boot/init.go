package boot

import (
	"log"
	"ticketing/src/config"
	"ticketing/src/db"
	"ticketing/src/lib"
	"ticketing/src/lib/mailer"
	"ticketing/src/services"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() (*gorm.DB, error) {
	d, err := db.Open(config.GetDSN())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// InitNotifier uses SMTP when a host is configured and the log otherwise.
func InitNotifier(cfg *config.Config) services.Notifier {
	if cfg.SMTPHost == "" {
		log.Println("[mailer] SMTP_HOST not set, logging notifications")
		return mailer.LogNotifier{}
	}
	c, err := lib.NewSMTPClient(lib.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	if err != nil {
		return mailer.LogNotifier{}
	}
	return mailer.NewSMTPNotifier(c, cfg.MailFrom)
}

func newLocker(cfg *config.Config, ttl time.Duration) gocron.Locker {
	if cfg.RedisURL == "" {
		return nil
	}
	rdb, err := lib.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil
	}
	return lib.NewRedisLocker(rdb, ttl)
}

// InitScheduler registers the refund and reservation sweeps and starts them.
func InitScheduler(cfg *config.Config, svc *services.Services) (gocron.Scheduler, error) {
	sched, err := lib.NewScheduler(newLocker(cfg, time.Minute))
	if err != nil {
		return nil, err
	}
	if err := RegisterSweeps(sched, cfg, svc.Sweeper); err != nil {
		return nil, err
	}
	sched.Start()
	log.Println("Jobs in queue:", len(sched.Jobs()))
	return sched, nil
}

func RegisterSweeps(sched gocron.Scheduler, cfg *config.Config, sweeper *services.Sweeper) error {
	if _, err := lib.AddSweep(sched, "refund-auto-complete", cfg.RefundSweepInterval, sweeper.AutoCompleteRefunds); err != nil {
		return err
	}
	_, err := lib.AddSweep(sched, "reservation-expiry", cfg.ReservationSweepInterval, sweeper.ExpireReservations)
	return err
}

func StopScheduler(sched gocron.Scheduler) {
	if sched == nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
	}
}
