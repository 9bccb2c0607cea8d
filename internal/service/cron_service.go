// Package service contains the service layer for the Misbar API
package service

import (
	"context"
	"strconv"
	"time"

	"github.com/nsvirk/misbarapi/internal/config"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
	"github.com/robfig/cron/v3"
)

// CronService runs the maintenance jobs of the API
type CronService struct {
	cfg         *config.Config
	c           *cron.Cron
	logins      LoginLogStore
	authService *AuthService
	now         func() time.Time
}

// NewCronService creates a new CronService
func NewCronService(cfg *config.Config, logins LoginLogStore, authService *AuthService) *CronService {
	return &CronService{
		cfg:         cfg,
		c:           cron.New(),
		logins:      logins,
		authService: authService,
		now:         time.Now,
	}
}

// Start queues the jobs and starts the scheduler
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// SCHEDULED jobs
	// ------------------------------------------------------------
	cs.addScheduledJob("LoginLogs PRUNE Job", cs.loginLogsPruneJob, cs.cfg.LoginLogPruneSchedule)

	// ------------------------------------------------------------
	// STARTUP jobs
	// ------------------------------------------------------------
	cs.addStartupJob("Admin SEED Job", cs.adminSeedJob, 1*time.Second)

	cs.c.Start()
}

// Stop stops the scheduler and waits for running jobs
func (cs *CronService) Stop() context.Context {
	return cs.c.Stop()
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job": name,
	})
}

// loginLogsPruneJob deletes login logs older than the retention window
func (cs *CronService) loginLogsPruneJob() {
	jobName := "LoginLogs PRUNE Job "
	if cs.cfg.LoginLogRetentionDays <= 0 {
		zaplogger.Info(jobName, zaplogger.Fields{"skipped": "retention disabled"})
		return
	}

	cutoff := cs.now().AddDate(0, 0, -cs.cfg.LoginLogRetentionDays)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rowsDeleted, err := cs.logins.PruneBefore(ctx, cutoff)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"cutoff":       cutoff.Format(time.RFC3339),
		"rows_deleted": strconv.FormatInt(rowsDeleted, 10),
	})
}

// adminSeedJob creates the configured admin account if it does not exist
func (cs *CronService) adminSeedJob() {
	jobName := "Admin SEED Job "
	if cs.cfg.AdminEmail == "" {
		zaplogger.Info(jobName, zaplogger.Fields{"skipped": "no admin configured"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := cs.authService.SeedAdmin(ctx, cs.cfg.AdminEmail, cs.cfg.AdminPassword)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"email": cs.cfg.AdminEmail,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"email":   cs.cfg.AdminEmail,
		"created": created,
	})
}
