package di

import (
	"fmt"

	"github.com/aristath/wallet/internal/clientdata"
	"github.com/aristath/wallet/internal/config"
	"github.com/aristath/wallet/internal/reliability"
	"github.com/aristath/wallet/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the maintenance jobs and schedules them on sched.
// Returns JobInstances for manual triggering.
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{}

	// Expired cache cleanup
	cleanup := clientdata.NewCleanupJob(container.ClientDataRepo, log)
	if err := sched.AddJob(cfg.CleanupSchedule, cleanup); err != nil {
		return nil, err
	}
	instances.CacheCleanup = cleanup

	// Ledger backup
	if container.BackupService != nil {
		backup := reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backup); err != nil {
			return nil, err
		}
		instances.Backup = backup
	}

	log.Info().Msg("Jobs registered")
	return instances, nil
}
