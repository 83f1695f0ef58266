package clientdata

import (
	"github.com/rs/zerolog"
)

// ExpiredDeleter purges expired cache rows, reporting the count per table
type ExpiredDeleter interface {
	DeleteAllExpired() (map[string]int64, error)
}

// CleanupJob purges expired provider responses from client_data.db.
// Stale rows are the oracle's fallback when a provider is down, so the job
// runs once a day rather than on every expiry.
type CleanupJob struct {
	cache ExpiredDeleter
	log   zerolog.Logger
}

// NewCleanupJob creates the cache cleanup job
func NewCleanupJob(cache ExpiredDeleter, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		cache: cache,
		log:   log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run deletes expired rows of every cache table.
func (j *CleanupJob) Run() error {
	deleted, err := j.cache.DeleteAllExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Cache cleanup failed")
		return err
	}

	event := j.log.Info()
	var total int64
	for _, table := range AllTables {
		event = event.Int64(table, deleted[table])
		total += deleted[table]
	}
	event.Int64("total_deleted", total).Msg("Cache cleanup completed")

	return nil
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
