package di

import (
	"github.com/aristath/wallet/internal/clientdata"
	"github.com/aristath/wallet/internal/clients/exchangerate"
	"github.com/aristath/wallet/internal/clients/tesouro"
	"github.com/aristath/wallet/internal/clients/yahoo"
	"github.com/aristath/wallet/internal/database"
	"github.com/aristath/wallet/internal/modules/accounting"
	"github.com/aristath/wallet/internal/modules/historical"
	"github.com/aristath/wallet/internal/modules/importer"
	"github.com/aristath/wallet/internal/modules/ledger"
	"github.com/aristath/wallet/internal/modules/portfolio"
	"github.com/aristath/wallet/internal/reliability"
	"github.com/aristath/wallet/internal/scheduler"
	"github.com/aristath/wallet/internal/services"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server for access to services.
type Container struct {
	// Databases
	LedgerDB     *database.DB // Append-only imported statements
	ClientDataDB *database.DB // Expiring provider responses

	// Repositories
	LedgerRepo     *ledger.Repository
	ClientDataRepo *clientdata.Repository

	// Clients
	YahooClient        *yahoo.Client
	ExchangeRateClient *exchangerate.Client
	TesouroClient      *tesouro.Client

	// Services
	FXService     *services.FXService
	PriceOracle   *services.PriceOracleService
	Importer      *importer.Importer
	Engine        *accounting.Engine
	AssetService  *portfolio.AssetService
	Consolidator  *portfolio.Consolidator
	Replayer      *historical.Replayer
	BackupService *reliability.BackupService // nil when backups are disabled
}

// Close closes every database held by the container
func (c *Container) Close() {
	if c.LedgerDB != nil {
		_ = c.LedgerDB.Close()
	}
	if c.ClientDataDB != nil {
		_ = c.ClientDataDB.Close()
	}
}

// JobInstances holds the scheduled jobs for manual triggering
type JobInstances struct {
	CacheCleanup scheduler.Job
	Backup       scheduler.Job // nil when backups are disabled
}
