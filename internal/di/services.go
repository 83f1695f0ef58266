package di

import (
	"context"
	"fmt"

	"github.com/aristath/wallet/internal/clients/exchangerate"
	"github.com/aristath/wallet/internal/clients/tesouro"
	"github.com/aristath/wallet/internal/clients/yahoo"
	"github.com/aristath/wallet/internal/config"
	"github.com/aristath/wallet/internal/modules/accounting"
	"github.com/aristath/wallet/internal/modules/historical"
	"github.com/aristath/wallet/internal/modules/importer"
	"github.com/aristath/wallet/internal/modules/portfolio"
	"github.com/aristath/wallet/internal/reliability"
	"github.com/aristath/wallet/internal/services"
	"github.com/rs/zerolog"
)

// InitializeServices creates the clients and the business services on top of
// the repositories. Order matters: the oracle needs the FX service, the engine
// needs the oracle, and the views need the engine.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Clients
	container.YahooClient = yahoo.NewClient(log, yahoo.WithRateLimit(cfg.YahooRateLimit))
	container.ExchangeRateClient = exchangerate.NewClient("", container.ClientDataRepo, log)
	container.TesouroClient = tesouro.NewClient(nil, container.ClientDataRepo, log)

	// Pricing
	container.FXService = services.NewFXService(container.ExchangeRateClient, log)
	container.PriceOracle = services.NewPriceOracleService(
		container.YahooClient,
		container.TesouroClient,
		container.FXService,
		container.ClientDataRepo,
		cfg.PriceCacheTTL,
		cfg.TickerBlacklist,
		log,
	)

	// Ledger and accounting
	container.Importer = importer.NewImporter(container.LedgerRepo, log)
	container.Engine = accounting.NewEngine(container.PriceOracle, cfg.TickerBlacklist, log)
	container.AssetService = portfolio.NewAssetService(container.LedgerRepo, container.Engine, log)
	container.Consolidator = portfolio.NewConsolidator(container.AssetService, container.FXService, cfg.BaseCurrency, log)
	container.Replayer = historical.NewReplayer(container.AssetService, container.PriceOracle, container.Engine, cfg.HistoryStep, log)

	// Backups
	if cfg.Backup != nil && cfg.Backup.Enabled {
		store, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			[]reliability.Snapshotter{container.LedgerDB},
			store,
			cfg.Backup.Prefix,
			cfg.DataDir,
			log,
		)
	}

	log.Info().Msg("Services initialized")
	return nil
}
