package main

import (
	"context"
	"flag"
	"fmt"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"

	"github.com/payrail/settlement-recon/internal/config"
	"github.com/payrail/settlement-recon/internal/consolidate"
	"github.com/payrail/settlement-recon/internal/domain"
	"github.com/payrail/settlement-recon/internal/enrich"
	"github.com/payrail/settlement-recon/internal/filesource"
	"github.com/payrail/settlement-recon/internal/ingest"
	"github.com/payrail/settlement-recon/internal/logger"
	"github.com/payrail/settlement-recon/internal/mapper"
	"github.com/payrail/settlement-recon/internal/pipeline"
	"github.com/payrail/settlement-recon/internal/queue"
	"github.com/payrail/settlement-recon/internal/store"
	"github.com/payrail/settlement-recon/internal/validate"
)

var (
	banistmoFiles     = regexp.MustCompile(`(?i)banistmo`)
	bancoGeneralFiles = regexp.MustCompile(`(?i)general`)
)

func main() {
	log := logger.New()

	setupOnly := flag.Bool("setup-only", false, "create the backing tables and exit")
	localDir := flag.String("local-dir", "", "ingest from a local directory instead of Drive (development)")
	timeout := flag.Duration("timeout", 15*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sheetsSvc, err := sheets.NewService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Sheets client")
	}
	st := store.NewSheets(sheetsSvc, cfg.SpreadsheetID, log)

	// Once the store exists, logs can mirror into the LOGS table.
	if cfg.WriteLogTable {
		log = logger.NewWithSink(logger.NewTableSink(st, domain.TableLogs))
	}
	ctx = logger.WithContext(ctx, log)

	var source filesource.Source
	if *localDir != "" {
		source = filesource.NewLocal(*localDir)
	} else {
		driveSvc, err := drive.NewService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Drive client")
		}
		source = filesource.NewDrive(driveSvc, cfg.RawFolderID)
	}

	processedBy := "recon/" + uuid.NewString()
	validator := validate.New()

	adapters := []*ingest.Adapter{
		ingest.NewAdapter(
			mapper.NewBanistmo(cfg.Defaults("BANISTMO")),
			validator,
			consolidate.New(cfg, processedBy, nil),
			source, st, banistmoFiles,
		),
		ingest.NewAdapter(
			mapper.NewBancoGeneral(cfg.Defaults("BANCO_GENERAL")),
			validator,
			consolidate.New(cfg, processedBy, nil),
			source, st, bancoGeneralFiles,
		),
	}

	if cfg.BigQueryProject != "" {
		bq, err := bigquery.NewClient(ctx, cfg.BigQueryProject)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer bq.Close()
		mirror := store.NewBigQueryArchiver(bq, cfg.BigQueryDataset)
		for _, a := range adapters {
			a.WithLedgerMirror(mirror)
		}
	}
	if cfg.GCSArchiveBucket != "" {
		gcs, err := storage.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Storage client")
		}
		defer gcs.Close()
		archiver := filesource.NewGCSArchiver(gcs, cfg.GCSArchiveBucket)
		for _, a := range adapters {
			a.WithFileArchiver(archiver)
		}
	}

	joiner, err := buildJoiner(st, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up enrichment")
	}

	runner := pipeline.NewRunner(st, source, adapters, queue.NewBuilder(st, cfg, nil), joiner, cfg)

	if *setupOnly {
		if err := runner.Setup(ctx); err != nil {
			log.Fatal().Err(err).Msg("Setup failed")
		}
		fmt.Println("Setup completed successfully.")
		return
	}

	report, err := runner.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", report.RunID).Msg("Pipeline run failed")
	}
	fmt.Printf("Run %s: %d files, %d rows ingested, %d queue upserts, %d enriched.\n",
		report.RunID, report.Ingest.Files, report.Ingest.RowsOK, report.Queue.Processed, report.Enrich.Matched)
	if report.EnrichFail != "" {
		fmt.Printf("Enrichment aborted: %s\n", report.EnrichFail)
	}
}

// buildJoiner picks the stub or the real client. Nil means enrichment is off
// for this deployment; the runner handles that.
func buildJoiner(st store.TabularStore, cfg config.Config) (*enrich.Joiner, error) {
	if cfg.Airtable.UseStub {
		client, err := enrich.NewStubClient("")
		if err != nil {
			return nil, err
		}
		return enrich.NewJoiner(st, client, cfg.Airtable, nil), nil
	}
	if cfg.Airtable.APIKey == "" || cfg.Airtable.BaseID == "" {
		return nil, nil
	}
	client := enrich.NewAirtableClient(cfg.Airtable.APIKey, cfg.Airtable.BaseID)
	return enrich.NewJoiner(st, client, cfg.Airtable, nil), nil
}
