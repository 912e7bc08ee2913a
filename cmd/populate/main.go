// Populate is a one-shot tool that fills the knowledge base: it scrapes
// the ITMO admission pages (or loads a JSON catalog), seeds the curated
// QA pairs, and can restore the database from the latest S3 snapshot.
// Run it before first server start, or from a scheduled job to refresh
// the catalog.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abitlab/itmo-advisor-go/internal/backup"
	"github.com/abitlab/itmo-advisor-go/internal/config"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/scraper"
	"github.com/abitlab/itmo-advisor-go/internal/scraper/itmo"
)

// CLI flags
var (
	scrapeFlag   = flag.Bool("scrape", false, "Scrape the ITMO admission pages for programs and courses")
	seedFileFlag = flag.String("seed-file", "", "Load a JSON program catalog instead of scraping")
	sampleQAFlag = flag.Bool("sample-qa", false, "Insert the curated sample QA pairs")
	restoreFlag  = flag.Bool("restore", false, "Restore the database from the latest snapshot when missing")
	resetFlag    = flag.Bool("reset", false, "Delete all catalog and QA data before populating")
)

func main() {
	flag.Parse()

	if !*scrapeFlag && *seedFileFlag == "" && !*sampleQAFlag && !*restoreFlag && !*resetFlag {
		fmt.Println("⏭️  Nothing to do, pass -scrape, -seed-file, -sample-qa or -restore")
		flag.Usage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting populate tool")

	ctx, cancel := context.WithTimeout(context.Background(), config.PopulateRun)
	defer cancel()

	// Restore runs before the database is opened: opening first would
	// create an empty file and make the restore a no-op.
	if *restoreFlag {
		if err := restoreSnapshot(ctx, cfg, log); err != nil {
			log.WithError(err).Error("Snapshot restore failed")
			_, _ = fmt.Fprintf(os.Stderr, "❌ Snapshot restore failed: %v\n", err)
			os.Exit(1)
		}
	}

	db, err := kb.New(cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Error("Failed to open knowledge base")
		_, _ = fmt.Fprintf(os.Stderr, "❌ Failed to open knowledge base: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).Info("Knowledge base opened")

	if *resetFlag {
		log.Warn("Resetting catalog and QA data...")
		if err := resetCorpus(db); err != nil {
			log.WithError(err).Error("Failed to reset knowledge base")
			_, _ = fmt.Fprintf(os.Stderr, "❌ Failed to reset knowledge base: %v\n", err)
			os.Exit(1)
		}
		log.Info("Reset complete")
	}

	startTime := time.Now()
	var hasError bool

	if *scrapeFlag {
		if err := scrapeCatalog(ctx, cfg, db, log); err != nil {
			log.WithError(err).Error("Scraping failed")
			hasError = true
		}
	}

	if *seedFileFlag != "" {
		if err := seedCatalogFile(ctx, db, *seedFileFlag, log); err != nil {
			log.WithError(err).Error("Catalog seed failed")
			hasError = true
		}
	}

	if *sampleQAFlag {
		inserted, err := db.SeedSampleQA(ctx)
		if err != nil {
			log.WithError(err).Error("QA seed failed")
			hasError = true
		} else {
			log.WithField("inserted", inserted).Info("Sample QA pairs seeded")
			fmt.Printf("✓ Seeded %d sample QA pairs\n", inserted)
		}
	}

	duration := time.Since(startTime)

	programs, courses, qaPairs := corpusStats(ctx, db, log)

	// A populate run that was asked to produce data but left the
	// knowledge base empty is a failure even when no step errored,
	// e.g. -restore against an empty bucket.
	corpusRequested := *scrapeFlag || *seedFileFlag != "" || *sampleQAFlag || *restoreFlag
	if corpusRequested && programs == 0 && qaPairs == 0 {
		log.Error("Knowledge base is empty after populate")
		hasError = true
	}

	if hasError {
		log.WithField("duration", duration).Error("Populate completed with errors")
		_, _ = fmt.Fprintf(os.Stderr, "\n❌ Populate completed with errors: %d programs, %d courses, %d QA pairs\n",
			programs, courses, qaPairs)
		_, _ = fmt.Fprintf(os.Stderr, "Total time: %v\n", duration.Round(time.Second))
		os.Exit(1)
	}

	log.WithField("duration", duration).Info("Populate complete")
	fmt.Printf("\n✅ Populate complete: %d programs, %d courses, %d QA pairs\n",
		programs, courses, qaPairs)
	fmt.Printf("Total time: %v\n", duration.Round(time.Second))
}

// restoreSnapshot downloads the latest snapshot when no local database
// exists yet. A missing snapshot is not an error: the run continues with
// an empty database and the remaining steps fill it.
func restoreSnapshot(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if _, err := os.Stat(cfg.SQLitePath()); err == nil {
		log.WithField("path", cfg.SQLitePath()).Info("Local database already exists, skipping restore")
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat database file: %w", err)
	}

	if !cfg.HasSnapshotStore() {
		log.Warn("Snapshot store not configured, skipping restore")
		return nil
	}

	client, err := backup.New(ctx, backup.Config{
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Bucket:          cfg.S3Bucket,
	})
	if err != nil {
		return fmt.Errorf("snapshot store client: %w", err)
	}

	store := backup.NewStore(client, cfg.S3Prefix, log, nil)
	key, err := store.Restore(ctx, cfg.SQLitePath())
	if errors.Is(err, backup.ErrNotFound) {
		log.Warn("No snapshot found in bucket, starting with an empty database")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("✓ Restored snapshot %s\n", key)
	return nil
}

// scrapeCatalog fetches every program page and stores the result.
func scrapeCatalog(ctx context.Context, cfg *config.Config, db *kb.DB, log *logger.Logger) error {
	scraperClient := scraper.NewClient(
		cfg.ScraperTimeout,
		len(itmo.Pages),
		config.ScraperRateLimit,
		2*config.ScraperRateLimit,
		cfg.ScraperMaxRetries,
	)

	log.WithField("pages", len(itmo.Pages)).Info("Scraping program pages")
	programs, err := itmo.ScrapePrograms(ctx, scraperClient, cfg.ProgramPageURLs)
	if err != nil {
		return err
	}

	if err := db.SavePrograms(ctx, programs); err != nil {
		return fmt.Errorf("save programs: %w", err)
	}

	courses := 0
	for _, program := range programs {
		courses += len(program.Courses)
	}
	log.WithFields(map[string]any{
		"programs": len(programs),
		"courses":  courses,
	}).Info("Catalog scraped")
	fmt.Printf("✓ Scraped %d programs (%d courses)\n", len(programs), courses)
	return nil
}

// seedCatalogFile loads a JSON catalog shaped like the scraper output
// and stores it. Useful when the admission site is unreachable or for
// test fixtures.
func seedCatalogFile(ctx context.Context, db *kb.DB, path string, log *logger.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}

	var programs []kb.Program
	if err := json.Unmarshal(data, &programs); err != nil {
		return fmt.Errorf("parse catalog file: %w", err)
	}
	if len(programs) == 0 {
		return fmt.Errorf("catalog file %s holds no programs", path)
	}

	if err := db.SavePrograms(ctx, programs); err != nil {
		return fmt.Errorf("save programs: %w", err)
	}

	courses := 0
	for _, program := range programs {
		courses += len(program.Courses)
	}
	log.WithFields(map[string]any{
		"file":     path,
		"programs": len(programs),
		"courses":  courses,
	}).Info("Catalog loaded from file")
	fmt.Printf("✓ Loaded %d programs (%d courses) from %s\n", len(programs), courses, path)
	return nil
}

// resetCorpus deletes catalog and QA data. User profiles survive a
// reset; recommendation history goes with the courses it references.
func resetCorpus(db *kb.DB) error {
	if _, err := db.Conn().Exec("DELETE FROM recommendations"); err != nil {
		return fmt.Errorf("failed to delete recommendations: %w", err)
	}

	if _, err := db.Conn().Exec("DELETE FROM qa_pairs"); err != nil {
		return fmt.Errorf("failed to delete qa pairs: %w", err)
	}

	if _, err := db.Conn().Exec("DELETE FROM courses"); err != nil {
		return fmt.Errorf("failed to delete courses: %w", err)
	}

	if _, err := db.Conn().Exec("DELETE FROM programs"); err != nil {
		return fmt.Errorf("failed to delete programs: %w", err)
	}

	return nil
}

// corpusStats reads the final counts for the summary line.
func corpusStats(ctx context.Context, db *kb.DB, log *logger.Logger) (programs, courses, qaPairs int) {
	allPrograms, err := db.GetAllPrograms(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to count programs")
	}
	programs = len(allPrograms)

	courses, err = db.CountCourses(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to count courses")
	}

	qaPairs, err = db.CountQAPairs(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to count QA pairs")
	}

	return programs, courses, qaPairs
}
