package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/acmecorp/quote-workflow/internal/ack"
	"github.com/acmecorp/quote-workflow/internal/activity"
	"github.com/acmecorp/quote-workflow/internal/config"
	"github.com/acmecorp/quote-workflow/internal/export"
	"github.com/acmecorp/quote-workflow/internal/parser"
	"github.com/acmecorp/quote-workflow/internal/pricing"
	"github.com/acmecorp/quote-workflow/internal/quote"
	"github.com/acmecorp/quote-workflow/internal/repository"
	"github.com/acmecorp/quote-workflow/internal/server"
	"github.com/acmecorp/quote-workflow/internal/storage"
	"github.com/acmecorp/quote-workflow/internal/workflow"
	"github.com/acmecorp/quote-workflow/pkg/database"
	"github.com/acmecorp/quote-workflow/pkg/utils"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

const usage = `Usage: workflow <command> [flags]

Commands:
  process <inbox-dir>   Parse, acknowledge and quote every .txt email in the inbox
  export <output.xlsx>  Write the stored quote ledger to an Excel workbook
  serve                 Start the read-only HTTP API over stored results
  stats                 Print activity log statistics

Flags:
  -config <path>        Configuration file (default configs/config.yaml)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := flags.String("config", "configs/config.yaml", "configuration file")
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	// Local overrides (paths, company identity) live in .env during
	// development; missing file is fine.
	_ = gotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(command, flags.Args(), cfg, logger); err != nil {
		logger.Error("Command failed", zap.String("command", command), zap.Error(err))
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to built-in defaults when
// the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default()
	}
	return config.Load(path)
}

func run(command string, args []string, cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	results := repository.NewResultRepository(db.DB, logger)
	activityRepo := repository.NewActivityRepository(db.DB, logger)

	switch command {
	case "process":
		if len(args) != 1 {
			return fmt.Errorf("usage: workflow process <inbox-dir>")
		}
		return runProcess(ctx, args[0], cfg, results, activityRepo, logger)

	case "export":
		if len(args) != 1 {
			return fmt.Errorf("usage: workflow export <output.xlsx>")
		}
		count, err := export.NewExporter(results, logger).Export(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d quotes to %s\n", count, args[0])
		return nil

	case "serve":
		srv := server.New(results, activityRepo, logger)
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("Starting read-only API", zap.String("addr", addr))
		httpServer := &http.Server{
			Addr:         addr,
			Handler:      srv.Router(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		return httpServer.ListenAndServe()

	case "stats":
		stats, err := activityRepo.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Activity entries: %d\n", stats.TotalEntries)
		fmt.Printf("Unique emails:    %d\n", stats.UniqueEmails)
		fmt.Printf("Errors:           %d\n", stats.Errors)
		for action, count := range stats.Actions {
			fmt.Printf("  %-10s %d\n", action, count)
		}
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runProcess(
	ctx context.Context,
	inboxDir string,
	cfg *config.Config,
	results *repository.ResultRepository,
	activityRepo *repository.ActivityRepository,
	logger *zap.Logger,
) error {
	catalog, err := pricing.LoadPriceList(cfg.Pricing.PriceListPath)
	if err != nil {
		return fmt.Errorf("failed to load price list: %w", err)
	}
	tiers, err := pricing.LoadDiscountTiers(cfg.Pricing.DiscountRulesPath)
	if err != nil {
		return fmt.Errorf("failed to load discount rules: %w", err)
	}

	orchestrator := workflow.NewOrchestrator(
		parser.NewParser(catalog, logger),
		ack.NewGenerator(ack.Config{
			CompanyName:  cfg.Workflow.CompanyName,
			ContactEmail: cfg.Workflow.ContactEmail,
			SLAHours:     cfg.Workflow.SLAHours,
		}),
		quote.NewGenerator(catalog, tiers, quote.Config{
			TaxRate:         cfg.Workflow.TaxRate,
			DefaultCurrency: cfg.Workflow.DefaultCurrency,
			ValidityDays:    cfg.Workflow.QuoteValidityDays,
		}, logger),
		storage.NewArtifactStore(cfg.Storage.BaseDir, logger),
		results,
		activity.NewRepositorySink(activityRepo, logger),
		logger,
	)

	summary, err := orchestrator.ProcessInbox(ctx, inboxDir)
	if err != nil {
		return err
	}

	fmt.Println("\nWorkflow Results:")
	fmt.Printf("  Processed: %d\n", summary.Processed)
	fmt.Printf("  Failed:    %d\n", summary.Failed)
	fmt.Printf("  Skipped:   %d\n", summary.Skipped)
	fmt.Printf("  Total:     %d\n", summary.Total)

	if summary.Failed > 0 {
		return fmt.Errorf("%d emails failed", summary.Failed)
	}
	return nil
}
