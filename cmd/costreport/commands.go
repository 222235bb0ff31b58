package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/Strob0t/costreport/internal/adapter/postgres"
	"github.com/Strob0t/costreport/internal/config"
	"github.com/Strob0t/costreport/internal/domain/provider"
	"github.com/Strob0t/costreport/internal/logger"
	"github.com/Strob0t/costreport/internal/middleware"
	"github.com/Strob0t/costreport/internal/service"
)

// runCommand dispatches one-shot subcommands (report, migrate, migrate-tenant, report-types).
func runCommand(name string, args []string) error {
	switch name {
	case "report":
		return runReport(args, os.Stdout)
	case "migrate":
		return runMigrate(args)
	case "migrate-tenant":
		return runMigrateTenant(args)
	case "report-types":
		return runReportTypes(args, os.Stdout)
	case "help", "--help", "-h":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", name)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: costreport [command] [options]

Without a command the HTTP server is started.

Commands:
  report           Compute one report and write it to stdout
  report-types     List the report types of a provider
  migrate          Apply migrations to the public schema
  migrate-tenant   Create a tenant schema and apply migrations to it
  help             Show this help message

Examples:
  costreport report --tenant acct10001 --provider aws --report costs --query 'group_by[service]=*&filter[limit]=5'
  costreport report --tenant acct10001 --provider aws --report costs --line-items --csv
  costreport report-types --provider ocp
  costreport migrate-tenant --schema acct10001
`)
}

func loadCommandConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Commands log to stderr so stdout carries only the report.
	log, _ := logger.NewWithWriter(config.Logging{Level: cfg.Logging.Level, Service: cfg.Logging.Service}, os.Stderr)
	slog.SetDefault(log)
	return cfg, nil
}

func runReport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant schema (default from config)")
	prov := fs.String("provider", provider.AWS, "provider: aws or ocp")
	reportType := fs.String("report", "costs", "report type")
	query := fs.String("query", "", "report query string, e.g. group_by[service]=*")
	csv := fs.Bool("csv", false, "write CSV instead of JSON")
	lineItems := fs.Bool("line-items", false, "export raw line items instead of the sum report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadCommandConfig()
	if err != nil {
		return err
	}
	if *tenant == "" {
		*tenant = cfg.Report.DefaultTenant
	}
	if !middleware.ValidTenant(*tenant) {
		return fmt.Errorf("invalid tenant %q", *tenant)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	db := postgres.OpenDB(pool)
	defer func() { _ = db.Close() }()

	res, err := service.NewReportService(postgres.NewSource(db)).Render(ctx, service.Request{
		Tenant:     *tenant,
		Provider:   *prov,
		ReportType: *reportType,
		RawQuery:   *query,
		IsSum:      !*lineItems,
		CSV:        *csv,
	})
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if _, err := out.Write(res.Body); err != nil {
		return err
	}
	if !*csv {
		_, err = fmt.Fprintln(out)
	}
	return err
}

func runReportTypes(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report-types", flag.ContinueOnError)
	prov := fs.String("provider", "", "provider: aws or ocp (all when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	providers := []string{provider.AWS, provider.OCP}
	if *prov != "" {
		providers = []string{*prov}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROVIDER\tREPORT TYPE\tGROUP BY")
	for _, p := range providers {
		types := provider.ReportTypes(p)
		if len(types) == 0 {
			return fmt.Errorf("unknown provider %q", p)
		}
		for _, t := range types {
			m, err := provider.Lookup(p, t)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%v\n", p, t, m.GroupByOptions())
		}
	}
	return w.Flush()
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadCommandConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Public schema at version %d\n", v)
	return nil
}

func runMigrateTenant(args []string) error {
	fs := flag.NewFlagSet("migrate-tenant", flag.ContinueOnError)
	schema := fs.String("schema", "", "tenant schema name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *schema == "" {
		return fmt.Errorf("--schema is required")
	}
	if !middleware.ValidTenant(*schema) {
		return fmt.Errorf("invalid schema name %q", *schema)
	}

	cfg, err := loadCommandConfig()
	if err != nil {
		return err
	}

	if err := postgres.MigrateTenant(context.Background(), cfg.Postgres.DSN, *schema); err != nil {
		return fmt.Errorf("migrate tenant: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Tenant schema %s migrated\n", *schema)
	return nil
}
