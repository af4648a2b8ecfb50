// Command secboard-admin is the operator CLI: it mints access tokens,
// inspects ingestion logs and triggers retention sweeps without going
// through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/secboard/api/internal/app/retention"
	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/internal/infra/postgres"
	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/jwt"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/migrations"
	"github.com/secboard/api/pkg/pagination"
	"github.com/secboard/api/pkg/password"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "secboard-admin",
		Short:         "Operator tooling for the SecBoard API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newTokenCmd())
	root.AddCommand(newIngestionsCmd())
	root.AddCommand(newRetentionCmd())
	root.AddCommand(newMigrateCmd())

	return root
}

// =============================================================================
// token
// =============================================================================

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access token management",
	}
	cmd.AddCommand(newTokenMintCmd())
	cmd.AddCommand(newTokenHashCmd())
	return cmd
}

func newTokenMintCmd() *cobra.Command {
	var (
		subject    string
		role       string
		passphrase string
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			switch role {
			case jwt.RoleAdmin, jwt.RoleUploader, jwt.RoleViewer:
			default:
				return fmt.Errorf("invalid role %q, want one of admin, uploader, viewer", role)
			}

			// Minting admin tokens requires the operator passphrase when
			// one is configured.
			if hash := os.Getenv("ADMIN_PASSPHRASE_HASH"); hash != "" && role == jwt.RoleAdmin {
				if err := password.New().Verify(passphrase, hash); err != nil {
					return fmt.Errorf("admin passphrase rejected")
				}
			}

			gen := jwt.NewGenerator(jwt.TokenConfig{
				Secret:         cfg.Auth.JWTSecret,
				Issuer:         cfg.Auth.JWTIssuer,
				AccessTokenTTL: cfg.Auth.AccessTokenDuration,
			})

			token, expiresAt, err := gen.GenerateAccessToken(subject, role)
			if err != nil {
				return err
			}

			return writeYAML(cmd.OutOrStdout(), map[string]any{
				"token":      token,
				"subject":    subject,
				"role":       role,
				"expires_at": expiresAt.Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject, usually an operator or exporter name")
	cmd.Flags().StringVar(&role, "role", jwt.RoleViewer, "Role claim: admin, uploader or viewer")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Operator passphrase, required for admin tokens when configured")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

// =============================================================================
// ingestions
// =============================================================================

func newIngestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingestions",
		Short: "Inspect ingestion log entries",
	}
	cmd.AddCommand(newIngestionsListCmd())
	cmd.AddCommand(newIngestionsShowCmd())
	return cmd
}

// ingestionSummary is the YAML shape for list output.
type ingestionSummary struct {
	ID            string `yaml:"id"`
	SourceTag     string `yaml:"source_tag"`
	OriginalName  string `yaml:"original_name"`
	Status        string `yaml:"status"`
	RowsProcessed int    `yaml:"rows_processed"`
	RowErrors     int    `yaml:"row_errors"`
	ImportedAt    string `yaml:"imported_at"`
}

func newIngestionsListCmd() *cobra.Command {
	var (
		sourceTag string
		status    string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent ingestion log entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRepo(func(ctx context.Context, repo ingestion.Repository) error {
				filter := ingestion.Filter{
					SourceTag: sourceTag,
					Status:    ingestion.Status(status),
				}
				result, err := repo.List(ctx, filter, pagination.New(1, limit))
				if err != nil {
					return err
				}

				out := make([]ingestionSummary, len(result.Data))
				for i, l := range result.Data {
					out[i] = ingestionSummary{
						ID:            l.ID().String(),
						SourceTag:     l.SourceTag(),
						OriginalName:  l.OriginalName(),
						Status:        l.Status().String(),
						RowsProcessed: l.RowsProcessed(),
						RowErrors:     l.RowErrors(),
						ImportedAt:    l.ImportedAt().Format(time.RFC3339),
					}
				}
				return writeYAML(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.Flags().StringVar(&sourceTag, "source-tag", "", "Filter by source tag")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, SUCCESS, PARTIAL, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to print")

	return cmd
}

func newIngestionsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one ingestion log entry with its error sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := shared.IDFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid ingestion ID %q", args[0])
			}

			return withRepo(func(ctx context.Context, repo ingestion.Repository) error {
				entry, err := repo.GetByID(ctx, id)
				if err != nil {
					return err
				}

				out := map[string]any{
					"id":               entry.ID().String(),
					"source_tag":       entry.SourceTag(),
					"filename":         entry.Filename(),
					"original_name":    entry.OriginalName(),
					"file_type":        string(entry.FileType()),
					"checksum":         entry.Checksum(),
					"status":           entry.Status().String(),
					"rows_processed":   entry.RowsProcessed(),
					"row_errors":       entry.RowErrors(),
					"report_date":      entry.ReportDate().Format("2006-01-02"),
					"imported_at":      entry.ImportedAt().Format(time.RFC3339),
					"duplicate_upload": entry.DuplicateUpload(),
				}
				if entry.ErrorLog() != "" {
					out["error_log"] = entry.ErrorLog()
				}
				return writeYAML(cmd.OutOrStdout(), out)
			})
		},
	}
	return cmd
}

// =============================================================================
// retention
// =============================================================================

func newRetentionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Data retention operations",
	}
	cmd.AddCommand(newRetentionSweepCmd())
	return cmd
}

func newRetentionSweepCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a retention sweep immediately",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dryRun {
				cfg.Retention.DryRun = true
			}

			db, err := postgres.New(&cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			log := logger.New(logger.Config{Level: cfg.Log.Level, Format: "text"})
			svc := newSweepService(cfg, db, log)

			report, err := svc.Sweep(context.Background())
			if err != nil {
				return err
			}

			out := map[string]any{
				"dry_run":      report.DryRun,
				"logs_deleted": report.LogsDeleted,
			}
			for family, n := range report.RecordsDeleted {
				out[family+"_deleted"] = n
			}
			return writeYAML(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log cutoffs without deleting")

	return cmd
}

// =============================================================================
// helpers
// =============================================================================

func withRepo(fn func(ctx context.Context, repo ingestion.Repository) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return fn(ctx, postgres.NewIngestionLogRepository(db))
}

func writeYAML(w interface{ Write([]byte) (int, error) }, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func newSweepService(cfg *config.Config, db *postgres.DB, log *logger.Logger) *retention.Service {
	records := []retention.NamedStore{
		{Family: "detection", Store: postgres.NewDetectionRepository(db)},
		{Family: "vulnerability", Store: postgres.NewVulnerabilityRepository(db)},
		{Family: "cloud_finding", Store: postgres.NewCloudFindingRepository(db)},
		{Family: "ticket", Store: postgres.NewTicketRepository(db)},
		{Family: "advisory", Store: postgres.NewAdvisoryRepository(db)},
		{Family: "scorecard_summary", Store: postgres.NewScorecardSummaryRepository(db)},
		{Family: "scorecard_issue", Store: postgres.NewScorecardIssueRepository(db)},
	}
	return retention.NewService(cfg.Retention, postgres.NewIngestionLogRepository(db), records, log)
}

// =============================================================================
// migrate
// =============================================================================

func newMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	cmd.PersistentFlags().StringVar(&dir, "dir", "migrations", "Directory containing migration files")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(dir, func(ctx context.Context, runner *migrations.Runner) error {
				applied, err := runner.Up(ctx)
				if err != nil {
					return err
				}
				return writeYAML(cmd.OutOrStdout(), map[string]any{"applied": applied})
			})
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(dir, func(ctx context.Context, runner *migrations.Runner) error {
				return runner.Down(ctx)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(dir, func(ctx context.Context, runner *migrations.Runner) error {
				applied, err := runner.AppliedMigrations(ctx)
				if err != nil {
					return err
				}
				pending, err := runner.PendingMigrations(ctx)
				if err != nil {
					return err
				}

				appliedOut := make([]string, len(applied))
				for i, rec := range applied {
					appliedOut[i] = rec.Version
				}
				pendingOut := make([]string, len(pending))
				for i, m := range pending {
					pendingOut[i] = m.String()
				}
				return writeYAML(cmd.OutOrStdout(), map[string]any{
					"applied": appliedOut,
					"pending": pendingOut,
				})
			})
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func withRunner(dir string, fn func(ctx context.Context, runner *migrations.Runner) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	runner := migrations.NewRunner(db.DB, dir)
	if err := runner.EnsureMigrationTable(ctx); err != nil {
		return err
	}
	return fn(ctx, runner)
}

func newTokenHashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-passphrase <passphrase>",
		Short: "Hash an operator passphrase for ADMIN_PASSPHRASE_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := password.New().Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	return cmd
}
