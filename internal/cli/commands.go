// Package cli implements the orcamento command line: the HTTP server, schema
// migration and offline proposal export.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	// Registers the OpenAPI document served under /swagger.
	_ "github.com/tbourn/go-orcamento-backend/docs"
	"github.com/tbourn/go-orcamento-backend/internal/config"
	httpapi "github.com/tbourn/go-orcamento-backend/internal/http"
	"github.com/tbourn/go-orcamento-backend/internal/observability"
	"github.com/tbourn/go-orcamento-backend/internal/services"
	"github.com/tbourn/go-orcamento-backend/internal/sysutil"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = time.Hour
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var (
		envFile string
		cfg     config.Config
	)

	rootCmd := &cobra.Command{
		Use:           "orcamento",
		Short:         "Orçamento - AI-assisted sales quotes",
		Long:          "Backend for the conversational sales-quote flow: sessions, streamed assistant chat, proposal synthesis and exports.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			if err := loadEnv(envFile); err != nil {
				return err
			}
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg = loaded
			sysutil.SetupLogging(sysutil.LogOptions{
				Level:   cfg.LogLevel,
				Pretty:  cfg.LogPretty,
				Service: cfg.OTEL.ServiceName,
				Version: sysutil.BuildVersion(),
			})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration (ignored when missing)")

	rootCmd.AddCommand(newServeCmd(&cfg))
	rootCmd.AddCommand(newMigrateCmd(&cfg))
	rootCmd.AddCommand(newExportCmd(&cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadEnv loads path into the environment without overriding variables that
// are already set. A missing file is not an error.
func loadEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// newServeCmd creates the serve command.
func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *cfg)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.BuildVersion())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, app.DB, app.Services, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeIdempotency(ctx, app.DB, purgeInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("api_base", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := app.Workers.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("background relays still running at shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("bye")
	return nil
}

// newMigrateCmd creates the migrate command.
func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(*cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			log.Info().Str("driver", cfg.DBDriver).Msg("schema up to date")
			return nil
		},
	}
}

// newExportCmd creates the export command.
func newExportCmd(cfg *config.Config) *cobra.Command {
	var token, format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a session's proposal to a file",
		Long: `Render the stored proposal of a session as PDF or spreadsheet.
Example: orcamento export --token 0f1e2d3c... --format pdf --out proposta.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "pdf" && format != "xlsx" {
				return fmt.Errorf("--format must be pdf or xlsx, got %q", format)
			}

			app, err := NewApp(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			return runExport(cmd.Context(), app.Exports, token, format, out, cmd)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Session token")
	cmd.Flags().StringVar(&format, "format", "pdf", "Output format: pdf or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: the document's own file name)")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func runExport(ctx context.Context, exports *services.ExportService, token, format, out string, cmd *cobra.Command) error {
	render := exports.PDF
	if format == "xlsx" {
		render = exports.XLSX
	}
	doc, err := render(ctx, token)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	if out == "" {
		out = doc.FileName
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(out, doc.Body, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", out, len(doc.Body))
	return nil
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "orcamento %s\n", sysutil.BuildVersion())
		},
	}
}
