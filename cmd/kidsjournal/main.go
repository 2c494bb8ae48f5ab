package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/kidsjournal/internal/handler"
	appI18n "github.com/pavelanni/kidsjournal/internal/i18n"
	"github.com/pavelanni/kidsjournal/internal/llm"
	"github.com/pavelanni/kidsjournal/internal/llm/prompts"
	"github.com/pavelanni/kidsjournal/internal/model"
	"github.com/pavelanni/kidsjournal/internal/service"
	"github.com/pavelanni/kidsjournal/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kidsjournal",
		Short: "Progress and assessment service for kids' English classes",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), importTestsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `kidsjournal --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "kidsjournal.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default response language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /kids)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set KIDSJOURNAL_ADMIN_PASSWORD)")
	f.String("llm-url", "", "OpenAI-compatible API base URL for answer review (empty disables review)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("review-variant", string(prompts.PromptStandard), "Answer review prompt variant (strict, standard, lenient)")
	f.Int("stats-workers", 4, "Parallel student ledger reads per statistics request")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a group's student statistics as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "kidsjournal.db", "SQLite database path")
	f.Int64("group-id", 0, "Group to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.Int("stats-workers", 4, "Parallel student ledger reads")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("group-id")

	return cmd
}

func importTestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-tests FILE...",
		Short: "Import test definitions from JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImportTests,
	}
	f := cmd.Flags()
	f.String("db", "kidsjournal.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("KIDSJOURNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("kidsjournal")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/kidsjournal")
	v.AddConfigPath("/etc/kidsjournal")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := seedAdmin(ctx, db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := db.CleanupExpiredSessions(ctx); err != nil {
		slog.Warn("failed to clean up expired sessions", "error", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	reviewVariant := strings.ToLower(strings.TrimSpace(v.GetString("review-variant")))
	if !prompts.IsValidVariant(reviewVariant) {
		slog.Warn("invalid review-variant, using standard", "variant", reviewVariant)
		reviewVariant = string(prompts.PromptStandard)
	}

	// A nil *llm.Client must not end up inside the interface.
	var reviewer handler.Reviewer
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		llmClient, err := llm.New(llmURL, v.GetString("llm-key"), v.GetString("llm-model"), reviewVariant)
		if err != nil {
			return fmt.Errorf("create LLM client: %w", err)
		}
		if err := llmClient.Ping(ctx); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
		reviewer = llmClient
	} else {
		slog.Info("answer review disabled: no llm-url configured")
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.ServerConfig{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		ReviewVariant: reviewVariant,
		StatsWorkers:  v.GetInt("stats-workers"),
	}

	svc := service.New(db, cfg.StatsWorkers)
	h := handler.New(db, svc, reviewer, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware())

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"base_path", basePath,
		"review_variant", reviewVariant,
		"review_enabled", reviewer != nil,
		"stats_workers", cfg.StatsWorkers,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	svc := service.New(db, v.GetInt("stats-workers"))
	export, err := svc.ExportGroup(context.Background(), v.GetInt64("group-id"))
	if err != nil {
		return fmt.Errorf("export group: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func runImportTests(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res, err := service.ImportTests(ctx, db, filepath.Base(path), data)
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: skipped (%s)\n", path, res.Reason)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d tests\n", path, len(res.TestIDs))
	}
	return nil
}

func seedAdmin(ctx context.Context, db *store.Store, password string) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or KIDSJOURNAL_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(ctx, model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
