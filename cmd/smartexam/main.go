package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartexam/smartexam/internal/handler"
	appI18n "github.com/smartexam/smartexam/internal/i18n"
	"github.com/smartexam/smartexam/internal/llm"
	"github.com/smartexam/smartexam/internal/model"
	"github.com/smartexam/smartexam/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "smartexam",
		Short: "Timed mock exam server with AI-assisted exam authoring",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `smartexam --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "smartexam.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "Message language (en, ru)")
	f.Duration("exam-duration", 180*time.Minute, "Time limit per exam attempt")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-key", "", "Initial admin access key (or set SMARTEXAM_ADMIN_KEY)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "smartexam.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
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

	v.SetEnvPrefix("SMARTEXAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("smartexam")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/smartexam")
	v.AddConfigPath("/etc/smartexam")
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

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed the admin access key on first run.
	if err := seedAdminKey(db, v.GetString("admin-key")); err != nil {
		return fmt.Errorf("seed admin key: %w", err)
	}

	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("cleanup expired auth sessions", "error", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Create LLM client.
	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	examCfg := model.ExamConfig{
		Duration:      v.GetDuration("exam-duration"),
		SecureCookies: v.GetBool("secure-cookies"),
	}

	h := handler.New(db, llmClient, examCfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"exam_duration", examCfg.Duration,
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

	results, err := db.ListResults()
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	// Resolve exam titles; deleted exams keep an empty title.
	titles := map[string]string{}
	exported := make([]model.ExportedResult, 0, len(results))
	for _, res := range results {
		title, ok := titles[res.ExamID]
		if !ok {
			exam, err := db.GetExam(res.ExamID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("resolve exam %s: %w", res.ExamID, err)
			}
			title = exam.Title
			titles[res.ExamID] = title
		}
		exported = append(exported, model.ExportedResult{
			ExamTitle:  title,
			ExamResult: res,
		})
	}

	export := model.ResultsExport{
		ExportedAt: time.Now().UnixMilli(),
		Results:    exported,
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

func seedAdminKey(db *store.Store, key string) error {
	stored, err := db.AdminKeyHash()
	if err != nil {
		return err
	}
	if stored != "" {
		return nil
	}

	if key == "" {
		return fmt.Errorf("admin access key is required: set --admin-key flag or SMARTEXAM_ADMIN_KEY env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin key: %w", err)
	}
	if err := db.SetAdminKeyHash(string(hash)); err != nil {
		return fmt.Errorf("store admin key hash: %w", err)
	}

	slog.Info("seeded admin access key")
	return nil
}
