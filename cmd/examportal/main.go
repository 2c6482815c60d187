package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/pavelanni/examportal/internal/chat"
	"github.com/pavelanni/examportal/internal/csvimport"
	"github.com/pavelanni/examportal/internal/exam"
	"github.com/pavelanni/examportal/internal/explain"
	"github.com/pavelanni/examportal/internal/handler"
	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/identity"
	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examportal",
		Short: "Timed multiple-choice exams with an admin console and live chat",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examportal --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "examportal.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "UI language and explanation language (en, ru)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	addLLMFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("admin-email", "admin@example.com", "Email of the only admin account")
	f.String("admin-password", "", "Initial admin password (or set EXAMPORTAL_ADMIN_PASSWORD)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /exams)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Duration("student-ping", 5*time.Second, "Presence heartbeat period for students")
	f.Duration("admin-ping", 30*time.Second, "Presence heartbeat period for the admin")
	f.Duration("presence-window", 15*time.Second, "Age of the last heartbeat under which a student shows as online")
	f.Duration("typing-delay", 1500*time.Millisecond, "Idle time after the last keystroke before typing is cleared")
	f.Bool("draft-explanations", false, "Offer LLM drafting of missing explanations on upload")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [flags] FILE.csv",
		Short: "Create a test from a CSV question sheet",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	addCommonFlags(cmd)
	addLLMFlags(cmd)
	f := cmd.Flags()
	f.String("title", "", "Test title (defaults to the file name)")
	f.Float64("positive-mark", 1, "Marks per correct answer")
	f.Float64("negative-mark", 0, "Penalty per wrong answer")
	f.Int("duration", 10, "Duration in minutes")
	f.String("instructions", "", "Instructions shown before the exam")
	f.Bool("inactive", false, "Create the test deactivated")
	f.Bool("draft-explanations", false, "Draft missing explanations with the LLM before saving")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam results as JSON",
		RunE:  runExport,
	}
	addCommonFlags(cmd)
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
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

	v.SetEnvPrefix("EXAMPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examportal")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examportal")
	v.AddConfigPath("/etc/examportal")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newDrafter builds the explanation client, writing in the UI language.
func newDrafter(v *viper.Viper) *explain.Client {
	tag := language.Make(v.GetString("lang"))
	return explain.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		display.English.Languages().Name(tag),
	)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.CleanupExpiredSessions(ctx); err != nil {
		slog.Warn("failed to clean up expired sessions", "error", err)
	}

	ident := identity.New(db, v.GetString("admin-email"))
	if err := seedAdmin(ctx, db, ident, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.Config{
		AdminEmail:     ident.AdminEmail(),
		BasePath:       basePath,
		SecureCookies:  v.GetBool("secure-cookies"),
		StudentPing:    v.GetDuration("student-ping"),
		AdminPing:      v.GetDuration("admin-ping"),
		PresenceWindow: v.GetDuration("presence-window"),
		TypingDelay:    v.GetDuration("typing-delay"),
		DraftExplains:  v.GetBool("draft-explanations"),
	}

	var drafter handler.Drafter
	if cfg.DraftExplains {
		drafter = newDrafter(v)
		slog.Info("explanation drafting enabled", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	exams := exam.NewManager(exam.ActiveTests{TestSource: db}, db)
	chatSvc := chat.NewService(db, cfg)
	h := handler.New(db, ident, exams, chatSvc, drafter, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server",
			"addr", addr,
			"lang", lang,
			"admin", cfg.AdminEmail,
			"base_path", basePath,
			"draft_explanations", cfg.DraftExplains,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down", "active_exams", exams.Active())
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	path := args[0]

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(ctx, path)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("question sheet unchanged, skipping", "path", path)
		return nil
	}
	if storedHash != "" {
		slog.Warn("question sheet changed since last import, creating a new test", "path", path)
	}

	title := v.GetString("title")
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	t, err := csvimport.Build(csvimport.Meta{
		Title:        title,
		PositiveMark: v.GetFloat64("positive-mark"),
		NegativeMark: v.GetFloat64("negative-mark"),
		Duration:     v.GetInt("duration"),
		Instructions: v.GetString("instructions"),
	}, strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	t.Active = !v.GetBool("inactive")

	if v.GetBool("draft-explanations") {
		n, err := newDrafter(v).FillMissing(ctx, &t)
		if err != nil {
			slog.Warn("some explanations were not drafted", "error", err)
		}
		slog.Info("drafted explanations", "count", n)
	}

	id, err := db.CreateTest(ctx, t)
	if err != nil {
		return fmt.Errorf("create test from %s: %w", path, err)
	}
	if err := db.SetImportedFileHash(ctx, path, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported questions", "path", path, "test", id, "title", t.Title, "count", len(t.Questions))
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportResults(ctx)
	if err != nil {
		return fmt.Errorf("export results: %w", err)
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

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// seedAdmin creates the admin account on first start.
func seedAdmin(ctx context.Context, db *store.Store, ident *identity.Provider, password string) error {
	u, err := db.GetUserByEmail(ctx, ident.AdminEmail())
	if err != nil {
		return err
	}
	if u != nil {
		return nil
	}
	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMPORTAL_ADMIN_PASSWORD env var")
	}
	if _, err := ident.EnsureAdmin(ctx, password); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	slog.Info("seeded admin user", "email", ident.AdminEmail())
	return nil
}
