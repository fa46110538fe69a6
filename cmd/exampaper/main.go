package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exampaper/internal/generate"
	"github.com/pavelanni/exampaper/internal/handler"
	appI18n "github.com/pavelanni/exampaper/internal/i18n"
	"github.com/pavelanni/exampaper/internal/llm"
	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/paper"
	"github.com/pavelanni/exampaper/internal/render"
	"github.com/pavelanni/exampaper/internal/store"
)

const (
	sessionCleanupInterval = time.Hour
	draftSweepInterval     = 10 * time.Minute
	shutdownTimeout        = 15 * time.Second
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "exampaper",
		Short: "Exam paper authoring with generated questions and printable sheets",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), renderCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `exampaper --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "exampaper.db", "SQLite database path")
	f.Duration("store-timeout", paper.DefaultStoreTimeout, "Timeout for a single store operation")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP authoring server",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "Default language of printable sheets (en, ru)")
	f.String("generator", "service", "Question generator (service, llm, none)")
	f.String("generator-url", "http://localhost:8000", "Base URL of the question generation service")
	f.Duration("generator-timeout", paper.DefaultGenerateTimeout, "Timeout for one generation request")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Duration("draft-ttl", paper.DefaultDraftTTL, "Idle time after which an unsaved draft is discarded")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /papers)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set EXAMPAPER_ADMIN_PASSWORD)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's exam papers as JSON",
		RunE:  runExport,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("user", "u", "", "Username whose papers are exported (required)")
	f.StringP("project", "p", "", "Only export papers of this project")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a saved paper as printable HTML",
		RunE:  runRender,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("user", "u", "", "Username who owns the paper (required)")
	f.String("paper", "", "Paper ID (required)")
	f.String("sheet", string(render.KindExam), "Sheet to render (exam, answers)")
	f.StringP("lang", "l", "en", "Language of the sheet (en, ru)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("paper")
	return cmd
}

func setupLogging(v *viper.Viper) {
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

	v.SetEnvPrefix("EXAMPAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("exampaper")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/exampaper")
	v.AddConfigPath("/etc/exampaper")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// setup configures logging and opens the database for a command.
func setup(cmd *cobra.Command) (*viper.Viper, *store.Store, error) {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return v, db, nil
}

func appConfig(v *viper.Viper) model.AppConfig {
	return model.AppConfig{
		BasePath:         normalizeBasePath(v.GetString("base-path")),
		SecureCookies:    v.GetBool("secure-cookies"),
		StoreTimeout:     v.GetDuration("store-timeout"),
		GenerateTimeout:  v.GetDuration("generator-timeout"),
		DraftTTL:         v.GetDuration("draft-ttl"),
		DefaultSessionID: paper.DefaultSessionID,
	}
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// newGenerator returns the configured generator, or nil when generation is off.
func newGenerator(ctx context.Context, v *viper.Viper, db *store.Store) (generate.Generator, error) {
	switch kind := strings.ToLower(v.GetString("generator")); kind {
	case "service":
		slog.Info("using generation service", "url", v.GetString("generator-url"))
		return generate.NewHTTPClient(v.GetString("generator-url"), v.GetDuration("generator-timeout")), nil
	case "llm":
		c := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"), db)
		if err := c.Ping(ctx); err != nil {
			return nil, fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
		return c, nil
	case "none", "":
		slog.Warn("question generation disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown generator %q (want service, llm or none)", kind)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	gen, err := newGenerator(ctx, v, db)
	if err != nil {
		return err
	}

	cfg := appConfig(v)
	ws := paper.NewWorkspace(cfg.DraftTTL)
	papers := paper.NewService(paper.NewRepository(db), ws, gen, cfg)
	h := handler.New(db, papers, cfg)

	go ws.Run(ctx, draftSweepInterval)
	go cleanupSessions(ctx, db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if cfg.BasePath != "" {
		r.Route(cfg.BasePath, h.Routes)
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"generator", v.GetString("generator"),
		"draft_ttl", cfg.DraftTTL,
		"store_timeout", cfg.StoreTimeout,
		"generate_timeout", cfg.GenerateTimeout,
		"base_path", cfg.BasePath,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("could not stop server gracefully", "error", err)
			return srv.Close()
		}
		return nil
	}
}

func cleanupSessions(ctx context.Context, db *store.Store) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanupExpiredSessions()
			if err != nil {
				slog.Error("failed to clean up auth sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("removed expired auth sessions", "count", n)
			}
		}
	}
}

// lookupUser resolves the owner named on the command line.
func lookupUser(db *store.Store, username string) (*model.User, error) {
	u, err := db.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %q not found", username)
	}
	return u, nil
}

// openOutput returns stdout for "-" or an empty path.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func runExport(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := lookupUser(db, v.GetString("user"))
	if err != nil {
		return err
	}

	svc := paper.NewService(paper.NewRepository(db), paper.NewWorkspace(0), nil, appConfig(v))
	export, err := svc.Export(cmd.Context(), *user, v.GetString("project"))
	if err != nil {
		return fmt.Errorf("export papers: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	w, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported papers", "user", user.Username, "count", export.NumPapers)
	return nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	v, db, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	kind, ok := render.ParseKind(v.GetString("sheet"))
	if !ok {
		return fmt.Errorf("unknown sheet %q (want exam or answers)", v.GetString("sheet"))
	}
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	user, err := lookupUser(db, v.GetString("user"))
	if err != nil {
		return err
	}

	ctx := appI18n.WithLang(cmd.Context(), lang)
	svc := paper.NewService(paper.NewRepository(db), paper.NewWorkspace(0), nil, appConfig(v))
	p, err := svc.LoadPaper(ctx, v.GetString("paper"), user.ID)
	if err != nil {
		return fmt.Errorf("load paper: %w", err)
	}

	layout := render.ExamLayout(p.Settings, p.Questions)
	if kind == render.KindAnswers {
		layout = render.AnswerSheet(p.Settings, p.Questions)
	}

	w, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := render.HTML(layout).Render(ctx, w); err != nil {
		return fmt.Errorf("render %s: %w", kind, err)
	}
	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMPAPER_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
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
