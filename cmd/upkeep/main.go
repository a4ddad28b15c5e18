package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	gitadapter "github.com/ericfisherdev/upkeep/internal/adapter/driven/git"
	githubadapter "github.com/ericfisherdev/upkeep/internal/adapter/driven/github"
	"github.com/ericfisherdev/upkeep/internal/adapter/driven/memory"
	sqliteadapter "github.com/ericfisherdev/upkeep/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/upkeep/internal/adapter/driven/statefile"
	"github.com/ericfisherdev/upkeep/internal/adapter/driven/toolkit"
	"github.com/ericfisherdev/upkeep/internal/adapter/driving/cli"
	httphandler "github.com/ericfisherdev/upkeep/internal/adapter/driving/http"
	"github.com/ericfisherdev/upkeep/internal/application"
	"github.com/ericfisherdev/upkeep/internal/config"
	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// version is stamped by release builds via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		execute         = flag.Bool("execute", false, "apply the newest release when one is available and not dismissed")
		dismiss         = flag.String("dismiss", "", "dismiss notifications for the given version and exit")
		clearDismissals = flag.Bool("clear-dismissals", false, "remove all dismissal records and exit")
		clearCache      = flag.Bool("clear-cache", false, "clear the cached release info and exit")
		forceRefresh    = flag.Bool("force-refresh", false, "bypass the release cache for this check")
		jsonOut         = flag.Bool("json", false, "print the report as JSON instead of text")
		serveAddr       = flag.String("serve", "", "run the status HTTP API on this address instead of a one-shot check (empty value uses UPKEEP_LISTEN_ADDR)")
		verbose         = flag.Bool("verbose", false, "enable debug logging")
		showVersion     = flag.Bool("version", false, "print the upkeep version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("upkeep %s\n", version)
		return nil
	}

	serveMode := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "serve" {
			serveMode = true
		}
	})

	// One-shot runs keep stderr quiet so the stdout report is the output;
	// serve mode logs every request.
	level := slog.LevelWarn
	if serveMode {
		level = slog.LevelInfo
	}
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// 1. Load configuration (fail fast on missing or malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Debug("config loaded",
		"repo", cfg.Repo,
		"toolkit_dir", cfg.ToolkitDir,
		"state_backend", cfg.StateBackend,
		"cache_ttl", cfg.CacheTTL,
		"ordering", cfg.VersionOrdering,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Resolve the installed toolkit version.
	current, err := resolveCurrentVersion(cfg)
	if err != nil {
		return err
	}

	// 4. Open state stores for the configured backend.
	cache, dismissals, closeState, err := openStateStores(cfg)
	if err != nil {
		return err
	}
	defer closeState()

	// 5. Create the GitHub release source.
	source, err := githubadapter.NewClient(cfg.GitHubToken, cfg.Repo, cfg.AllowPrerelease)
	if err != nil {
		return err
	}

	// 6. Wire application services. The working tree is opened only when an
	// update can actually be applied, so plain checks work anywhere.
	var executor *application.UpdateService
	if *execute {
		tree, err := gitadapter.Open(cfg.ToolkitDir)
		if err != nil {
			return fmt.Errorf("open toolkit working tree: %w", err)
		}
		executor = application.NewUpdateService(
			tree,
			toolkit.NewHookRunner(cfg.ToolkitDir),
			toolkit.NewMarkerVerifier(cfg.ToolkitDir, cfg.MarkerFiles),
		)
	}
	fetch := application.NewFetchService(source, cache, cfg.CacheTTL)
	checks := application.NewCheckService(fetch, dismissals, executor, current, application.VersionOrdering(cfg.VersionOrdering))

	// 7. Dispatch: administrative ops, serve mode, or a one-shot check.
	if *dismiss != "" {
		target, err := model.ParseVersion(*dismiss)
		if err != nil {
			return fmt.Errorf("parse --dismiss version: %w", err)
		}
		rec, err := checks.Dismiss(ctx, target)
		if err != nil {
			return err
		}
		fmt.Printf("Dismissed %s. Use --clear-dismissals to be notified again.\n", rec.Version)
		return nil
	}
	if *clearDismissals || *clearCache {
		if *clearDismissals {
			if err := checks.ClearAllDismissals(ctx); err != nil {
				return err
			}
			fmt.Println("Cleared all dismissals.")
		}
		if *clearCache {
			if err := checks.ClearCache(ctx); err != nil {
				return err
			}
			fmt.Println("Cleared release cache.")
		}
		return nil
	}

	if serveMode {
		addr := *serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}
		return serveHTTP(ctx, addr, checks)
	}

	return runOnce(ctx, checks, *execute, *forceRefresh, *jsonOut)
}

// resolveCurrentVersion prefers the explicit override so containers without a
// checkout can still run checks.
func resolveCurrentVersion(cfg *config.Config) (model.Version, error) {
	if cfg.CurrentVersion != "" {
		v, err := model.ParseVersion(cfg.CurrentVersion)
		if err != nil {
			return model.Version{}, fmt.Errorf("parse UPKEEP_CURRENT_VERSION: %w", err)
		}
		return v, nil
	}
	v, err := toolkit.InstalledVersion(cfg.ToolkitDir)
	if err != nil {
		return model.Version{}, fmt.Errorf("resolve installed version: %w (set UPKEEP_CURRENT_VERSION to override)", err)
	}
	return v, nil
}

func openStateStores(cfg *config.Config) (driven.ReleaseCache, driven.DismissalStore, func(), error) {
	switch cfg.StateBackend {
	case config.BackendSQLite:
		db, err := sqliteadapter.NewDB(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				slog.Error("error closing state database", "error", err)
			}
		}
		return sqliteadapter.NewCacheRepo(db), sqliteadapter.NewDismissalRepo(db), closeFn, nil
	case config.BackendMemory:
		return memory.NewCacheStore(), memory.NewDismissalStore(), func() {}, nil
	default:
		return statefile.NewCacheStore(cfg.StateDir), statefile.NewDismissalStore(cfg.StateDir), func() {}, nil
	}
}

// runOnce performs a single check (or check-and-execute) and prints the
// report to stdout. Update availability and handled degradations exit zero;
// the error return is reserved for states the operator must repair.
func runOnce(ctx context.Context, checks *application.CheckService, execute, forceRefresh, jsonOut bool) error {
	report := cli.Report{}

	var execErr error
	if execute {
		checkReport, result, err := checks.CheckAndExecute(ctx, forceRefresh)
		report.Status = cli.NewStatusReport(checkReport)
		if result != nil {
			update := cli.NewUpdateReport(*result)
			report.Update = &update
		}
		execErr = err
	} else {
		report.Status = cli.NewStatusReport(checks.Check(ctx, forceRefresh))
	}

	if records, err := checks.ListDismissals(ctx); err != nil {
		slog.Warn("listing dismissals failed", "error", err)
	} else {
		for _, rec := range records {
			report.Dismissals = append(report.Dismissals, cli.NewDismissalInfo(rec))
		}
	}

	if jsonOut {
		if err := cli.WriteJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		cli.WriteText(os.Stdout, report)
	}

	// Only the rollback double-failure surfaces here; the tree needs manual
	// attention and the exit code has to say so.
	return execErr
}

func serveHTTP(ctx context.Context, addr string, checks *application.CheckService) error {
	handler := httphandler.NewHandler(checks, slog.Default())

	srv := &http.Server{
		Addr:              addr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}
