// CLAUDE:SUMMARY Entry point for the snapkeep HTTP service — chi router over the capture/store/retention facade, optional MCP stdio.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/snapkeep/capture"
	"github.com/hazyhaar/snapkeep/config"
	"github.com/hazyhaar/snapkeep/dbopen"
	"github.com/hazyhaar/snapkeep/observability"
	"github.com/hazyhaar/snapkeep/retention"
	"github.com/hazyhaar/snapkeep/service"
	"github.com/hazyhaar/snapkeep/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	logLevel := flag.String("log-level", env("LOG_LEVEL", "info"), "debug | info | warn | error")
	flag.Parse()

	// Logging.
	var lvl slog.Level
	switch *logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Configuration.
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			slog.Error("load config", "error", err, "path", *configPath)
			os.Exit(1)
		}
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Event DB.
	eventsDB, err := dbopen.Open(cfg.EventsDB, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("events db", "error", err)
		os.Exit(1)
	}
	defer eventsDB.Close()
	events := observability.NewEventLogger(eventsDB)
	if err := events.Init(); err != nil {
		slog.Error("events init", "error", err)
		os.Exit(1)
	}
	// Prune the event log once per boot; events older than 30 days go.
	if err := events.Cleanup(ctx, 30*24*time.Hour); err != nil {
		slog.Warn("events cleanup", "error", err)
	}

	// Browser.
	b := capture.NewBrowser(capture.BrowserConfig{
		RemoteURL:       cfg.Browser.Remote,
		MemoryLimit:     cfg.Browser.MemoryLimit,
		RecycleInterval: cfg.Browser.RecycleInterval.Std(),
		Logger:          logger,
	})
	if err := b.Start(ctx); err != nil {
		slog.Error("browser start", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	// Capture orchestrator.
	orch := capture.New(b, capture.Config{
		NavTimeout:      cfg.Capture.NavTimeout.Std(),
		SelectorTimeout: cfg.Capture.SelectorTimeout.Std(),
		ProbeTimeout:    cfg.Capture.ProbeTimeout.Std(),
		SettleTimeout:   cfg.Capture.SettleTimeout.Std(),
		AnimationDelay:  cfg.Capture.AnimationDelay.Std(),
		ViewportWidth:   cfg.Capture.ViewportWidth,
		ViewportHeight:  cfg.Capture.ViewportHeight,
		MaxConcurrent:   cfg.Capture.MaxConcurrent,
		Logger:          logger,
	})

	// Artifact store.
	st := store.NewManager(store.Config{
		Dir:          cfg.Storage.Dir,
		MaxFileBytes: cfg.Storage.MaxFileBytes,
		Logger:       logger,
	})

	// Retention scheduler.
	sched := retention.New(st, retention.Config{
		MaxAge:          cfg.Retention.MaxAge.Std(),
		MaxFiles:        cfg.Retention.MaxFiles,
		MaxTotalBytes:   cfg.Retention.MaxTotalBytes,
		CleanupSchedule: cfg.Retention.CleanupSchedule,
		TrimSchedule:    cfg.Retention.TrimSchedule,
		MonitorSchedule: cfg.Retention.MonitorSchedule,
		DisableTrim:     cfg.Retention.DisableTrim,
		DisableMonitor:  cfg.Retention.DisableMonitor,
		Logger:          logger,
	})

	svc := service.New(orch, st, sched,
		service.WithLogger(logger),
		service.WithEventLogger(events))

	if cfg.Retention.AutoStart {
		if err := svc.StartScheduler(); err != nil {
			slog.Error("scheduler start", "error", err)
			os.Exit(1)
		}
	}
	defer svc.StopScheduler()

	// Optional MCP over stdio: the process becomes a tool server, no HTTP.
	if env("MCP_TRANSPORT", "") == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "snapkeep",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)

		slog.Info("MCP stdio starting")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/capture", func(w http.ResponseWriter, r *http.Request) {
		var req service.CaptureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		res, err := svc.Capture(r.Context(), req)
		if err != nil {
			writeError(w, service.HTTPStatus(err), err)
			return
		}
		writeJSON(w, 201, res)
	})

	r.Get("/api/check", func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if url == "" {
			writeError(w, 400, errors.New("url query parameter is required"))
			return
		}
		writeJSON(w, 200, svc.CheckURL(r.Context(), url))
	})

	r.Get("/api/pageinfo", func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if url == "" {
			writeError(w, 400, errors.New("url query parameter is required"))
			return
		}
		info, err := svc.PageInfo(r.Context(), url)
		if err != nil {
			writeError(w, service.HTTPStatus(err), err)
			return
		}
		writeJSON(w, 200, info)
	})

	r.Route("/api/screenshots", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			list, err := svc.List()
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, list)
		})

		r.Get("/{name}", func(w http.ResponseWriter, r *http.Request) {
			path, err := svc.Path(chi.URLParam(r, "name"))
			if err != nil {
				writeError(w, service.HTTPStatus(err), err)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			http.ServeFile(w, r, path)
		})

		r.Delete("/{name}", func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "name")
			deleted, err := svc.Delete(name)
			if err != nil {
				writeError(w, service.HTTPStatus(err), err)
				return
			}
			writeJSON(w, 200, map[string]any{"deleted": deleted, "name": name})
		})

		r.Get("/{name}/validate", func(w http.ResponseWriter, r *http.Request) {
			v, err := svc.Validate(chi.URLParam(r, "name"))
			if err != nil {
				writeError(w, service.HTTPStatus(err), err)
				return
			}
			writeJSON(w, 200, v)
		})
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		details := r.URL.Query().Get("details") == "true"
		stats, err := svc.Stats(details)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, stats)
	})

	r.Post("/api/cleanup", func(w http.ResponseWriter, r *http.Request) {
		hours := queryInt(r, "max_age_hours", 0)
		res := svc.CleanupNow(r.Context(), time.Duration(hours)*time.Hour)
		writeJSON(w, 200, res)
	})

	r.Post("/api/trim", func(w http.ResponseWriter, r *http.Request) {
		res := svc.TrimNow(r.Context(), queryInt(r, "max_files", 0))
		writeJSON(w, 200, res)
	})

	r.Route("/api/scheduler", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, svc.SchedulerStatus())
		})
		r.Post("/start", func(w http.ResponseWriter, _ *http.Request) {
			if err := svc.StartScheduler(); err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, svc.SchedulerStatus())
		})
		r.Post("/stop", func(w http.ResponseWriter, _ *http.Request) {
			svc.StopScheduler()
			writeJSON(w, 200, svc.SchedulerStatus())
		})
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen, "storage", cfg.Storage.Dir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
