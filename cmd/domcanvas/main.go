// Command domcanvas parses editable markup documents and serves the
// synchronization engine.
//
// Usage:
//
//	domcanvas -parse page.html          # parse and print the element tree as JSON
//	domcanvas -inject page.html         # print markup with identity attributes injected
//	domcanvas -serve                    # HTTP service with connectivity routing
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domcanvas/canonical"
	"github.com/hazyhaar/domcanvas/connectivity"
	"github.com/hazyhaar/domcanvas/domsync"
	"github.com/hazyhaar/domcanvas/idgen"
	"github.com/hazyhaar/domcanvas/markup"
	"github.com/hazyhaar/domcanvas/override"
)

func main() {
	parsePath := flag.String("parse", "", "parse a markup file and print the element tree as JSON")
	injectPath := flag.String("inject", "", "inject identity attributes into a markup file and print the result")
	serve := flag.Bool("serve", false, "run the HTTP service")
	configPath := flag.String("config", "", "path to domcanvas.yaml config file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *parsePath, *injectPath, *serve, *configPath); err != nil {
		logger.Error("domcanvas: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, parsePath, injectPath string, serve bool, configPath string) error {
	switch {
	case parsePath != "":
		return runParse(parsePath)
	case injectPath != "":
		return runInject(injectPath)
	case serve:
		return runServe(ctx, logger, configPath)
	}
	fmt.Fprintln(os.Stderr, "usage: domcanvas -parse <file> | -inject <file> | -serve")
	os.Exit(1)
	return nil
}

func runParse(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	result, err := markup.Parse(string(raw))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	out := map[string]any{
		"root":      result.Root,
		"elements":  len(result.Index),
		"style":     result.StyleText,
		"script":    result.ScriptText,
		"resources": result.Resources,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runInject(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	out, err := markup.InjectIdentifiers(string(raw))
	if err != nil {
		return fmt.Errorf("inject: %w", err)
	}
	fmt.Println(out)
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, configPath string) error {
	port := env("PORT", "8086")
	dbPath := env("DB_PATH", "db/domcanvas.db")

	cfg := &domsync.Config{}
	if configPath != "" {
		loaded, err := domsync.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	store, err := canonical.Open(dbPath, canonical.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("canonical store: %w", err)
	}
	defer store.Close()

	if err := connectivity.Init(store.DB); err != nil {
		return fmt.Errorf("routes schema: %w", err)
	}

	engine := domsync.NewEngine(
		domsync.WithConfig(*cfg),
		domsync.WithLogger(logger),
	)

	// Re-register documents that have canonical state from a previous run.
	docIDs, err := store.DocIDs(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	for _, docID := range docIDs {
		state, err := store.Document(ctx, docID)
		if err != nil {
			logger.Warn("skip document", "doc_id", docID, "error", err)
			continue
		}
		st := engine.InitSync(docID, nil, nil, state)
		for _, o := range state.Overrides() {
			st.Log.Add(o)
		}
	}
	if len(docIDs) > 0 {
		logger.Info("documents restored", "count", len(docIDs))
	}

	router := connectivity.New(connectivity.WithLogger(logger))
	router.RegisterTransport("http", connectivity.HTTPFactory())
	engine.RegisterConnectivity(router)
	defer router.Close()
	go router.Watch(ctx, store.DB, 200*time.Millisecond)

	admin := connectivity.NewAdmin(store.DB)
	describer := override.NewDescriber()

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/documents", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Markup string `json:"markup"`
			DocID  string `json:"doc_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		parsed, err := markup.Parse(body.Markup)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		docID := body.DocID
		if docID == "" {
			docID = idgen.New()
		}
		state, err := store.Document(req.Context(), docID)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		engine.InitSync(docID, parsed, nil, state)
		writeJSON(w, 201, map[string]any{
			"doc_id":   docID,
			"elements": len(parsed.Index),
			"root_id":  parsed.Root.ID,
		})
	})

	r.Route("/api/documents/{docID}", func(r chi.Router) {
		r.Get("/tree", func(w http.ResponseWriter, req *http.Request) {
			docID := chi.URLParam(req, "docID")
			st, ok := engine.State(docID)
			if !ok || st.Parsed == nil {
				writeError(w, 404, domsync.ErrUnknownDocument)
				return
			}
			writeJSON(w, 200, st.Parsed.Root)
		})

		r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
			docID := chi.URLParam(req, "docID")
			entries, err := engine.History(docID)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			writeJSON(w, 200, map[string]any{
				"entries":   entries,
				"summaries": describer.DescribeHistory(entries),
			})
		})

		r.Post("/overrides", func(w http.ResponseWriter, req *http.Request) {
			docID := chi.URLParam(req, "docID")
			var o override.Override
			if err := json.NewDecoder(req.Body).Decode(&o); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := engine.ApplyOverride(docID, o); err != nil {
				writeEngineError(w, err)
				return
			}
			st, _ := engine.State(docID)
			writeJSON(w, 200, map[string]any{"status": string(st.Status), "records": st.Log.Count()})
		})

		r.Post("/restore", func(w http.ResponseWriter, req *http.Request) {
			docID := chi.URLParam(req, "docID")
			var body struct {
				Timestamp int64 `json:"timestamp"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := engine.RestoreToVersion(docID, body.Timestamp); err != nil {
				writeEngineError(w, err)
				return
			}
			st, _ := engine.State(docID)
			writeJSON(w, 200, map[string]any{"status": string(st.Status), "records": st.Log.Count()})
		})

		r.Post("/validate", func(w http.ResponseWriter, req *http.Request) {
			docID := chi.URLParam(req, "docID")
			inSync, err := engine.ValidateSync(docID)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			st, _ := engine.State(docID)
			writeJSON(w, 200, map[string]any{"in_sync": inSync, "status": string(st.Status)})
		})

		r.Post("/recover", func(w http.ResponseWriter, req *http.Request) {
			docID := chi.URLParam(req, "docID")
			if err := engine.RecoverSync(docID); err != nil {
				writeEngineError(w, err)
				return
			}
			st, _ := engine.State(docID)
			writeJSON(w, 200, map[string]any{"status": string(st.Status)})
		})

		r.Delete("/", func(w http.ResponseWriter, req *http.Request) {
			docID := chi.URLParam(req, "docID")
			engine.RemoveSync(docID)
			if err := store.Delete(req.Context(), docID); err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, map[string]string{"status": "deleted"})
		})
	})

	r.Get("/api/routes", func(w http.ResponseWriter, req *http.Request) {
		routes, err := admin.ListRoutes(req.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		if routes == nil {
			routes = []connectivity.RouteRow{}
		}
		writeJSON(w, 200, routes)
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domsync.ErrUnknownDocument):
		writeError(w, 404, err)
	case errors.Is(err, domsync.ErrNoCanonicalState), errors.Is(err, override.ErrEmptyOverride):
		writeError(w, 400, err)
	default:
		writeError(w, 500, err)
	}
}

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
