// Package main is the Kusuri CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kusuri/internal/config"
	"github.com/hyperjump/kusuri/internal/embedding"
	"github.com/hyperjump/kusuri/internal/graph"
	"github.com/hyperjump/kusuri/internal/resolver"
	"github.com/hyperjump/kusuri/internal/server"
	"github.com/hyperjump/kusuri/internal/storage"
	"github.com/hyperjump/kusuri/internal/vector"
	"github.com/hyperjump/kusuri/internal/watcher"
	"github.com/hyperjump/kusuri/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kusuri/config.yaml"

// loadConfig loads config from path. When path is the default, the
// KUSURI_CONFIG environment variable overrides it, then config.yaml in the
// current directory (for development). Returns the config and the path that
// was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if env := os.Getenv("KUSURI_CONFIG"); env != "" {
			cfg, err := config.Load(env)
			if err != nil {
				return nil, "", err
			}
			return cfg, env, nil
		}
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "load":
		runLoad()
	case "resolve":
		runResolve()
	case "suggest":
		runSuggest()
	case "interactions":
		runInteractions()
	case "stats":
		runStats()
	case "embed":
		runEmbed()
	case "export":
		runExport()
	case "version", "--version", "-v":
		fmt.Printf("kusuri version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components bundles the initialized engine pieces so commands can share one
// setup path and one teardown path.
type Components struct {
	Store    *storage.SQLiteStore
	Graph    *graph.Graph
	Embedder embedding.Embedder
	Resolver *resolver.Resolver
}

// Close releases held resources.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	g := graph.New()
	records, err := store.LoadAll()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load interaction snapshot: %w", err)
	}
	if err := g.ReplaceAll(records); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to restore interaction graph: %w", err)
	}
	if len(records) > 0 {
		logger.Info("interaction graph restored", zap.Int("interactions", len(records)))
	}

	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.ModelName,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX embedder unavailable, using mock embedder", zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	res := resolver.NewResolver(embedder, nil, cfg.Resolver.MaxTopK, logger)
	idx, err := loadIndex(cfg)
	if err != nil {
		// Degraded mode: interaction lookups keep working on exact names,
		// resolution endpoints report unavailable.
		logger.Warn("embedding artifacts unavailable, name resolution degraded",
			zap.String("artifact_path", cfg.Index.ArtifactPath),
			zap.Error(err))
	} else {
		res.Swap(idx)
	}

	return &Components{
		Store:    store,
		Graph:    g,
		Embedder: embedder,
		Resolver: res,
	}, nil
}

// activeResolver returns the resolver for interaction lookups: the real one
// when similarity resolution can run, otherwise the null fallback so lookups
// proceed on the names as given.
func activeResolver(r *resolver.Resolver) resolver.DrugResolver {
	if r.IsAvailable() {
		return r
	}
	return resolver.NewNullResolver()
}

func loadIndex(cfg *config.Config) (vector.Index, error) {
	records, _, err := vector.LoadArtifact(cfg.Index.ArtifactPath)
	if err != nil {
		return nil, err
	}
	return vector.NewIndex(cfg.Index.Type, records)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Artifacts {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		artifactWatcher := watcher.NewArtifactWatcher(cfg.Index.ArtifactPath, func() {
			idx, err := loadIndex(cfg)
			if err != nil {
				logger.Warn("artifact reload failed, keeping previous index", zap.Error(err))
				return
			}
			components.Resolver.Swap(idx)
		}, watchOpts...)
		if err := artifactWatcher.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start artifact watcher", zap.Error(err))
		}
		defer artifactWatcher.Stop()
	}

	srv := server.NewServer(components.Graph, components.Resolver, components.Store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if err := components.Store.ReplaceAll(components.Graph.Records()); err != nil {
		logger.Warn("failed to persist interaction snapshot", zap.Error(err))
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runLoad() {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	export := fs.Bool("export", false, "also export the graph as GraphML")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: kusuri load [flags] <file.csv|file.json|file.xlsx>")
		os.Exit(1)
	}

	cfg, logger, components := setup(*configPath)
	defer components.Close()

	report, err := components.Graph.LoadFile(fs.Arg(0))
	if err != nil {
		logger.Fatal("Load failed", zap.Error(err))
	}
	if err := components.Store.ReplaceAll(components.Graph.Records()); err != nil {
		logger.Fatal("Failed to persist snapshot", zap.Error(err))
	}
	if *export && cfg.Storage.GraphMLPath != "" {
		if err := components.Graph.SaveGraphML(cfg.Storage.GraphMLPath); err != nil {
			logger.Fatal("GraphML export failed", zap.Error(err))
		}
		fmt.Printf("Exported GraphML to %s\n", cfg.Storage.GraphMLPath)
	}

	stats := components.Graph.Stats()
	fmt.Printf("Loaded %d interactions (%d rows skipped)\n", report.Loaded, report.Skipped)
	fmt.Printf("Graph now holds %d drugs and %d interactions\n", stats.Drugs, stats.Interactions)
}

// viaHTTP performs a request against a running server. unreachable=true means
// the server could not be contacted and the caller should fall back to direct
// in-process access.
func viaHTTP(serverURL, method, path string, body interface{}) (raw []byte, unreachable bool, err error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, false, err
		}
	}
	req, err := http.NewRequest(method, serverURL+path, &buf)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		// Transport-level failure: server not running or not reachable.
		return nil, true, err
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(raw))
	}
	return raw, false, nil
}

// queryServer tries the HTTP API first and reports whether the caller should
// fall back to direct access. On HTTP-level errors it exits.
func queryServer(serverURL, method, path string, body interface{}) bool {
	if serverURL == "" {
		return false
	}
	raw, unreachable, err := viaHTTP(serverURL, method, path, body)
	if unreachable {
		fmt.Fprintf(os.Stderr, "Server %s unreachable, using direct access\n", serverURL)
		return false
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(bytes.TrimSpace(raw)))
	return true
}

func runResolve() {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct access)")
	threshold := fs.Float64("threshold", resolver.DefaultResolveThreshold, "minimum similarity for a match")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: kusuri resolve [flags] <name> [name...]")
		os.Exit(1)
	}

	if fs.NArg() == 1 && queryServer(*serverURL, http.MethodPost, "/api/v1/resolve",
		map[string]interface{}{"name": fs.Arg(0), "threshold": *threshold}) {
		return
	}

	_, logger, components := setup(*configPath)
	defer components.Close()

	results, err := components.Resolver.ResolveMany(context.Background(), fs.Args(), *threshold)
	if err != nil {
		logger.Fatal("Resolution failed", zap.Error(err))
	}
	printJSON(results)
}

func runSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct access)")
	threshold := fs.Float64("threshold", resolver.DefaultSuggestThreshold, "minimum similarity for a candidate")
	topK := fs.Int("top", 5, "maximum number of candidates")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: kusuri suggest [flags] <name>")
		os.Exit(1)
	}

	if queryServer(*serverURL, http.MethodPost, "/api/v1/suggest",
		map[string]interface{}{"name": fs.Arg(0), "threshold": *threshold, "top_k": *topK}) {
		return
	}

	_, logger, components := setup(*configPath)
	defer components.Close()

	matches, err := components.Resolver.Suggest(context.Background(), fs.Arg(0), *threshold, *topK)
	if err != nil {
		logger.Fatal("Suggestion failed", zap.Error(err))
	}
	printJSON(map[string]interface{}{"input": fs.Arg(0), "matches": matches})
}

func runInteractions() {
	fs := flag.NewFlagSet("interactions", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct access)")
	resolve := fs.Bool("resolve", false, "resolve names before lookup")
	threshold := fs.Float64("threshold", resolver.DefaultResolveThreshold, "minimum similarity when resolving")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Println("Usage: kusuri interactions [flags] <drug> [drug2]")
		os.Exit(1)
	}

	if fs.NArg() == 2 {
		if queryServer(*serverURL, http.MethodPost, "/api/v1/interactions/search",
			map[string]interface{}{"drug1": fs.Arg(0), "drug2": fs.Arg(1), "resolve": *resolve, "threshold": *threshold}) {
			return
		}
	} else if queryServer(*serverURL, http.MethodGet,
		"/api/v1/drugs/"+url.PathEscape(fs.Arg(0))+"/interactions", nil) {
		return
	}

	_, logger, components := setup(*configPath)
	defer components.Close()

	names := fs.Args()
	if *resolve {
		res := activeResolver(components.Resolver)
		for i, name := range names {
			resolved, ok, err := res.Resolve(context.Background(), name, *threshold)
			if err != nil {
				logger.Fatal("Resolution failed", zap.String("name", name), zap.Error(err))
			}
			if ok {
				names[i] = resolved
			}
		}
	}

	if len(names) == 2 {
		condition, found := components.Graph.Get(names[0], names[1])
		printJSON(map[string]interface{}{
			"drug1":     names[0],
			"drug2":     names[1],
			"found":     found,
			"condition": condition,
		})
		return
	}
	printJSON(map[string]interface{}{
		"drug":         names[0],
		"interactions": components.Graph.InteractionsFor(names[0]),
	})
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct access)")
	_ = fs.Parse(os.Args[2:])

	if queryServer(*serverURL, http.MethodGet, "/api/v1/status", nil) {
		return
	}

	_, _, components := setup(*configPath)
	defer components.Close()

	stats := components.Graph.Stats()
	printJSON(map[string]interface{}{
		"drugs":              stats.Drugs,
		"interactions":       stats.Interactions,
		"resolver_available": components.Resolver.IsAvailable(),
	})
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	vocabPath := fs.String("vocab", "", "vocabulary file, one drug name per line (default: graph drug names)")
	outPath := fs.String("out", "", "artifact base path (default: configured artifact path)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath)
	defer components.Close()

	var names []string
	var err error
	if *vocabPath != "" {
		names, err = vector.ReadVocabulary(*vocabPath)
		if err != nil {
			logger.Fatal("Failed to read vocabulary", zap.Error(err))
		}
	} else {
		names = components.Graph.Names()
	}
	if len(names) == 0 {
		logger.Fatal("No vocabulary to embed: pass -vocab or load interactions first")
	}

	records, err := vector.Build(context.Background(), names, components.Embedder)
	if err != nil {
		logger.Fatal("Embedding failed", zap.Error(err))
	}

	base := *outPath
	if base == "" {
		base = cfg.Index.ArtifactPath
	}
	if err := vector.SaveArtifact(base, records, components.Embedder.ModelName()); err != nil {
		logger.Fatal("Failed to save artifacts", zap.Error(err))
	}
	fmt.Printf("Embedded %d names with %s, artifacts at %s\n",
		len(records), components.Embedder.ModelName(), base)
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outPath := fs.String("out", "", "GraphML output path (default: configured graphml path)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath)
	defer components.Close()

	path := *outPath
	if path == "" {
		path = cfg.Storage.GraphMLPath
	}
	if path == "" {
		logger.Fatal("No output path: pass -out or set storage.graphml_path")
	}
	if err := components.Graph.SaveGraphML(path); err != nil {
		logger.Fatal("GraphML export failed", zap.Error(err))
	}
	fmt.Printf("Exported GraphML to %s\n", path)
}

// setup loads config, builds a logger, and initializes components, exiting on
// any failure. Shared by all non-server commands.
func setup(configPath string) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func printUsage() {
	fmt.Println(`kusuri - Drug interaction lookup and name resolution engine

Usage:
  kusuri server [flags]                    Start the HTTP server
  kusuri load [flags] <file>               Bulk-load interactions (.csv, .json, .xlsx)
  kusuri interactions [flags] <drug> [drug2]
                                           Look up interactions for a drug or pair
  kusuri resolve [flags] <name> [name...]  Resolve free-form names to vocabulary names
  kusuri suggest [flags] <name>            List candidate vocabulary names
  kusuri embed [flags]                     Build embedding artifacts for the vocabulary
  kusuri export [flags]                    Export the graph as GraphML
  kusuri stats [flags]                     Show graph statistics
  kusuri version                           Show version
  kusuri help                              Show this help

Flags are subcommand-specific; run "kusuri <command> -h" for details.
Config is read from ` + defaultConfigPath + ` or ./config.yaml.`)
}
