// Package main is the ragpipe CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/chunking"
	"github.com/hyperjump/ragpipe/internal/cli"
	"github.com/hyperjump/ragpipe/internal/config"
	"github.com/hyperjump/ragpipe/internal/naming"
	"github.com/hyperjump/ragpipe/internal/pipeline"
	"github.com/hyperjump/ragpipe/internal/server"
	"github.com/hyperjump/ragpipe/internal/source"
	"github.com/hyperjump/ragpipe/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ragpipe/config.yaml"

// errUsage means the command line was wrong and usage has been printed.
var errUsage = errors.New("invalid usage")

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present; when neither exists the built-in
// defaults are used. Returns the path actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	var err error
	switch args[0] {
	case "server":
		err = runServer(args[1:])
	case "chunk":
		err = runChunk(args[1:], stdout)
	case "embed":
		err = runEmbed(args[1:], stdout)
	case "search":
		err = runSearch(args[1:], stdout)
	case "ask":
		err = runAsk(args[1:], stdout)
	case "info":
		err = runInfo(args[1:], stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "ragpipe version %s\n", version)
	case "help", "--help", "-h":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// setup loads config and builds the logger and components for a command.
func setup(configPath string, debug bool) (*Components, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || debug
	var logger *zap.Logger
	if debugMode {
		if logger, err = utils.NewLogger(true); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	} else {
		logger = zap.NewNop()
	}
	logger.Debug("config loaded", zap.String("config_path", resolved))
	return initializeComponents(context.Background(), cfg, logger)
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, resolved, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	srv := server.NewServer(components.Pipeline, cfg, components.Metrics, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-sigChan:
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func runChunk(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("chunk", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	name := fs.String("name", "", "document id (default: derived from the file name)")
	strategy := fs.String("strategy", "", "chunking strategy: recursive, sentence or word (default from config)")
	size := fs.Int("size", 0, "chunk size in characters, or words for the word strategy (default from config)")
	overlap := fs.Int("overlap", -1, "overlap in characters for the recursive strategy (default from config)")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { commandUsage(fs, "chunk [flags] <file>") }
	if err := fs.Parse(argsReorder(args)); err != nil || fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	path := fs.Arg(0)
	text, err := source.Extract(path)
	if err != nil {
		return err
	}
	docID := *name
	if docID == "" {
		docID = naming.CollectionName(path)
	}
	opts := chunking.Options{Strategy: chunking.Strategy(*strategy), Size: *size}
	if *overlap >= 0 {
		opts.Overlap = overlap
	}

	c, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer c.Close()
	chunks, err := c.Pipeline.ChunkDocument(context.Background(), docID, filepath.Base(path), text, opts)
	if err != nil {
		return err
	}
	return cli.WriteChunks(stdout, docID, chunks, format)
}

func runEmbed(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	provider := fs.String("provider", "", "embedding provider: openai, ollama, hugging_face or mock (default from config)")
	model := fs.String("model", "", "embedding model id (default from config)")
	batchSize := fs.Int("batch-size", 0, "vectors per insert batch (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { commandUsage(fs, "embed [flags] <file or document id>") }
	if err := fs.Parse(argsReorder(args)); err != nil || fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	c, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer c.Close()
	embedder, err := newEmbedder(c.Config, *provider, *model)
	if err != nil {
		return err
	}
	defer embedder.Close()

	if *batchSize <= 0 {
		*batchSize = c.Config.VectorStore.BatchSize
	}
	res, err := c.Pipeline.EmbedDocument(context.Background(), naming.CollectionName(fs.Arg(0)), embedder, *batchSize)
	if err != nil {
		if res != nil && res.Committed > 0 {
			return fmt.Errorf("%w (%d vectors committed before the failure)", err, res.Committed)
		}
		return err
	}
	fmt.Fprintf(stdout, "Embedded %d chunks into %q (dimension %d)\n", res.Committed, res.Collection, res.Dimension)
	return nil
}

func runSearch(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	collection := fs.String("collection", "", "collection (document) to search")
	limit := fs.Int("limit", 5, "number of results")
	provider := fs.String("provider", "", "embedding provider (default from config)")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { commandUsage(fs, "search --collection <name> [flags] <query>") }
	if err := fs.Parse(argsReorder(args)); err != nil || *collection == "" || buildQuery(fs.Args()) == "" {
		fs.Usage()
		return errUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	c, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer c.Close()
	embedder, err := newEmbedder(c.Config, *provider, "")
	if err != nil {
		return err
	}
	defer embedder.Close()

	results, err := c.Pipeline.SemanticSearch(context.Background(), *collection, buildQuery(fs.Args()), embedder, *limit)
	if err != nil {
		return err
	}
	return cli.WriteResults(stdout, "Results", results, format)
}

func runAsk(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	collection := fs.String("collection", "", "collection (document) to answer from")
	limit := fs.Int("limit", 5, "number of chunks to retrieve")
	topN := fs.Int("top-n", 0, "keep only the first N reranked chunks as context (0 keeps all)")
	rerank := fs.Bool("rerank", true, "rerank retrieved chunks")
	generate := fs.Bool("generate", true, "generate an answer")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { commandUsage(fs, "ask --collection <name> [flags] <question>") }
	if err := fs.Parse(argsReorder(args)); err != nil || *collection == "" || buildQuery(fs.Args()) == "" {
		fs.Usage()
		return errUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	c, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer c.Close()

	req := pipeline.AnswerRequest{
		Collection: *collection,
		Query:      buildQuery(fs.Args()),
		NResults:   *limit,
		TopN:       *topN,
	}
	if req.Embedder, err = newEmbedder(c.Config, "", ""); err != nil {
		return err
	}
	defer req.Embedder.Close()
	if *rerank {
		reranker, err := newReranker(c.Config, "")
		if err != nil {
			return err
		}
		defer reranker.Close()
		req.Reranker = reranker
	}
	if *generate {
		if req.Generator, err = newGenerator(c.Config, ""); err != nil {
			return err
		}
	}

	resp, err := c.Pipeline.Answer(context.Background(), req)
	if err != nil {
		return err
	}
	return cli.WriteAnswer(stdout, resp, format)
}

func runInfo(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { commandUsage(fs, "info [flags] [collection]") }
	if err := fs.Parse(argsReorder(args)); err != nil || fs.NArg() > 1 {
		fs.Usage()
		return errUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	c, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx := context.Background()
	if fs.NArg() == 0 {
		collections, err := c.Engine.ListCollections(ctx)
		if err != nil {
			return err
		}
		return cli.WriteCollections(stdout, collections, format)
	}
	info, err := c.Engine.GetCollectionInfo(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return cli.WriteCollectionInfo(stdout, info, format)
}

// buildQuery joins all positional args with spaces so multi-word queries work
// the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag parsing sees them; the flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func commandUsage(fs *flag.FlagSet, synopsis string) {
	fmt.Fprintf(fs.Output(), "Usage: ragpipe %s\n\n", synopsis)
	fs.PrintDefaults()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ragpipe - retrieval-augmented generation pipeline

Usage:
  ragpipe server [flags]                          Start the HTTP server
  ragpipe chunk [flags] <file>                    Extract and chunk a document
  ragpipe embed [flags] <file|document>           Embed a chunked document into its collection
  ragpipe search --collection <name> <query>      Semantic search in a collection
  ragpipe ask --collection <name> <question>      Search, rerank and generate an answer
  ragpipe info [collection]                       List collections or describe one
  ragpipe version                                 Show version
  ragpipe help                                    Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/ragpipe/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging
  --output string    Output format: text or json (chunk, search, ask, info)

Secrets are read from the environment variables named in the config
(api_key_env); a .env file in the working directory is loaded first.

Examples:
  ragpipe chunk --strategy sentence --size 400 handbook.pdf
  ragpipe embed handbook.pdf
  ragpipe search --collection handbook "vacation policy"
  ragpipe ask --collection handbook --top-n 3 how many vacation days do I get
  ragpipe info handbook`)
}
