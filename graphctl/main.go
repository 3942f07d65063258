package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/natserract/fbgraph/graphctl/services"
	"github.com/natserract/fbgraph/pkg/config"
	"github.com/natserract/fbgraph/pkg/graph"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const usage = `usage:
  graphctl get <endpoint> [pages]
  graphctl batch <requests.json>
  graphctl debug-token <token>`

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	client := graph.NewClientWithLogger(cfg.GraphConfig(), logger)
	ctx := context.Background()

	switch os.Args[1] {
	case "get":
		err = runGet(ctx, client, logger, os.Args[2:])
	case "batch":
		err = runBatch(ctx, client, cfg, logger, os.Args[2])
	case "debug-token":
		err = runDebugToken(ctx, client, cfg, logger, os.Args[2])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runGet(ctx context.Context, client *graph.Client, logger *zap.Logger, args []string) error {
	pages := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid page count %q: %w", args[1], err)
		}
		pages = n
	}

	bodies, err := services.NewPager(client, logger).Fetch(ctx, args[0], nil, pages)
	if printErr := printJSON(bodies); printErr != nil {
		return printErr
	}
	return err
}

func runBatch(ctx context.Context, client *graph.Client, cfg *config.Config, logger *zap.Logger, path string) error {
	fs := afero.NewOsFs()

	specs, err := services.LoadRequestSpecs(fs, path)
	if err != nil {
		return err
	}
	reqs, err := services.BuildRequests(fs, specs, cfg.Version)
	if err != nil {
		return err
	}

	gc := client.Config()
	runner := services.NewBatchRunner(client, gc.AccessToken, gc.GraphVersion, cfg.BatchConcurrency, logger)
	results, metrics, runErr := runner.Run(ctx, reqs)

	if err := printJSON(results); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Batch results: %d succeeded, %d failed\n", metrics.ItemsSucceeded, metrics.ItemsFailed)

	if runErr != nil {
		return runErr
	}
	if metrics.TotalFailed() > 0 {
		return fmt.Errorf("%d requests failed", metrics.TotalFailed())
	}
	return nil
}

func runDebugToken(ctx context.Context, client *graph.Client, cfg *config.Config, logger *zap.Logger, token string) error {
	app := cfg.App()
	if app == nil {
		return fmt.Errorf("debug-token needs GRAPH_APP_ID and GRAPH_APP_SECRET")
	}

	oauth := graph.NewOAuth2ClientWithLogger(*app, client, cfg.Version, logger)
	meta, err := oauth.DebugToken(ctx, token)
	if err != nil {
		return err
	}
	return printJSON(meta)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
