package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/kyral/bandrush/internal/simulate"
	"github.com/kyral/bandrush/pkg/logger"
)

const runTimeout = 10 * time.Minute

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9090", "Base URL of the service")
		players     = flag.Int("players", 20, "Number of concurrent synthetic players")
		gamesPer    = flag.Int("games", 5, "Games each player runs")
		targetBands = flag.Int("bands", 6, "Bands each game pushes before cashing out")
		timeout     = flag.Duration("timeout", 10*time.Second, "HTTP request timeout")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init("pretty"); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:     *baseURL,
		Players:     *players,
		GamesPer:    *gamesPer,
		TargetBands: *targetBands,
		Timeout:     *timeout,
		Verbose:     *verbose,
	}
	if err := simulate.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
