package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mbeaufort/pitchrally/internal/app"
	"github.com/mbeaufort/pitchrally/internal/game"
	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/pkg/arbiter"
)

var (
	version = "dev"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "pitchrally.db", "SQLite database path")
	logLevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	baseURL := flag.String("base-url", "", "Public base URL for invite links (auto-detected if not set)")
	arbiterURL := flag.String("arbiter-url", "https://api.openai.com", "Arbiter API base URL")
	arbiterKey := flag.String("arbiter-key", "", "Arbiter API key (defaults to ARBITER_API_KEY env)")
	arbiterModel := flag.String("arbiter-model", "gpt-4o-mini", "Arbiter model name")
	arbiterTimeout := flag.Duration("arbiter-timeout", arbiter.DefaultTimeout, "Arbiter request timeout")
	turnSeconds := flag.Int("turn-seconds", game.DefaultTurnSeconds, "Turn countdown announced to clients")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `PitchRally - Live Football Trivia Rally Server

Usage:
  pitchrally [options]

Options:
  -port int             HTTP server port (default 8080)
  -db string            SQLite database path (default "pitchrally.db")
  -loglevel string      Log level: debug, info, warn, error (default "info")
  -base-url string      Public base URL for invite links (auto-detected if not set)
  -arbiter-url string   Arbiter API base URL
  -arbiter-key string   Arbiter API key (defaults to ARBITER_API_KEY env)
  -arbiter-model string Arbiter model name (default "gpt-4o-mini")
  -arbiter-timeout dur  Arbiter request timeout (default 15s)
  -turn-seconds int     Turn countdown announced to clients (default 10)
  -version              Show version and exit
  -help                 Show this help message

Examples:
  pitchrally                               # Run on port 8080 with pitchrally.db
  pitchrally -port 80 -db /data/rally.db   # Production example
  pitchrally -arbiter-key sk-...           # Explicit arbiter credentials

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("pitchrally %s\n", version)
		os.Exit(0)
	}

	appLog := logger.NewWithLevel(logger.ParseLevel(*logLevel))

	apiKey := *arbiterKey
	if apiKey == "" {
		apiKey = os.Getenv("ARBITER_API_KEY")
	}

	var judge arbiter.Client
	if apiKey == "" {
		// Without credentials every unresolvable answer is rejected
		// instead of being referred to the arbiter.
		appLog.Warn("No arbiter API key configured, unverified answers will be rejected")
		judge = arbiter.NewMockClient()
	} else {
		judge = arbiter.NewHTTPClient(*arbiterURL, apiKey, *arbiterModel, *arbiterTimeout, appLog)
	}

	a, err := app.New(appLog, app.Config{
		DBPath:         *dbPath,
		BaseURL:        *baseURL,
		ArbiterTimeout: *arbiterTimeout,
		TurnSeconds:    *turnSeconds,
	}, judge)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer a.Close()

	addr := fmt.Sprintf(":%d", *port)
	if err := a.Run(addr); err != nil {
		log.Fatal(err)
	}
}
