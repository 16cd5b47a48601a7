package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/cargo-match/internal/extraction"
	"github.com/zombor/cargo-match/internal/reconcile"
	"github.com/zombor/cargo-match/internal/scanning"
	"github.com/zombor/cargo-match/internal/separation"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("cargo-match")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		dbPath          = fs.StringLong("db", "cargo-match.db", "Database file path")
		storagePath     = fs.StringLong("storage", "./scans", "Directory for captured images")
		scannerType     = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini', 'ollama' or 'tesseract'")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL       = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel     = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		tesseractLang   = fs.StringLong("tesseract-lang", "por", "Tesseract languages, '+' separated")
		citiesPath      = fs.StringLong("cities", "", "YAML file of extra cities added to the built-in table (optional)")
		destination     = fs.StringLong("destination", "", "Default destination for runs (driver or company name)")
		destinationKind = fs.StringLong("destination-kind", "driver", "Default destination kind: 'driver' or 'company'")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("CARGO_MATCH"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	kind := reconcile.DestinationKind(*destinationKind)
	if kind != reconcile.DestinationDriver && kind != reconcile.DestinationCompany {
		slog.Error("Invalid destination kind", "kind", *destinationKind, "valid", "driver or company")
		os.Exit(1)
	}

	cities := extraction.DefaultCityTable()
	if *citiesPath != "" {
		var err error
		cities, err = extraction.LoadCityTable(*citiesPath)
		if err != nil {
			slog.Error("Failed to load city table", "path", *citiesPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Loaded city table", "path", *citiesPath)
	}

	slog.Info("Initializing database...")
	db, err := separation.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var scanner scanning.Scanner
	switch *scannerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	case "tesseract":
		slog.Info("Initializing Tesseract scanner...", "languages", *tesseractLang)
		scanner = scanning.NewTesseract(strings.Split(*tesseractLang, "+")...)
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini, ollama or tesseract")
		os.Exit(1)
	}
	defer scanner.Close()

	slog.Info("Initializing image store...")
	store, err := separation.NewDiskImageStore(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize image store", "error", err)
		os.Exit(1)
	}

	service := separation.NewService(db, scanner, store, extraction.NewExtractor(cities))

	basicAuth := separation.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := separation.NewServer(service, basicAuth, reconcile.Destination{Name: *destination, Kind: kind})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down, waiting for in-flight scans...")
	service.Wait()
}
