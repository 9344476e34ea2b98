package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/zombor/reimburse-flow/internal/claim"
	"github.com/zombor/reimburse-flow/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Load .env file if present (local development)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	flags := ff.NewFlagSet("reimburse-flow")
	var (
		port        = flags.IntLong("port", 8080, "HTTP server port")
		storeType   = flags.StringLong("store", "bolt", "Claim store: 'bolt', 'file' or 'mongo'")
		dbPath      = flags.StringLong("db", "reimburse-flow.db", "BoltDB file path")
		claimsFile  = flags.StringLong("claims-file", "data/claims.json", "JSON claims file path (file store)")
		mongoURI    = flags.StringLong("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
		mongoDB     = flags.StringLong("mongo-db", "reimburse_flow", "MongoDB database name")
		objectStore = flags.StringLong("object-store", "local", "Bill file storage: 'local' or 's3'")
		storagePath = flags.StringLong("storage", "./bills", "Local bill storage directory")
		s3Bucket    = flags.StringLong("s3-bucket", "", "S3 bucket for bill files")
		s3Region    = flags.StringLong("s3-region", "ap-south-1", "S3 region")
		s3Endpoint  = flags.StringLong("s3-endpoint", "", "Custom S3 endpoint (MinIO, LocalStack)")
		s3AccessKey = flags.StringLong("s3-access-key", "", "S3 access key (default credential chain when empty)")
		s3SecretKey = flags.StringLong("s3-secret-key", "", "S3 secret key")
		scannerType = flags.StringLong("scanner", "gemini", "Vision model: 'gemini' or 'ollama'")
		geminiKey   = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = flags.StringLong("gemini-model", "gemini-2.0-flash", "Google Gemini model name")
		timeout     = flags.DurationLong("model-timeout", 0, "Per-request model timeout, 0 for none")
		ollamaURL   = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = flags.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		threshold   = flags.IntLong("confidence-threshold", claim.DefaultConfidenceThreshold, "Confidence below which a bill needs review")
		tolerance   = flags.StringLong("amount-tolerance", claim.DefaultAmountTolerance, "Amount difference treated as the same amount")
		authUser    = flags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = flags.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("REIMBURSE_FLOW"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx := context.Background()

	amountTolerance, err := decimal.NewFromString(*tolerance)
	if err != nil || amountTolerance.IsNegative() {
		slog.Error("Invalid amount tolerance", "value", *tolerance)
		os.Exit(1)
	}
	rules := claim.Rules{
		ConfidenceThreshold: *threshold,
		AmountTolerance:     amountTolerance,
	}

	// Initialize claim store
	slog.Info("Initializing claim store...", "type", *storeType)
	var store claim.Store
	switch *storeType {
	case "bolt":
		store, err = claim.NewBoltStore(*dbPath)
	case "file":
		store, err = claim.NewFileStore(*claimsFile)
	case "mongo":
		store, err = claim.NewMongoStore(ctx, *mongoURI, *mongoDB)
	default:
		err = fmt.Errorf("unknown store type %q", *storeType)
	}
	if err != nil {
		slog.Error("Failed to initialize claim store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize vision model based on type
	var model scanning.Model
	switch *scannerType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini model...", "model", *geminiModel, "timeout", *timeout)
		model, err = scanning.NewGemini(apiKey, *geminiModel, *timeout)
	case "ollama":
		slog.Info("Initializing Ollama model...", "url", *ollamaURL, "model", *ollamaModel)
		model, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
	default:
		err = fmt.Errorf("unknown scanner type %q, want gemini or ollama", *scannerType)
	}
	if err != nil {
		slog.Error("Failed to initialize vision model", "error", err)
		os.Exit(1)
	}
	defer model.Close()

	// Initialize bill file storage
	slog.Info("Initializing storage...", "type", *objectStore)
	var storage claim.ObjectStorage
	switch *objectStore {
	case "local":
		storage, err = claim.NewLocalStorage(*storagePath, "/files")
	case "s3":
		storage, err = claim.NewS3Storage(ctx, claim.S3Config{
			Bucket:    *s3Bucket,
			Region:    *s3Region,
			Endpoint:  *s3Endpoint,
			AccessKey: *s3AccessKey,
			SecretKey: *s3SecretKey,
		})
	default:
		err = fmt.Errorf("unknown object store %q", *objectStore)
	}
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	claimService := claim.NewServiceWithRules(store, scanning.NewExtractor(model), storage, rules)

	// Initialize server
	basicAuth := claim.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := claim.NewServer(claimService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started",
		"address", fmt.Sprintf("http://localhost%s", addr),
		"confidence_threshold", rules.ConfidenceThreshold,
		"amount_tolerance", rules.AmountTolerance.String(),
	)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
