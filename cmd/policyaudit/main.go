package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	"policyaudit/adjudicator"
	"policyaudit/audit"
	"policyaudit/config"
	"policyaudit/embeddings"
	"policyaudit/embeddings/gemini"
	"policyaudit/embeddings/ollama"
	"policyaudit/extractor"
	"policyaudit/ingest"
	"policyaudit/llm"
	"policyaudit/retriever"
	"policyaudit/service"
	"policyaudit/vectordb"
)

func main() {
	startGops()
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "index":
		indexCmd(os.Args[2:])
	case "search":
		searchCmd(os.Args[2:])
	case "audit":
		auditCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "admin":
		adminCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: policyaudit <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  index   Ingest policy PDFs into SQLite (sqlite-vec)")
	fmt.Fprintln(os.Stderr, "  search  Query indexed purpose paragraphs")
	fmt.Fprintln(os.Stderr, "  audit   Run a compliance audit over free text")
	fmt.Fprintln(os.Stderr, "  serve   Start the HTTP audit service")
	fmt.Fprintln(os.Stderr, "  admin   Maintenance tasks (counts/clear)")
}

func indexCmd(args []string) {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "config yaml path")
	dbPath := flags.String("db", "", "SQLite database path (overrides config)")
	dir := flags.String("dir", "", "directory of policy PDFs to ingest")
	file := flags.String("file", "", "single document to ingest")
	embedderName := flags.String("embedder", "", "embedder: gemini|ollama|simple (overrides config)")
	batchSize := flags.Int("batch", 0, "embedding batch size")
	flags.Parse(args)

	if *dir == "" && *file == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(*configPath, *dbPath, *embedderName)
	emb := selectEmbedder(cfg)

	opts := []vectordb.Option{vectordb.WithDSN(cfg.DB)}
	if *batchSize > 0 {
		opts = append(opts, vectordb.WithEmbedBatchSize(*batchSize))
	}
	store, err := vectordb.NewStore(opts...)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer func() { _ = store.Close() }()

	svc := ingest.New(store, emb, ingest.WithLogf(log.Printf))
	if *file != "" {
		if err := svc.File(ctx, *file); err != nil {
			log.Fatalf("index: %v", err)
		}
		log.Printf("indexed %s", *file)
		return
	}
	summary, err := svc.Directory(ctx, *dir)
	if err != nil {
		log.Fatalf("index: %v", err)
	}
	log.Printf("indexed %d documents, skipped %d", summary.Ingested, len(summary.Skipped))
}

func searchCmd(args []string) {
	flags := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "config yaml path")
	dbPath := flags.String("db", "", "SQLite database path (overrides config)")
	query := flags.String("query", "", "query text (required)")
	topK := flags.Int("top-k", 0, "max candidate documents")
	embedderName := flags.String("embedder", "", "embedder: gemini|ollama|simple (overrides config)")
	flags.Parse(args)

	if *query == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(*configPath, *dbPath, *embedderName)
	if *topK > 0 {
		cfg.Retrieval.TopK = *topK
	}
	store, err := vectordb.NewStore(vectordb.WithDSN(cfg.DB))
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer func() { _ = store.Close() }()

	retr := retriever.New(store, selectEmbedder(cfg))
	candidates, err := retr.Retrieve(ctx, *query, cfg.Retrieval.TopK)
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	for _, c := range candidates {
		out := c.Content
		if len(out) > 200 {
			out = out[:200] + "..."
		}
		fmt.Printf("file=%s score=%.4f\n%s\n\n", c.FileName, c.Score, out)
	}
}

func auditCmd(args []string) {
	flags := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "config yaml path")
	dbPath := flags.String("db", "", "SQLite database path (overrides config)")
	text := flags.String("text", "", "requirement text to audit")
	textFile := flags.String("text-file", "", "file with requirement text")
	embedderName := flags.String("embedder", "", "embedder: gemini|ollama|simple (overrides config)")
	provider := flags.String("llm", "", "llm provider:model (overrides config)")
	strategy := flags.String("extraction", "", "extraction strategy: model|deterministic (overrides config)")
	allMatches := flags.Bool("all-matches", false, "report every matching document, not just the first")
	flags.Parse(args)

	input := *text
	if input == "" && *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			log.Fatalf("read %s: %v", *textFile, err)
		}
		input = string(data)
	}
	if strings.TrimSpace(input) == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(*configPath, *dbPath, *embedderName)
	if *provider != "" {
		cfg.LLM.Provider = *provider
	}
	if *strategy != "" {
		cfg.Extraction.Strategy = *strategy
	}
	if *allMatches {
		cfg.Retrieval.AllMatches = true
	}

	store, err := vectordb.NewStore(vectordb.WithDSN(cfg.DB))
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer func() { _ = store.Close() }()

	auditor, err := buildAuditor(cfg, store)
	if err != nil {
		log.Fatalf("audit init: %v", err)
	}
	requirements, err := auditor.Audit(ctx, input)
	if err != nil {
		log.Fatalf("audit: %v", err)
	}
	for _, req := range requirements {
		status := "unknown"
		if req.IsMet != nil {
			if *req.IsMet {
				status = "met"
			} else {
				status = "not met"
			}
		}
		fmt.Printf("%d. %s\n   %s", req.ID, req.Requirement, status)
		if req.FileName != "" {
			fmt.Printf(" (%s)", req.FileName)
		}
		fmt.Println()
		if req.Citation != "" {
			fmt.Printf("   citation: %s\n", req.Citation)
		}
		if req.Explanation != "" {
			fmt.Printf("   %s\n", req.Explanation)
		}
		if len(req.AlsoMet) > 0 {
			fmt.Printf("   also met by: %s\n", strings.Join(req.AlsoMet, ", "))
		}
	}
}

func serveCmd(args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "config yaml path")
	dbPath := flags.String("db", "", "SQLite database path (overrides config)")
	addr := flags.String("addr", "", "listen address (overrides config)")
	embedderName := flags.String("embedder", "", "embedder: gemini|ollama|simple (overrides config)")
	provider := flags.String("llm", "", "llm provider:model (overrides config)")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(*configPath, *dbPath, *embedderName)
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *provider != "" {
		cfg.LLM.Provider = *provider
	}

	store, err := vectordb.NewStore(vectordb.WithDSN(cfg.DB))
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer func() { _ = store.Close() }()

	auditor, err := buildAuditor(cfg, store)
	if err != nil {
		log.Fatalf("serve init: %v", err)
	}

	svc := service.New(auditor, store, service.WithLogf(log.Printf))
	server := &http.Server{Addr: cfg.Addr, Handler: svc.Handler()}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	log.Printf("listening on %s", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}
}

func adminCmd(args []string) {
	flags := flag.NewFlagSet("admin", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "config yaml path")
	dbPath := flags.String("db", "", "SQLite database path (overrides config)")
	action := flags.String("action", "check", "action: check|clear")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(*configPath, *dbPath, "")
	store, err := vectordb.NewStore(vectordb.WithDSN(cfg.DB))
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer func() { _ = store.Close() }()

	switch *action {
	case "check":
		purposes, err := store.Count(ctx, vectordb.ParagraphTable)
		if err != nil {
			log.Fatalf("admin: %v", err)
		}
		procedures, err := store.Count(ctx, vectordb.SectionTable)
		if err != nil {
			log.Fatalf("admin: %v", err)
		}
		log.Printf("check purposes=%d procedures=%d", purposes, procedures)
	case "clear":
		for _, table := range []string{vectordb.ParagraphTable, vectordb.SectionTable} {
			if err := store.Clear(ctx, table); err != nil {
				log.Fatalf("admin: clear %s: %v", table, err)
			}
			log.Printf("cleared %s", table)
		}
	default:
		flags.Usage()
		os.Exit(2)
	}
}

func loadConfig(path, dbOverride, embedderOverride string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if dbOverride != "" {
		cfg.DB = dbOverride
	}
	if embedderOverride != "" {
		cfg.Embedder.Type = embedderOverride
	}
	return cfg
}

func buildAuditor(cfg *config.Config, store *vectordb.Store) (*audit.Auditor, error) {
	generator, err := llm.NewProvider(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	var ext audit.Extractor = extractor.New(generator)
	if cfg.Extraction.Strategy == "deterministic" {
		ext = extractor.Deterministic{}
	}
	retr := retriever.New(store, selectEmbedder(cfg))
	opts := []audit.Option{audit.WithTopK(cfg.Retrieval.TopK), audit.WithLogf(log.Printf)}
	if cfg.Retrieval.AllMatches {
		opts = append(opts, audit.WithAllMatches())
	}
	return audit.New(ext, retr, adjudicator.New(generator), opts...), nil
}

func selectEmbedder(cfg *config.Config) embeddings.Embedder {
	switch strings.ToLower(strings.TrimSpace(cfg.Embedder.Type)) {
	case "simple":
		return embeddings.NewSimple(cfg.Embedder.Dim)
	case "ollama":
		return &ollama.Embedder{C: ollama.NewClient(cfg.Embedder.Model, cfg.Embedder.BaseURL)}
	default:
		opts := []gemini.ClientOption{gemini.WithDimension(cfg.Embedder.Dim)}
		if cfg.Embedder.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Embedder.BaseURL))
		}
		client := gemini.NewClient(os.Getenv("GEMINI_API_KEY"), cfg.Embedder.Model, opts...)
		return &gemini.Embedder{C: client}
	}
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}
