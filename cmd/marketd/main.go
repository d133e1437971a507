// Package main provides the unified market daemon:
// - Ingest (continuous): WebSocket pool updates → price points
// - Query API: spot prices, swap quotes, market registry, price history
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"veilmarket/internal/chain"
	"veilmarket/internal/domain"
	"veilmarket/internal/ingest"
	"veilmarket/internal/market"
	"veilmarket/internal/observability"
	"veilmarket/internal/storage"
	chstore "veilmarket/internal/storage/clickhouse"
	"veilmarket/internal/storage/memory"
	"veilmarket/internal/storage/migrations"
	pgstore "veilmarket/internal/storage/postgres"
)

// Server holds all components of the market daemon.
type Server struct {
	rpcEndpoint string
	wsEndpoint  string
	markets     []string

	service *market.Service
	runner  *ingest.Runner
	logger  *log.Logger

	mu            sync.Mutex
	ingestStarted time.Time
}

// daemonStores holds the storage implementations the daemon needs.
type daemonStores struct {
	marketStore     storage.MarketStore
	pricePointStore storage.PricePointStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("VEILMARKET_RPC_ENDPOINT"), "Ledger JSON-RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("VEILMARKET_WS_ENDPOINT"), "Ledger WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	marketsFlag := flag.String("markets", os.Getenv("VEILMARKET_MARKETS"), "Comma-separated market IDs to ingest (empty = all)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	listenAddr := flag.String("listen-addr", ":8080", "HTTP API listen address")
	batchSize := flag.Int("batch-size", 100, "Price points per bulk insert")
	flushInterval := flag.Duration("flush-interval", 5*time.Second, "Price point flush interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[marketd] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rpc := chain.NewHTTPClient(*rpcEndpoint)

	service, err := market.NewService(market.ServiceOptions{
		Client:          rpc,
		MarketStore:     stores.marketStore,
		PricePointStore: stores.pricePointStore,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create market service: %v", err)
	}

	ws, err := chain.NewWSClient(ctx, *wsEndpoint, nil)
	if err != nil {
		logger.Fatalf("Failed to create websocket client: %v", err)
	}
	defer ws.Close()

	runner, err := ingest.NewRunner(ingest.RunnerOptions{
		WSClient:        ws,
		PricePointStore: stores.pricePointStore,
		Markets:         parseMarkets(*marketsFlag),
		BatchSize:       *batchSize,
		FlushInterval:   *flushInterval,
		Logger:          log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile),
	})
	if err != nil {
		logger.Fatalf("Failed to create ingest runner: %v", err)
	}

	server := &Server{
		rpcEndpoint: *rpcEndpoint,
		wsEndpoint:  *wsEndpoint,
		markets:     parseMarkets(*marketsFlag),
		service:     service,
		runner:      runner,
		logger:      logger,
	}

	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(*listenAddr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// parseMarkets splits the comma-separated markets flag.
func parseMarkets(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// createStores creates the required stores, running migrations for the
// real backends.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*daemonStores, func(), error) {
	if useMemory {
		stores := &daemonStores{
			marketStore:     memory.NewMarketStore(),
			pricePointStore: memory.NewPricePointStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := &daemonStores{
		marketStore:     pgstore.NewMarketStore(pool),
		pricePointStore: chstore.NewPricePointStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the ingest runner and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting market daemon...")

	s.mu.Lock()
	s.ingestStarted = time.Now()
	s.mu.Unlock()

	return s.runner.Run(ctx)
}

// startHTTPServer starts the HTTP server for the query API.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/v1/price", s.handlePrice)
	mux.HandleFunc("/v1/quote", s.handleQuote)
	mux.HandleFunc("/v1/markets", s.handleMarkets)
	mux.HandleFunc("/v1/history", s.handleHistory)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	IngestStarted time.Time `json:"ingest_started"`
	Markets       []string  `json:"markets,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	started := s.ingestStarted
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:        "running",
		Uptime:        time.Since(started).String(),
		IngestStarted: started,
		Markets:       s.markets,
	})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	marketID := r.URL.Query().Get("market")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "market parameter is required")
		return
	}

	info, err := s.service.Price(r.Context(), marketID)
	if errors.Is(err, market.ErrMarketNotFound) {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}
	if err != nil {
		s.logger.Printf("Price error for %s: %v", marketID, err)
		writeError(w, http.StatusInternalServerError, "failed to compute price")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// QuoteResponse is the JSON response for /v1/quote.
type QuoteResponse struct {
	MarketID     string `json:"market_id"`
	Side         string `json:"side"`
	CollateralIn int64  `json:"collateral_in"`
	EffectiveIn  int64  `json:"effective_in"`
	SharesOut    int64  `json:"shares_out"`
	PriceBps     int64  `json:"price_bps"`
	MinSharesOut int64  `json:"min_shares_out"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	marketID := q.Get("market")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "market parameter is required")
		return
	}

	side := domain.Side(q.Get("side"))
	if !side.IsValid() {
		writeError(w, http.StatusBadRequest, "side must be yes or no")
		return
	}

	amount, err := strconv.ParseInt(q.Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer in base units")
		return
	}

	slippageBps := int64(0)
	if v := q.Get("slippage_bps"); v != "" {
		slippageBps, err = strconv.ParseInt(v, 10, 64)
		if err != nil || slippageBps < 0 || slippageBps > 10000 {
			writeError(w, http.StatusBadRequest, "slippage_bps must be in 0..10000")
			return
		}
	}

	result, err := s.service.Quote(r.Context(), marketID, amount, side, slippageBps)
	if errors.Is(err, market.ErrMarketNotFound) {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}
	if err != nil {
		s.logger.Printf("Quote error for %s: %v", marketID, err)
		writeError(w, http.StatusInternalServerError, "failed to compute quote")
		return
	}

	writeJSON(w, http.StatusOK, QuoteResponse{
		MarketID:     marketID,
		Side:         result.Side.String(),
		CollateralIn: result.CollateralIn,
		EffectiveIn:  result.EffectiveIn,
		SharesOut:    result.SharesOut,
		PriceBps:     result.PriceBps,
		MinSharesOut: result.MinSharesOut,
	})
}

// MarketResponse is one market in the /v1/markets response.
type MarketResponse struct {
	MarketID   string  `json:"market_id"`
	Question   string  `json:"question"`
	Pool       string  `json:"pool"`
	YesTokenID string  `json:"yes_token_id"`
	NoTokenID  string  `json:"no_token_id"`
	FeeBps     int64   `json:"fee_bps"`
	Creator    *string `json:"creator,omitempty"`
	CreatedAt  int64   `json:"created_at"`
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		markets, err := s.service.Markets(r.Context())
		if err != nil {
			s.logger.Printf("List markets error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list markets")
			return
		}
		out := make([]MarketResponse, 0, len(markets))
		for _, m := range markets {
			out = append(out, marketResponse(m))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		marketID := r.URL.Query().Get("market")
		if marketID == "" {
			writeError(w, http.StatusBadRequest, "market parameter is required")
			return
		}
		m, err := s.service.Register(r.Context(), marketID)
		if errors.Is(err, market.ErrMarketNotFound) {
			writeError(w, http.StatusNotFound, "market not found on chain")
			return
		}
		if err != nil {
			s.logger.Printf("Register error for %s: %v", marketID, err)
			writeError(w, http.StatusInternalServerError, "failed to register market")
			return
		}
		writeJSON(w, http.StatusOK, marketResponse(m))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func marketResponse(m *domain.Market) MarketResponse {
	return MarketResponse{
		MarketID:   m.MarketID,
		Question:   m.Question,
		Pool:       m.Pool,
		YesTokenID: m.YesTokenID,
		NoTokenID:  m.NoTokenID,
		FeeBps:     m.FeeBps,
		Creator:    m.Creator,
		CreatedAt:  m.CreatedAt,
	}
}

// PricePointResponse is one history sample.
type PricePointResponse struct {
	TimestampMs int64 `json:"timestamp_ms"`
	Height      int64 `json:"height"`
	YesPriceBps int64 `json:"yes_price_bps"`
	YesReserve  int64 `json:"yes_reserve"`
	NoReserve   int64 `json:"no_reserve"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	marketID := q.Get("market")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "market parameter is required")
		return
	}

	start := int64(0)
	end := time.Now().UnixMilli()
	var err error
	if v := q.Get("start"); v != "" {
		if start, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "start must be a unix millisecond timestamp")
			return
		}
	}
	if v := q.Get("end"); v != "" {
		if end, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "end must be a unix millisecond timestamp")
			return
		}
	}

	points, err := s.service.History(r.Context(), marketID, start, end)
	if err != nil {
		s.logger.Printf("History error for %s: %v", marketID, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}

	out := make([]PricePointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, PricePointResponse{
			TimestampMs: p.TimestampMs,
			Height:      p.Height,
			YesPriceBps: p.YesPriceBps,
			YesReserve:  p.YesReserve,
			NoReserve:   p.NoReserve,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
