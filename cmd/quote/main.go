// Package main provides a one-shot CLI for market queries and record
// selection: spot price, swap quote, or spend/fee selection over a
// records JSON file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"veilmarket/internal/chain"
	"veilmarket/internal/domain"
	"veilmarket/internal/market"
	"veilmarket/internal/record"
	"veilmarket/internal/selection"
	"veilmarket/internal/units"
)

func main() {
	mode := flag.String("mode", "price", "Mode: price, quote, or select")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("VEILMARKET_RPC_ENDPOINT"), "Ledger JSON-RPC HTTP endpoint")
	marketID := flag.String("market", "", "Market ID (price and quote modes)")
	amount := flag.Int64("amount", 0, "Collateral amount in base units (quote mode)")
	side := flag.String("side", "yes", "Swap side: yes or no (quote mode)")
	slippageBps := flag.Int64("slippage-bps", 0, "Slippage tolerance in bps (quote mode)")
	recordsFile := flag.String("records", "", "Records JSON file (select mode)")
	target := flag.Int64("target", 0, "Spend target in base units (select mode)")
	feeTarget := flag.Int64("fee-target", -1, "Fee target in base units; enables pair selection (select mode)")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[quote] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	switch *mode {
	case "price":
		runPrice(ctx, logger, *rpcEndpoint, *marketID, *outputJSON)
	case "quote":
		runQuote(ctx, logger, *rpcEndpoint, *marketID, *amount, *side, *slippageBps, *outputJSON)
	case "select":
		runSelect(logger, *recordsFile, *target, *feeTarget, *outputJSON)
	default:
		logger.Fatalf("Unknown mode %q (want price, quote, or select)", *mode)
	}
}

func newService(logger *log.Logger, rpcEndpoint string) *market.Service {
	if rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}

	svc, err := market.NewService(market.ServiceOptions{
		Client: chain.NewHTTPClient(rpcEndpoint),
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("Create service: %v", err)
	}
	return svc
}

func runPrice(ctx context.Context, logger *log.Logger, rpcEndpoint, marketID string, asJSON bool) {
	if marketID == "" {
		logger.Fatal("--market is required")
	}

	svc := newService(logger, rpcEndpoint)
	info, err := svc.Price(ctx, marketID)
	if err != nil {
		logger.Fatalf("Price: %v", err)
	}

	if asJSON {
		printJSON(logger, info)
		return
	}

	fmt.Printf("Market:    %s\n", info.MarketID)
	fmt.Printf("YES price: %s (%d bps)\n", info.Display, info.YesPriceBps)
	fmt.Printf("NO price:  %s (%d bps)\n", units.FormatPriceCents(info.NoPriceBps, 0), info.NoPriceBps)
	fmt.Printf("Reserves:  yes=%d no=%d (height %d)\n", info.YesReserve, info.NoReserve, info.Height)
}

func runQuote(ctx context.Context, logger *log.Logger, rpcEndpoint, marketID string, amount int64, sideStr string, slippageBps int64, asJSON bool) {
	if marketID == "" {
		logger.Fatal("--market is required")
	}
	if amount <= 0 {
		logger.Fatal("--amount must be positive")
	}

	side := domain.Side(sideStr)
	if !side.IsValid() {
		logger.Fatalf("Invalid side %q (want yes or no)", sideStr)
	}

	svc := newService(logger, rpcEndpoint)
	result, err := svc.Quote(ctx, marketID, amount, side, slippageBps)
	if err != nil {
		logger.Fatalf("Quote: %v", err)
	}

	if asJSON {
		printJSON(logger, result)
		return
	}

	fmt.Printf("Market:        %s\n", marketID)
	fmt.Printf("Side:          %s at %s\n", result.Side, units.FormatPriceCents(result.PriceBps, 0))
	fmt.Printf("Collateral in: %d (%.6f credits)\n", result.CollateralIn, units.ToDisplayUnits(float64(result.CollateralIn)))
	fmt.Printf("Effective in:  %d (after pool fee)\n", result.EffectiveIn)
	fmt.Printf("Shares out:    %d\n", result.SharesOut)
	fmt.Printf("Min out:       %d (%d bps slippage)\n", result.MinSharesOut, slippageBps)
}

// selectResult is the JSON shape for select mode output.
type selectResult struct {
	Records  int     `json:"records"`
	Opaque   int     `json:"opaque"`
	SpendID  *string `json:"spend_id,omitempty"`
	SpendVal int64   `json:"spend_value,omitempty"`
	FeeID    *string `json:"fee_id,omitempty"`
	FeeVal   int64   `json:"fee_value,omitempty"`
	Found    bool    `json:"found"`
}

func runSelect(logger *log.Logger, recordsFile string, target, feeTarget int64, asJSON bool) {
	if recordsFile == "" {
		logger.Fatal("--records is required")
	}

	data, err := os.ReadFile(recordsFile)
	if err != nil {
		logger.Fatalf("Read records file: %v", err)
	}

	var raws []domain.RawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		logger.Fatalf("Parse records file: %v", err)
	}

	records := record.ClassifyAll(raws)
	opaque := 0
	for _, r := range records {
		if r.Opaque {
			opaque++
		}
	}
	logger.Printf("Classified %d of %d records (%d opaque)", len(records), len(raws), opaque)

	out := selectResult{Records: len(records), Opaque: opaque}

	if feeTarget >= 0 {
		pair, err := selection.Pair(records, target, feeTarget)
		if err != nil {
			logger.Fatalf("Pair selection: %v", err)
		}
		if pair != nil {
			out.Found = true
			out.SpendID = idOf(pair.Spend)
			out.SpendVal = pair.Spend.Value
			out.FeeID = idOf(pair.Fee)
			out.FeeVal = pair.Fee.Value
		}
	} else {
		picked, err := selection.ForAmount(records, target)
		if err != nil {
			logger.Fatalf("Selection: %v", err)
		}
		if picked != nil {
			out.Found = true
			out.SpendID = idOf(picked)
			out.SpendVal = picked.Value
		}
	}

	if asJSON {
		printJSON(logger, out)
		return
	}

	if !out.Found {
		fmt.Println("No sufficient record selection found")
		os.Exit(1)
	}

	fmt.Printf("Spend record: %s (value %d)\n", orOpaque(out.SpendID), out.SpendVal)
	if out.FeeID != nil || feeTarget >= 0 {
		fmt.Printf("Fee record:   %s (value %d)\n", orOpaque(out.FeeID), out.FeeVal)
	}
}

func idOf(r *domain.UnspentRecord) *string {
	if r == nil || r.ID == "" {
		return nil
	}
	id := r.ID
	return &id
}

func orOpaque(id *string) string {
	if id == nil {
		return "<opaque>"
	}
	return *id
}

func printJSON(logger *log.Logger, v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Fatalf("Encode output: %v", err)
	}
}
