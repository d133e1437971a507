package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"veilmarket/internal/chain/stub"
	"veilmarket/internal/domain"
	"veilmarket/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *stub.RPCClient, *memory.MarketStore, *memory.PricePointStore) {
	t.Helper()

	client := stub.NewRPCClient()
	markets := memory.NewMarketStore()
	points := memory.NewPricePointStore()

	svc, err := NewService(ServiceOptions{
		Client:          client,
		MarketStore:     markets,
		PricePointStore: points,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	svc.now = func() time.Time { return time.UnixMilli(1756700000000) }

	return svc, client, markets, points
}

func TestNewService_RequiresClient(t *testing.T) {
	_, err := NewService(ServiceOptions{})
	if !errors.Is(err, ErrNoClient) {
		t.Errorf("expected ErrNoClient, got %v", err)
	}
}

func TestService_Price(t *testing.T) {
	svc, client, _, points := newTestService(t)
	ctx := context.Background()

	client.Pools["m1"] = &domain.PoolState{
		MarketID:   "m1",
		YesReserve: 400_000,
		NoReserve:  600_000,
		FeeBps:     200,
		Height:     42,
	}

	info, err := svc.Price(ctx, "m1")
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}

	if info.YesPriceBps != 6000 {
		t.Errorf("expected 6000 bps, got %d", info.YesPriceBps)
	}
	if info.NoPriceBps != 4000 {
		t.Errorf("expected 4000 bps for NO, got %d", info.NoPriceBps)
	}
	if info.Display != "60¢" {
		t.Errorf("expected display 60¢, got %q", info.Display)
	}
	if info.Height != 42 {
		t.Errorf("expected height 42, got %d", info.Height)
	}

	// A price point must have been recorded
	stored, err := points.GetByMarketID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByMarketID failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored price point, got %d", len(stored))
	}
	if stored[0].YesPriceBps != 6000 || stored[0].Height != 42 {
		t.Errorf("stored point mismatch: %+v", stored[0])
	}
}

func TestService_PriceDuplicateSampleIgnored(t *testing.T) {
	svc, client, _, points := newTestService(t)
	ctx := context.Background()

	client.Pools["m1"] = &domain.PoolState{
		MarketID: "m1", YesReserve: 400_000, NoReserve: 600_000, Height: 1,
	}

	// Same frozen timestamp both times; second insert is a duplicate key
	if _, err := svc.Price(ctx, "m1"); err != nil {
		t.Fatalf("first Price failed: %v", err)
	}
	if _, err := svc.Price(ctx, "m1"); err != nil {
		t.Fatalf("second Price failed: %v", err)
	}

	stored, _ := points.GetByMarketID(ctx, "m1")
	if len(stored) != 1 {
		t.Errorf("expected 1 stored point, got %d", len(stored))
	}
}

func TestService_PriceUnknownMarket(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Price(context.Background(), "missing")
	if !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestService_Quote(t *testing.T) {
	svc, client, _, _ := newTestService(t)
	ctx := context.Background()

	client.Pools["m1"] = &domain.PoolState{
		MarketID:   "m1",
		YesReserve: 400_000,
		NoReserve:  600_000,
		FeeBps:     200,
		Height:     42,
	}

	result, err := svc.Quote(ctx, "m1", 100_000, domain.SideYes, 100)
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}

	if result.SharesOut != 154_160 {
		t.Errorf("expected 154160 shares out, got %d", result.SharesOut)
	}
	if result.EffectiveIn != 98_000 {
		t.Errorf("expected 98000 effective in, got %d", result.EffectiveIn)
	}
	if result.MinSharesOut != 152_618 {
		t.Errorf("expected 152618 min shares out, got %d", result.MinSharesOut)
	}
}

func TestService_QuoteInvalidSide(t *testing.T) {
	svc, client, _, _ := newTestService(t)

	client.Pools["m1"] = &domain.PoolState{
		MarketID: "m1", YesReserve: 400_000, NoReserve: 600_000,
	}

	_, err := svc.Quote(context.Background(), "m1", 100_000, domain.Side("maybe"), 0)
	if err == nil {
		t.Error("expected error for invalid side")
	}
}

func TestService_RegisterAndList(t *testing.T) {
	svc, client, _, _ := newTestService(t)
	ctx := context.Background()

	client.Markets["m1"] = &domain.Market{
		MarketID:   "m1",
		Question:   "Will it rain tomorrow?",
		Pool:       "pool-m1",
		YesTokenID: "yes-m1",
		NoTokenID:  "no-m1",
		FeeBps:     200,
		CreatedAt:  1756700000000,
	}

	m, err := svc.Register(ctx, "m1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if m.Question != "Will it rain tomorrow?" {
		t.Errorf("unexpected question: %q", m.Question)
	}

	// Registering again is idempotent
	again, err := svc.Register(ctx, "m1")
	if err != nil {
		t.Fatalf("second Register failed: %v", err)
	}
	if again.MarketID != "m1" {
		t.Errorf("expected m1, got %s", again.MarketID)
	}

	markets, err := svc.Markets(ctx)
	if err != nil {
		t.Fatalf("Markets failed: %v", err)
	}
	if len(markets) != 1 {
		t.Errorf("expected 1 market, got %d", len(markets))
	}
}

func TestService_RegisterUnknownMarket(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "missing")
	if !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestService_History(t *testing.T) {
	svc, client, _, _ := newTestService(t)
	ctx := context.Background()

	client.Pools["m1"] = &domain.PoolState{
		MarketID: "m1", YesReserve: 500_000, NoReserve: 500_000, Height: 1,
	}
	if _, err := svc.Price(ctx, "m1"); err != nil {
		t.Fatalf("Price failed: %v", err)
	}

	points, err := svc.History(ctx, "m1", 0, 2_000_000_000_000)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].YesPriceBps != 5000 {
		t.Errorf("expected 5000 bps at balanced reserves, got %d", points[0].YesPriceBps)
	}
}
