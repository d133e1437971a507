package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veilmarket/internal/domain"
	"veilmarket/internal/storage"
)

func testMarket(id, pool string) *domain.Market {
	return &domain.Market{
		MarketID:   id,
		Question:   "Will it resolve YES?",
		Pool:       pool,
		YesTokenID: "yes-" + id,
		NoTokenID:  "no-" + id,
		FeeBps:     200,
		Creator:    ptr("aleo1creator"),
		CreatedAt:  1756700000000,
	}
}

func TestMarketStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketStore(pool)
	ctx := context.Background()

	market := testMarket("market-001", "pool-addr-001")

	err := store.Insert(ctx, market)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "market-001")
	require.NoError(t, err)

	assert.Equal(t, market.MarketID, retrieved.MarketID)
	assert.Equal(t, market.Question, retrieved.Question)
	assert.Equal(t, market.Pool, retrieved.Pool)
	assert.Equal(t, market.YesTokenID, retrieved.YesTokenID)
	assert.Equal(t, market.NoTokenID, retrieved.NoTokenID)
	assert.Equal(t, market.FeeBps, retrieved.FeeBps)
	assert.Equal(t, *market.Creator, *retrieved.Creator)
	assert.Equal(t, market.CreatedAt, retrieved.CreatedAt)
}

func TestMarketStore_InsertNilCreator(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketStore(pool)
	ctx := context.Background()

	market := testMarket("market-nil-creator", "pool-addr-nc")
	market.Creator = nil

	err := store.Insert(ctx, market)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "market-nil-creator")
	require.NoError(t, err)
	assert.Nil(t, retrieved.Creator)
}

func TestMarketStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketStore(pool)
	ctx := context.Background()

	market := testMarket("market-dup", "pool-addr-dup")

	err := store.Insert(ctx, market)
	require.NoError(t, err)

	err = store.Insert(ctx, market)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestMarketStore_DuplicatePool(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testMarket("market-a", "pool-shared")))

	err := store.Insert(ctx, testMarket("market-b", "pool-shared"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestMarketStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMarketStore_GetByPool(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketStore(pool)
	ctx := context.Background()

	market := testMarket("market-by-pool", "pool-addr-lookup")
	require.NoError(t, store.Insert(ctx, market))

	retrieved, err := store.GetByPool(ctx, "pool-addr-lookup")
	require.NoError(t, err)
	assert.Equal(t, "market-by-pool", retrieved.MarketID)

	_, err = store.GetByPool(ctx, "pool-addr-missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMarketStore_ListOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMarketStore(pool)
	ctx := context.Background()

	m1 := testMarket("market-l1", "pool-l1")
	m1.CreatedAt = 3000
	m2 := testMarket("market-l2", "pool-l2")
	m2.CreatedAt = 1000
	m3 := testMarket("market-l3", "pool-l3")
	m3.CreatedAt = 2000

	require.NoError(t, store.Insert(ctx, m1))
	require.NoError(t, store.Insert(ctx, m2))
	require.NoError(t, store.Insert(ctx, m3))

	markets, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, markets, 3)

	assert.Equal(t, "market-l2", markets[0].MarketID)
	assert.Equal(t, "market-l3", markets[1].MarketID)
	assert.Equal(t, "market-l1", markets[2].MarketID)
}
