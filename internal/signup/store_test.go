package signup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/signup/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adaData = domain.PendingSignupData{Name: "Ada", Email: "ada@example.com", Password: "x", UserType: "job_seeker"}

func TestMemoryStoresAreTabScoped(t *testing.T) {
	stores := NewMemoryStores(clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)), 0)
	ctx := context.Background()

	tabA, err := stores.ForTab("tab-a")
	require.NoError(t, err)
	tabB, err := stores.ForTab("tab-b")
	require.NoError(t, err)

	require.NoError(t, tabA.Save(ctx, adaData))
	_, err = tabB.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoPendingSignup)

	again, err := stores.ForTab("tab-a")
	require.NoError(t, err)
	pending, err := again.Load(ctx)
	require.NoError(t, err)
	data, err := pending.Take()
	require.NoError(t, err)
	assert.Equal(t, adaData, data)

	_, err = stores.ForTab(" ")
	assert.ErrorIs(t, err, ErrMissingTabID)
}

func TestMemoryStoresDropClearedTabs(t *testing.T) {
	stores := NewMemoryStores(clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)), time.Hour).(*memoryStores)
	ctx := context.Background()

	for _, tabID := range []string{"tab-1", "tab-2", "tab-3"} {
		store, err := stores.ForTab(tabID)
		require.NoError(t, err)
		_, err = store.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrNoPendingSignup)
		require.NoError(t, store.Clear(ctx))
	}
	assert.Equal(t, 0, stores.Len(), "looking up a tab must not allocate an entry")

	store, err := stores.ForTab("tab-1")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, adaData))
	assert.Equal(t, 1, stores.Len())

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, 0, stores.Len())
}

func TestMemoryStoresExpireStagedData(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	stores := NewMemoryStores(clk, time.Hour).(*memoryStores)
	ctx := context.Background()

	stale, err := stores.ForTab("stale")
	require.NoError(t, err)
	require.NoError(t, stale.Save(ctx, adaData))

	clk.Advance(30 * time.Minute)
	fresh, err := stores.ForTab("fresh")
	require.NoError(t, err)
	require.NoError(t, fresh.Save(ctx, adaData))
	assert.Equal(t, 2, stores.Len())

	clk.Advance(31 * time.Minute)
	_, err = stale.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoPendingSignup)
	assert.Equal(t, 1, stores.Len())

	// Saving sweeps every expired tab, not only the caller's.
	abandoned, err := stores.ForTab("abandoned")
	require.NoError(t, err)
	require.NoError(t, abandoned.Save(ctx, adaData))
	clk.Advance(2 * time.Hour)
	other, err := stores.ForTab("other")
	require.NoError(t, err)
	require.NoError(t, other.Save(ctx, adaData))
	assert.Equal(t, 1, stores.Len())
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	store, err := NewRedisStore(client, "tab-1", 0)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, adaData))

	key := "signup:tab-1:pendingSignup"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	pending, err := store.Load(ctx)
	require.NoError(t, err)
	data, err := pending.Take()
	require.NoError(t, err)
	assert.Equal(t, adaData, data)

	// Loading hands the record out once.
	_, err = store.Load(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoPendingSignup))
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	store, err := NewRedisStore(client, "tab-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, adaData))

	mr.FastForward(2 * time.Minute)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoPendingSignup)
}

func TestRedisStoreRejectsInvalidData(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client, "tab-1", 0)
	require.NoError(t, err)
	err = store.Save(context.Background(), domain.PendingSignupData{Email: "ada@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidPendingData)
	assert.False(t, mr.Exists("signup:tab-1:pendingSignup"))
}
