package source_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
	"github.com/warp/incentive-engine/source"
	"github.com/warp/incentive-engine/store/memory"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type staticFetcher struct {
	raws  []contract.RawContract
	err   error
	block chan struct{}
}

func (f *staticFetcher) FetchAll(ctx context.Context) ([]contract.RawContract, error) {
	if f.block != nil {
		<-f.block
	}
	return f.raws, f.err
}

func raw(id, date, liquido string) contract.RawContract {
	return contract.RawContract{
		ID:                   contract.String(id),
		DataPagamento:        contract.String(date),
		ValorLiquidoLiberado: contract.String(liquido),
		ComissaoValor:        contract.String("10,00"),
	}
}

func newTestSyncer(f source.Fetcher) (*source.Syncer, *memory.Store) {
	store := memory.New()
	n := contract.NewNormalizer(contract.DefaultSentinels(), zap.NewNop())
	return source.NewSyncer(f, n, store, store, newFakeClock(), zap.NewNop()), store
}

func TestSyncer_RunTwiceIsIdempotent(t *testing.T) {
	// GIVEN: A source with two valid records and one without a date
	// WHEN: Syncing twice
	// THEN: The first run creates two, the second changes nothing

	f := &staticFetcher{raws: []contract.RawContract{
		raw("1", "01/03/2025", "100,00"),
		raw("2", "02/03/2025", "200,00"),
		raw("3", "", "300,00"),
	}}
	syncer, store := newTestSyncer(f)
	ctx := context.Background()

	first, err := syncer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.OriginSync, first.Origin)
	assert.Equal(t, 3, first.Fetched)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 1, first.Rejected)
	assert.NotEmpty(t, first.ID)

	second, err := syncer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 2, second.Unchanged)

	all, err := store.List(ctx, contract.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSyncer_ChangedRecordUpdates(t *testing.T) {
	f := &staticFetcher{raws: []contract.RawContract{raw("1", "01/03/2025", "100,00")}}
	syncer, store := newTestSyncer(f)
	ctx := context.Background()

	_, err := syncer.Run(ctx)
	require.NoError(t, err)

	f.raws = []contract.RawContract{raw("1", "01/03/2025", "150,00")}
	run, err := syncer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)

	c, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, money.Cents(15000), c.LiquidoLiberado)
}

func TestSyncer_FetchErrorRecorded(t *testing.T) {
	f := &staticFetcher{err: source.ErrRateLimited}
	syncer, store := newTestSyncer(f)

	run, err := syncer.Run(context.Background())

	assert.True(t, errors.Is(err, source.ErrRateLimited))
	assert.Equal(t, source.ErrRateLimited.Error(), run.Error)

	runs, _ := store.ListRuns(context.Background(), 0)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].Error)
}

func TestSyncer_RejectsConcurrentRun(t *testing.T) {
	f := &staticFetcher{block: make(chan struct{})}
	syncer, _ := newTestSyncer(f)

	done := make(chan error, 1)
	go func() {
		_, err := syncer.Run(context.Background())
		done <- err
	}()

	require.Eventually(t, syncer.Running, timeout, tick)
	_, err := syncer.Import(context.Background(), nil)
	assert.ErrorIs(t, err, source.ErrSyncInProgress)

	close(f.block)
	require.NoError(t, <-done)
	assert.False(t, syncer.Running())
}

func TestSyncer_ImportWithoutFetcher(t *testing.T) {
	syncer, store := newTestSyncer(nil)

	run, err := syncer.Import(context.Background(), []contract.RawContract{raw("9", "2025-03-09", "50")})
	require.NoError(t, err)
	assert.Equal(t, source.OriginImport, run.Origin)
	assert.Equal(t, 1, run.Created)

	_, err = store.Get(context.Background(), "9")
	assert.NoError(t, err)

	_, err = syncer.Run(context.Background())
	assert.ErrorIs(t, err, source.ErrNoFetcher)
}
