package marketdata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter/internal/herr"
)

type fakeProvider struct {
	name   string
	prices []float64
	err    error
	calls  atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) HistoricalCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

func makeSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(100 + i)
	}
	return out
}

func TestGatewayFallsBackToSecondProvider(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("down")}
	secondary := &fakeProvider{name: "secondary", prices: makeSeries(25)}
	gw := New(primary, secondary)

	prices, err := gw.HistoricalCloses(context.Background(), "BTC", 25)
	require.NoError(t, err)
	assert.Len(t, prices, 25)
	assert.Equal(t, int32(1), secondary.calls.Load())
}

func TestGatewaySkipsWhenInsufficientHistory(t *testing.T) {
	primary := &fakeProvider{name: "primary", prices: makeSeries(5)}
	secondary := &fakeProvider{name: "secondary", prices: makeSeries(10)}
	gw := New(primary, secondary)

	_, err := gw.HistoricalCloses(context.Background(), "ZZZ", 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, herr.ErrMalformedResponse)
}

func TestGatewayCachesWithinTTL(t *testing.T) {
	primary := &fakeProvider{name: "primary", prices: makeSeries(25)}
	gw := New(primary)

	_, err := gw.HistoricalCloses(context.Background(), "ETH", 25)
	require.NoError(t, err)
	_, err = gw.HistoricalCloses(context.Background(), "ETH", 25)
	require.NoError(t, err)
	assert.Equal(t, int32(1), primary.calls.Load())
}

func TestSnapshotAppendsLivePrice(t *testing.T) {
	primary := &fakeProvider{name: "primary", prices: makeSeries(20)}
	gw := New(primary)

	series, err := gw.Snapshot(context.Background(), "SOL", 20, 999.5)
	require.NoError(t, err)
	assert.Len(t, series, 21)
	assert.Equal(t, 999.5, series[len(series)-1])
}

func TestSnapshotRejectsNonPositiveLivePrice(t *testing.T) {
	primary := &fakeProvider{name: "primary", prices: makeSeries(20)}
	gw := New(primary)

	_, err := gw.Snapshot(context.Background(), "SOL", 20, 0)
	require.Error(t, err)
}
