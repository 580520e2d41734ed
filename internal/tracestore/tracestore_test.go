package tracestore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/manualcore/internal/tracestore"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

type sequentialIDs struct{ n int }

func (s *sequentialIDs) NewID() string {
	s.n++
	return "trace-" + string(rune('a'+s.n-1))
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := tracestore.New(10, time.Minute, clock, &sequentialIDs{})

	id := store.Create("net-guide", tracestore.Payload{"candidates": 3})
	require.NotEmpty(t, id)

	got := store.Get(id)
	assert.Equal(t, tracestore.Payload{"candidates": 3}, got)
}

func TestGetUnknownIDReturnsNil(t *testing.T) {
	store := tracestore.New(10, time.Minute, &fakeClock{now: time.Unix(0, 0)}, &sequentialIDs{})
	assert.Nil(t, store.Get("nope"))
}

func TestGetExpiredTraceReturnsNilAndDoesNotRescan(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := tracestore.New(10, time.Minute, clock, &sequentialIDs{})

	id := store.Create("net-guide", tracestore.Payload{})
	clock.now = clock.now.Add(2 * time.Minute)

	assert.Nil(t, store.Get(id))
	assert.Nil(t, store.Get(id)) // still nil, no resurrection
}

func TestCreateAlwaysMintsAFreshID(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := tracestore.New(10, time.Minute, clock, &sequentialIDs{})

	id1 := store.Create("net-guide", tracestore.Payload{})
	id2 := store.Create("net-guide", tracestore.Payload{})
	assert.NotEqual(t, id1, id2)
}

func TestDropManualEvictsOnlyMatchingTraces(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := tracestore.New(10, time.Minute, clock, &sequentialIDs{})

	idA := store.Create("manual-a", tracestore.Payload{})
	idB := store.Create("manual-b", tracestore.Payload{})

	n := store.DropManual("manual-a")
	assert.Equal(t, 1, n)
	assert.Nil(t, store.Get(idA))
	assert.NotNil(t, store.Get(idB))
}
