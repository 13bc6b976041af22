package gateway

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(i int) string { return strconv.Itoa(i) }

type fakeSubscriber struct {
	subscribeCalls   [][]string
	unsubscribeCalls [][]string
	failSubscribe    bool
}

func (f *fakeSubscriber) sendSubscribe(symbols []string) error {
	if f.failSubscribe {
		return errors.New("native call failed")
	}
	f.subscribeCalls = append(f.subscribeCalls, symbols)
	return nil
}

func (f *fakeSubscriber) sendUnsubscribe(symbols []string) error {
	f.unsubscribeCalls = append(f.unsubscribeCalls, symbols)
	return nil
}

func TestSubscriptionRegistry_WildcardExpansion(t *testing.T) {
	r := newSubscriptionRegistry([]string{"IF2401", "IF2402", "IC2401"}, 10, noopLogger{})
	sub := &fakeSubscriber{}

	accepted, err := r.subscribe([]string{"IF*"}, sub)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"IF2401", "IF2402"}, accepted)
}

func TestSubscriptionRegistry_Idempotent(t *testing.T) {
	r := newSubscriptionRegistry([]string{"IF2401"}, 10, noopLogger{})
	sub := &fakeSubscriber{}

	_, err := r.subscribe([]string{"IF2401"}, sub)
	require.NoError(t, err)

	accepted, err := r.subscribe([]string{"IF2401"}, sub)
	require.NoError(t, err)
	assert.Empty(t, accepted)
	assert.Len(t, sub.subscribeCalls, 1)
}

func TestSubscriptionRegistry_LimitExceeded(t *testing.T) {
	r := newSubscriptionRegistry([]string{"A", "B", "C"}, 2, noopLogger{})
	sub := &fakeSubscriber{}

	_, err := r.subscribe([]string{"A", "B", "C"}, sub)
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, KindSubscriptionLimitExceeded, gwErr.Kind)
	assert.Empty(t, sub.subscribeCalls)
}

func TestSubscriptionRegistry_BatchesAt100(t *testing.T) {
	universe := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		universe = append(universe, "SYM"+itoa(i))
	}
	r := newSubscriptionRegistry(universe, 200, noopLogger{})
	sub := &fakeSubscriber{}

	_, err := r.subscribe(universe, sub)
	require.NoError(t, err)
	assert.Len(t, sub.subscribeCalls, 2)
	assert.Len(t, sub.subscribeCalls[0], 100)
	assert.Len(t, sub.subscribeCalls[1], 50)
}

func TestSubscriptionRegistry_UnsubscribeOnlyIntersects(t *testing.T) {
	r := newSubscriptionRegistry([]string{"A", "B"}, 10, noopLogger{})
	sub := &fakeSubscriber{}
	_, _ = r.subscribe([]string{"A", "B"}, sub)

	removed := r.unsubscribe([]string{"A", "Z"}, sub)
	assert.Equal(t, []string{"A"}, removed)
	assert.Equal(t, 1, r.Count())
}

func TestSubscriptionRegistry_BatchFailureIsNotFatal(t *testing.T) {
	r := newSubscriptionRegistry([]string{"A"}, 10, noopLogger{})
	sub := &fakeSubscriber{failSubscribe: true}

	accepted, err := r.subscribe([]string{"A"}, sub)
	require.NoError(t, err)
	assert.Empty(t, accepted)
	assert.Equal(t, 0, r.Count())
}

func TestSubscriptionRegistry_RestoreSnapshot(t *testing.T) {
	r := newSubscriptionRegistry([]string{"A", "B"}, 10, noopLogger{})
	sub := &fakeSubscriber{}
	_, _ = r.subscribe([]string{"A", "B"}, sub)

	snapshot := r.Snapshot()
	restored, err := r.restoreSnapshot(snapshot, sub)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, restored)
}
