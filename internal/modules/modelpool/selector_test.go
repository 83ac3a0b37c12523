package modelpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openkb/review-core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory CounterStore with the same atomicity as the Redis
// implementation.
type memStore struct {
	mu        sync.Mutex
	counters  map[string]int64
	cooldowns map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		counters:  make(map[string]int64),
		cooldowns: make(map[string]bool),
	}
}

func (s *memStore) IncrBy(_ context.Context, key string, n int64, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] += n
	return s.counters[key], nil
}

func (s *memStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

func (s *memStore) SetCooldown(_ context.Context, key string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[key] = true
	return nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldowns[key], nil
}

// staticSource serves a fixed candidate list, already priority-ordered the
// way ListEnabled orders it.
type staticSource []models.AIModelConfig

func (s staticSource) ListEnabled() ([]models.AIModelConfig, error) { return s, nil }

func model(id string, rpm, tpm int) models.AIModelConfig {
	m := models.AIModelConfig{
		Provider:        "openai",
		Name:            id,
		ModelID:         id,
		RPMLimit:        rpm,
		TPMLimit:        tpm,
		CooldownSeconds: 60,
		Enabled:         true,
	}
	m.ID = id
	return m
}

func testSelector(source ModelSource, store CounterStore) *Selector {
	s := NewSelector(source, store, zap.NewNop())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s
}

func TestSelectPrefersFirstCandidate(t *testing.T) {
	s := testSelector(staticSource{model("primary", 10, 0), model("fallback", 10, 0)}, newMemStore())

	m, err := s.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "primary", m.ID)
}

func TestSelectSkipsCoolingModel(t *testing.T) {
	store := newMemStore()
	primary := model("primary", 10, 0)
	s := testSelector(staticSource{primary, model("fallback", 10, 0)}, store)

	s.Cooldown(context.Background(), &primary)

	m, err := s.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", m.ID)
}

func TestSelectFallsOverWhenRPMExhausted(t *testing.T) {
	s := testSelector(staticSource{model("primary", 2, 0), model("fallback", 10, 0)}, newMemStore())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		m, err := s.Select(ctx)
		require.NoError(t, err)
		assert.Equal(t, "primary", m.ID)
	}

	m, err := s.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fallback", m.ID)
}

func TestSelectSkipsTPMExhaustedModel(t *testing.T) {
	s := testSelector(staticSource{model("primary", 100, 1000), model("fallback", 100, 0)}, newMemStore())
	ctx := context.Background()

	s.AddTokens(ctx, "primary", 1000)

	m, err := s.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fallback", m.ID)
}

func TestSelectNoModelAvailable(t *testing.T) {
	s := testSelector(staticSource{model("only", 1, 0)}, newMemStore())
	ctx := context.Background()

	_, err := s.Select(ctx)
	require.NoError(t, err)

	_, err = s.Select(ctx)
	assert.ErrorIs(t, err, ErrNoModelAvailable)
}

func TestSelectEmptyPool(t *testing.T) {
	s := testSelector(staticSource{}, newMemStore())

	_, err := s.Select(context.Background())
	assert.ErrorIs(t, err, ErrNoModelAvailable)
}

func TestSelectUnlimitedModelAlwaysAdmits(t *testing.T) {
	s := testSelector(staticSource{model("free", 0, 0)}, newMemStore())
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		m, err := s.Select(ctx)
		require.NoError(t, err)
		assert.Equal(t, "free", m.ID)
	}
}

func TestConcurrentSelectNeverOverAdmits(t *testing.T) {
	const rpm = 20
	const callers = 100

	s := testSelector(staticSource{model("limited", rpm, 0)}, newMemStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	rejected := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Select(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				admitted++
			} else {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, rpm, admitted, "reservation must never admit past the RPM limit")
	assert.Equal(t, callers-rpm, rejected)
}

func TestAddTokensIgnoresNonPositive(t *testing.T) {
	store := newMemStore()
	s := testSelector(staticSource{}, store)

	s.AddTokens(context.Background(), "m", 0)
	s.AddTokens(context.Background(), "m", -5)

	assert.Empty(t, store.counters)
}
