package favorites_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/skycast/internal/favorites"
	"github.com/neexbeast/skycast/internal/identity"
	"github.com/neexbeast/skycast/internal/weather"
)

// ---- mock remote ----

type mockRemote struct {
	mu      sync.Mutex
	rows    map[string][]string
	listErr error
	addErr  error
	delErr  error
	calls   []string
	// listGate, when set, blocks List until closed.
	listGate chan struct{}
	listed   chan string
}

func newMockRemote() *mockRemote {
	return &mockRemote{rows: map[string][]string{}}
}

func (m *mockRemote) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockRemote) callCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (m *mockRemote) List(_ context.Context, identityID string) ([]string, error) {
	m.record("list " + identityID)
	if m.listed != nil {
		m.listed <- identityID
	}
	if m.listGate != nil {
		<-m.listGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.rows[identityID]...), nil
}

func (m *mockRemote) Insert(_ context.Context, identityID, city string) error {
	m.record("insert " + city)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	for _, c := range m.rows[identityID] {
		if c == city {
			return nil
		}
	}
	m.rows[identityID] = append(m.rows[identityID], city)
	return nil
}

func (m *mockRemote) Delete(_ context.Context, identityID, city string) error {
	m.record("delete " + city)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	var kept []string
	for _, c := range m.rows[identityID] {
		if c != city {
			kept = append(kept, c)
		}
	}
	m.rows[identityID] = kept
	return nil
}

// ---- helpers ----

func newStore(remote favorites.Remote) *favorites.Store {
	return favorites.New(remote, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var u1 = identity.Identity{ID: "u1"}

// ---- Load ----

func TestLoad_ReplacesSet(t *testing.T) {
	remote := newMockRemote()
	remote.rows["u1"] = []string{"London", "Paris"}
	s := newStore(remote)

	s.Load(context.Background(), u1)

	assert.Equal(t, []string{"London", "Paris"}, s.List())
}

func TestLoad_ErrorLeavesEmpty(t *testing.T) {
	remote := newMockRemote()
	remote.listErr = errors.New("db down")
	s := newStore(remote)

	s.Load(context.Background(), u1)

	assert.Empty(t, s.List())
}

func TestLoad_DedupesRemoteRows(t *testing.T) {
	remote := newMockRemote()
	remote.rows["u1"] = []string{"London", "London", "Paris"}
	s := newStore(remote)

	s.Load(context.Background(), u1)

	assert.Equal(t, []string{"London", "Paris"}, s.List())
}

// ---- Add ----

func TestAdd_Twice_OneEntry(t *testing.T) {
	remote := newMockRemote()
	s := newStore(remote)
	ctx := context.Background()
	s.Load(ctx, u1)

	require.NoError(t, s.Add(ctx, "Paris"))
	require.NoError(t, s.Add(ctx, "Paris"))

	assert.Equal(t, []string{"Paris"}, s.List())
	assert.Equal(t, 1, remote.callCount("insert"))
	assert.Equal(t, []string{"Paris"}, remote.rows["u1"])
}

func TestAdd_KeepsInsertionOrder(t *testing.T) {
	s := newStore(newMockRemote())
	ctx := context.Background()
	s.Load(ctx, u1)

	for _, c := range []string{"Paris", "London", "Tokyo"} {
		require.NoError(t, s.Add(ctx, c))
	}

	assert.Equal(t, []string{"Paris", "London", "Tokyo"}, s.List())
	assert.True(t, s.Contains("London"))
	assert.False(t, s.Contains("Oslo"))
}

func TestAdd_WithoutIdentity(t *testing.T) {
	remote := newMockRemote()
	s := newStore(remote)

	err := s.Add(context.Background(), "Paris")

	assert.ErrorIs(t, err, favorites.ErrLoginRequired)
	assert.Empty(t, s.List())
	assert.Zero(t, remote.callCount("insert"))
}

func TestAdd_RemoteFailureNotApplied(t *testing.T) {
	remote := newMockRemote()
	remote.addErr = errors.New("db down")
	s := newStore(remote)
	ctx := context.Background()
	s.Load(ctx, u1)

	err := s.Add(ctx, "Paris")

	assert.ErrorIs(t, err, weather.ErrPersistence)
	assert.Equal(t, weather.MsgPersistence, weather.Message(err))
	assert.Empty(t, s.List())
}

func TestAdd_EmptyCity(t *testing.T) {
	remote := newMockRemote()
	s := newStore(remote)
	ctx := context.Background()
	s.Load(ctx, u1)

	err := s.Add(ctx, "  ")

	assert.ErrorIs(t, err, weather.ErrInvalidRequest)
	assert.Zero(t, remote.callCount("insert"))
}

// ---- Remove ----

func TestRemove_Present(t *testing.T) {
	remote := newMockRemote()
	remote.rows["u1"] = []string{"London", "Paris", "Tokyo"}
	s := newStore(remote)
	ctx := context.Background()
	s.Load(ctx, u1)

	s.Remove(ctx, "Paris")

	assert.Equal(t, []string{"London", "Tokyo"}, s.List())
	assert.Equal(t, []string{"London", "Tokyo"}, remote.rows["u1"])
}

func TestRemove_AbsentNoRemoteCall(t *testing.T) {
	remote := newMockRemote()
	remote.rows["u1"] = []string{"London", "Tokyo"}
	s := newStore(remote)
	ctx := context.Background()
	s.Load(ctx, u1)

	s.Remove(ctx, "Paris")

	assert.Zero(t, remote.callCount("delete"))
	assert.Equal(t, []string{"London", "Tokyo"}, s.List())
}

func TestRemove_WithoutIdentity(t *testing.T) {
	remote := newMockRemote()
	s := newStore(remote)

	s.Remove(context.Background(), "Paris")

	assert.Zero(t, remote.callCount("delete"))
}

func TestRemove_RemoteFailureSwallowed(t *testing.T) {
	remote := newMockRemote()
	remote.rows["u1"] = []string{"Paris"}
	s := newStore(remote)
	ctx := context.Background()
	s.Load(ctx, u1)
	remote.delErr = errors.New("db down")

	s.Remove(ctx, "Paris")

	assert.Equal(t, []string{"Paris"}, s.List())
}

// ---- identity changes ----

func TestIdentityChange_PresentLoads(t *testing.T) {
	remote := newMockRemote()
	remote.rows["u1"] = []string{"London"}
	s := newStore(remote)
	ids := identity.New()
	ids.Subscribe(s.OnIdentityChange)

	ids.Set(context.Background(), u1)

	assert.Equal(t, []string{"London"}, s.List())
}

func TestIdentityChange_AbsentClearsWithoutDelete(t *testing.T) {
	remote := newMockRemote()
	remote.rows["u1"] = []string{"London", "Paris"}
	s := newStore(remote)
	ids := identity.New()
	ids.Subscribe(s.OnIdentityChange)
	ctx := context.Background()

	ids.Set(ctx, u1)
	require.Len(t, s.List(), 2)

	ids.Clear(ctx)

	assert.Empty(t, s.List())
	assert.Zero(t, remote.callCount("delete"))
	assert.Equal(t, []string{"London", "Paris"}, remote.rows["u1"], "remote rows are untouched")
	assert.ErrorIs(t, s.Add(ctx, "Oslo"), favorites.ErrLoginRequired)
}

func TestIdentityChange_StaleLoadDiscarded(t *testing.T) {
	remote := newMockRemote()
	remote.rows["u1"] = []string{"London"}
	remote.listGate = make(chan struct{})
	remote.listed = make(chan string, 1)
	s := newStore(remote)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		s.Load(ctx, u1)
		close(done)
	}()
	require.Equal(t, "u1", <-remote.listed)

	// Sign out while u1's list is in flight.
	s.OnIdentityChange(ctx, identity.Identity{}, false)
	close(remote.listGate)
	<-done

	assert.Empty(t, s.List(), "u1's favorites must not reappear after sign-out")
}

func TestIdentityChange_SwitchUser(t *testing.T) {
	remote := newMockRemote()
	remote.rows["u1"] = []string{"London"}
	remote.rows["u2"] = []string{"Tokyo"}
	s := newStore(remote)
	ctx := context.Background()

	s.OnIdentityChange(ctx, u1, true)
	s.OnIdentityChange(ctx, identity.Identity{ID: "u2"}, true)

	assert.Equal(t, []string{"Tokyo"}, s.List())
}
