// ABOUTME: Shared fixtures for feature module tests
// ABOUTME: Runs modules against an in-memory document store with a fake clock

package features

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/store"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
	"github.com/issambenlahbib/levelupmy-life/internal/testutil"
)

const testUser = "u1"

var testNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

type harness struct {
	docs   *store.MockStore
	client *remote.Local
	clock  *testutil.FakeClock
	opts   Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	docs := store.NewMockStore()
	clk := testutil.NewFakeClock(testNow)
	return &harness{
		docs:   docs,
		client: remote.NewLocal(docs),
		clock:  clk,
		opts:   Options{DebounceWindow: time.Second, Clock: clk},
	}
}

// mount binds m for the test user and tears it down at cleanup.
func (h *harness) mount(t *testing.T, m Module) {
	t.Helper()
	require.NoError(t, m.Bind(t.Context(), synced.Scope{UserID: testUser}))
	t.Cleanup(m.Teardown)
}

func (h *harness) seed(t *testing.T, path, raw string) {
	t.Helper()
	_, err := h.docs.PutDocument(t.Context(), path, json.RawMessage(raw))
	require.NoError(t, err)
}

// stored decodes the persisted document at path into v.
func (h *harness) stored(t *testing.T, path string, v any) {
	t.Helper()
	doc, err := h.docs.GetDocument(t.Context(), path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(doc.Data, v))
}

// settle lets the debounce window elapse.
func (h *harness) settle() {
	h.clock.Advance(2 * time.Second)
}
