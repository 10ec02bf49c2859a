// ABOUTME: Scriptable remote.Client used by the synced store tests
// ABOUTME: Records every call and can block or fail writes per document path

package synced

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
)

type call struct {
	op   string
	path string
	doc  remote.Document
}

type fakeClient struct {
	mu        sync.Mutex
	docs      map[string]remote.Document
	calls     []call
	fetchErrs []error
	writeErr  error
	gates     map[string]chan struct{}
	fetchGate map[string]chan struct{}
	started   chan call
	fetching  chan string
	subs      map[string]remote.ChangeFunc
}

var _ remote.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		docs:    make(map[string]remote.Document),
		gates:     make(map[string]chan struct{}),
		fetchGate: make(map[string]chan struct{}),
		started:   make(chan call, 64),
		fetching:  make(chan string, 64),
		subs:      make(map[string]remote.ChangeFunc),
	}
}

// block makes writes to path wait until the returned release func is called.
func (f *fakeClient) block(path string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[path] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, path)
			f.mu.Unlock()
			close(gate)
		})
	}
}

// blockFetch makes reads of path wait until the returned release func is
// called.
func (f *fakeClient) blockFetch(path string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.fetchGate[path] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.fetchGate, path)
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *fakeClient) FetchOnce(ctx context.Context, h remote.Handle) (remote.Document, error) {
	f.mu.Lock()
	gate := f.fetchGate[h.Path()]
	f.mu.Unlock()

	select {
	case f.fetching <- h.Path():
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call{op: "fetch", path: h.Path()})
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	doc, ok := f.docs[h.Path()]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (f *fakeClient) Subscribe(ctx context.Context, h remote.Handle, onChange remote.ChangeFunc) (remote.Unsubscribe, error) {
	f.mu.Lock()
	f.subs[h.Path()] = onChange
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, h.Path())
		f.mu.Unlock()
	}, nil
}

// push simulates a change made by another session.
func (f *fakeClient) push(path string, doc remote.Document) {
	f.mu.Lock()
	f.docs[path] = cloneDoc(doc)
	fn := f.subs[path]
	f.mu.Unlock()
	if fn != nil {
		fn(cloneDoc(doc), true)
	}
}

func (f *fakeClient) subscribed(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subs[path]
	return ok
}

func (f *fakeClient) Replace(ctx context.Context, h remote.Handle, doc remote.Document) error {
	return f.write(ctx, "replace", h, doc)
}

func (f *fakeClient) Merge(ctx context.Context, h remote.Handle, partial remote.Document) error {
	return f.write(ctx, "merge", h, partial)
}

func (f *fakeClient) write(ctx context.Context, op string, h remote.Handle, doc remote.Document) error {
	c := call{op: op, path: h.Path(), doc: cloneDoc(doc)}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	gate := f.gates[h.Path()]
	f.mu.Unlock()

	f.started <- c

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if op == "merge" {
		merged := cloneDoc(f.docs[h.Path()])
		if merged == nil {
			merged = remote.Document{}
		}
		maps.Copy(merged, c.doc)
		f.docs[h.Path()] = merged
	} else {
		f.docs[h.Path()] = cloneDoc(c.doc)
	}
	return nil
}

func (f *fakeClient) setWriteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakeClient) callsFor(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeClient) writesTo(path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.path == path && c.op != "fetch" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeClient) waitStarted(t *testing.T) call {
	t.Helper()
	select {
	case c := <-f.started:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a write to start")
		return call{}
	}
}

func (f *fakeClient) waitFetch(t *testing.T) string {
	t.Helper()
	select {
	case path := <-f.fetching:
		return path
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch to start")
		return ""
	}
}

func cloneDoc(doc remote.Document) remote.Document {
	if doc == nil {
		return nil
	}
	data, _ := json.Marshal(doc)
	var out remote.Document
	_ = json.Unmarshal(data, &out)
	return out
}
