package audit

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

type fakeBrowser struct {
	mu       sync.Mutex
	captures map[string]PageCapture
	errs     map[string]error
	calls    []string
}

func (f *fakeBrowser) Capture(_ context.Context, url string, vp Viewport, _ bool) (PageCapture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, vp.Name+" "+url)
	return f.captures[vp.Name], f.errs[vp.Name]
}

type fakeProber struct {
	probes Probes
	origin string
}

func (f *fakeProber) Probe(_ context.Context, origin string) Probes {
	f.origin = origin
	return f.probes
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeBlobs) PutObject(_ context.Context, path, _ string, data io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return "", err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[path] = buf.Bytes()
	return "memory://" + path, nil
}
