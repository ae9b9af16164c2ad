package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// memoryStore is an in-memory ObjectStore. failPutAt makes the n-th Put
// (1-based) fail; failDelete makes every Delete fail.
type memoryStore struct {
	mu         sync.Mutex
	objects    map[string]ObjectMetadata
	puts       []string
	deletes    []string
	failPutAt  int
	putErr     error
	failDelete error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string]ObjectMetadata)}
}

func (s *memoryStore) Put(ctx context.Context, key, filePath, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, key)
	if s.failPutAt > 0 && len(s.puts) == s.failPutAt {
		if s.putErr == nil {
			s.putErr = errors.New("store unavailable")
		}
		return s.putErr
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	s.objects[key] = ObjectMetadata{Key: key, ContentType: mimeType, SizeBytes: info.Size()}
	return nil
}

func (s *memoryStore) Stat(ctx context.Context, key string) (ObjectMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.objects[key]
	if !ok {
		return ObjectMetadata{}, ErrObjectNotFound
	}
	return meta, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, key)
	if s.failDelete != nil {
		return s.failDelete
	}
	delete(s.objects, key)
	return nil
}

// fakeTranscoder writes one output file per input into dir.
type fakeTranscoder struct {
	dir     string
	calls   int
	inputs  []string
	outputs []string
	err     error
}

func (t *fakeTranscoder) Compress(ctx context.Context, inputs []string) ([]string, error) {
	t.calls++
	t.inputs = append(t.inputs, inputs...)
	if t.err != nil {
		return nil, t.err
	}
	outs := make([]string, 0, len(inputs))
	for _, in := range inputs {
		out := filepath.Join(t.dir, filepath.Base(in)+".mp4")
		if err := os.WriteFile(out, []byte("compressed"), 0o600); err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	t.outputs = append(t.outputs, outs...)
	return outs, nil
}

func writeTemp(t *testing.T, dir, name, mimeType string, size int) FileDescriptor {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return FileDescriptor{Name: name, TempPath: path, MimeType: mimeType, Size: int64(size)}
}

func assertGone(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s to be removed, stat err=%v", p, err)
		}
	}
}
