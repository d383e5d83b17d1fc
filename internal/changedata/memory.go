package changedata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps change data in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func memoryKey(id string, partition int) string {
	return id + "/" + PartitionName(partition) + PartitionFileSuffix
}

type memoryWriter struct {
	store *MemoryStore
	key   string
	buf   bytes.Buffer
	done  bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, fmt.Errorf("write to closed partition %s", w.key)
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	w.store.mu.Lock()
	w.store.objects[w.key] = bytes.Clone(w.buf.Bytes())
	w.store.mu.Unlock()
	return nil
}

func (w *memoryWriter) Abort() error {
	w.done = true
	return nil
}

func (s *MemoryStore) Create(_ context.Context, id string, partition int) (PartitionWriter, error) {
	return &memoryWriter{store: s, key: memoryKey(id, partition)}, nil
}

func (s *MemoryStore) Open(_ context.Context, id string, partition int) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[memoryKey(id, partition)]
	if !ok {
		return nil, fmt.Errorf("partition %d of %s not found", partition, id)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *MemoryStore) Partitions(_ context.Context, id string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := id + "/"
	var out []int
	for key := range s.objects {
		name, ok := strings.CutPrefix(key, prefix)
		if !ok || strings.Contains(name, "/") {
			continue
		}
		if idx, ok := ParsePartitionName(name); ok {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := id + "/"
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	return nil
}
