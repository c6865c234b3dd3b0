package archive

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vinayprograms/agentcore/tasks"
)

// MemoryArchive is an in-process Archive backed by a map. Search is a
// case-insensitive substring match over kind, error text, and result
// values. Suited to tests and short-lived agents.
type MemoryArchive struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
	closed  bool
}

var _ Archive = (*MemoryArchive)(nil)

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		entries: make(map[string]*Entry),
	}
}

// Put records a terminal task. Re-archiving the same task ID
// overwrites the previous entry.
func (m *MemoryArchive) Put(ctx context.Context, t *tasks.Task) error {
	entry, err := entryFromTask(t)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, exists := m.entries[entry.TaskID]; !exists {
		m.order = append(m.order, entry.TaskID)
	}
	m.entries[entry.TaskID] = entry
	return nil
}

// Get retrieves an entry by task ID.
func (m *MemoryArchive) Get(ctx context.Context, taskID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	entry, ok := m.entries[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Search scans entries in insertion order for a substring match.
func (m *MemoryArchive) Search(ctx context.Context, query string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	needle := strings.ToLower(query)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var matches []*Entry
	for _, id := range m.order {
		entry := m.entries[id]
		if entryMatches(entry, needle) {
			matches = append(matches, entry)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}

// Size returns the number of archived entries.
func (m *MemoryArchive) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close marks the archive closed. Idempotent.
func (m *MemoryArchive) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func entryMatches(e *Entry, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Kind), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Error), needle) {
		return true
	}
	return strings.Contains(strings.ToLower(resultText(e.Result)), needle)
}

// resultText flattens a result map into searchable text with stable
// key order.
func resultText(result map[string]any) string {
	if len(result) == 0 {
		return ""
	}
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte(' ')
		if s, ok := result[k].(string); ok {
			sb.WriteString(s)
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
