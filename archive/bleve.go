package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/vinayprograms/agentcore/tasks"
)

// BleveArchive is a disk-backed Archive with BM25 full-text search
// over kinds, error text, and result content. The index survives
// restarts; reopening the same path resumes the existing archive.
type BleveArchive struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

var _ Archive = (*BleveArchive)(nil)

// entryDocument is the indexed representation of an Entry. Result
// maps are carried twice: flattened into text for search, and as JSON
// for faithful reconstruction.
type entryDocument struct {
	TaskID     string    `json:"task_id"`
	Kind       string    `json:"kind"`
	Priority   float64   `json:"priority"`
	Status     string    `json:"status"`
	Error      string    `json:"error"`
	FaultCode  string    `json:"fault_code"`
	ResultText string    `json:"result_text"`
	ResultJSON string    `json:"result_json"`
	CreatedAt  time.Time `json:"created_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// NewBleveArchive opens the index at path, creating it if absent.
func NewBleveArchive(path string) (*BleveArchive, error) {
	var index bleve.Index
	var err error

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create archive index: %w", err)
		}
	} else {
		index, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive index: %w", err)
		}
	}

	return &BleveArchive{index: index}, nil
}

// buildIndexMapping creates the Bleve index mapping for entries.
func buildIndexMapping() mapping.IndexMapping {
	entryMapping := bleve.NewDocumentMapping()

	// Analyzed for full-text search
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	// Not analyzed, exact match
	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	dateFieldMapping := bleve.NewDateTimeFieldMapping()
	numericFieldMapping := bleve.NewNumericFieldMapping()

	// Stored for reconstruction, not searchable
	storedFieldMapping := bleve.NewTextFieldMapping()
	storedFieldMapping.Index = false
	storedFieldMapping.IncludeInAll = false

	entryMapping.AddFieldMappingsAt("task_id", keywordFieldMapping)
	entryMapping.AddFieldMappingsAt("kind", textFieldMapping)
	entryMapping.AddFieldMappingsAt("priority", numericFieldMapping)
	entryMapping.AddFieldMappingsAt("status", keywordFieldMapping)
	entryMapping.AddFieldMappingsAt("error", textFieldMapping)
	entryMapping.AddFieldMappingsAt("fault_code", keywordFieldMapping)
	entryMapping.AddFieldMappingsAt("result_text", textFieldMapping)
	entryMapping.AddFieldMappingsAt("result_json", storedFieldMapping)
	entryMapping.AddFieldMappingsAt("created_at", dateFieldMapping)
	entryMapping.AddFieldMappingsAt("ended_at", dateFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = entryMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Put indexes a terminal task, overwriting any previous entry for the
// same task ID.
func (b *BleveArchive) Put(ctx context.Context, t *tasks.Task) error {
	entry, err := entryFromTask(t)
	if err != nil {
		return err
	}

	doc := entryDocument{
		TaskID:     entry.TaskID,
		Kind:       entry.Kind,
		Priority:   float64(entry.Priority),
		Status:     entry.Status,
		Error:      entry.Error,
		FaultCode:  entry.FaultCode,
		ResultText: resultText(entry.Result),
		CreatedAt:  entry.CreatedAt,
		EndedAt:    entry.EndedAt,
	}
	if entry.Result != nil {
		data, err := json.Marshal(entry.Result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		doc.ResultJSON = string(data)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.index.Index(entry.TaskID, doc); err != nil {
		return fmt.Errorf("failed to index entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by task ID using a doc ID query.
func (b *BleveArchive) Get(ctx context.Context, taskID string) (*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	docIDQuery := bleve.NewDocIDQuery([]string{taskID})
	searchReq := bleve.NewSearchRequest(docIDQuery)
	searchReq.Fields = []string{"*"}
	searchReq.Size = 1

	results, err := b.index.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("failed to look up entry: %w", err)
	}
	if results.Total == 0 {
		return nil, ErrNotFound
	}

	return entryFromHit(taskID, results.Hits[0].Fields)
}

// Search runs a match query over the searchable fields and returns
// entries in relevance order.
func (b *BleveArchive) Search(ctx context.Context, query string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	matchQuery := bleve.NewMatchQuery(query)
	searchReq := bleve.NewSearchRequest(matchQuery)
	searchReq.Fields = []string{"*"}
	searchReq.Size = limit

	results, err := b.index.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	entries := make([]*Entry, 0, len(results.Hits))
	for _, hit := range results.Hits {
		entry, err := entryFromHit(hit.ID, hit.Fields)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close closes the underlying index. Idempotent.
func (b *BleveArchive) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

// entryFromHit reconstructs an Entry from stored hit fields.
func entryFromHit(taskID string, fields map[string]any) (*Entry, error) {
	entry := &Entry{TaskID: taskID}

	if v, ok := fields["kind"].(string); ok {
		entry.Kind = v
	}
	if v, ok := fields["priority"].(float64); ok {
		entry.Priority = int(v)
	}
	if v, ok := fields["status"].(string); ok {
		entry.Status = v
	}
	if v, ok := fields["error"].(string); ok {
		entry.Error = v
	}
	if v, ok := fields["fault_code"].(string); ok {
		entry.FaultCode = v
	}
	if v, ok := fields["result_json"].(string); ok && v != "" {
		if err := json.Unmarshal([]byte(v), &entry.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result for %s: %w", taskID, err)
		}
	}
	if v, ok := fields["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			entry.CreatedAt = ts
		}
	}
	if v, ok := fields["ended_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			entry.EndedAt = ts
		}
	}
	return entry, nil
}
