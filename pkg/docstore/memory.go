package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memDoc struct {
	data    []byte
	version int64
}

type docKey struct {
	collection string
	id         string
}

// MemoryStore keeps documents in process. Transactions are optimistic:
// every document read records its version and the commit fails (and is
// retried) when any of those versions moved.
type MemoryStore struct {
	mu          sync.RWMutex
	docs        map[docKey]*memDoc
	clock       int64
	maxAttempts int
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:        make(map[docKey]*memDoc),
		maxAttempts: 50,
	}
}

func (m *MemoryStore) NewID(collection string) string {
	return uuid.New().String()
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[docKey{collection, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return &jsonSnapshot{id: id, data: d.data}, nil
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, v interface{}) error {
	doc, err := toDocument(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(docKey{collection, id}, doc)
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(docKey{collection, id}, fields)
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docKey{collection, id})
	return nil
}

func (m *MemoryStore) ArrayUnion(ctx context.Context, collection, id, field string, values ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := docKey{collection, id}
	d, ok := m.docs[key]
	if !ok {
		return ErrNotFound
	}
	doc, err := fromBytes(d.data)
	if err != nil {
		return err
	}
	if err := applyArrayUnion(doc, field, values); err != nil {
		return err
	}
	return m.putLocked(key, doc)
}

func (m *MemoryStore) List(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for k := range m.docs {
		if k.collection == collection {
			ids = append(ids, k.id)
		}
	}
	sort.Strings(ids)

	snaps := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		d := m.docs[docKey{collection, id}]
		doc, err := fromBytes(d.data)
		if err != nil {
			return nil, err
		}
		ok, err := matches(doc, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			snaps = append(snaps, &jsonSnapshot{id: id, data: d.data})
		}
	}
	return snaps, nil
}

func (m *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{store: m, reads: map[docKey]int64{}}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		committed, err := m.commit(tx)
		if err != nil {
			return err
		}
		if committed {
			return nil
		}
		runtime.Gosched()
	}
	return ErrConflict
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) commit(tx *memTx) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, seen := range tx.reads {
		var current int64
		if d, ok := m.docs[key]; ok {
			current = d.version
		}
		if current != seen {
			return false, nil
		}
	}

	// Stage every write first so a failing update leaves nothing half-applied.
	staged := map[docKey]map[string]interface{}{}
	var order []docKey
	for _, w := range tx.writes {
		if _, seen := staged[w.key]; !seen {
			order = append(order, w.key)
		}
		switch w.kind {
		case writeSet:
			staged[w.key] = w.doc
		case writeDelete:
			staged[w.key] = nil
		case writeUpdate:
			doc, seen := staged[w.key]
			if !seen {
				d, ok := m.docs[w.key]
				if !ok {
					return false, ErrNotFound
				}
				var err error
				if doc, err = fromBytes(d.data); err != nil {
					return false, err
				}
			}
			if doc == nil {
				return false, ErrNotFound
			}
			if err := applyFields(doc, w.fields); err != nil {
				return false, err
			}
			staged[w.key] = doc
		}
	}

	for _, key := range order {
		doc := staged[key]
		if doc == nil {
			delete(m.docs, key)
			continue
		}
		if err := m.putLocked(key, doc); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (m *MemoryStore) putLocked(key docKey, doc map[string]interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	m.clock++
	m.docs[key] = &memDoc{data: raw, version: m.clock}
	return nil
}

func (m *MemoryStore) updateLocked(key docKey, fields map[string]interface{}) error {
	d, ok := m.docs[key]
	if !ok {
		return ErrNotFound
	}
	doc, err := fromBytes(d.data)
	if err != nil {
		return err
	}
	if err := applyFields(doc, fields); err != nil {
		return err
	}
	return m.putLocked(key, doc)
}

type writeKind int

const (
	writeSet writeKind = iota
	writeUpdate
	writeDelete
)

type memWrite struct {
	kind   writeKind
	key    docKey
	doc    map[string]interface{}
	fields map[string]interface{}
}

type memTx struct {
	store  *MemoryStore
	reads  map[docKey]int64
	writes []memWrite
}

func (t *memTx) Get(collection, id string) (Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, fmt.Errorf("docstore: read after write in transaction")
	}
	key := docKey{collection, id}
	t.store.mu.RLock()
	d, ok := t.store.docs[key]
	t.store.mu.RUnlock()
	if !ok {
		t.reads[key] = 0
		return nil, ErrNotFound
	}
	t.reads[key] = d.version
	return &jsonSnapshot{id: id, data: d.data}, nil
}

func (t *memTx) Set(collection, id string, v interface{}) error {
	doc, err := toDocument(v)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, memWrite{kind: writeSet, key: docKey{collection, id}, doc: doc})
	return nil
}

func (t *memTx) Update(collection, id string, fields map[string]interface{}) error {
	t.writes = append(t.writes, memWrite{kind: writeUpdate, key: docKey{collection, id}, fields: fields})
	return nil
}

func (t *memTx) Delete(collection, id string) error {
	t.writes = append(t.writes, memWrite{kind: writeDelete, key: docKey{collection, id}})
	return nil
}
