// Package payload defines the serialized fetch payload: the table of
// per-instance fetch results a server render produces and a hydrating
// client consumes, indexed by integer fetch key. It also provides the
// codecs used to embed the table in rendered pages.
package payload

import (
	"sort"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// errorKey marks a slot as a server-side failure rather than a data bag.
const errorKey = "_error"

// ErrorMarker records a server-side fetch failure in a payload slot. The
// client propagates it into fetch state without re-running the callback.
type ErrorMarker struct {
	Message    string `json:"message" msgpack:"message"`
	StatusCode int    `json:"statusCode" msgpack:"statusCode"`
}

// Slot is one entry in a fetch payload table: either a data bag of plain
// key/value pairs to merge into component state, or an error marker.
// Never both.
type Slot struct {
	Data map[string]any
	Err  *ErrorMarker
}

func (s *Slot) toWire() map[string]any {
	if s.Err != nil {
		return map[string]any{errorKey: map[string]any{
			"message":    s.Err.Message,
			"statusCode": s.Err.StatusCode,
		}}
	}
	return s.Data
}

func slotFromWire(m map[string]any) *Slot {
	raw, ok := m[errorKey]
	if !ok {
		return &Slot{Data: m}
	}
	em := &ErrorMarker{StatusCode: 500}
	if obj, ok := raw.(map[string]any); ok {
		if msg, ok := obj["message"].(string); ok {
			em.Message = msg
		}
		if sc, ok := wireInt(obj["statusCode"]); ok {
			em.StatusCode = sc
		}
	}
	return &Slot{Err: em}
}

// wireInt widens the integer shapes the JSON and msgpack decoders produce.
func wireInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// Table is a fetch payload table indexed by fetch key. The server records
// results in key-assignment order; the client looks them up positionally,
// so both sides must assign keys in the same encounter order.
type Table struct {
	mu    sync.RWMutex
	slots map[int]*Slot
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{slots: make(map[int]*Slot)}
}

// Record stores a data bag at the given key, replacing any previous slot.
func (t *Table) Record(key int, data map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[key] = &Slot{Data: data}
}

// RecordError stores an error marker at the given key.
func (t *Table) RecordError(key int, m ErrorMarker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[key] = &Slot{Err: &m}
}

// Slot returns the entry at key, or nil when the key has no slot.
func (t *Table) Slot(key int) *Slot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slots[key]
}

// Len returns the number of recorded slots.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Keys returns the recorded keys in ascending order.
func (t *Table) Keys() []int {
	t.mu.RLock()
	keys := make([]int, 0, len(t.slots))
	for k := range t.slots {
		keys = append(keys, k)
	}
	t.mu.RUnlock()
	sort.Ints(keys)
	return keys
}

func (t *Table) toWire() map[int]map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[int]map[string]any, len(t.slots))
	for k, s := range t.slots {
		out[k] = s.toWire()
	}
	return out
}

func tableFromWire(wire map[int]map[string]any) *Table {
	t := NewTable()
	for k, m := range wire {
		t.slots[k] = slotFromWire(m)
	}
	return t
}

// Payload is the request-scoped fetch table produced by one server render.
// The ID correlates a served page with its payload blob.
type Payload struct {
	ID string
	*Table
}

// New creates an empty request payload with a fresh ID.
func New() *Payload {
	return &Payload{ID: uuid.NewString(), Table: NewTable()}
}

// Static is the page payload embedded by a full-static build: the same
// fetch table indexing scheme, with no live server behind it.
type Static struct {
	*Table
}

// NewStatic creates an empty static page payload.
func NewStatic() *Static {
	return &Static{Table: NewTable()}
}

// EncodeStaticJSON serializes a static page payload for build output.
func EncodeStaticJSON(s *Static) ([]byte, error) {
	return json.Marshal(s.toWire())
}

// DecodeStaticJSON parses build output back into a static page payload.
func DecodeStaticJSON(b []byte) (*Static, error) {
	var wire map[int]map[string]any
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, err
	}
	return &Static{Table: tableFromWire(wire)}, nil
}
