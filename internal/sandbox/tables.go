package sandbox

import "sync"

// schemaTable is the two-way {schema name ↔ schema id} mapping, ids
// assigned sequentially starting at 1.
type schemaTable struct {
	mu       sync.Mutex
	nameToID map[string]uint32
	idToName map[uint32]string
	next     uint32
}

func newSchemaTable() *schemaTable {
	return &schemaTable{nameToID: map[string]uint32{}, idToName: map[uint32]string{}}
}

// intern returns the id for name, assigning a fresh one on first use.
// Repeated calls for the same name always return the same id.
func (t *schemaTable) intern(name string) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.nameToID[name]; ok {
		return id
	}
	t.next++
	t.nameToID[name] = t.next
	t.idToName[t.next] = name
	return t.next
}

func (t *schemaTable) nameOf(id uint32) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	name, ok := t.idToName[id]
	return name, ok
}

// columnTable is schema id → {column name → column id}, ids sequential
// starting at 1 within each schema.
type columnTable struct {
	mu      sync.Mutex
	schemas map[uint32]map[string]uint32
	next    map[uint32]uint32
	// order preserves insertion order per schema so flush emits columns in
	// the order they were first declared, a stable and readable diagnostic
	// ordering.
	order map[uint32][]string
}

func newColumnTable() *columnTable {
	return &columnTable{
		schemas: map[uint32]map[string]uint32{},
		next:    map[uint32]uint32{},
		order:   map[uint32][]string{},
	}
}

func (t *columnTable) intern(schemaID uint32, name string) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	cols, ok := t.schemas[schemaID]
	if !ok {
		cols = map[string]uint32{}
		t.schemas[schemaID] = cols
	}
	if id, ok := cols[name]; ok {
		return id
	}
	t.next[schemaID]++
	id := t.next[schemaID]
	cols[name] = id
	t.order[schemaID] = append(t.order[schemaID], name)
	return id
}

// columns returns the (name, id) pairs known for schemaID in declaration
// order.
func (t *columnTable) columns(schemaID uint32) []columnEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := t.order[schemaID]
	cols := t.schemas[schemaID]
	out := make([]columnEntry, 0, len(names))
	for _, name := range names {
		out = append(out, columnEntry{name: name, id: cols[name]})
	}
	return out
}

type columnEntry struct {
	name string
	id   uint32
}

// pendingRow is the {(schema id, column id) → value} scratch area that
// accumulates metadata_value_* calls until metadata_flush_row clears it.
type pendingRow struct {
	mu     sync.Mutex
	values map[rowKey]DataValue
}

type rowKey struct {
	schemaID uint32
	columnID uint32
}

func newPendingRow() *pendingRow {
	return &pendingRow{values: map[rowKey]DataValue{}}
}

func (p *pendingRow) set(schemaID, columnID uint32, v DataValue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[rowKey{schemaID, columnID}] = v
}

// flush returns the value for each column (or None if never set) and
// clears every entry belonging to schemaID.
func (p *pendingRow) flush(schemaID uint32, columns []columnEntry) []DataValue {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]DataValue, len(columns))
	for i, col := range columns {
		key := rowKey{schemaID, col.id}
		if v, ok := p.values[key]; ok {
			out[i] = v
		} else {
			out[i] = NoneValue()
		}
		delete(p.values, key)
	}
	for key := range p.values {
		if key.schemaID == schemaID {
			delete(p.values, key)
		}
	}
	return out
}

// outputTable is the mutable, index-addressable set of guest output
// buffers. Handles are assigned sequentially starting at 0.
type outputTable struct {
	mu      sync.Mutex
	buffers [][]byte
}

func newOutputTable() *outputTable {
	return &outputTable{}
}

func (t *outputTable) create() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffers = append(t.buffers, nil)
	return int32(len(t.buffers) - 1)
}

func (t *outputTable) write(fd int32, offset uint64, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf, err := t.get(fd)
	if err != nil {
		return err
	}

	need := offset + uint64(len(data))
	if uint64(len(buf)) < need {
		grown := make([]byte, need)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[offset:], data)
	t.buffers[fd] = buf
	return nil
}

func (t *outputTable) read(fd int32, offset uint64, dst []byte) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf, err := t.get(fd)
	if err != nil {
		return 0, err
	}
	if offset >= uint64(len(buf)) {
		return 0, nil
	}
	return uint64(copy(dst, buf[offset:])), nil
}

func (t *outputTable) length(fd int32) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf, err := t.get(fd)
	if err != nil {
		return 0, err
	}
	return uint64(len(buf)), nil
}

// snapshot returns a copy of every output buffer, empty ones included, in
// handle order; used at job end to freeze outputs into blobs for
// resubmission.
func (t *outputTable) snapshot() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.buffers))
	for i, buf := range t.buffers {
		out[i] = append([]byte(nil), buf...)
	}
	return out
}

// get must be called with mu held.
func (t *outputTable) get(fd int32) ([]byte, error) {
	if fd < 0 || int(fd) >= len(t.buffers) {
		return nil, errBadOutputFD
	}
	return t.buffers[fd], nil
}
