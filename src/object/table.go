package object

// Table is an associative array keyed by interned strings. It backs globals,
// class method tables and instance fields.
type Table struct {
	entries map[*String]Value
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: map[*String]Value{}}
}

// Get returns the value stored for key.
func (t *Table) Get(key *String) (Value, bool) {
	val, ok := t.entries[key]
	return val, ok
}

// Set stores the value for key and reports whether the key was new.
func (t *Table) Set(key *String, val Value) bool {
	_, exists := t.entries[key]
	t.entries[key] = val
	return !exists
}

// Has reports whether the key is defined.
func (t *Table) Has(key *String) bool {
	_, ok := t.entries[key]
	return ok
}

// Delete removes the key and reports whether it was present.
func (t *Table) Delete(key *String) bool {
	_, ok := t.entries[key]
	delete(t.entries, key)
	return ok
}

// Len is the count of entries.
func (t *Table) Len() int { return len(t.entries) }

// Each calls fn for every entry, in no particular order.
func (t *Table) Each(fn func(key *String, val Value)) {
	for key, val := range t.entries {
		fn(key, val)
	}
}
