package value

import "iter"

// Map is an insertion-ordered string-keyed map of Values. The zero Map is an
// empty map ready for use, and a nil *Map behaves as empty for reads.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// MapOf builds a map from alternating key/value pairs. It panics on an odd
// argument count or a non-string key and is meant for tests and literals.
func MapOf(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("value.MapOf: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("value.MapOf: key is not a string")
		}
		v, err := FromAny(kv[i+1])
		if err != nil {
			panic("value.MapOf: " + err.Error())
		}
		m.Set(k, v)
	}
	return m
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores v under key. Replacing an existing key keeps its position.
func (m *Map) Set(key string, v Value) {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a copy of m. Values are immutable so the copy is shallow.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	out.keys = make([]string, len(m.keys))
	copy(out.keys, m.keys)
	for k, v := range m.vals {
		out.vals[k] = v
	}
	return out
}

// Merge copies every entry of other into m; entries of other win.
func (m *Map) Merge(other *Map) {
	for k, v := range other.All() {
		m.Set(k, v)
	}
}

// All iterates entries in insertion order.
func (m *Map) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// Equal reports whether both maps hold equal values under the same keys,
// regardless of order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for k, v := range m.All() {
		ov, ok := o.Get(k)
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (m *Map) String() string {
	return FromMap(m).String()
}
