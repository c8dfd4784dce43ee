// Package hashmap implements an open-addressing map keyed by runtime values.
//
// Slots use linear probing. Erased slots become tombstones: they stop being
// returned by lookups but keep later probe sequences intact until an insert
// reclaims them.
package hashmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"escript/internal/value"
)

const (
	maxLoad     = 0.75
	targetLoad  = 0.5
	minCapacity = 4
)

var (
	// ErrIntegrity reports a rehash that lost or duplicated entries.
	ErrIntegrity = errors.New("hashmap: integrity violation")
	// ErrNilKey is the panic value of an insert keyed by nil. A nil key marks
	// an empty slot, so it can never be stored.
	ErrNilKey = errors.New("hashmap: nil key")
)

type slot struct {
	key  value.Value
	val  value.Value
	tomb bool
}

func (s *slot) empty() bool { return s.key.IsNil() && !s.tomb }
func (s *slot) free() bool  { return s.key.IsNil() }

// Map is an open-addressing hash table from Value to Value. Keys must not be
// nil: lookups and erasures of nil miss, inserts panic with ErrNilKey.
// Pointers returned by Get, GetOrAdd and Set are invalidated by the next insert.
type Map struct {
	slots      []slot
	size       int
	tombstones int
}

// New returns an empty map with the minimum capacity.
func New() *Map {
	m := &Map{}
	m.grow(minCapacity)
	return m
}

// Len is the number of live entries.
func (m *Map) Len() int { return m.size }

// Cap is the number of slots.
func (m *Map) Cap() int { return len(m.slots) }

// Tombstones is the number of erased slots not yet reclaimed.
func (m *Map) Tombstones() int { return m.tombstones }

// Load is (size + tombstones) / capacity.
func (m *Map) Load() float64 {
	if len(m.slots) == 0 {
		return 1
	}
	return float64(m.size+m.tombstones) / float64(len(m.slots))
}

// Hash returns the FNV-1a hash of a key. Strings hash by content and funcptrs
// by function index, so equal keys hash equally.
func Hash(v value.Value) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	_, _ = h.Write([]byte{byte(v.Tid())})
	switch v.Tid() {
	case value.TString:
		if s, ok := v.AsString(); ok {
			_, _ = h.Write(s.Bytes())
		}
	case value.TFuncPtr:
		if f, ok := v.AsFunc(); ok {
			binary.LittleEndian.PutUint64(buf[:], uint64(f.Index))
			_, _ = h.Write(buf[:])
		}
	default:
		binary.LittleEndian.PutUint64(buf[:], v.Bits())
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// probe returns the slot holding key, or the slot an insert of key should use.
// It returns nil only when the table is full and has no tombstone.
func (m *Map) probe(key value.Value) *slot {
	if len(m.slots) == 0 {
		return nil
	}
	capacity := uint64(len(m.slots))
	start := Hash(key) % capacity
	var tomb *slot
	for i := start; ; {
		s := &m.slots[i]
		switch {
		case !s.free() && value.Equal(key, s.key):
			return s
		case s.tomb:
			if tomb == nil {
				tomb = s
			}
		case s.empty():
			if tomb != nil {
				return tomb
			}
			return s
		}
		i = (i + 1) % capacity
		if i == start {
			break
		}
	}
	return tomb
}

// Get looks up key.
func (m *Map) Get(key value.Value) (*value.Value, bool) {
	if m.size == 0 || key.IsNil() {
		return nil, false
	}
	s := m.probe(key)
	if s == nil || s.free() {
		return nil, false
	}
	return &s.val, true
}

// GetOrAdd returns the value slot for key, inserting a nil value when absent.
// The key is stored with value.Copy semantics. A nil key panics with ErrNilKey.
func (m *Map) GetOrAdd(key value.Value) *value.Value {
	if key.IsNil() {
		panic(ErrNilKey)
	}
	m.reserve()
	s := m.probe(key)
	if s == nil {
		panic(fmt.Errorf("%w: no free slot (size=%d cap=%d)", ErrIntegrity, m.size, len(m.slots)))
	}
	if s.free() {
		if s.tomb {
			s.tomb = false
			m.tombstones--
		}
		value.Copy(&s.key, &key)
		s.val = value.Nil()
		m.size++
	}
	return &s.val
}

// Set stores val under key and returns the stored slot.
func (m *Map) Set(key, val value.Value) *value.Value {
	v := m.GetOrAdd(key)
	value.Copy(v, &val)
	return v
}

// Erase removes key, leaving a tombstone. It reports whether key was present.
func (m *Map) Erase(key value.Value) bool {
	if m.size == 0 || key.IsNil() {
		return false
	}
	s := m.probe(key)
	if s == nil || s.free() {
		return false
	}
	value.Destroy(&s.key)
	value.Destroy(&s.val)
	s.tomb = true
	m.size--
	m.tombstones++
	return true
}

// Range calls fn for every live entry until fn returns false.
func (m *Map) Range(fn func(key, val *value.Value) bool) {
	for i := range m.slots {
		s := &m.slots[i]
		if s.free() {
			continue
		}
		if !fn(&s.key, &s.val) {
			return
		}
	}
}

// Destroy releases every entry and empties the map.
func (m *Map) Destroy() {
	for i := range m.slots {
		value.Destroy(&m.slots[i].key)
		value.Destroy(&m.slots[i].val)
	}
	m.slots = nil
	m.size = 0
	m.tombstones = 0
}

func (m *Map) reserve() {
	if m.Load() >= maxLoad {
		m.grow(int(float64(m.size) / targetLoad))
	}
}

// grow rehashes into at least newcap slots. The capacity is rounded up until it
// evenly divides the largest hash value, which spreads the modulo step.
func (m *Map) grow(newcap int) {
	newcap = max(newcap, minCapacity, len(m.slots))
	for math.MaxUint64%uint64(newcap) != 0 {
		newcap++
	}

	old := m.slots
	oldSize := m.size
	m.slots = make([]slot, newcap)
	m.size = 0
	m.tombstones = 0

	for i := range old {
		o := &old[i]
		if o.free() {
			continue
		}
		s := m.probe(o.key)
		if s == nil || !s.free() {
			panic(fmt.Errorf("%w: duplicate key %v during rehash", ErrIntegrity, o.key))
		}
		// entries move without touching refcounts
		s.key = o.key
		s.val = o.val
		m.size++
	}
	if m.size != oldSize {
		panic(fmt.Errorf("%w: rehash kept %d of %d entries", ErrIntegrity, m.size, oldSize))
	}
}
