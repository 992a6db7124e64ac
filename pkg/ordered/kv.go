// Package ordered provides an insertion-order-preserving map, used by
// the taxonomy matrix so that theme rows and dimension columns
// serialize in a stable, reproducible order across runs.
package ordered

import "encoding/json"

// KV is a map that remembers the order keys were first inserted in.
type KV[K comparable, V any] struct {
	m    map[K]V
	keys []K
}

// New creates an empty ordered map.
func New[K comparable, V any]() *KV[K, V] {
	return &KV[K, V]{m: make(map[K]V)}
}

// Put inserts or updates the value for k, preserving k's original
// position if it already existed.
func (o *KV[K, V]) Put(k K, v V) {
	if _, ok := o.m[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.m[k] = v
}

// Get returns the value for k and whether it was present.
func (o *KV[K, V]) Get(k K) (V, bool) {
	v, ok := o.m[k]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *KV[K, V]) Keys() []K {
	out := make([]K, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of entries.
func (o *KV[K, V]) Len() int { return len(o.keys) }

// ForEach visits every entry in insertion order.
func (o *KV[K, V]) ForEach(fn func(K, V)) {
	for _, k := range o.keys {
		fn(k, o.m[k])
	}
}

// entry is the wire shape used for deterministic JSON marshaling: a
// plain map loses key order, so entries are emitted as an ordered list.
type entry[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

// MarshalJSON implements json.Marshaler, preserving insertion order.
func (o *KV[K, V]) MarshalJSON() ([]byte, error) {
	entries := make([]entry[K, V], 0, len(o.keys))
	for _, k := range o.keys {
		entries = append(entries, entry[K, V]{Key: k, Value: o.m[k]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON implements json.Unmarshaler, restoring insertion order.
func (o *KV[K, V]) UnmarshalJSON(data []byte) error {
	var entries []entry[K, V]
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	o.m = make(map[K]V, len(entries))
	o.keys = o.keys[:0]
	for _, e := range entries {
		o.Put(e.Key, e.Value)
	}
	return nil
}
