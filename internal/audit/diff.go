// Package audit records the change history of back-office entities. Every
// insert, update and delete of an audited table produces one append-only
// entry holding the inserted state, the field-level diff, or the deleted
// state. Entries are written on the request path as best-effort work and can
// be forwarded to external destinations through Shippers.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Snapshot is the field-to-value view of a record at one point in time.
type Snapshot map[string]any

// Changes maps each changed field to its new value. A field that disappeared
// maps to nil.
type Changes map[string]any

// bookkeepingFields are maintained by the storage layer and never audited.
var bookkeepingFields = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"createdAt":  {},
	"updatedAt":  {},
}

// IsBookkeepingField reports whether name is a timestamp the audit trail ignores.
func IsBookkeepingField(name string) bool {
	_, ok := bookkeepingFields[name]
	return ok
}

// SnapshotOf captures v through its JSON encoding, so the snapshot holds the
// same field names and value shapes an API client sees: numbers become
// float64 and times become RFC 3339 strings. It returns nil for nil input or
// anything that does not encode to a JSON object.
func SnapshotOf(v any) Snapshot {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	return s
}

// Strip returns a copy of s without bookkeeping fields.
func Strip(s Snapshot) Changes {
	if s == nil {
		return nil
	}
	out := make(Changes, len(s))
	for field, value := range s {
		if IsBookkeepingField(field) {
			continue
		}
		out[field] = value
	}
	return out
}

// Diff computes the field-level difference between two snapshots of the same
// record. Arrays and objects compare by their serialized form, so element
// order matters and a change anywhere replaces the whole value. Scalars
// compare by value. Fields present only in before are reported as nil.
//
// ok is false when nothing changed; callers must not write an entry then.
// When either side is missing, after is returned unchanged.
func Diff(before, after Snapshot) (changes Changes, ok bool) {
	if before == nil || after == nil {
		if after == nil {
			return nil, false
		}
		out := make(Changes, len(after))
		for field, value := range after {
			out[field] = value
		}
		return out, true
	}

	changes = make(Changes)
	for field, newValue := range after {
		if IsBookkeepingField(field) {
			continue
		}
		oldValue, present := before[field]
		if !present || !equalValues(oldValue, newValue) {
			changes[field] = newValue
		}
	}
	for field := range before {
		if IsBookkeepingField(field) {
			continue
		}
		if _, present := after[field]; !present {
			changes[field] = nil
		}
	}

	if len(changes) == 0 {
		return nil, false
	}
	return changes, true
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isComposite(a) || isComposite(b) {
		return bytes.Equal(serialize(a), serialize(b))
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.TypeOf(a) == reflect.TypeOf(b) && a == b
}

func isComposite(v any) bool {
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Pointer, reflect.Interface, reflect.Func:
		return true
	}
	return false
}

// serialize never fails: values JSON cannot encode fall back to their Go syntax.
func serialize(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf("%#v", v))
	}
	return data
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
