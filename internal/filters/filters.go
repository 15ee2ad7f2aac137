// Package filters defines the closed set of survey filter keys and the
// FilterSet that carries a query intent from the HTTP, CLI and chat entry
// points down to the query builder.
package filters

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
)

// Key is one of the whitelisted survey query dimensions.
type Key string

const (
	StateName     Key = "state_name"
	Sector        Key = "sector"
	DistrictName  Key = "district_name"
	Religion      Key = "religion"
	SocialGroup   Key = "social_group"
	HouseholdSize Key = "household_size"
	Panel         Key = "panel"
	Quarter       Key = "quarter"
	Visit         Key = "visit"
)

// declaration order; compiled queries and provenance follow it
var keys = []Key{
	StateName,
	Sector,
	DistrictName,
	Religion,
	SocialGroup,
	HouseholdSize,
	Panel,
	Quarter,
	Visit,
}

// Keys returns every filter key in declaration order.
func Keys() []Key {
	out := make([]Key, len(keys))
	copy(out, keys)
	return out
}

// ParseKey maps a caller-supplied name onto a Key. Matching is exact.
func ParseKey(name string) (Key, bool) {
	for _, k := range keys {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// Indirect reports whether the key holds a human-readable name that has to
// be resolved through the codes table before it can be used as a predicate.
func (k Key) Indirect() bool {
	return k == StateName || k == DistrictName
}

func (k Key) String() string { return string(k) }

// Set maps filter keys to their supplied values. Absent and empty values are
// never stored. The zero value is an empty set ready to use.
type Set struct {
	values map[Key]string
}

// Put stores value under k. An empty value is treated as absent and clears
// any existing entry; anything else, whitespace included, is kept verbatim
// because name lookups are case- and space-sensitive.
func (s *Set) Put(k Key, value string) {
	if value == "" {
		if s.values != nil {
			delete(s.values, k)
		}
		return
	}
	if s.values == nil {
		s.values = make(map[Key]string, len(keys))
	}
	s.values[k] = value
}

// Get returns the value for k and whether it is present.
func (s Set) Get(k Key) (string, bool) {
	v, ok := s.values[k]
	return v, ok
}

// Has reports whether k carries a value.
func (s Set) Has(k Key) bool {
	_, ok := s.values[k]
	return ok
}

// Len returns the number of present keys.
func (s Set) Len() int { return len(s.values) }

// IsEmpty reports whether no key is present.
func (s Set) IsEmpty() bool { return len(s.values) == 0 }

// Entry is a single present key/value pair.
type Entry struct {
	Key   Key
	Value string
}

// Entries returns the present pairs in declaration order.
func (s Set) Entries() []Entry {
	out := make([]Entry, 0, len(s.values))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			out = append(out, Entry{Key: k, Value: v})
		}
	}
	return out
}

// Map returns the supplied human-facing keys and values.
func (s Set) Map() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[string(k)] = v
	}
	return out
}

// MarshalJSON writes the set as a JSON object in declaration order.
func (s Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(string(e.Key))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts any JSON object and keeps only whitelisted keys.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = FromMap(raw)
	return nil
}

// String renders the set as its JSON object form, or "none" when empty.
func (s Set) String() string {
	if s.IsEmpty() {
		return "none"
	}
	b, _ := s.MarshalJSON()
	return string(b)
}

// FromMap builds a set from a loosely typed object such as decoded model
// output. Unknown keys are dropped. Scalars are rendered as their JSON text
// (3 -> "3", true -> "true"); nulls, objects and arrays are dropped.
func FromMap(raw map[string]any) Set {
	var s Set
	for name, v := range raw {
		k, ok := ParseKey(name)
		if !ok {
			continue
		}
		if str, ok := scalarString(v); ok {
			s.Put(k, str)
		}
	}
	return s
}

// FromValues builds a set from query-string parameters. Unknown parameters
// are ignored; the first value of a repeated parameter wins.
func FromValues(values url.Values) Set {
	var s Set
	for _, k := range keys {
		s.Put(k, values.Get(string(k)))
	}
	return s
}

// FromStrings builds a set from a plain string map, dropping unknown keys.
func FromStrings(m map[string]string) Set {
	var s Set
	for name, v := range m {
		if k, ok := ParseKey(name); ok {
			s.Put(k, v)
		}
	}
	return s
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
