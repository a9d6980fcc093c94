/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package manifest

// Value is one attribute value in an object dictionary: a scalar string,
// a nested dictionary, or an ordered list.
type Value interface {
	isValue()
}

// Scalar holds a decoded string value. Quoting is a serialization concern;
// the parser strips it and the serializer reapplies it as needed.
type Scalar struct {
	Val string
}

func (*Scalar) isValue() {}

// Dict is an ordered key/value dictionary.
type Dict struct {
	Entries []DictEntry
}

// DictEntry is one key/value pair inside a Dict.
type DictEntry struct {
	Key   string
	Value Value
}

func (*Dict) isValue() {}

// Get returns the value for key, if present.
func (d *Dict) Get(key string) (Value, bool) {
	for _, e := range d.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// GetString returns the scalar value for key, if present and scalar.
func (d *Dict) GetString(key string) (string, bool) {
	v, ok := d.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(*Scalar)
	if !ok {
		return "", false
	}
	return s.Val, true
}

// Set replaces the value for key in place, appending when absent.
func (d *Dict) Set(key string, v Value) {
	for i, e := range d.Entries {
		if e.Key == key {
			d.Entries[i].Value = v
			return
		}
	}
	d.Entries = append(d.Entries, DictEntry{Key: key, Value: v})
}

// Delete removes key from the dictionary. Returns true when a pair was removed.
func (d *Dict) Delete(key string) bool {
	for i, e := range d.Entries {
		if e.Key == key {
			d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// List is an ordered sequence of values.
type List struct {
	Items []Value
}

func (*List) isValue() {}
