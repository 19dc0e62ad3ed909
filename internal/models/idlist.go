package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// IDList is an insertion-ordered set of identifiers embedded in a record
// (followers, following, likes). Membership is by identifier equality.
// It is persisted as a JSON array of decimal strings.
type IDList []int64

// Contains reports whether id is a member.
func (l IDList) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Add returns the list with id appended unless it is already a member.
func (l IDList) Add(id int64) IDList {
	if l.Contains(id) {
		return l
	}
	return append(l, id)
}

// Remove returns the list without any occurrence of id.
func (l IDList) Remove(id int64) IDList {
	out := make(IDList, 0, len(l))
	for _, v := range l {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Toggle flips the membership of id and reports whether it is a member afterwards.
func (l IDList) Toggle(id int64) (IDList, bool) {
	if l.Contains(id) {
		return l.Remove(id), false
	}
	return l.Add(id), true
}

// MarshalJSON encodes the list as decimal strings so identifiers stay opaque to clients.
func (l IDList) MarshalJSON() ([]byte, error) {
	out := make([]string, len(l))
	for i, v := range l {
		out[i] = strconv.FormatInt(v, 10)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both string and numeric elements.
func (l *IDList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(IDList, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid identifier %q: %w", s, err)
			}
			out = out.Add(id)
			continue
		}
		var n int64
		if err := json.Unmarshal(item, &n); err != nil {
			return fmt.Errorf("invalid identifier %s: %w", string(item), err)
		}
		out = out.Add(n)
	}
	*l = out
	return nil
}
