// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"fmt"
	"reflect"
)

// TimestampField is the per-report timestamp metric. It is never
// diffed and never transmitted.
const TimestampField = "timestamp"

// Report is one statistics report: metric name to value. Values are
// JSON-shaped: string, float64, bool, nil, []any or map[string]any.
type Report map[string]any

// Snapshot is one statistics sample of a session, keyed by report id.
type Snapshot map[string]Report

// Clone returns a deep copy of s. Nested maps and slices are copied
// so the clone can be mutated without affecting s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for id, report := range s {
		out[id] = report.Clone()
	}
	return out
}

// Clone returns a deep copy of r.
func (r Report) Clone() Report {
	if r == nil {
		return nil
	}
	out := make(Report, len(r))
	for name, value := range r {
		out[name] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			out[key] = cloneValue(inner)
		}
		return out
	case Report:
		return typed.Clone()
	case []any:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return value
	}
}

// StripTimestamps returns a deep copy of s without per-report
// timestamp fields.
func StripTimestamps(s Snapshot) Snapshot {
	out := s.Clone()
	if out == nil {
		out = Snapshot{}
	}
	for _, report := range out {
		delete(report, TimestampField)
	}
	return out
}

// FromMap converts a decoded JSON or CBOR object into a Snapshot.
// Every top-level value must itself be an object.
func FromMap(m map[string]any) (Snapshot, error) {
	out := make(Snapshot, len(m))
	for id, value := range m {
		report, ok := asMap(value)
		if !ok {
			return nil, fmt.Errorf("stats: report %q is %T, not an object", id, value)
		}
		out[id] = Report(report)
	}
	return out, nil
}

// Equal reports whether a and b hold the same reports with equal
// values. A nil snapshot equals an empty one.
func Equal(a, b Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for id, report := range a {
		other, ok := b[id]
		if !ok || !valuesEqual(map[string]any(report), map[string]any(other)) {
			return false
		}
	}
	return true
}

// asMap returns value as a plain map when it is an object.
func asMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case Report:
		return map[string]any(typed), true
	default:
		return nil, false
	}
}

func valuesEqual(a, b any) bool {
	if am, ok := asMap(a); ok {
		bm, ok := asMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for key, value := range am {
			other, ok := bm[key]
			if !ok || !valuesEqual(value, other) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
