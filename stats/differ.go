// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"fmt"
	"sort"
	"sync"
)

// Mode selects the diff strategy.
type Mode int

const (
	// ModeStructural emits add/remove/replace operations. Default.
	ModeStructural Mode = iota

	// ModeFlat emits the legacy flat delta.
	ModeFlat
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeStructural:
		return "structural"
	case ModeFlat:
		return "flat"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMode parses a mode name as accepted in configuration.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "structural":
		return ModeStructural, nil
	case "flat":
		return ModeFlat, nil
	default:
		return 0, fmt.Errorf("unknown diff mode %q (want structural or flat)", name)
	}
}

// Differ holds the previous snapshot of every live session.
//
// Calls for one session must be serialized by the caller (the sampler
// runs one goroutine per session); calls for different sessions may
// run concurrently.
type Differ struct {
	mode Mode

	mu       sync.Mutex
	previous map[string]Snapshot
}

// NewDiffer creates a Differ using the given strategy.
func NewDiffer(mode Mode) *Differ {
	return &Differ{
		mode:     mode,
		previous: make(map[string]Snapshot),
	}
}

// Mode returns the differ's strategy.
func (d *Differ) Mode() Mode { return d.mode }

// Diff returns the patch from the session's previous snapshot to
// current and records current as the new previous snapshot. current
// is not modified.
func (d *Differ) Diff(session string, current Snapshot) Patch {
	stripped := StripTimestamps(current)

	d.mu.Lock()
	previous, seen := d.previous[session]
	d.previous[session] = stripped
	d.mu.Unlock()

	if !seen {
		return Patch{Kind: KindFull, Snapshot: stripped.Clone()}
	}
	if d.mode == ModeFlat {
		return Patch{Kind: KindFlat, Snapshot: FlatDelta(previous, stripped)}
	}
	return Patch{Kind: KindDelta, Operations: Operations(previous, stripped)}
}

// Forget discards the session's previous snapshot. The next Diff for
// the session returns a full patch.
func (d *Differ) Forget(session string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.previous, session)
}

// Sessions returns the number of sessions with a stored snapshot.
func (d *Differ) Sessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.previous)
}

// Operations returns the minimal operations transforming previous into
// current, sorted by path. The result is never nil: no change yields an
// empty slice.
func Operations(previous, current Snapshot) []Operation {
	operations := []Operation{}

	for _, id := range unionKeys(previous, current) {
		before, inPrevious := previous[id]
		after, inCurrent := current[id]
		path := Pointer(id)
		switch {
		case !inCurrent:
			operations = append(operations, Operation{Op: OperationRemove, Path: path})
		case !inPrevious:
			operations = append(operations, Operation{
				Op:    OperationAdd,
				Path:  path,
				Value: cloneValue(map[string]any(after)),
			})
		default:
			operations = diffObjects(operations, path, before, after)
		}
	}
	return operations
}

func diffObjects(operations []Operation, prefix string, before, after map[string]any) []Operation {
	for _, key := range unionKeys(before, after) {
		old, inBefore := before[key]
		value, inAfter := after[key]
		path := prefix + "/" + escapeToken(key)
		switch {
		case !inAfter:
			operations = append(operations, Operation{Op: OperationRemove, Path: path})
		case !inBefore:
			operations = append(operations, Operation{Op: OperationAdd, Path: path, Value: cloneValue(value)})
		default:
			oldObject, oldIsObject := asMap(old)
			newObject, newIsObject := asMap(value)
			if oldIsObject && newIsObject {
				operations = diffObjects(operations, path, oldObject, newObject)
				continue
			}
			if !valuesEqual(old, value) {
				operations = append(operations, Operation{Op: OperationReplace, Path: path, Value: cloneValue(value)})
			}
		}
	}
	return operations
}

// FlatDelta computes the legacy flat delta: current with every metric
// whose value equals the previous sample's removed, and reports left
// empty by that removal dropped. Reports absent from previous are kept
// whole.
func FlatDelta(previous, current Snapshot) Snapshot {
	out := StripTimestamps(current)
	for id, report := range out {
		old, ok := previous[id]
		if !ok {
			continue
		}
		for name, value := range report {
			if oldValue, ok := old[name]; ok && valuesEqual(oldValue, value) {
				delete(report, name)
			}
		}
		if len(report) == 0 {
			delete(out, id)
		}
	}
	return out
}

func unionKeys[V any, M ~map[string]V](a, b M) []string {
	keys := make([]string, 0, len(a)+len(b))
	for key := range a {
		keys = append(keys, key)
	}
	for key := range b {
		if _, ok := a[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
