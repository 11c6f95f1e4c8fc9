// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/rtctrace/lib/codec"
)

// ErrPatch is returned when a patch cannot be applied to a snapshot.
var ErrPatch = errors.New("stats: patch does not apply")

// Kind says how a Patch relates to the session's previous snapshot.
type Kind string

const (
	// KindFull carries a complete snapshot. Always the first patch of
	// a session.
	KindFull Kind = "full"

	// KindDelta carries structural operations against the previous
	// snapshot.
	KindDelta Kind = "delta"

	// KindFlat carries the legacy flat delta: changed metrics only.
	KindFlat Kind = "flat"
)

// OperationType is one of the three structural edits.
type OperationType string

const (
	OperationAdd     OperationType = "add"
	OperationRemove  OperationType = "remove"
	OperationReplace OperationType = "replace"
)

// Operation is a single edit addressed by an RFC 6901 JSON pointer.
// A one-token path targets a whole report; longer paths target a
// metric, recursing into object-valued metrics.
type Operation struct {
	Op    OperationType `json:"op"`
	Path  string        `json:"path"`
	Value any           `json:"value,omitempty"`
}

// Patch is the differ's output for one sample.
type Patch struct {
	Kind       Kind        `json:"kind"`
	Snapshot   Snapshot    `json:"snapshot,omitempty"`
	Operations []Operation `json:"operations,omitempty"`
}

// wire is the transmitted form. A delta always carries its operation
// list, empty or not: its presence marks a successful sample.
func (p Patch) wire() map[string]any {
	out := map[string]any{"kind": string(p.Kind)}
	if p.Kind == KindDelta {
		operations := p.Operations
		if operations == nil {
			operations = []Operation{}
		}
		out["operations"] = operations
		return out
	}
	snapshot := p.Snapshot
	if snapshot == nil {
		snapshot = Snapshot{}
	}
	out["snapshot"] = snapshot
	return out
}

func (p Patch) MarshalJSON() ([]byte, error) { return json.Marshal(p.wire()) }

func (p Patch) MarshalCBOR() ([]byte, error) { return codec.Marshal(p.wire()) }

// DecodePatch converts a patch decoded generically from a JSON or CBOR
// frame payload back into a Patch.
func DecodePatch(payload any) (Patch, error) {
	object, ok := asMap(payload)
	if !ok {
		return Patch{}, fmt.Errorf("%w: payload is %T, not an object", ErrPatch, payload)
	}
	kind, _ := object["kind"].(string)
	patch := Patch{Kind: Kind(kind)}
	switch patch.Kind {
	case KindFull, KindFlat:
		snapshot, ok := asMap(object["snapshot"])
		if !ok {
			return Patch{}, fmt.Errorf("%w: %s patch without a snapshot object", ErrPatch, kind)
		}
		decoded, err := FromMap(snapshot)
		if err != nil {
			return Patch{}, fmt.Errorf("%w: %v", ErrPatch, err)
		}
		patch.Snapshot = decoded
	case KindDelta:
		list, ok := object["operations"].([]any)
		if !ok {
			return Patch{}, fmt.Errorf("%w: delta patch without an operations list", ErrPatch)
		}
		patch.Operations = make([]Operation, 0, len(list))
		for i, item := range list {
			fields, ok := asMap(item)
			if !ok {
				return Patch{}, fmt.Errorf("%w: operation %d is %T, not an object", ErrPatch, i, item)
			}
			op, _ := fields["op"].(string)
			path, _ := fields["path"].(string)
			patch.Operations = append(patch.Operations, Operation{
				Op:    OperationType(op),
				Path:  path,
				Value: fields["value"],
			})
		}
	default:
		return Patch{}, fmt.Errorf("%w: unknown patch kind %q", ErrPatch, kind)
	}
	return patch, nil
}

// Pointer builds a JSON pointer from unescaped tokens.
func Pointer(tokens ...string) string {
	var builder strings.Builder
	for _, token := range tokens {
		builder.WriteByte('/')
		builder.WriteString(escapeToken(token))
	}
	return builder.String()
}

// ParsePointer splits a JSON pointer into unescaped tokens.
func ParsePointer(pointer string) ([]string, error) {
	if pointer == "" || pointer[0] != '/' {
		return nil, fmt.Errorf("%w: pointer %q must start with /", ErrPatch, pointer)
	}
	parts := strings.Split(pointer[1:], "/")
	for i, part := range parts {
		parts[i] = unescapeToken(part)
	}
	return parts, nil
}

var (
	tokenEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	tokenUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

func escapeToken(token string) string   { return tokenEscaper.Replace(token) }
func unescapeToken(token string) string { return tokenUnescaper.Replace(token) }

// Apply reconstructs the snapshot a patch was computed from, given the
// session's previous snapshot. previous is not modified. For a full
// patch previous is ignored and may be nil.
func Apply(patch Patch, previous Snapshot) (Snapshot, error) {
	switch patch.Kind {
	case KindFull:
		out := patch.Snapshot.Clone()
		if out == nil {
			out = Snapshot{}
		}
		return out, nil

	case KindFlat:
		out := previous.Clone()
		if out == nil {
			out = Snapshot{}
		}
		for id, report := range patch.Snapshot {
			target, ok := out[id]
			if !ok {
				target = Report{}
				out[id] = target
			}
			for name, value := range report {
				target[name] = cloneValue(value)
			}
		}
		return out, nil

	case KindDelta:
		out := previous.Clone()
		if out == nil {
			out = Snapshot{}
		}
		for i, operation := range patch.Operations {
			if err := applyOperation(out, operation); err != nil {
				return nil, fmt.Errorf("operation %d (%s %s): %w", i, operation.Op, operation.Path, err)
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unknown patch kind %q", ErrPatch, patch.Kind)
	}
}

func applyOperation(snapshot Snapshot, operation Operation) error {
	tokens, err := ParsePointer(operation.Path)
	if err != nil {
		return err
	}

	id := tokens[0]
	if len(tokens) == 1 {
		_, exists := snapshot[id]
		switch operation.Op {
		case OperationAdd, OperationReplace:
			report, ok := asMap(operation.Value)
			if !ok {
				return fmt.Errorf("%w: report value is %T, not an object", ErrPatch, operation.Value)
			}
			if operation.Op == OperationReplace && !exists {
				return fmt.Errorf("%w: replace of missing report %q", ErrPatch, id)
			}
			snapshot[id] = Report(cloneValue(report).(map[string]any))
		case OperationRemove:
			if !exists {
				return fmt.Errorf("%w: remove of missing report %q", ErrPatch, id)
			}
			delete(snapshot, id)
		default:
			return fmt.Errorf("%w: unknown operation %q", ErrPatch, operation.Op)
		}
		return nil
	}

	report, ok := snapshot[id]
	if !ok {
		return fmt.Errorf("%w: missing report %q", ErrPatch, id)
	}
	parent := map[string]any(report)
	for _, token := range tokens[1 : len(tokens)-1] {
		child, ok := asMap(parent[token])
		if !ok {
			return fmt.Errorf("%w: %q is not an object", ErrPatch, token)
		}
		parent = child
	}

	key := tokens[len(tokens)-1]
	_, exists := parent[key]
	switch operation.Op {
	case OperationAdd:
		parent[key] = cloneValue(operation.Value)
	case OperationReplace:
		if !exists {
			return fmt.Errorf("%w: replace of missing metric %q", ErrPatch, key)
		}
		parent[key] = cloneValue(operation.Value)
	case OperationRemove:
		if !exists {
			return fmt.Errorf("%w: remove of missing metric %q", ErrPatch, key)
		}
		delete(parent, key)
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrPatch, operation.Op)
	}
	return nil
}
