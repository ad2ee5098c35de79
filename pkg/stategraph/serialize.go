package stategraph

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Codec serializes state for checkpointing and restores it on resume.
// Implementations must be symmetric: DecodeState(EncodeState(s)) yields a
// state with the same version and values.
type Codec interface {
	EncodeState(state State) ([]byte, error)
	DecodeState(data []byte) (State, error)
}

// blobTag marks a binary value inside the JSON envelope. []byte values are
// encoded as {"__blob__": "<base64>"} so they survive the round trip as
// bytes rather than collapsing into strings.
const blobTag = "__blob__"

// stateEnvelope is the wire form of a state snapshot.
type stateEnvelope struct {
	Version int            `json:"version"`
	Values  map[string]any `json:"values"`
}

// JSONCodec encodes state as a JSON envelope carrying the version and the
// key-value map. It is the default codec.
//
// JSON numbers decode as float64; values that must stay integral across a
// resume should be stored as float64-compatible values or carried in a
// custom Codec.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

// EncodeState serializes a state snapshot.
func (JSONCodec) EncodeState(state State) ([]byte, error) {
	values := make(map[string]any, len(state.Keys()))
	for _, k := range state.Keys() {
		v, _ := state.Get(k)
		values[k] = tagBlobs(v)
	}

	data, err := json.Marshal(stateEnvelope{
		Version: state.Version(),
		Values:  values,
	})
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState restores a state snapshot produced by EncodeState.
func (JSONCodec) DecodeState(data []byte) (State, error) {
	var env stateEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrDecodeState, err)
	}

	values := make(map[string]any, len(env.Values))
	for k, v := range env.Values {
		restored, err := untagBlobs(v)
		if err != nil {
			return State{}, fmt.Errorf("%w: key %q: %v", ErrDecodeState, k, err)
		}
		values[k] = restored
	}

	return restoredState(values, env.Version), nil
}

// tagBlobs walks a value and replaces []byte with the tagged base64 form.
// Maps and slices are walked recursively; everything else passes through.
func tagBlobs(v any) any {
	switch val := v.(type) {
	case []byte:
		return map[string]any{blobTag: base64.StdEncoding.EncodeToString(val)}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = tagBlobs(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = tagBlobs(item)
		}
		return out
	default:
		return v
	}
}

// untagBlobs reverses tagBlobs on a decoded JSON value.
func untagBlobs(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if encoded, ok := val[blobTag]; ok && len(val) == 1 {
			s, ok := encoded.(string)
			if !ok {
				return nil, fmt.Errorf("blob tag holds %T, want string", encoded)
			}
			raw, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("decode blob: %w", err)
			}
			return raw, nil
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			restored, err := untagBlobs(item)
			if err != nil {
				return nil, err
			}
			out[k] = restored
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			restored, err := untagBlobs(item)
			if err != nil {
				return nil, err
			}
			out[i] = restored
		}
		return out, nil
	default:
		return v, nil
	}
}
