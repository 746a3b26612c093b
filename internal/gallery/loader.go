package gallery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/kozaktomas/door-sentry/internal/embedding"
)

// LoadJSON parses enrollment data: a JSON object mapping each identity name
// either to a list of embeddings or to a single (centroid) embedding.
//
//	{"Alice": [[0.1, ...], [0.2, ...]], "Bob": [0.3, ...]}
//
// Malformed JSON is reported as a configuration error. Dimension and
// emptiness checks happen in New.
func LoadJSON(r io.Reader) (map[string][][]float32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ConfigError{Reason: "reading enrollment data", Err: err}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Reason: "decoding enrollment data", Err: err}
	}
	if raw == nil {
		return nil, configErr("", "enrollment data is not a JSON object")
	}

	out := make(map[string][][]float32, len(raw))
	for name, msg := range raw {
		samples, err := decodeSamples(msg)
		if err != nil {
			return nil, &ConfigError{Identity: name, Reason: "decoding embeddings", Err: err}
		}
		out[name] = samples
	}
	return out, nil
}

// decodeSamples accepts [[...], ...] or [...].
func decodeSamples(msg json.RawMessage) ([][]float32, error) {
	trimmed := bytes.TrimSpace(msg)
	var nested [][]float64
	if err := json.Unmarshal(trimmed, &nested); err == nil {
		out := make([][]float32, len(nested))
		for i, v := range nested {
			out[i] = embedding.FromFloat64(v)
		}
		return out, nil
	}

	var flat []float64
	if err := json.Unmarshal(trimmed, &flat); err != nil {
		return nil, fmt.Errorf("expected an array of numbers or an array of arrays: %w", err)
	}
	if len(flat) == 0 {
		return nil, nil
	}
	return [][]float32{embedding.FromFloat64(flat)}, nil
}

// LoadFile reads enrollment data from a JSON file.
func LoadFile(path string) (map[string][][]float32, error) {
	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, &ConfigError{Reason: "opening enrollment file", Err: err}
	}
	defer f.Close()
	return LoadJSON(f)
}

// WriteJSON writes enrollment data in the nested form accepted by LoadJSON.
// Names are written in sorted order so files diff cleanly.
func WriteJSON(w io.Writer, enrolled map[string][][]float32) error {
	names := make([]string, 0, len(enrolled))
	for name := range enrolled {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("encoding identity name: %w", err)
		}
		val, err := json.Marshal(enrolled[name])
		if err != nil {
			return fmt.Errorf("encoding embeddings for %q: %w", name, err)
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
	}
	buf.WriteString("\n}\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing enrollment data: %w", err)
	}
	return nil
}
