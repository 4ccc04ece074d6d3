package logger

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"
)

type encoder interface {
	encode(f fields) ([]byte, error)
}

func newEncoder(format logFormat, order []string) encoder {
	rank := make(map[string]int, len(order))
	for i, key := range order {
		if _, dup := rank[key]; !dup {
			rank[key] = i
		}
	}
	if format == formatJSON {
		return jsonEncoder{rank}
	}
	return kvEncoder{rank}
}

// keyRank orders ranked keys first, by rank, then the rest alphabetically.
type keyRank map[string]int

func (r keyRank) sorted(f fields) []string {
	keys := slices.Collect(maps.Keys(f))
	slices.SortFunc(keys, func(a, b string) int {
		ra, okA := r[a]
		rb, okB := r[b]
		switch {
		case okA && okB:
			return ra - rb
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(a, b)
	})
	return keys
}

type jsonEncoder struct{ rank keyRank }

func (e jsonEncoder) encode(f fields) ([]byte, error) {
	out := make([]byte, 0, 256)
	out = append(out, '{')
	for i, key := range e.rank.sorted(f) {
		val, err := json.Marshal(f[key])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", key, err)
		}
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendQuote(out, key)
		out = append(out, ':')
		out = append(out, val...)
	}
	return append(out, '}'), nil
}

// kvEncoder writes key=value pairs; values with spaces, quotes or '=' are quoted.
type kvEncoder struct{ rank keyRank }

func (e kvEncoder) encode(f fields) ([]byte, error) {
	out := make([]byte, 0, 256)
	for i, key := range e.rank.sorted(f) {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, key...)
		out = append(out, '=')
		out = appendKV(out, f[key])
	}
	return out, nil
}

func appendKV(out []byte, v any) []byte {
	switch x := v.(type) {
	case bool:
		return strconv.AppendBool(out, x)
	case int64:
		return strconv.AppendInt(out, x, 10)
	case int:
		return strconv.AppendInt(out, int64(x), 10)
	case string:
		if strings.ContainsFunc(x, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
			return strconv.AppendQuote(out, x)
		}
		return append(out, x...)
	default:
		return appendKV(out, fmt.Sprint(x))
	}
}
