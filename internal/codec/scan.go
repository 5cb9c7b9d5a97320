package codec

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a JSON value by its first significant character.
type Kind int

// Value kinds recognised by KeyValue.
const (
	KindString Kind = iota + 1
	KindArray
	KindObject
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is one located JSON value. Raw includes its delimiters.
type Value struct {
	Kind Kind
	Raw  []byte
}

// Text returns the unescaped contents of a string value.
func (v Value) Text() (string, error) {
	if v.Kind != KindString {
		return "", fmt.Errorf("%w: expected string, got %s", ErrMalformed, v.Kind)
	}
	inner := v.Raw[1 : len(v.Raw)-1]
	for _, c := range inner {
		if c == '\\' {
			var s string
			if err := json.Unmarshal(v.Raw, &s); err != nil {
				return "", fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			return s, nil
		}
	}
	return string(inner), nil
}

// KeyValue locates key among the top-level members of the JSON object in
// buf and returns its value.
//
// Members are walked in order; values of non-matching keys are skipped
// with the same depth-balanced scan, so keys nested inside them are never
// matched. The matched value must be a string, an array or an object.
//
// Returns:
//   - Value: the located value
//   - error: ErrNoMatch if the key is absent, ErrMalformed for broken input
//     or a value of any other kind
func KeyValue(buf []byte, key string) (Value, error) {
	i := skipSpace(buf, 0)
	if i >= len(buf) || buf[i] != '{' {
		return Value{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	i++

	for {
		i = skipSpace(buf, i)
		if i >= len(buf) {
			return Value{}, fmt.Errorf("%w: unterminated object", ErrMalformed)
		}
		if buf[i] == '}' {
			return Value{}, fmt.Errorf("%w: key %q", ErrNoMatch, key)
		}
		if buf[i] != '"' {
			return Value{}, fmt.Errorf("%w: expected key at offset %d", ErrMalformed, i)
		}

		keyEnd, err := stringEnd(buf, i)
		if err != nil {
			return Value{}, err
		}
		name := buf[i+1 : keyEnd-1]

		i = skipSpace(buf, keyEnd)
		if i >= len(buf) || buf[i] != ':' {
			return Value{}, fmt.Errorf("%w: expected ':' after key %q", ErrMalformed, name)
		}
		i = skipSpace(buf, i+1)

		end, err := valueEnd(buf, i)
		if err != nil {
			return Value{}, err
		}

		if string(name) == key {
			kind := classify(buf[i])
			if kind == 0 {
				return Value{}, fmt.Errorf("%w: value of %q is not a string, array or object", ErrMalformed, key)
			}
			return Value{Kind: kind, Raw: buf[i:end]}, nil
		}

		i = skipSpace(buf, end)
		if i >= len(buf) {
			return Value{}, fmt.Errorf("%w: unterminated object", ErrMalformed)
		}
		switch buf[i] {
		case ',':
			i++
		case '}':
			return Value{}, fmt.Errorf("%w: key %q", ErrNoMatch, key)
		default:
			return Value{}, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformed, buf[i], i)
		}
	}
}

// ArrayElements splits a JSON array into its top-level element blocks.
func ArrayElements(buf []byte) ([][]byte, error) {
	i := skipSpace(buf, 0)
	if i >= len(buf) || buf[i] != '[' {
		return nil, fmt.Errorf("%w: not an array", ErrMalformed)
	}
	i = skipSpace(buf, i+1)
	if i < len(buf) && buf[i] == ']' {
		return nil, nil
	}

	var elems [][]byte
	for {
		i = skipSpace(buf, i)
		end, err := valueEnd(buf, i)
		if err != nil {
			return nil, err
		}
		elems = append(elems, buf[i:end])

		i = skipSpace(buf, end)
		if i >= len(buf) {
			return nil, fmt.Errorf("%w: unterminated array", ErrMalformed)
		}
		switch buf[i] {
		case ',':
			i++
		case ']':
			return elems, nil
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformed, buf[i], i)
		}
	}
}

// ArrayElement returns element idx of a JSON array.
//
// Returns:
//   - []byte: the element text
//   - error: ErrIndexOutOfRange when idx is past the last element
func ArrayElement(buf []byte, idx int) ([]byte, error) {
	elems, err := ArrayElements(buf)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(elems) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, idx, len(elems))
	}
	return elems[idx], nil
}

// containerEnd returns the offset one past the container opening at start.
//
// Only delimiters of the container's own kind change the depth; quoted
// strings are skipped whole so their contents never count.
func containerEnd(buf []byte, start int) (int, error) {
	open := buf[start]
	var closing byte
	switch open {
	case '"':
		return stringEnd(buf, start)
	case '[':
		closing = ']'
	case '{':
		closing = '}'
	default:
		return 0, fmt.Errorf("%w: %q does not open a container", ErrMalformed, open)
	}

	depth := 0
	for i := start; i < len(buf); i++ {
		switch buf[i] {
		case '"':
			end, err := stringEnd(buf, i)
			if err != nil {
				return 0, err
			}
			i = end - 1
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unterminated %c at offset %d", ErrMalformed, open, start)
}

// stringEnd returns the offset one past the closing quote of the string at start.
func stringEnd(buf []byte, start int) (int, error) {
	for i := start + 1; i < len(buf); i++ {
		switch buf[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: unterminated string at offset %d", ErrMalformed, start)
}

// valueEnd returns the offset one past any JSON value, scalars included.
func valueEnd(buf []byte, start int) (int, error) {
	if start >= len(buf) {
		return 0, fmt.Errorf("%w: missing value", ErrMalformed)
	}
	if classify(buf[start]) != 0 {
		return containerEnd(buf, start)
	}

	i := start
	for i < len(buf) && !isValueDelim(buf[i]) {
		i++
	}
	if i == start {
		return 0, fmt.Errorf("%w: missing value at offset %d", ErrMalformed, start)
	}
	return i, nil
}

func classify(c byte) Kind {
	switch c {
	case '"':
		return KindString
	case '[':
		return KindArray
	case '{':
		return KindObject
	}
	return 0
}

func isValueDelim(c byte) bool {
	switch c {
	case ',', '}', ']', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func skipSpace(buf []byte, i int) int {
	for i < len(buf) {
		switch buf[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}
