package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValue_Classifies(t *testing.T) {
	obj := []byte(` { "s" : "text", "a":[1,[2,3]], "o":{"k":{"x":"}"}} } `)

	tests := []struct {
		key  string
		kind Kind
		raw  string
	}{
		{"s", KindString, `"text"`},
		{"a", KindArray, `[1,[2,3]]`},
		{"o", KindObject, `{"k":{"x":"}"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v, err := KeyValue(obj, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind)
			assert.Equal(t, tt.raw, string(v.Raw))
		})
	}
}

func TestKeyValue_IgnoresNestedKeys(t *testing.T) {
	obj := []byte(`{"inner":{"id":"9"},"note":"\"id\":\"8\"","id":"1"}`)

	v, err := KeyValue(obj, "id")
	require.NoError(t, err)
	s, err := v.Text()
	require.NoError(t, err)
	assert.Equal(t, "1", s)
}

func TestKeyValue_Errors(t *testing.T) {
	_, err := KeyValue([]byte(`{"a":"1"}`), "b")
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = KeyValue([]byte(`{"a":true}`), "a")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = KeyValue([]byte(`{"a":"1" "b":"2"}`), "b")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = KeyValue([]byte(`{"a":"unterminated}`), "a")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestArrayElements(t *testing.T) {
	arr := []byte(`[ {"a":[1,2]}, "x,y", 3 ,[[]] ]`)

	elems, err := ArrayElements(arr)
	require.NoError(t, err)
	require.Len(t, elems, 4)
	assert.Equal(t, `{"a":[1,2]}`, string(elems[0]))
	assert.Equal(t, `"x,y"`, string(elems[1]))
	assert.Equal(t, `3`, string(elems[2]))
	assert.Equal(t, `[[]]`, string(elems[3]))

	empty, err := ArrayElements([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestArrayElement_OutOfRange(t *testing.T) {
	arr := []byte(`[{"id":"1"},{"id":"2"}]`)

	el, err := ArrayElement(arr, 1)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"2"}`, string(el))

	_, err = ArrayElement(arr, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = ArrayElement([]byte(`[]`), 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestContainerEnd_DepthBalanced(t *testing.T) {
	buf := []byte(`{"a":{"b":{"c":"{"}},"d":1}tail`)
	end, err := containerEnd(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":{"c":"{"}},"d":1}`, string(buf[:end]))
}

func TestValueText_Escapes(t *testing.T) {
	v := Value{Kind: KindString, Raw: []byte(`"a\"bé"`)}
	s, err := v.Text()
	require.NoError(t, err)
	assert.Equal(t, `a"bé`, s)

	_, err = Value{Kind: KindArray, Raw: []byte(`[]`)}.Text()
	assert.ErrorIs(t, err, ErrMalformed)
}
