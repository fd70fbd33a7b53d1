package base

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, "einkäufe", 42, []byte("payload")))
	require.NoError(t, writeFrame(&buf, "", 43, nil))

	name, id, data, err := readFrame(&buf, make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, "einkäufe", name)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, []byte("payload"), data)

	name, id, data, err = readFrame(&buf, nil)
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Equal(t, uint64(43), id)
	assert.NotNil(t, data)
	assert.Empty(t, data)

	_, _, _, err = readFrame(&buf, nil)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrame_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, "ab", 1, []byte{9}))
	assert.Equal(t, []byte{
		0, 0, 0, 0, 0, 0, 0, 1, // request id
		0, 2, // name length
		0, 0, 0, 1, // payload length
		'a', 'b',
		9,
	}, buf.Bytes())
}

func TestFrame_PayloadLargerThanBuffer(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1000)
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, "todos", 7, payload))

	small := make([]byte, 32)
	_, _, data, err := readFrame(&buf, small)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFrame_Errors(t *testing.T) {
	assert.Error(t, writeFrame(io.Discard, strings.Repeat("n", 1<<16), 1, nil))

	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, "todos", 1, []byte("abcdef")))
	full := buf.Bytes()

	for _, cut := range []int{3, headerSize + 2, len(full) - 1} {
		_, _, _, err := readFrame(bytes.NewReader(full[:cut]), nil)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "cut at %d", cut)
	}
}
