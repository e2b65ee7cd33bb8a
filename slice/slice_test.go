package slice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/zong-runtime/errors"
	"github.com/wippyai/zong-runtime/memory"
)

func TestRoundTrip(t *testing.T) {
	tests := []Descriptor{
		{},
		{Ptr: 1, Len: 1},
		{Ptr: 0x1234, Len: 6},
		{Ptr: 0xffffffff, Len: 0xffffffffffffffff},
	}

	for _, d := range tests {
		mem := memory.NewBuffer(64)
		require.NoError(t, Encode(mem, 8, d))

		got, err := Decode(mem, 8)
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestLayout(t *testing.T) {
	mem := memory.NewBuffer(Size)
	require.NoError(t, Encode(mem, 0, Descriptor{Ptr: 0x04030201, Len: 0x0c0b0a0908070605}))

	assert.Equal(t, []byte{
		0x01, 0x02, 0x03, 0x04,
		0x00, 0x00, 0x00, 0x00,
		0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c,
	}, mem.Data)
}

func TestPaddingUntouched(t *testing.T) {
	mem := memory.NewBuffer(Size)
	copy(mem.Data[4:8], []byte{0xaa, 0xbb, 0xcc, 0xdd})

	require.NoError(t, Encode(mem, 0, Descriptor{Ptr: 1, Len: 2}))
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd}, mem.Data[4:8])

	got, err := Decode(mem, 0)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{Ptr: 1, Len: 2}, got, "padding must not leak into the decoded value")
}

func TestDecodeBounds(t *testing.T) {
	mem := memory.NewBuffer(64)

	_, err := Decode(mem, 48)
	require.NoError(t, err, "descriptor ending exactly at memory end")

	for _, addr := range []uint32{49, 63, 64, 0xfffffff8} {
		_, err := Decode(mem, addr)
		require.Error(t, err, "addr %d", addr)
		assert.True(t, errors.IsOutOfBounds(err), "addr %d: %v", addr, err)
	}
}

func TestEncodeBounds(t *testing.T) {
	mem := memory.NewBuffer(20)
	err := Encode(mem, 8, Descriptor{Ptr: 1, Len: 1})
	require.Error(t, err)
	assert.True(t, errors.IsOutOfBounds(err))
	assert.Equal(t, make([]byte, 20), mem.Data, "nothing written on failure")
}

func TestBytes(t *testing.T) {
	mem := memory.NewBuffer(32)
	copy(mem.Data[10:], "hi")

	b, err := Descriptor{Ptr: 10, Len: 2}.Bytes(mem)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(b))

	b, err = Empty.Bytes(mem)
	require.NoError(t, err)
	assert.Empty(t, b)

	for _, d := range []Descriptor{
		{Ptr: 31, Len: 2},
		{Ptr: 0, Len: 33},
		{Ptr: 1, Len: 0xffffffffffffffff},
		{Ptr: 0xffffffff, Len: 1},
	} {
		_, err := d.Bytes(mem)
		assert.True(t, errors.IsOutOfBounds(err), "%+v: %v", d, err)
	}
}

func TestEncodeEmpty(t *testing.T) {
	mem := memory.NewBuffer(Size)
	require.NoError(t, Encode(mem, 0, Descriptor{Ptr: 9, Len: 9}))
	require.NoError(t, EncodeEmpty(mem, 0))

	got, err := Decode(mem, 0)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}
