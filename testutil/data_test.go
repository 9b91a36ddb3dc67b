package testutil

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	data := []byte("abcdefg")
	chunks := Chunk(data, 3)
	assert.Equal(t, [][]byte{[]byte("abc"), []byte("def"), []byte("g")}, chunks)
	assert.Len(t, Chunk(data, 0), len(data))
	assert.Empty(t, Chunk(nil, 4))
}

func TestRandomChunksPreservesBytes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := Join(TestLines)
	for i := 0; i < 20; i++ {
		chunks := RandomChunks(rng, data, 5)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), 5)
			assert.NotEmpty(t, c)
		}
		assert.Equal(t, data, Join(chunks))
	}
}

func TestRecordingSink(t *testing.T) {
	s := NewRecordingSink()
	assert.NoError(t, s.Append([]byte("xxabcxx"), 2, 3))
	s.ReportError(ErrMockConnection)
	assert.Equal(t, []byte("abc"), s.Bytes())
	assert.Equal(t, 1, s.Chunks())
	assert.Equal(t, []error{ErrMockConnection}, s.Errors())

	s.ResetBuffer()
	assert.Empty(t, s.Bytes())
	assert.Empty(t, s.Errors())
	assert.Equal(t, 1, s.Resets())

	s.AppendErr = ErrMockFailed
	assert.ErrorIs(t, s.Append([]byte("a"), 0, 1), ErrMockFailed)
}
