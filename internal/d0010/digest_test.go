package d0010

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestMatchesSHA256(t *testing.T) {
	sizes := []int{0, 1, 100, digestChunkSize - 1, digestChunkSize, digestChunkSize + 1, 3 * digestChunkSize}

	for _, size := range sizes {
		data := bytes.Repeat([]byte{0xAB}, size)
		want := sha256.Sum256(data)
		assert.Equal(t, hex.EncodeToString(want[:]), digest(data), "size %d", size)
	}
}

func TestDigestIsLowercaseHex(t *testing.T) {
	got := digest([]byte("ZHV|0000475656|D0010002|"))
	assert.Len(t, got, 64)
	assert.Equal(t, got, string(bytes.ToLower([]byte(got))))
}
