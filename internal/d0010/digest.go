package d0010

import (
	"crypto/sha256"
	"encoding/hex"
)

// digestChunkSize is the block size used when feeding content to the hash,
// matching the chunked reads used for files too large to buffer at once.
const digestChunkSize = 4096

// digest returns the lowercase hex SHA-256 of the content. It is a pure
// function of the raw bytes and ignores whatever encoding later decodes them.
func digest(data []byte) string {
	h := sha256.New()
	for len(data) > 0 {
		n := digestChunkSize
		if n > len(data) {
			n = len(data)
		}
		h.Write(data[:n])
		data = data[n:]
	}
	return hex.EncodeToString(h.Sum(nil))
}
