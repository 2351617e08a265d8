package utils

import (
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func GenerateNanoID(length int) string {
	id, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateSecureToken returns an opaque bearer token string.
func GenerateSecureToken() string {
	const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	id, err := gonanoid.Generate(tokenAlphabet, 43)
	if err != nil {
		panic(err)
	}
	return id
}

var idCounter atomic.Uint64

// NextID returns a process-unique, roughly time-ordered u64 identifier:
// millisecond timestamp in the high bits, a wrapping counter in the low
// 20 bits. Collisions would require >1M ids within one millisecond.
func NextID() uint64 {
	ms := uint64(time.Now().UnixMilli())
	seq := idCounter.Add(1) & 0xFFFFF
	return ms<<20 | seq
}
