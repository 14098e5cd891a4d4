package udpx

import (
	"crypto/rand"
	"encoding/binary"
)

// randomInitialSeq draws a uniformly random int32 from an OS entropy
// source. §9 calls out a global PRNG shared across connections as a
// re-architecture point; this draws fresh entropy per call instead of
// seeding one shared generator.
func randomInitialSeq() int32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is not something a session can recover
		// from meaningfully; fall back to a fixed, clearly-marked
		// value rather than silently using predictable entropy.
		return 0
	}
	return int32(binary.BigEndian.Uint32(b[:]))
}
