package udpx

// recvBuffer holds reliable payloads received out of order — with
// seq > the connection's recv_next — pending in-order delivery. A
// sentinel (nil-body, present=true) entry records "we have seen this
// sequence" without retaining a copy, used when no ordered-delivery
// callback is registered (§4.5 step 6).
type recvBuffer struct {
	entries map[int32]recvEntry
}

type recvEntry struct {
	body    []byte
	present bool
}

func newRecvBuffer() *recvBuffer {
	return &recvBuffer{entries: make(map[int32]recvEntry)}
}

// has reports whether seq is already buffered (duplicate detection).
func (b *recvBuffer) has(seq int32) bool {
	_, ok := b.entries[seq]
	return ok
}

// storeCopy retains a copy of payload under seq for later ordered
// delivery.
func (b *recvBuffer) storeCopy(seq int32, payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.entries[seq] = recvEntry{body: cp, present: true}
}

// storeSentinel records that seq has been seen without retaining a
// copy of its payload (no ordered-delivery callback is registered).
func (b *recvBuffer) storeSentinel(seq int32) {
	b.entries[seq] = recvEntry{present: true}
}

// popIfPresent removes and returns the entry for seq, if any.
func (b *recvBuffer) popIfPresent(seq int32) (recvEntry, bool) {
	e, ok := b.entries[seq]
	if ok {
		delete(b.entries, seq)
	}
	return e, ok
}

// len reports how many entries (real or sentinel) are buffered.
func (b *recvBuffer) len() int {
	return len(b.entries)
}
