package udpx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// waitFor polls cond every 10ms up to timeout, mirroring the polling
// style the corpus uses to synchronize on asynchronous socket state
// instead of sleeping a fixed duration.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestHandshakeAndReliableDelivery(t *testing.T) {
	var accepted *Conn
	var acceptedMu sync.Mutex

	lst, err := Listen("127.0.0.1:0", func(c *Conn) {
		acceptedMu.Lock()
		accepted = c
		acceptedMu.Unlock()
	})
	require.NoError(t, err)
	defer lst.Close()

	client, err := Dial(lst.LocalAddr().String())
	require.NoError(t, err)
	defer client.Disconnect()

	waitFor(t, time.Second, func() bool {
		acceptedMu.Lock()
		defer acceptedMu.Unlock()
		return accepted != nil
	})

	var got []byte
	var gotMu sync.Mutex
	acceptedMu.Lock()
	accepted.SetOnReceivedOrdered(func(payload []byte) {
		gotMu.Lock()
		got = payload
		gotMu.Unlock()
	})
	acceptedMu.Unlock()

	require.NoError(t, client.Send([]byte("hello")))

	waitFor(t, time.Second, func() bool {
		gotMu.Lock()
		defer gotMu.Unlock()
		return string(got) == "hello"
	})
}

func TestReorderRecoversViaRequest(t *testing.T) {
	var accepted *Conn
	var acceptedMu sync.Mutex

	lst, err := Listen("127.0.0.1:0", func(c *Conn) {
		acceptedMu.Lock()
		accepted = c
		acceptedMu.Unlock()
	})
	require.NoError(t, err)
	defer lst.Close()

	client, err := Dial(lst.LocalAddr().String())
	require.NoError(t, err)
	defer client.Disconnect()

	waitFor(t, time.Second, func() bool {
		acceptedMu.Lock()
		defer acceptedMu.Unlock()
		return accepted != nil
	})

	var delivered []string
	var deliveredMu sync.Mutex
	acceptedMu.Lock()
	accepted.SetOnReceivedOrdered(func(payload []byte) {
		deliveredMu.Lock()
		delivered = append(delivered, string(payload))
		deliveredMu.Unlock()
	})
	acceptedMu.Unlock()

	// Send three payloads out of order: "zero" goes out normally,
	// "one" is retained in the client's sendStore but held back, and
	// "two" is sent first. Its arrival reveals the gap at seq 1, so
	// the peer issues a Request that the client answers from its
	// sendStore; the late direct copy of "one" is then a duplicate.
	require.NoError(t, client.Send([]byte("zero")))
	seq1Payload := []byte("one")
	seq2Payload := []byte("two")

	client.mu.Lock()
	seq1 := client.sendNext
	client.sendNext++
	client.sent.put(seq1, seq1Payload)
	client.mu.Unlock()

	client.mu.Lock()
	seq2 := client.sendNext
	client.sendNext++
	client.sent.put(seq2, seq2Payload)
	err = client.sendRawLocked(packet{Tag: TagSequenced, Seq: seq2, Ack: client.recvNext, Body: seq2Payload})
	client.mu.Unlock()
	require.NoError(t, err)

	client.mu.Lock()
	err = client.sendRawLocked(packet{Tag: TagSequenced, Seq: seq1, Ack: client.recvNext, Body: seq1Payload})
	client.mu.Unlock()
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool {
		deliveredMu.Lock()
		defer deliveredMu.Unlock()
		return len(delivered) == 3
	})

	deliveredMu.Lock()
	require.Equal(t, []string{"zero", "one", "two"}, delivered)
	deliveredMu.Unlock()
}

func TestDuplicateSequencedIsSuppressed(t *testing.T) {
	var accepted *Conn
	var acceptedMu sync.Mutex

	lst, err := Listen("127.0.0.1:0", func(c *Conn) {
		acceptedMu.Lock()
		accepted = c
		acceptedMu.Unlock()
	})
	require.NoError(t, err)
	defer lst.Close()

	client, err := Dial(lst.LocalAddr().String())
	require.NoError(t, err)
	defer client.Disconnect()

	waitFor(t, time.Second, func() bool {
		acceptedMu.Lock()
		defer acceptedMu.Unlock()
		return accepted != nil
	})

	var count int
	var countMu sync.Mutex
	acceptedMu.Lock()
	accepted.SetOnReceivedOrdered(func(payload []byte) {
		countMu.Lock()
		count++
		countMu.Unlock()
	})
	acceptedMu.Unlock()

	client.mu.Lock()
	sentSeq := client.sendNext
	client.mu.Unlock()
	require.NoError(t, client.Send([]byte("dup")))

	client.mu.Lock()
	pkt := packet{Tag: TagSequenced, Seq: sentSeq, Ack: client.recvNext, Body: []byte("dup")}
	client.mu.Unlock()
	// Resend the same seq a second time; recv_next has already moved
	// past it so it must be dropped as a duplicate.
	require.NoError(t, client.sendRaw(pkt))

	waitFor(t, time.Second, func() bool {
		countMu.Lock()
		defer countMu.Unlock()
		return count >= 1
	})
	time.Sleep(100 * time.Millisecond)

	countMu.Lock()
	require.Equal(t, 1, count)
	countMu.Unlock()
}

func TestExplicitDisconnectFiresCallback(t *testing.T) {
	var accepted *Conn
	var acceptedMu sync.Mutex

	lst, err := Listen("127.0.0.1:0", func(c *Conn) {
		acceptedMu.Lock()
		accepted = c
		acceptedMu.Unlock()
	})
	require.NoError(t, err)
	defer lst.Close()

	client, err := Dial(lst.LocalAddr().String())
	require.NoError(t, err)

	waitFor(t, time.Second, func() bool {
		acceptedMu.Lock()
		defer acceptedMu.Unlock()
		return accepted != nil
	})

	ended := make(chan bool, 1)
	acceptedMu.Lock()
	accepted.SetOnDisconnected(func(explicit bool) { ended <- explicit })
	acceptedMu.Unlock()

	client.Disconnect()

	select {
	case explicit := <-ended:
		require.True(t, explicit)
	case <-time.After(time.Second):
		t.Fatal("peer never observed the disconnect")
	}
}

func TestKeepAliveEvictsSendStore(t *testing.T) {
	var accepted *Conn
	var acceptedMu sync.Mutex

	lst, err := Listen("127.0.0.1:0", func(c *Conn) {
		acceptedMu.Lock()
		accepted = c
		acceptedMu.Unlock()
	})
	require.NoError(t, err)
	defer lst.Close()

	client, err := Dial(lst.LocalAddr().String())
	require.NoError(t, err)
	defer client.Disconnect()

	waitFor(t, time.Second, func() bool {
		acceptedMu.Lock()
		defer acceptedMu.Unlock()
		return accepted != nil
	})

	client.mu.Lock()
	wantRecvNext := client.sendNext + 2
	client.mu.Unlock()

	require.NoError(t, client.Send([]byte("a")))
	require.NoError(t, client.Send([]byte("b")))

	waitFor(t, time.Second, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.sent.len() == 2
	})

	// Wait for accepted to have actually received both payloads before
	// reading its cumulative ack — otherwise ackedThrough would still
	// cover nothing and the eviction below would be vacuous.
	acceptedMu.Lock()
	peerConn := accepted
	acceptedMu.Unlock()

	waitFor(t, time.Second, func() bool {
		peerConn.mu.Lock()
		defer peerConn.mu.Unlock()
		return peerConn.recvNext >= wantRecvNext
	})

	peerConn.mu.Lock()
	ackedThrough := peerConn.recvNext
	acceptedSeq := peerConn.sendNext - 1
	peerConn.mu.Unlock()

	// The KeepAlive must flow from accepted back to client: it is
	// accepted's cumulative ack of client's stream that releases
	// client's retained payloads (§4.4), never the reverse.
	require.NoError(t, peerConn.sendRaw(packet{Tag: TagKeepAlive, Seq: acceptedSeq, Ack: ackedThrough}))

	waitFor(t, time.Second, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.sent.len() == 0
	})
}
