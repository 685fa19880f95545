package chatws

import (
	"testing"
	"time"
)

func TestWriteErrorDropsClientWithFullBuffer(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, "7")
	hub.Register(client)

	for i := 0; i < cap(client.send); i++ {
		client.send <- []byte("{}")
	}

	if client.writeError("channel locked", "ref-1") {
		t.Fatal("writeError on a full buffer should report the client dropped")
	}

	// The hub closes the send channel once the unregister lands; a later
	// writeError on the same pump must not touch it.
	time.Sleep(50 * time.Millisecond)
	if client.writeError("channel locked", "ref-2") {
		t.Fatal("writeError after drop should keep reporting the client dropped")
	}
}

func TestWriteErrorQueuesFrame(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, "7")

	if !client.writeError("invalid session id", "ref-9") {
		t.Fatal("writeError with buffer space should succeed")
	}

	select {
	case payload := <-client.send:
		if len(payload) == 0 {
			t.Fatal("expected an encoded error frame")
		}
	default:
		t.Fatal("expected a frame queued on the send channel")
	}
}
