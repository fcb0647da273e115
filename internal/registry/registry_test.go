package registry

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/muurk/wschat/internal/protocol"
)

type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (f *fakeSender) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, append([]byte(nil), frame...))
	return nil
}

func (f *fakeSender) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

type countingObserver struct {
	mu            sync.Mutex
	added         int
	removed       int
	broadcasts    int
	encodeFailure int
}

func (o *countingObserver) ClientAdded(*Client) {
	o.mu.Lock()
	o.added++
	o.mu.Unlock()
}

func (o *countingObserver) ClientRemoved(*Client) {
	o.mu.Lock()
	o.removed++
	o.mu.Unlock()
}

func (o *countingObserver) Broadcasted(Report) {
	o.mu.Lock()
	o.broadcasts++
	o.mu.Unlock()
}

func (o *countingObserver) EncodeFailed(string, error) {
	o.mu.Lock()
	o.encodeFailure++
	o.mu.Unlock()
}

func TestRegistry_AddAssignsIncreasingIDs(t *testing.T) {
	reg := New()

	var last uint64
	seen := make(map[uint64]bool)
	for i := 0; i < 20; i++ {
		s := &fakeSender{}
		c := reg.Add(s, "127.0.0.1:1000")
		if c.ID <= last {
			t.Fatalf("id %d not greater than previous %d", c.ID, last)
		}
		if seen[c.ID] {
			t.Fatalf("duplicate id %d", c.ID)
		}
		seen[c.ID] = true
		last = c.ID

		// Interleave removals; ids must never be reused
		if i%3 == 0 {
			reg.Remove(s)
		}
	}

	if last != 20 {
		t.Errorf("last id = %d, want 20", last)
	}
}

func TestRegistry_Remove(t *testing.T) {
	reg := New()
	a, b := &fakeSender{}, &fakeSender{}
	reg.Add(a, "a")
	reg.Add(b, "b")

	if !reg.Remove(a) {
		t.Error("Remove() of a registered session should return true")
	}
	if reg.Remove(a) {
		t.Error("second Remove() should be a no-op")
	}
	if reg.Remove(&fakeSender{}) {
		t.Error("Remove() of an unknown session should be a no-op")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	if _, ok := reg.Lookup(a); ok {
		t.Error("removed session should not be found")
	}
	if c, ok := reg.Lookup(b); !ok || c.RemoteAddr != "b" {
		t.Errorf("Lookup(b) = %v, %v", c, ok)
	}
}

func TestRegistry_List(t *testing.T) {
	reg := New()
	reg.Add(&fakeSender{}, "first")
	reg.Add(&fakeSender{}, "second")

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(list))
	}
	if list[0].RemoteAddr != "first" || list[1].RemoteAddr != "second" {
		t.Errorf("List() = %+v, want insertion order", list)
	}
	if list[0].ID != 1 || list[1].ID != 2 {
		t.Errorf("ids = %d,%d, want 1,2", list[0].ID, list[1].ID)
	}
}

func TestRegistry_BroadcastIncludesEveryClient(t *testing.T) {
	reg := New()
	senders := []*fakeSender{{}, {}, {}}
	for _, s := range senders {
		reg.Add(s, "peer")
	}

	report, err := reg.Broadcast("hello")
	if err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}
	if report.Recipients != 3 || report.Delivered != 3 || len(report.Failed) != 0 {
		t.Errorf("report = %+v, want 3 delivered", report)
	}

	want, _ := protocol.EncodeText("hello")
	for i, s := range senders {
		got := s.received()
		if len(got) != 1 || !bytes.Equal(got[0], want) {
			t.Errorf("sender %d received %x, want %x", i, got, want)
		}
	}
}

func TestRegistry_BroadcastIsolatesFailures(t *testing.T) {
	reg := New()
	first := &fakeSender{}
	broken := &fakeSender{err: errors.New("broken pipe")}
	third := &fakeSender{}
	reg.Add(first, "1")
	c2 := reg.Add(broken, "2")
	reg.Add(third, "3")

	report, err := reg.Broadcast("still here")
	if err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}
	if report.Delivered != 2 {
		t.Errorf("delivered = %d, want 2", report.Delivered)
	}
	if len(report.Failed) != 1 || report.Failed[0] != c2.ID {
		t.Errorf("failed = %v, want [%d]", report.Failed, c2.ID)
	}
	if len(first.received()) != 1 || len(third.received()) != 1 {
		t.Error("clients 1 and 3 should have received the message")
	}
	if reg.Len() != 3 {
		t.Error("a failed send must not unregister the client")
	}
}

func TestRegistry_BroadcastTooLong(t *testing.T) {
	obs := &countingObserver{}
	reg := New(WithObserver(obs))
	s := &fakeSender{}
	reg.Add(s, "peer")

	_, err := reg.Broadcast(strings.Repeat("a", 126))
	if !errors.Is(err, protocol.ErrPayloadTooLong) {
		t.Fatalf("Broadcast() error = %v, want ErrPayloadTooLong", err)
	}
	if len(s.received()) != 0 {
		t.Error("nothing should be sent when encoding fails")
	}
	if obs.encodeFailure != 1 || obs.broadcasts != 0 {
		t.Errorf("observer = %+v", obs)
	}

	if _, err := reg.Broadcast(strings.Repeat("a", 125)); err != nil {
		t.Errorf("Broadcast() of 125 bytes error = %v", err)
	}
	if len(s.received()) != 1 {
		t.Error("125-byte message should be delivered")
	}
}

func TestRegistry_RemovedClientGetsNoBroadcast(t *testing.T) {
	reg := New()
	stay, leave := &fakeSender{}, &fakeSender{}
	reg.Add(stay, "stay")
	reg.Add(leave, "leave")
	reg.Remove(leave)

	if _, err := reg.Broadcast("after"); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}
	if len(leave.received()) != 0 {
		t.Error("removed client should not receive broadcasts")
	}
	if len(stay.received()) != 1 {
		t.Error("remaining client should receive the broadcast")
	}
}

func TestRegistry_Clear(t *testing.T) {
	obs := &countingObserver{}
	reg := New(WithObserver(obs))
	reg.Add(&fakeSender{}, "a")
	reg.Add(&fakeSender{}, "b")

	dropped := reg.Clear()
	if len(dropped) != 2 {
		t.Errorf("Clear() dropped %d clients, want 2", len(dropped))
	}
	if reg.Len() != 0 {
		t.Errorf("Len() after Clear() = %d", reg.Len())
	}
	if obs.added != 2 || obs.removed != 2 {
		t.Errorf("observer added=%d removed=%d, want 2/2", obs.added, obs.removed)
	}

	// ids keep increasing after a clear
	if c := reg.Add(&fakeSender{}, "c"); c.ID != 3 {
		t.Errorf("id after Clear() = %d, want 3", c.ID)
	}
}

func TestRegistry_ConcurrentAddRemoveBroadcast(t *testing.T) {
	reg := New()
	const workers = 16

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := &fakeSender{}
				reg.Add(s, "peer")
				if _, err := reg.Broadcast("tick"); err != nil {
					t.Errorf("Broadcast() error = %v", err)
				}
				reg.Remove(s)
			}
		}()
	}
	wg.Wait()

	if reg.Len() != 0 {
		t.Errorf("Len() = %d after all workers removed themselves", reg.Len())
	}
	if c := reg.Add(&fakeSender{}, "last"); c.ID != workers*50+1 {
		t.Errorf("next id = %d, want %d", c.ID, workers*50+1)
	}
}
