package events

import "testing"

func TestEventHub_PublishSubscribe(t *testing.T) {
	h := NewEventHub()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(Message, MessageEvent{Name: "connect", Arg: "wivrn://host"})

	for _, ch := range []chan Event{a, b} {
		ev := <-ch
		if ev.Name != Message {
			t.Errorf("event name = %q, want %q", ev.Name, Message)
		}
		p, err := DecodeAs[MessageEvent](ev)
		if err != nil {
			t.Fatalf("DecodeAs() error = %v", err)
		}
		if p.Name != "connect" || p.Arg != "wivrn://host" {
			t.Errorf("payload = %+v", p)
		}
	}

	h.Unsubscribe(a)
	h.Unsubscribe(a)
	if _, ok := <-a; ok {
		t.Errorf("unsubscribed channel not closed")
	}
	if got := h.Subscribers(); got != 1 {
		t.Errorf("Subscribers() = %d, want 1", got)
	}
}

func TestEventHub_SlowSubscriberDropped(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	for i := 0; i < 100; i++ {
		h.Publish(Message, MessageEvent{})
	}
	if got := len(ch); got != cap(ch) {
		t.Errorf("buffered %d events, want %d", got, cap(ch))
	}
	if got, want := h.Dropped(), 100-cap(ch); got != want {
		t.Errorf("Dropped() = %d, want %d", got, want)
	}
}

func TestEventHub_Backlog(t *testing.T) {
	h := NewEventHub()
	for i := 0; i < backlogSize+10; i++ {
		h.Publish(Message, MessageEvent{Ts: int64(i)})
	}

	recent := h.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("Recent(3) returned %d events", len(recent))
	}
	for i, ev := range recent {
		p, err := DecodeAs[MessageEvent](ev)
		if err != nil {
			t.Fatal(err)
		}
		if want := int64(backlogSize + 7 + i); p.Ts != want {
			t.Errorf("Recent(3)[%d].Ts = %d, want %d", i, p.Ts, want)
		}
	}
	if got := len(h.Recent(1000)); got != backlogSize {
		t.Errorf("len(Recent(1000)) = %d, want %d", got, backlogSize)
	}
}

func TestEventHub_SubscribeReplay(t *testing.T) {
	h := NewEventHub()
	h.Publish(NewIntent, map[string]string{"action": "first"})
	h.Publish(NewIntent, map[string]string{"action": "second"})

	ch := h.SubscribeReplay(1)
	h.Publish(Message, MessageEvent{Name: "live"})

	first := <-ch
	if string(first.Data) != `{"action":"second"}` {
		t.Errorf("replayed event = %s, want the most recent one", first.Data)
	}
	if live := <-ch; live.Name != Message {
		t.Errorf("next event = %q, want %q", live.Name, Message)
	}

	if got := len(h.Subscribe()); got != 0 {
		t.Errorf("Subscribe() replayed %d events", got)
	}
}

func TestEventHub_NilPublish(t *testing.T) {
	var h *EventHub
	h.Publish(Message, nil)
}

func TestDecodeAs_Empty(t *testing.T) {
	p, err := DecodeAs[MessageEvent](Event{Name: Message})
	if err != nil || p != (MessageEvent{}) {
		t.Errorf("DecodeAs(empty) = (%+v, %v), want zero value", p, err)
	}
}

func TestEventHub_SubscribeReplayWholeBacklog(t *testing.T) {
	h := NewEventHub()
	for i := 0; i < backlogSize+5; i++ {
		h.Publish(Message, MessageEvent{Ts: int64(i)})
	}

	ch := h.SubscribeReplay(backlogSize)
	if got := len(ch); got != backlogSize {
		t.Fatalf("SubscribeReplay(%d) queued %d events, want %d", backlogSize, got, backlogSize)
	}
	first, err := DecodeAs[MessageEvent](<-ch)
	if err != nil {
		t.Fatal(err)
	}
	if first.Ts != 5 {
		t.Errorf("first replayed Ts = %d, want 5", first.Ts)
	}

	// Live events still fit after a full replay.
	h.Publish(NewIntent, nil)
	if got := len(ch); got != backlogSize {
		t.Errorf("after a live publish len = %d, want %d", got, backlogSize)
	}
	if got := h.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d, want 0", got)
	}

	if got := len(h.SubscribeReplay(1000)); got != backlogSize {
		t.Errorf("SubscribeReplay(1000) queued %d, want %d", got, backlogSize)
	}
}
