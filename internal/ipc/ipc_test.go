package ipc

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/evepreview/internal/geometry"
)

func startServer(t *testing.T, dispatch DispatchFunc, broker *Broker) *Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ipc.sock")
	srv := NewServerAt(path, dispatch, broker)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return NewClientAt(path)
}

func TestClientServer_Requests(t *testing.T) {
	var (
		mu  sync.Mutex
		got []*Request
	)
	dispatched := func() []*Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]*Request(nil), got...)
	}
	dispatch := func(req *Request) *Response {
		mu.Lock()
		got = append(got, req)
		mu.Unlock()
		switch req.Command {
		case CommandStatus:
			resp, _ := NewOKResponse(StatusData{
				Profile:  "main",
				Previews: []PreviewInfo{{Character: "Alice", X: 10, Y: 20, Focused: true}},
			})
			return resp
		case CommandCycle:
			var p CyclePayload
			if err := req.DecodePayload(&p); err != nil {
				return NewErrorResponse(err.Error())
			}
			if p.Direction != DirectionBackward {
				return NewErrorResponse("unexpected direction " + p.Direction)
			}
		}
		resp, _ := NewOKResponse(nil)
		return resp
	}
	client := startServer(t, dispatch, NewBroker())

	if err := client.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if n := len(dispatched()); n != 0 {
		t.Fatalf("ping should be answered by the server, dispatched %d", n)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Profile != "main" || len(status.Previews) != 1 || status.Previews[0].Character != "Alice" {
		t.Fatalf("unexpected status %+v", status)
	}

	if _, err := client.Cycle(DirectionBackward); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if err := client.MoveThumbnail(ThumbnailMovePayload{Character: "Alice", X: -5, Y: 7}); err != nil {
		t.Fatalf("move: %v", err)
	}
	all := dispatched()
	last := all[len(all)-1]
	var move ThumbnailMovePayload
	if err := last.DecodePayload(&move); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if move.Character != "Alice" || move.X != -5 || move.Y != 7 {
		t.Fatalf("unexpected move payload %+v", move)
	}
}

func TestClientServer_ErrorResponse(t *testing.T) {
	client := startServer(t, func(*Request) *Response {
		return NewErrorResponse("no such character")
	}, NewBroker())

	err := client.Save()
	if err == nil || !strings.Contains(err.Error(), "no such character") {
		t.Fatalf("expected daemon error, got %v", err)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	err := client.Ping()
	if err == nil {
		t.Fatalf("expected connection error")
	}
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("error %v does not wrap ErrNotRunning", err)
	}
}

func TestSubscribe_StreamsEvents(t *testing.T) {
	broker := NewBroker()
	client := startServer(t, func(*Request) *Response {
		resp, _ := NewOKResponse(nil)
		return resp
	}, broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- client.Subscribe(ctx, func(ev Event) { received <- ev })
	}()

	deadline := time.Now().Add(2 * time.Second)
	for broker.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	pos := geometry.Position{X: 110, Y: 100}
	broker.Publish(Event{Type: EventPositionChanged, Character: "Alice", Position: &pos})

	select {
	case ev := <-received:
		if ev.Type != EventPositionChanged || ev.Character != "Alice" || ev.Position == nil || *ev.Position != pos {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.Time.IsZero() {
			t.Fatalf("expected publish to stamp the event time")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscribe did not return after cancel")
	}
}

func TestBroker_DropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch, unsubscribe := b.Subscribe()
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(Event{Type: EventLog})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("expected buffer to hold %d events, got %d", subscriberBuffer, len(ch))
	}
	unsubscribe()
	unsubscribe()
	if b.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after unsubscribe")
	}
}

func TestBroker_CloseEndsStreams(t *testing.T) {
	b := NewBroker()
	ch, _ := b.Subscribe()
	b.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("expected subscribe after close to return a closed channel")
	}
}

func TestBroker_Heartbeat(t *testing.T) {
	b := NewBroker()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.RunHeartbeat(ctx, 10*time.Millisecond)

	select {
	case ev := <-ch:
		if ev.Type != EventHeartbeat {
			t.Fatalf("expected heartbeat, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("no heartbeat")
	}
}
