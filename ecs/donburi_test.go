package ecs

import (
	"testing"

	"github.com/phanxgames/marionette"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func TestNewDonburiSink(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)
	if sink == nil {
		t.Fatal("NewDonburiSink returned nil")
	}
	st, ok := sink.State()
	if !ok {
		t.Fatal("state entity missing")
	}
	if st.Revision != 0 || st.Dirty {
		t.Errorf("initial state: %+v", st)
	}
}

func TestDonburiSink_Publish(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)

	var received []marionette.DocumentEvent
	DocumentEventType.Subscribe(world, func(w donburi.World, e marionette.DocumentEvent) {
		received = append(received, e)
	})

	sink.Publish(marionette.DocumentEvent{Kind: marionette.EventChanged, Workspace: marionette.WorkspacePaint, Dirty: true})
	sink.Publish(marionette.DocumentEvent{Kind: marionette.EventUndo, Workspace: marionette.WorkspaceSkeleton})

	// Events are queued until processed; the state entity is not.
	st, _ := sink.State()
	if st.Revision != 2 || st.Dirty || st.Workspace != marionette.WorkspaceSkeleton || st.Last != marionette.EventUndo {
		t.Errorf("state after publish: %+v", st)
	}
	if len(received) != 0 {
		t.Fatalf("events delivered before processing: %d", len(received))
	}

	DocumentEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	if received[0].Kind != marionette.EventChanged || !received[0].Dirty {
		t.Errorf("event 0: %+v", received[0])
	}
	if received[1].Workspace != marionette.WorkspaceSkeleton {
		t.Errorf("event 1: %+v", received[1])
	}
}

func TestDonburiSink_ImplementsEventSink(t *testing.T) {
	world := donburi.NewWorld()
	var sink marionette.EventSink = NewDonburiSink(world)
	_ = sink
}

func TestDonburiSink_Editor(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)
	e := marionette.NewEditor(marionette.DefaultConfig(), nil, sink)

	var kinds []marionette.EventKind
	DocumentEventType.Subscribe(world, func(w donburi.World, ev marionette.DocumentEvent) {
		kinds = append(kinds, ev.Kind)
	})

	if _, err := e.AddLayer(e.SelectedLayer()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	events.ProcessAllEvents(world)

	if len(kinds) != 2 || kinds[0] != marionette.EventChanged || kinds[1] != marionette.EventUndo {
		t.Errorf("kinds = %v", kinds)
	}
	if st, _ := sink.State(); st.Revision != 2 {
		t.Errorf("Revision = %d, want 2", st.Revision)
	}
}

func TestDonburiSink_RemovedEntity(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)
	world.Remove(sink.Entity())

	sink.Publish(marionette.DocumentEvent{Kind: marionette.EventSaved})
	if _, ok := sink.State(); ok {
		t.Error("State should report a removed entity")
	}
}

func TestDonburiSink_MultipleSubscribers(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)

	var count1, count2 int
	DocumentEventType.Subscribe(world, func(w donburi.World, e marionette.DocumentEvent) {
		count1++
	})
	DocumentEventType.Subscribe(world, func(w donburi.World, e marionette.DocumentEvent) {
		count2++
	})

	sink.Publish(marionette.DocumentEvent{Kind: marionette.EventSaved})
	events.ProcessAllEvents(world)

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", count1, count2)
	}
}
