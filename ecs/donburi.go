package ecs

import (
	"github.com/phanxgames/marionette"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// DocumentEventType is the Donburi event type for editor document events.
// Subscribe to it in your ECS systems to refresh panels after a change.
var DocumentEventType = events.NewEventType[marionette.DocumentEvent]()

// DocumentState is the latest document status seen by the sink.
type DocumentState struct {
	Workspace marionette.Workspace
	Dirty     bool
	// Revision counts the events published so far.
	Revision int
	Last     marionette.EventKind
}

// DocumentStateComponent holds the sink's DocumentState entity.
var DocumentStateComponent = donburi.NewComponentType[DocumentState]()

// DonburiSink publishes document events into a Donburi world.
type DonburiSink struct {
	world  donburi.World
	entity donburi.Entity
}

var _ marionette.EventSink = (*DonburiSink)(nil)

// NewDonburiSink creates the DocumentState entity in world and returns a
// sink that updates it.
func NewDonburiSink(world donburi.World) *DonburiSink {
	return &DonburiSink{
		world:  world,
		entity: world.Create(DocumentStateComponent),
	}
}

// Entity returns the DocumentState entity.
func (s *DonburiSink) Entity() donburi.Entity { return s.entity }

// Publish queues ev on DocumentEventType and updates DocumentState.
// Subscribers run on events.ProcessAllEvents or ProcessEvents.
func (s *DonburiSink) Publish(ev marionette.DocumentEvent) {
	if s.world.Valid(s.entity) {
		st := DocumentStateComponent.Get(s.world.Entry(s.entity))
		st.Workspace = ev.Workspace
		st.Dirty = ev.Dirty
		st.Last = ev.Kind
		st.Revision++
	}
	DocumentEventType.Publish(s.world, ev)
}

// State returns the latest DocumentState. ok is false when the entity has
// been removed from the world.
func (s *DonburiSink) State() (DocumentState, bool) {
	if !s.world.Valid(s.entity) {
		return DocumentState{}, false
	}
	return *DocumentStateComponent.Get(s.world.Entry(s.entity)), true
}
