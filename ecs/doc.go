// Package ecs bridges marionette editor events into a [Donburi] world.
//
// [NewDonburiSink] implements marionette.EventSink. Every document event is
// published to [DocumentEventType] and mirrored into a singleton entity
// carrying [DocumentState], so ECS systems can either react to changes or
// poll the latest state.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	editor := marionette.NewEditor(cfg, renderer, sink)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
