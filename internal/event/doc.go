// Package event provides a pub-sub event bus for decoupled communication
// between the Store and the Coordinator service in Claudia.
//
// The Store publishes an event every time a task or session changes state.
// The Coordinator's websocket subscribers consume these events without the
// Store knowing who, if anyone, is listening. The on-disk history log is
// written by the Store itself, not through the bus.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Task Lifecycle:
//   - [TaskCreatedEvent], [TaskClaimedEvent], [TaskCompletedEvent]
//   - [TaskReopenedEvent], [TaskReleasedEvent], [TaskDeletedEvent]
//   - [TaskNotedEvent], [TaskEditedEvent]
//
// Session Lifecycle:
//   - [SessionRegisteredEvent], [SessionHeartbeatEvent]
//   - [SessionEndedEvent], [SessionReclaimedEvent]
//
// Undo:
//   - [UndoAppliedEvent]
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Multiple goroutines can publish
// and subscribe concurrently. Handlers are called synchronously and protected
// against panics - a panicking handler will not prevent other handlers from
// being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	// Subscribe to specific event types
//	bus.Subscribe("task.claimed", func(e event.Event) {
//	    claimed := e.(event.TaskClaimedEvent)
//	    log.Printf("task %s claimed by %s", claimed.TaskID, claimed.SessionID)
//	})
//
//	// Subscribe to all events (used by the Coordinator's websocket hub)
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("event: %s at %v", e.EventType(), e.Timestamp())
//	})
//
//	// Publish events
//	bus.Publish(event.NewTaskClaimedEvent("task-004", "session-1"))
//
//	// Unsubscribe when done
//	id := bus.Subscribe("session.reclaimed", handler)
//	bus.Unsubscribe(id)
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - task.created, task.claimed, task.completed, task.reopened
//   - task.released, task.deleted, task.noted, task.edited
//   - session.registered, session.heartbeat, session.ended, session.reclaimed
//   - undo.applied
package event
