package core

import (
	"sync"

	"github.com/spaghettifunk/vkclear/engine/containers"
)

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next tick boundary.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed. Data holds a *KeyEvent.
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released. Data holds a *KeyEvent.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Resized/resolution changed from the OS. Data holds a *SystemEvent.
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventSystem dispatches events to registered listeners and buffers events
// produced outside the render loop until the loop polls them.
type EventSystem struct {
	registered map[SystemEventCode][]*registeredEvent

	mu      sync.Mutex
	pending *containers.RingQueue[EventContext]
}

func NewEventSystem() *EventSystem {
	return &EventSystem{
		registered: make(map[SystemEventCode][]*registeredEvent),
		pending:    containers.NewRingQueue[EventContext](64),
	}
}

// Register listens for events sent with the provided code. A listener can
// only be registered once per code; duplicates return false.
func (es *EventSystem) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code > MAX_EVENT_CODE || onEvent == nil {
		return false
	}
	for _, e := range es.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code `%d`", code)
			return false
		}
	}
	es.registered[code] = append(es.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister stops the listener from receiving events with the given code.
func (es *EventSystem) Unregister(code SystemEventCode, listener interface{}) bool {
	events := es.registered[code]
	for i, e := range events {
		if e.listener == listener {
			es.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends an event to the listeners of the given code, in registration
// order. A listener returning true consumes the event.
func (es *EventSystem) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	context.Type = code
	for _, e := range es.registered[code] {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

// Push enqueues an event. Safe to call from any goroutine.
func (es *EventSystem) Push(context EventContext) {
	es.mu.Lock()
	es.pending.Enqueue(context)
	es.mu.Unlock()
}

// Poll dequeues the oldest pending event.
func (es *EventSystem) Poll() (EventContext, bool) {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.pending.Dequeue()
}

// Flush drops every pending event and returns how many were dropped.
func (es *EventSystem) Flush() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.pending.Clear()
}

func (es *EventSystem) Pending() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.pending.Len()
}
