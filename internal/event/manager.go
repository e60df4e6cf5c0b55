package event

import (
	"go.uber.org/zap"
	"sync"
)

const listenerBuffer = 64

type Listener struct {
	eventType Type
	channel   chan interface{}
}

// Manager fans events out to listeners. Each listener receives its events in
// emit order on its own goroutine.
type Manager struct {
	mu        sync.RWMutex
	listeners []*Listener
	closed    bool
	wg        sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{listeners: make([]*Listener, 0)}
}

func (m *Manager) AddEventListener(eventType Type, callback func(msg interface{})) {
	zap.L().With(zap.String("type", string(eventType))).Debug("EventManager: AddListener")

	listener := &Listener{
		eventType: eventType,
		channel:   make(chan interface{}, listenerBuffer),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.listeners = append(m.listeners, listener)
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		for msg := range listener.channel {
			callback(msg)
		}
	}()
}

func (m *Manager) EmitEvent(eventType Type, msg interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return
	}
	if len(m.listeners) == 0 {
		zap.L().Debug("No event listeners available")
	}

	for _, listener := range m.listeners {
		if listener.eventType == eventType {
			zap.L().With(zap.String("type", string(eventType))).Debug("EventManager: Emitting event")
			listener.channel <- msg
		}
	}
}

// Close stops accepting events and waits for listeners to drain what they
// already received.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, listener := range m.listeners {
		close(listener.channel)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

var defaultManager = NewManager()

func AddEventListener(eventType Type, callback func(msg interface{})) {
	defaultManager.AddEventListener(eventType, callback)
}

func EmitEvent(eventType Type, msg interface{}) {
	defaultManager.EmitEvent(eventType, msg)
}

// Shutdown drains the listeners registered on the package level manager.
func Shutdown() {
	defaultManager.Close()
}
