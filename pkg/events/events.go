package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventPhaseEntered        EventType = "phase.entered"
	EventPhaseCompleted      EventType = "phase.completed"
	EventRunSucceeded        EventType = "run.succeeded"
	EventRunFailed           EventType = "run.failed"
	EventConflictRetry       EventType = "deployment.conflict_retry"
	EventCertificateUploaded EventType = "certificate.uploaded"
	EventPackageUploaded     EventType = "package.uploaded"
	EventOperationPolled     EventType = "operation.polled"
	EventWarning             EventType = "warning"
)

// Event represents a step of a publish run
type Event struct {
	ID        string
	RunID     string
	Type      EventType
	Phase     string
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker fans publish-run events out to presentation layers (CLI printer,
// history recorder) so orchestration code never writes to a terminal itself.
type Broker struct {
	// subscribers maps each channel to whether delivery to it blocks
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker after delivering the events already published, then
// closes every subscriber channel. It blocks until distribution has finished.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	<-b.doneCh
}

// Subscribe creates a best effort subscription: events are dropped while
// its buffer is full
func (b *Broker) Subscribe() Subscriber {
	return b.subscribe(false)
}

// SubscribeBlocking creates a subscription that never misses an event. A full
// buffer stalls distribution, so the reader must keep receiving until the
// channel is closed.
func (b *Broker) SubscribeBlocking() Subscriber {
	return b.subscribe(true)
}

func (b *Broker) subscribe(blocking bool) Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = blocking
	return sub
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	defer close(b.doneCh)
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			b.drain()
			b.closeSubscribers()
			return
		}
	}
}

func (b *Broker) drain() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		default:
			return
		}
	}
}

func (b *Broker) closeSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		close(sub)
		delete(b.subscribers, sub)
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, blocking := range b.subscribers {
		if blocking {
			sub <- event
			continue
		}
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}
