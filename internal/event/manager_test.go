package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestManagerDeliversInOrderToMatchingListeners(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager()

	var mu sync.Mutex
	charged := make([]interface{}, 0)
	burned := make([]interface{}, 0)

	m.AddEventListener(MembershipChargedEvent, func(msg interface{}) {
		mu.Lock()
		defer mu.Unlock()
		charged = append(charged, msg)
	})
	m.AddEventListener(MembershipBurnedEvent, func(msg interface{}) {
		mu.Lock()
		defer mu.Unlock()
		burned = append(burned, msg)
	})

	m.EmitEvent(MembershipChargedEvent, 1)
	m.EmitEvent(MembershipBurnedEvent, 2)
	m.EmitEvent(MembershipChargedEvent, 3)
	m.EmitEvent(MarketSaleCreatedEvent, 4)

	m.Close()

	assert.Equal(t, []interface{}{1, 3}, charged)
	assert.Equal(t, []interface{}{2}, burned)
}

func TestManagerIgnoresEventsAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager()
	calls := 0
	m.AddEventListener(BillingRunCompletedEvent, func(msg interface{}) { calls++ })
	m.Close()

	m.EmitEvent(BillingRunCompletedEvent, "run")
	m.AddEventListener(BillingRunCompletedEvent, func(msg interface{}) { calls++ })
	m.Close()

	assert.Equal(t, 0, calls)
}
