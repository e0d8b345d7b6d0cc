package event_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/platter/pkg/event"
)

func TestListenFireAndUnsubscribe(t *testing.T) {
	bus := event.New()
	var got []string

	offA := bus.Listen("session.cleared", func(p interface{}) { got = append(got, "a:"+p.(string)) })
	bus.Listen("session.cleared", func(p interface{}) { got = append(got, "b:"+p.(string)) })

	bus.Fire("session.cleared", "401")
	offA()
	offA()
	bus.Fire("session.cleared", "logout")

	assert.Equal(t, []string{"a:401", "b:401", "b:logout"}, got)
	assert.Equal(t, 1, bus.Count("session.cleared"))
}

func TestUnsubscribeDuringFire(t *testing.T) {
	bus := event.New()
	calls := 0
	var off func()
	off = bus.Listen("x", func(interface{}) { calls++; off() })

	bus.Fire("x", nil)
	bus.Fire("x", nil)
	assert.Equal(t, 1, calls)
}

func TestFireAsync(t *testing.T) {
	bus := event.New()
	var wg sync.WaitGroup
	wg.Add(2)
	bus.Listen("e", func(interface{}) { wg.Done() })
	bus.Listen("e", func(interface{}) { wg.Done() })
	bus.FireAsync("e", nil)
	wg.Wait()
}
