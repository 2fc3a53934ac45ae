package concurrency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAndJoin(t *testing.T) {
	s := NewScheduler()
	p := s.Spawn(func() interface{} { return 42 })
	assert.Equal(t, 42, p.Join())
}

func TestChannelSendRecv(t *testing.T) {
	ch := NewChannel(1)
	ch.Send("hello")
	assert.Equal(t, "hello", ch.Recv())
}

func TestChannelTryRecvOnEmpty(t *testing.T) {
	ch := NewChannel(1)
	_, ok := ch.TryRecv()
	assert.False(t, ok)
}

func TestCallccEscapesEarly(t *testing.T) {
	result := Callcc(func(escape func(interface{})) {
		escape("early")
		t.Fatal("unreachable")
	})
	assert.Equal(t, "early", result)
}

func TestCallccNormalReturnWhenEscapeUnused(t *testing.T) {
	result := Callcc(func(escape func(interface{})) {})
	assert.Nil(t, result)
}

func TestSpawnRunsConcurrently(t *testing.T) {
	s := NewScheduler()
	start := time.Now()
	p1 := s.Spawn(func() interface{} { time.Sleep(20 * time.Millisecond); return 1 })
	p2 := s.Spawn(func() interface{} { time.Sleep(20 * time.Millisecond); return 2 })
	require.Equal(t, 1, p1.Join())
	require.Equal(t, 2, p2.Join())
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}
