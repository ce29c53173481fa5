package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_SetNotifiesSynchronously(t *testing.T) {
	s := NewStore()
	var seen []Target
	s.Subscribe(func(tg Target) { seen = append(seen, tg) })

	a := Target{Kind: KindContainer, ID: "container-a"}
	s.Set(a)
	assert.Equal(t, []Target{a}, seen)
	assert.Equal(t, a, s.Current())
}

func TestStore_SetSameTargetIsNoOp(t *testing.T) {
	s := NewStore()
	calls := 0
	s.Subscribe(func(Target) { calls++ })

	tg := Target{Kind: KindSession, ID: "sess-1"}
	s.Set(tg)
	s.Set(tg)
	assert.Equal(t, 1, calls)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore()
	calls := 0
	unsub := s.Subscribe(func(Target) { calls++ })

	s.Set(Target{Kind: KindContainer, ID: "a"})
	unsub()
	s.Set(Target{Kind: KindContainer, ID: "b"})
	assert.Equal(t, 1, calls)
}

func TestTarget_Zero(t *testing.T) {
	assert.True(t, Target{}.Zero())
	assert.False(t, Target{Kind: KindContainer, ID: "a"}.Zero())
}
