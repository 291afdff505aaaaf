package ws

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestDispatchOrder(t *testing.T) {
	d := NewDispatcher()
	var calls []string

	d.Register(TypeLike, func(Message) { calls = append(calls, "first") })
	d.Register(TypeLike, func(Message) { calls = append(calls, "second") })
	d.Register(TypeSave, func(Message) { calls = append(calls, "save") })

	n := d.Dispatch(LikeMessage{MemeID: "m1"})
	assert.Equal(t, n, 2)
	assert.Equal(t, calls, []string{"first", "second"})
}

func TestDispatchIsolatesPanics(t *testing.T) {
	d := NewDispatcher()
	ran := false

	d.Register(TypeComment, func(Message) { panic("boom") })
	d.Register(TypeComment, func(Message) { ran = true })

	d.Dispatch(CommentMessage{MemeID: "m1"})
	assert.Equal(t, ran, true)
}

func TestUnregisterRemovesOnlyThatHandler(t *testing.T) {
	d := NewDispatcher()
	var calls []string

	fn := func(Message) { calls = append(calls, "same") }
	unregister := d.Register(TypeLike, fn)
	d.Register(TypeLike, fn)

	unregister()
	unregister()

	assert.Equal(t, d.Dispatch(LikeMessage{}), 1)
	assert.Equal(t, calls, []string{"same"})
}

func TestHandleTyped(t *testing.T) {
	d := NewDispatcher()
	var got FollowMessage

	unregister := Handle(d, func(m FollowMessage) { got = m })
	d.Dispatch(FollowMessage{FollowerID: "u1", FollowingUserID: "u2", IsFollowing: true})
	assert.Equal(t, got.FollowingUserID, "u2")

	unregister()
	assert.Equal(t, d.Dispatch(FollowMessage{}), 0)
}

func TestRegisterDuringDispatch(t *testing.T) {
	d := NewDispatcher()
	late := 0

	d.Register(TypePong, func(Message) {
		d.Register(TypePong, func(Message) { late++ })
	})

	d.Dispatch(PongMessage{})
	assert.Equal(t, late, 0)
	d.Dispatch(PongMessage{})
	assert.Equal(t, late, 1)
}
