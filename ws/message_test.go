package ws

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestDecodeLike(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"LIKE","memeId":"m1","action":"UNLIKE","userId":"u2","likeCount":4}`))
	assert.Equal(t, err, nil)

	like, ok := msg.(LikeMessage)
	assert.Equal(t, ok, true)
	assert.Equal(t, like.MemeID, "m1")
	assert.Equal(t, like.UserID, "u2")
	assert.Equal(t, like.Liked(), false)
	assert.Equal(t, *like.LikeCount, 4)
}

func TestDecodeLowercaseTag(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"save","memeId":"m1","action":"SAVE"}`))
	assert.Equal(t, err, nil)
	assert.Equal(t, msg.Type(), TypeSave)
	assert.Equal(t, msg.(SaveMessage).SaveCount == nil, true)
}

func TestDecodeComment(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"COMMENT","memeId":"m1","username":"ayse","text":"lol","createdAt":"2026-03-01T10:00:00Z"}`))
	assert.Equal(t, err, nil)

	c := msg.(CommentMessage)
	assert.Equal(t, c.ID, "")
	assert.Equal(t, c.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)), true)
}

func TestDecodeNotificationEpochMillis(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"NOTIFICATION","id":"n1","notificationType":"follow","message":"x followed you","createdAt":1767225600000}`))
	assert.Equal(t, err, nil)

	n := msg.(NotificationMessage)
	assert.Equal(t, n.NotificationType, "follow")
	assert.Equal(t, n.CreatedAt.UnixMilli(), int64(1767225600000))
}

func TestDecodeUnknown(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"TYPING"}`))
	assert.Equal(t, errors.Is(err, ErrUnknownMessage), true)

	_, err = DecodeMessage([]byte(`not json`))
	assert.NotEqual(t, err, nil)
}

func TestEncodeAddsTypeTag(t *testing.T) {
	data, err := EncodeMessage(LikeMessage{MemeID: "m1", Action: ActionLike, Username: "ayse"})
	assert.Equal(t, err, nil)
	assert.Equal(t, string(data), `{"action":"LIKE","memeId":"m1","type":"LIKE","username":"ayse"}`)

	data, err = EncodeMessage(PingMessage{})
	assert.Equal(t, err, nil)
	assert.Equal(t, string(data), `{"type":"PING"}`)
}

func TestEncodeDecodeJoinPost(t *testing.T) {
	data, err := EncodeMessage(JoinPostMessage{PostID: "p1"})
	assert.Equal(t, err, nil)

	msg, err := DecodeMessage(data)
	assert.Equal(t, err, nil)
	assert.Equal(t, msg, Message(JoinPostMessage{PostID: "p1"}))
}
