package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MessageType, duplex bağlantıdaki her mesajın "type" discriminant'ı.
type MessageType string

const (
	TypePing         MessageType = "PING"
	TypePong         MessageType = "PONG"
	TypeFollow       MessageType = "FOLLOW"
	TypeComment      MessageType = "COMMENT"
	TypeLike         MessageType = "LIKE"
	TypeSave         MessageType = "SAVE"
	TypeNotification MessageType = "NOTIFICATION"
	TypeJoinPost     MessageType = "JOIN_POST"
	TypeLeavePost    MessageType = "LEAVE_POST"
)

// Like / save action değerleri. Request her zaman niyet edilen sonucu taşır,
// ham bir "toggle" değil; böylece yeniden sıralanmaya dayanıklıdır.
const (
	ActionLike   = "LIKE"
	ActionUnlike = "UNLIKE"
	ActionSave   = "SAVE"
	ActionUnsave = "UNSAVE"
)

// ErrUnknownMessage, tanınmayan bir type tag'i geldi.
var ErrUnknownMessage = errors.New("unknown message type")

// Message, kapalı (sealed) tagged union. Sadece bu paketteki tipler implement edebilir;
// yeni bir mesaj tipi eklemek DecodeMessage'a case eklemeyi gerektirir.
type Message interface {
	Type() MessageType
	sealed()
}

// ─── Mesaj tipleri ───

// PingMessage, uygulama seviyesinde heartbeat.
type PingMessage struct{}

// PongMessage, sunucunun heartbeat cevabı.
type PongMessage struct{}

// JoinPostMessage, "bu post'u görüntülüyorum" aboneliği.
// Sunucu bu post'un canlı yorumlarını sadece abonelere yayınlar.
type JoinPostMessage struct {
	PostID string `json:"postId"`
}

// LeavePostMessage, JoinPost aboneliğini bırakır.
type LeavePostMessage struct {
	PostID string `json:"postId"`
}

// LikeMessage, hem giden like isteği hem de sunucunun yayınladığı like event'i.
// LikeCount sunucunun otoriter sayısıdır; giden istekte boş kalır.
type LikeMessage struct {
	MemeID    string `json:"memeId"`
	Action    string `json:"action"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	LikeCount *int   `json:"likeCount,omitempty"`
}

// SaveMessage, LikeMessage'ın save karşılığı.
type SaveMessage struct {
	MemeID    string `json:"memeId"`
	Action    string `json:"action"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	SaveCount *int   `json:"saveCount,omitempty"`
}

// CommentMessage, canlı yorum event'i. ID boş gelebilir.
type CommentMessage struct {
	MemeID            string    `json:"memeId"`
	ID                string    `json:"id,omitempty"`
	UserID            string    `json:"userId,omitempty"`
	Username          string    `json:"username"`
	Text              string    `json:"text"`
	CreatedAt         Timestamp `json:"createdAt"`
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty"`
}

// FollowMessage, follow / unfollow. Giden istekte follower alanları mevcut kullanıcıdır.
type FollowMessage struct {
	FollowerID        string `json:"followerId,omitempty"`
	FollowerUsername  string `json:"followerUsername,omitempty"`
	FollowingUserID   string `json:"followingUserId"`
	FollowingUsername string `json:"followingUsername,omitempty"`
	IsFollowing       bool   `json:"isFollowing"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	FollowersCount    *int   `json:"followersCount,omitempty"`
}

// NotificationMessage, sunucunun push ettiği bildirim.
//
// "type" alanı envelope discriminant'ı olduğu için bildirim tipi
// "notificationType" alanında gelir; yoksa system kabul edilir.
type NotificationMessage struct {
	ID                      string    `json:"id,omitempty"`
	NotificationType        string    `json:"notificationType,omitempty"`
	Message                 string    `json:"message"`
	CreatedAt               Timestamp `json:"createdAt"`
	UserID                  string    `json:"userId,omitempty"`
	TargetID                string    `json:"targetId,omitempty"`
	SourceUserID            string    `json:"sourceUserId,omitempty"`
	SourceUsername          string    `json:"sourceUsername,omitempty"`
	SourceProfilePictureURL string    `json:"sourceProfilePictureUrl,omitempty"`
}

func (PingMessage) Type() MessageType         { return TypePing }
func (PongMessage) Type() MessageType         { return TypePong }
func (JoinPostMessage) Type() MessageType     { return TypeJoinPost }
func (LeavePostMessage) Type() MessageType    { return TypeLeavePost }
func (LikeMessage) Type() MessageType         { return TypeLike }
func (SaveMessage) Type() MessageType         { return TypeSave }
func (CommentMessage) Type() MessageType      { return TypeComment }
func (FollowMessage) Type() MessageType       { return TypeFollow }
func (NotificationMessage) Type() MessageType { return TypeNotification }

func (PingMessage) sealed()         {}
func (PongMessage) sealed()         {}
func (JoinPostMessage) sealed()     {}
func (LeavePostMessage) sealed()    {}
func (LikeMessage) sealed()         {}
func (SaveMessage) sealed()         {}
func (CommentMessage) sealed()      {}
func (FollowMessage) sealed()       {}
func (NotificationMessage) sealed() {}

// Liked, event "beğenildi" sonucunu mu bildiriyor?
func (m LikeMessage) Liked() bool { return strings.EqualFold(m.Action, ActionLike) }

// Saved, event "kaydedildi" sonucunu mu bildiriyor?
func (m SaveMessage) Saved() bool { return strings.EqualFold(m.Action, ActionSave) }

// ─── Codec ───

// envelope, sadece discriminant'ı okumak için kullanılır.
type envelope struct {
	Type MessageType `json:"type"`
}

// DecodeMessage, ham JSON frame'i concrete mesaj tipine çevirir.
// Bilinmeyen type tag'i için ErrUnknownMessage döner.
func DecodeMessage(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch MessageType(strings.ToUpper(string(env.Type))) {
	case TypePing:
		return PingMessage{}, nil
	case TypePong:
		return PongMessage{}, nil
	case TypeJoinPost:
		return decodeAs[JoinPostMessage](raw)
	case TypeLeavePost:
		return decodeAs[LeavePostMessage](raw)
	case TypeLike:
		return decodeAs[LikeMessage](raw)
	case TypeSave:
		return decodeAs[SaveMessage](raw)
	case TypeComment:
		return decodeAs[CommentMessage](raw)
	case TypeFollow:
		return decodeAs[FollowMessage](raw)
	case TypeNotification:
		return decodeAs[NotificationMessage](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func decodeAs[M Message](raw []byte) (Message, error) {
	var m M
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", m.Type(), err)
	}
	return m, nil
}

// EncodeMessage, mesajı wire formatına çevirir: payload alanları + "type".
// Çıktı key sırası sabittir (map marshal'ı key'leri sıralar), dedup fingerprint'i olarak kullanılabilir.
func EncodeMessage(msg Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.Type(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.Type(), err)
	}
	tag, _ := json.Marshal(msg.Type())
	fields["type"] = tag

	return json.Marshal(fields)
}

// ─── Timestamp ───

// Timestamp, sunucunun farklı sürümlerinin gönderdiği zaman formatlarını kabul eder:
// RFC3339 string, epoch milisaniye (number veya string) ya da boş/null.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
