package publicchat

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Wire event types. Client->server events decode into one variant each;
// anything else is rejected at the boundary.
const (
	EventJoin         = "join"
	EventHistory      = "history"
	EventChat         = "chat"
	EventReact        = "react"
	EventSeen         = "seen"
	EventMe           = "me"
	EventOnlineUsers  = "online-users"
	EventChatUpdate   = "chat-update"
	EventStatusUpdate = "status-update"
	EventReject       = "reject"
)

// ErrUnknownEvent marks a frame whose type tag matches no known variant.
type ErrUnknownEvent struct {
	Type string
}

func (e *ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// Client -> server payloads.

type JoinEvent struct {
	Room string `json:"room"`
}

type HistoryEvent struct {
	Room     string `json:"room"`
	BeforeID string `json:"beforeId"`
}

type ChatEvent struct {
	Room string `json:"room"`
	Text string `json:"text" validate:"required"`
}

type ReactEvent struct {
	Room  string `json:"room"`
	MsgID string `json:"msgId" validate:"required"`
	Emoji string `json:"emoji" validate:"required,max=10"`
}

type SeenEvent struct {
	Room  string `json:"room"`
	MsgID string `json:"msgId" validate:"required"`
}

// Server -> client payloads.

type MeEvent struct {
	Type     string `json:"type"`
	Identity string `json:"identity"`
}

type OnlineUsersEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type HistoryPageEvent struct {
	Type     string    `json:"type"`
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

type ChatBroadcastEvent struct {
	Type string  `json:"type"`
	Room string  `json:"room"`
	Msg  Message `json:"msg"`
}

type StatusUpdateEvent struct {
	Type  string `json:"type"`
	MsgID string `json:"msgId"`
	State Status `json:"state"`
}

// RejectEvent tells the sender why a submission was dropped so optimistic UI
// state can be rolled back.
type RejectEvent struct {
	Type   string `json:"type"`
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeClientEvent parses an inbound frame into its typed variant. Unknown
// type tags return *ErrUnknownEvent; malformed payloads return a decode or
// validation error. The caller discards the frame either way.
func DecodeClientEvent(data []byte) (any, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var ev any
	switch env.Type {
	case EventJoin:
		ev = &JoinEvent{}
	case EventHistory:
		ev = &HistoryEvent{}
	case EventChat:
		ev = &ChatEvent{}
	case EventReact:
		ev = &ReactEvent{}
	case EventSeen:
		ev = &SeenEvent{}
	default:
		return nil, &ErrUnknownEvent{Type: env.Type}
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("validate %s: %w", env.Type, err)
	}
	return ev, nil
}

// DecodeServerEvent parses a server frame on the client side.
func DecodeServerEvent(data []byte) (any, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var ev any
	switch env.Type {
	case EventMe:
		ev = &MeEvent{}
	case EventOnlineUsers:
		ev = &OnlineUsersEvent{}
	case EventHistory:
		ev = &HistoryPageEvent{}
	case EventChat, EventChatUpdate:
		ev = &ChatBroadcastEvent{}
	case EventStatusUpdate:
		ev = &StatusUpdateEvent{}
	case EventReject:
		ev = &RejectEvent{}
	default:
		return nil, &ErrUnknownEvent{Type: env.Type}
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return ev, nil
}

func encodeMe(identity string) []byte {
	b, _ := json.Marshal(MeEvent{Type: EventMe, Identity: identity})
	return b
}

func encodeOnlineUsers(count int) []byte {
	b, _ := json.Marshal(OnlineUsersEvent{Type: EventOnlineUsers, Count: count})
	return b
}

func encodeHistoryPage(room string, msgs []Message) []byte {
	if msgs == nil {
		msgs = []Message{}
	}
	b, _ := json.Marshal(HistoryPageEvent{Type: EventHistory, Room: room, Messages: msgs})
	return b
}

func encodeChat(room string, msg Message) []byte {
	b, _ := json.Marshal(ChatBroadcastEvent{Type: EventChat, Room: room, Msg: msg})
	return b
}

func encodeChatUpdate(room string, msg Message) []byte {
	b, _ := json.Marshal(ChatBroadcastEvent{Type: EventChatUpdate, Room: room, Msg: msg})
	return b
}

func encodeStatusUpdate(msgID string, state Status) []byte {
	b, _ := json.Marshal(StatusUpdateEvent{Type: EventStatusUpdate, MsgID: msgID, State: state})
	return b
}

func encodeReject(op, reason string) []byte {
	b, _ := json.Marshal(RejectEvent{Type: EventReject, Op: op, Reason: reason})
	return b
}
