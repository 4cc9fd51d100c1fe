package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client. Every frame
// carries a top-level event discriminator and an event-specific payload.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Inbound event names.
const (
	EventNewUser               = "NewUser"
	EventLogin                 = "Login"
	EventNameAvailabilityCheck = "NameAvailabilityCheck"
	EventJoinChannel           = "JoinChannel"
	EventSendMessage           = "SendMessage"
	EventLogout                = "Logout"
	EventGetProfile            = "GetProfile"
)

// Outbound event names.
const (
	EventDialog          = "Dialog"
	EventInitChat        = "InitChat"
	EventUserJoined      = "UserJoined"
	EventUserLeft        = "UserLeft"
	EventMessageReceived = "MessageReceived"
	// EventSystemMessage is the wire name for system broadcasts.
	EventSystemMessage = "PublicSystemMessage"
)

// NewUserData is the registration request. Pointer fields distinguish an
// absent field from a zero value; an incomplete form is a distinct failure.
type NewUserData struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Age      *int    `json:"age"`
	Mail     string  `json:"mail,omitempty"`
}

// LoginData requests a new interactive session. ID is a username when
// KeyType is "password" and an identity UUID when KeyType is "session".
type LoginData struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	KeyType string `json:"keyType"`
}

// NameAvailabilityData queries whether a username can still be registered.
type NameAvailabilityData struct {
	Username string `json:"username"`
}

// AuthData carries the credentials for membership-affecting events
// (JoinChannel, Logout, GetProfile).
type AuthData struct {
	UUID string `json:"uuid"`
	SID  string `json:"sid"`
}

// SendMessageData carries credentials plus the chat message.
type SendMessageData struct {
	UUID string `json:"uuid"`
	SID  string `json:"sid"`
	Msg  string `json:"msg"`
}

// DialogData is the generic success/failure reply shown to the user.
type DialogData struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
}

// NewUserReply confirms a successful registration.
type NewUserReply struct {
	Success bool `json:"success"`
}

// LoginReply carries the freshly rotated session credential.
// Expire is unix milliseconds and advisory for the client.
type LoginReply struct {
	Success bool   `json:"success"`
	UUID    string `json:"uuid"`
	SID     string `json:"sid"`
	Expire  int64  `json:"expire"`
}

// NameAvailabilityReply answers a NameAvailabilityCheck.
type NameAvailabilityReply struct {
	Success bool `json:"success"`
}

// ChatUser is one presence entry in the InitChat snapshot.
type ChatUser struct {
	UUID         string `json:"uuid"`
	Username     string `json:"username"`
	Age          int    `json:"age"`
	LastActivity int64  `json:"lastActivity"`
}

// InitChatData is the unicast reply to a successful JoinChannel.
type InitChatData struct {
	ChannelName string     `json:"channelname"`
	Users       []ChatUser `json:"users"`
}

// UserJoinedData announces a new channel member.
type UserJoinedData struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
}

// UserLeftData announces a departed channel member.
type UserLeftData struct {
	UUID string `json:"uuid"`
}

// Sender identifies the author of a chat message.
type Sender struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
}

// MessageReceivedData is the broadcast payload of a chat message.
// Timestamp is unix milliseconds.
type MessageReceivedData struct {
	Sender    Sender `json:"sender"`
	Msg       string `json:"msg"`
	Timestamp int64  `json:"timestamp"`
}

// SystemMessageData is the payload of a system broadcast.
type SystemMessageData struct {
	Msg string `json:"msg"`
}

// ProfileData is the unicast reply to an authenticated GetProfile.
type ProfileData struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Age      int    `json:"age"`
	Mail     string `json:"mail,omitempty"`
}
