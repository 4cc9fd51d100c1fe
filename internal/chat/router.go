package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ChristianSeip/SimpleChat-Server/internal/auth"
	"github.com/ChristianSeip/SimpleChat-Server/internal/proto"
)

// User-facing dialog texts.
const (
	msgIncompleteForm  = "The form is incomplete."
	msgInvalidName     = "The requested name is invalid or already taken."
	msgInvalidPassword = "The requested password does not match the specifications."
	msgInvalidAge      = "The age specified is invalid."
	msgInvalidMail     = "The mail address specified is invalid."
	msgLoginFailed     = "Login failed. Please check your username and password."
	msgUnexpected      = "An unexpected error has occurred. Please refresh the page and try again."
)

// Session is the per-connection context the router threads through every
// dispatched event: the raw connection handle plus the authenticated
// identity, if any. A connection moves Unauthenticated -> Joined -> Closed;
// closing is terminal.
type Session struct {
	Conn Conn

	// UUID is set once the connection has joined the channel and cleared
	// again on logout.
	UUID string
}

// NewSession wraps a fresh, unauthenticated connection.
func NewSession(conn Conn) *Session {
	return &Session{Conn: conn}
}

// Router is the event state machine: it decodes nothing itself beyond the
// envelope, gates membership-affecting events through the credential gate,
// updates the channel and fans events out.
type Router struct {
	auth    *auth.Service
	channel *Channel
	log     *zerolog.Logger
}

// NewRouter builds the router operating on the given gate and channel.
func NewRouter(authService *auth.Service, channel *Channel, logger *zerolog.Logger) *Router {
	return &Router{
		auth:    authService,
		channel: channel,
		log:     logger,
	}
}

// Channel exposes the routed channel, mainly for tests and wiring.
func (r *Router) Channel() *Channel {
	return r.channel
}

// Dispatch processes one inbound frame from a connection. Malformed frames
// and unknown events are logged and ignored; no failure of a single frame
// may affect other connections or the process.
func (r *Router) Dispatch(ctx context.Context, sess *Session, frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Any("panic", rec).Msg("recovered from frame handler panic")
		}
	}()

	var in proto.Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		r.log.Debug().Err(err).Msg("invalid incoming frame")
		return
	}
	if in.Event == "" {
		r.log.Debug().Msg("frame without event discriminator")
		return
	}

	switch in.Event {
	case proto.EventNewUser:
		r.handleNewUser(ctx, sess, in.Data)
	case proto.EventLogin:
		r.handleLogin(ctx, sess, in.Data)
	case proto.EventNameAvailabilityCheck:
		r.handleNameCheck(ctx, sess, in.Data)
	case proto.EventJoinChannel:
		r.handleJoin(ctx, sess, in.Data)
	case proto.EventSendMessage:
		r.handleSendMessage(ctx, sess, in.Data)
	case proto.EventLogout:
		r.handleLogout(ctx, sess, in.Data)
	case proto.EventGetProfile:
		r.handleGetProfile(ctx, sess, in.Data)
	default:
		r.log.Debug().Str("event", in.Event).Msg("ignoring unknown event")
	}
}

func (r *Router) handleNewUser(ctx context.Context, sess *Session, data json.RawMessage) {
	var req proto.NewUserData
	if err := json.Unmarshal(data, &req); err != nil {
		r.log.Debug().Err(err).Msg("invalid NewUser payload")
		return
	}
	if req.Username == nil || req.Password == nil || req.Age == nil {
		r.dialog(sess, msgIncompleteForm)
		return
	}

	_, err := r.auth.Register(ctx, auth.RegisterInput{
		Username: *req.Username,
		Password: *req.Password,
		Age:      *req.Age,
		Mail:     req.Mail,
	})
	switch {
	case err == nil:
		r.reply(sess, proto.EventNewUser, proto.NewUserReply{Success: true})
	case errors.Is(err, auth.ErrInvalidName):
		r.dialog(sess, msgInvalidName)
	case errors.Is(err, auth.ErrInvalidPassword):
		r.dialog(sess, msgInvalidPassword)
	case errors.Is(err, auth.ErrInvalidAge):
		r.dialog(sess, msgInvalidAge)
	case errors.Is(err, auth.ErrInvalidMail):
		r.dialog(sess, msgInvalidMail)
	default:
		r.log.Error().Err(err).Msg("registration failed")
		r.dialog(sess, msgUnexpected)
	}
}

func (r *Router) handleLogin(ctx context.Context, sess *Session, data json.RawMessage) {
	var req proto.LoginData
	if err := json.Unmarshal(data, &req); err != nil {
		r.log.Debug().Err(err).Msg("invalid Login payload")
		return
	}

	res, err := r.auth.Login(ctx, req.ID, req.Key, req.KeyType)
	switch {
	case err == nil:
		r.reply(sess, proto.EventLogin, proto.LoginReply{
			Success: true,
			UUID:    res.Account.UUID,
			SID:     res.Token,
			Expire:  res.Expiry.UnixMilli(),
		})
	case errors.Is(err, auth.ErrRejected):
		r.dialog(sess, msgLoginFailed)
	default:
		r.log.Error().Err(err).Msg("login failed")
		r.dialog(sess, msgUnexpected)
	}
}

func (r *Router) handleNameCheck(ctx context.Context, sess *Session, data json.RawMessage) {
	var req proto.NameAvailabilityData
	if err := json.Unmarshal(data, &req); err != nil {
		r.log.Debug().Err(err).Msg("invalid NameAvailabilityCheck payload")
		return
	}

	available, err := r.auth.NameAvailable(ctx, req.Username)
	if err != nil {
		r.log.Error().Err(err).Msg("name availability lookup failed")
		available = false
	}
	r.reply(sess, proto.EventNameAvailabilityCheck, proto.NameAvailabilityReply{Success: available})
}

// handleJoin admits the identity into the channel. A failed credential check
// terminates the connection; join is the one event with the strict policy.
func (r *Router) handleJoin(ctx context.Context, sess *Session, data json.RawMessage) {
	var req proto.AuthData
	if err := json.Unmarshal(data, &req); err != nil {
		r.log.Debug().Err(err).Msg("invalid JoinChannel payload")
		return
	}

	acct, err := r.auth.Authenticate(ctx, req.UUID, req.SID)
	if err != nil {
		r.log.Debug().Str("uuid", req.UUID).Msg("join rejected, terminating connection")
		_ = sess.Conn.Close()
		return
	}

	r.channel.Admit(acct.UUID, acct.Username, acct.Age, sess.Conn)
	sess.UUID = acct.UUID

	r.channel.Publish(proto.EventUserJoined, proto.UserJoinedData{UUID: acct.UUID, Username: acct.Username})
	r.channel.Publish(proto.EventSystemMessage, proto.SystemMessageData{Msg: acct.Username + " has joined."})

	users := lo.Map(r.channel.Snapshot(), func(m MemberInfo, _ int) proto.ChatUser {
		return proto.ChatUser{
			UUID:         m.UUID,
			Username:     m.Username,
			Age:          m.Age,
			LastActivity: m.LastActivity.UnixMilli(),
		}
	})
	r.reply(sess, proto.EventInitChat, proto.InitChatData{ChannelName: r.channel.Name(), Users: users})
}

// handleSendMessage relays a chat message to all members. Empty messages,
// failed credentials and non-members are dropped silently.
func (r *Router) handleSendMessage(ctx context.Context, sess *Session, data json.RawMessage) {
	var req proto.SendMessageData
	if err := json.Unmarshal(data, &req); err != nil {
		r.log.Debug().Err(err).Msg("invalid SendMessage payload")
		return
	}
	if req.Msg == "" {
		return
	}

	acct, err := r.auth.Authenticate(ctx, req.UUID, req.SID)
	if err != nil {
		r.log.Debug().Str("uuid", req.UUID).Msg("dropping message with rejected credentials")
		return
	}
	if !r.channel.Touch(acct.UUID) {
		r.log.Debug().Str("uuid", acct.UUID).Msg("dropping message from non-member")
		return
	}

	r.channel.Publish(proto.EventMessageReceived, proto.MessageReceivedData{
		Sender:    proto.Sender{UUID: acct.UUID, Username: acct.Username},
		Msg:       req.Msg,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (r *Router) handleLogout(ctx context.Context, sess *Session, data json.RawMessage) {
	var req proto.AuthData
	if err := json.Unmarshal(data, &req); err != nil {
		r.log.Debug().Err(err).Msg("invalid Logout payload")
		return
	}

	acct, err := r.auth.Authenticate(ctx, req.UUID, req.SID)
	if err != nil {
		r.log.Debug().Str("uuid", req.UUID).Msg("dropping logout with rejected credentials")
		return
	}

	wasMember := r.channel.Remove(acct.UUID)
	if err := r.auth.InvalidateSession(ctx, acct.UUID); err != nil {
		r.log.Error().Err(err).Str("uuid", acct.UUID).Msg("invalidate session on logout")
	}
	sess.UUID = ""

	if wasMember {
		r.channel.Publish(proto.EventSystemMessage, proto.SystemMessageData{Msg: acct.Username + " left."})
		r.channel.Publish(proto.EventUserLeft, proto.UserLeftData{UUID: acct.UUID})
	}
}

func (r *Router) handleGetProfile(ctx context.Context, sess *Session, data json.RawMessage) {
	var req proto.AuthData
	if err := json.Unmarshal(data, &req); err != nil {
		r.log.Debug().Err(err).Msg("invalid GetProfile payload")
		return
	}

	acct, err := r.auth.Authenticate(ctx, req.UUID, req.SID)
	if err != nil {
		r.log.Debug().Str("uuid", req.UUID).Msg("dropping profile request with rejected credentials")
		return
	}

	r.reply(sess, proto.EventGetProfile, proto.ProfileData{
		UUID:     acct.UUID,
		Username: acct.Username,
		Age:      acct.Age,
		Mail:     acct.Mail,
	})
}

// reply unicasts one frame to the originating connection. A failed reply is
// a per-recipient condition, recovered by the reaper.
func (r *Router) reply(sess *Session, event string, data any) {
	payload, err := json.Marshal(proto.Outbound{Event: event, Data: data})
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("encode reply")
		return
	}
	if err := sess.Conn.Send(payload); err != nil {
		r.log.Debug().Err(err).Str("event", event).Msg("reply not delivered")
	}
}

func (r *Router) dialog(sess *Session, msg string) {
	r.reply(sess, proto.EventDialog, proto.DialogData{Success: false, Msg: msg})
}
