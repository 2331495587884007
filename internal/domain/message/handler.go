package message

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pingline/pingline-api/internal/middleware"
	"github.com/pingline/pingline-api/internal/pkg/jwt"
	"github.com/pingline/pingline-api/internal/pkg/response"
	"github.com/pingline/pingline-api/internal/pkg/upload"
	"github.com/pingline/pingline-api/internal/pkg/validator"
	"github.com/pingline/pingline-api/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Handler handles message HTTP requests and the WebSocket endpoint
type Handler struct {
	service  Service
	jwt      *jwt.Service
	users    UserDirectory
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates new message handler
func NewHandler(service Service, jwtService *jwt.Service, users UserDirectory, hub *realtime.Hub, allowedOrigins []string) *Handler {
	return &Handler{
		service: service,
		jwt:     jwtService,
		users:   users,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// SendMessage handles POST /messages/{userId}
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	senderID := middleware.GetUserID(r.Context())

	receiverID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req SendMessageRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), senderID, receiverID, &req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, msg)
}

// GetMessages handles GET /messages/{userId}
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())

	otherID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	messages, err := h.service.GetMessages(r.Context(), viewerID, otherID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.OK(w, messages)
}

// DeleteMessage handles DELETE /messages/{messageId}?for_everyone=
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	messageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid message ID")
		return
	}

	forEveryone, _ := strconv.ParseBool(r.URL.Query().Get("for_everyone"))

	if err := h.service.DeleteMessage(r.Context(), userID, messageID, forEveryone); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// Partners handles GET /messages/partners
func (h *Handler) Partners(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	partners, err := h.service.Partners(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.OK(w, partners)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, upload.ErrUploadFailed) {
		response.Error(w, http.StatusBadGateway, "UPLOAD_FAILED", "Image upload failed")
		return
	}

	switch err {
	case ErrUserNotFound:
		response.NotFound(w, "User not found")
	case ErrMessageNotFound:
		response.NotFound(w, "Message not found")
	case ErrBlocked:
		response.Forbidden(w, "Messaging is not allowed between these users")
	case ErrNotFriends:
		response.Forbidden(w, "You must be friends to exchange messages")
	case ErrNotParticipant:
		response.Forbidden(w, "You are not a participant of this message")
	case ErrNotSender:
		response.Forbidden(w, "Only the sender can delete a message for everyone")
	case ErrAlreadyDeleted:
		response.Conflict(w, "Message already deleted for everyone")
	case ErrEmptyMessage:
		response.BadRequest(w, "Message must contain text or an image")
	case ErrRateLimited:
		response.TooManyRequests(w)
	default:
		response.InternalError(w)
	}
}

// inboundEvent is the wire format clients send over the WebSocket.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type inboundMessage struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	Text       string    `json:"text"`
	Image      string    `json:"image"`
}

type inboundTyping struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	IsTyping   bool      `json:"is_typing"`
}

// ServeWS handles GET /ws. The credential is taken from the token query
// param, the Authorization header or the auth cookie, in that order; the
// resolved identity is bound to the connection for its lifetime.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		response.Unauthorized(w, "Missing credentials")
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return
	}

	u, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		response.InternalError(w)
		return
	}
	if u == nil {
		response.Unauthorized(w, "Unknown user")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	conn := &realtime.Connection{
		UserID: u.ID,
		Conn:   ws,
		Send:   make(chan []byte, sendBufferSize),
	}
	h.hub.Register(conn)

	go h.writePump(conn)
	go h.readPump(conn)
}

// readPump reads inbound events until the connection dies, then unregisters.
func (h *Handler) readPump(conn *realtime.Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(maxMessageSize)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user_id", conn.UserID.String()).Msg("WebSocket read error")
			}
			return
		}

		h.dispatch(conn, raw)
	}
}

// dispatch handles one inbound event. Unrecognized event names are ignored;
// a denied action produces no events at all.
func (h *Handler) dispatch(conn *realtime.Connection, raw []byte) {
	var evt inboundEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return
	}

	ctx := context.Background()

	switch evt.Event {
	case "sendMessage":
		var in inboundMessage
		if err := json.Unmarshal(evt.Data, &in); err != nil {
			return
		}
		if err := h.service.ForwardMessage(ctx, conn.UserID, in.ReceiverID, in.Text, in.Image); err != nil {
			log.Debug().Err(err).Str("user_id", conn.UserID.String()).Msg("Inbound message rejected")
		}

	case "typing":
		var in inboundTyping
		if err := json.Unmarshal(evt.Data, &in); err != nil {
			return
		}
		if err := h.service.ForwardTyping(ctx, conn.UserID, in.ReceiverID, in.IsTyping); err != nil {
			log.Debug().Err(err).Str("user_id", conn.UserID.String()).Msg("Typing indicator rejected")
		}
	}
}

// writePump drains the send channel and keeps the connection alive with pings.
func (h *Handler) writePump(conn *realtime.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
