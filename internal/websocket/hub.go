package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/services"
	websocket "github.com/gofiber/contrib/websocket"
)

type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte

	// dropped is set once writeError unregisters the client; the hub closes
	// the send channel after that, so the pump must never touch it again.
	// Only the read pump goroutine reads or writes this.
	dropped bool
}

type sender interface {
	SendMessage(
		ctx context.Context,
		actorID int64,
		role string,
		sessionID int64,
		input services.SendMessageInput,
	) (*services.ChatDelivery, error)
}

// Message is the wire frame. ClientRef is whatever opaque reference the
// sender attached to its optimistic copy; it is echoed on the confirm frame
// and on error frames so the client can reconcile pending state.
type Message struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	SenderID    string `json:"sender_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Content     string `json:"content"`
	FileURL     string `json:"file_url,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	ClientRef   string `json:"client_ref,omitempty"`
	Timestamp   string `json:"timestamp"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Push lets the HTTP send path fan a stored message out to both parties.
func (h *Hub) Push(delivery *services.ChatDelivery) {
	h.broadcast <- deliveryFrame(delivery, "")
}

func (h *Hub) deliver(message *Message) {
	encoded, err := json.Marshal(message)
	if err != nil {
		log.Printf("chat hub encode message: %v", err)
		return
	}

	// The sender gets the frame too; the echoed client_ref is what flips its
	// optimistic copy from pending to confirmed.
	h.sendToUser(message.SenderID, encoded)
	if message.RecipientID != "" && message.RecipientID != message.SenderID {
		h.sendToUser(message.RecipientID, encoded)
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

func (c *Client) ReadPump(service sender, role string) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	actorID, err := strconv.ParseInt(c.userID, 10, 64)
	if err != nil {
		c.writeError("invalid user", "")
		return
	}

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type      string `json:"type"`
			SessionID string `json:"session_id"`
			Kind      string `json:"kind"`
			Content   string `json:"content"`
			FileURL   string `json:"file_url"`
			FileName  string `json:"file_name"`
			ClientRef string `json:"client_ref"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			if !c.writeError("invalid message payload", "") {
				return
			}
			continue
		}
		if incoming.Type != "message" {
			if !c.writeError("unsupported message type", incoming.ClientRef) {
				return
			}
			continue
		}

		sessionID, err := strconv.ParseInt(incoming.SessionID, 10, 64)
		if err != nil || sessionID <= 0 {
			if !c.writeError("invalid session id", incoming.ClientRef) {
				return
			}
			continue
		}

		input := services.SendMessageInput{
			Kind:    incoming.Kind,
			Content: incoming.Content,
		}
		if incoming.FileURL != "" {
			input.FileURL = &incoming.FileURL
		}
		if incoming.FileName != "" {
			input.FileName = &incoming.FileName
		}

		delivery, err := service.SendMessage(context.Background(), actorID, role, sessionID, input)
		if err != nil {
			if !c.writeError(sendFailureReason(err), incoming.ClientRef) {
				return
			}
			continue
		}

		c.hub.broadcast <- deliveryFrame(delivery, incoming.ClientRef)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// writeError queues an error frame for the client. It reports false once the
// client has been dropped for not draining its buffer; the caller must stop
// the pump then.
func (c *Client) writeError(message, clientRef string) bool {
	if c.dropped {
		return false
	}
	payload, err := json.Marshal(Message{
		Type:      "error",
		Content:   message,
		ClientRef: clientRef,
		Timestamp: services.FormatChatTimestamp(time.Now().UTC()),
	})
	if err != nil {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.dropped = true
		c.hub.Unregister(c)
		return false
	}
}

func deliveryFrame(delivery *services.ChatDelivery, clientRef string) *Message {
	frame := &Message{
		Type:        "message",
		SessionID:   strconv.FormatInt(delivery.Message.SessionID, 10),
		MessageID:   strconv.FormatInt(delivery.Message.ID, 10),
		SenderID:    strconv.FormatInt(delivery.Message.SenderID, 10),
		RecipientID: strconv.FormatInt(delivery.RecipientID, 10),
		Kind:        delivery.Message.Kind,
		Content:     delivery.Message.Content,
		ClientRef:   clientRef,
		Timestamp:   services.FormatChatTimestamp(delivery.Message.CreatedAt),
	}
	if delivery.Message.FileURL != nil {
		frame.FileURL = *delivery.Message.FileURL
	}
	if delivery.Message.FileName != nil {
		frame.FileName = *delivery.Message.FileName
	}
	return frame
}

func sendFailureReason(err error) string {
	switch {
	case errors.Is(err, services.ErrChannelLocked):
		return "channel locked"
	case errors.Is(err, services.ErrPaymentRequired):
		return "payment required"
	case errors.Is(err, services.ErrForbidden):
		return "forbidden"
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid message"
	default:
		return "failed to send message"
	}
}
