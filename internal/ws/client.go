package ws

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/homedeliver/api/internal/auth"
	"github.com/homedeliver/api/internal/enum"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Access is checked against the JWT before upgrading.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one vendor dashboard subscribed to a vendor's order feed.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	vendorID uuid.UUID
	send     chan []byte
}

// readPump only watches for disconnects; dashboards never send anything
// the server acts on.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: websocket vendor %s: %v", c.vendorID, err)
			}
			return
		}
	}
}

// writePump delivers queued events, newline-separated when several are
// pending, and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.flush(message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) flush(first []byte) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)
	for pending := len(c.send); pending > 0; pending-- {
		w.Write([]byte{'\n'})
		w.Write(<-c.send)
	}
	return w.Close()
}

var (
	errMissingToken  = errors.New("missing token")
	errInvalidToken  = errors.New("invalid token")
	errInvalidVendor = errors.New("invalid vendor id")
	errAccessDenied  = errors.New("vendor access denied")
)

// authorize resolves the vendor a request may subscribe to, with the HTTP
// status to reject it with otherwise.
func authorize(jwtSecret string, r *http.Request) (uuid.UUID, int, error) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		return uuid.Nil, http.StatusUnauthorized, errMissingToken
	}
	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		return uuid.Nil, http.StatusUnauthorized, errInvalidToken
	}
	vendorID, err := uuid.Parse(chi.URLParam(r, "vid"))
	if err != nil {
		return uuid.Nil, http.StatusBadRequest, errInvalidVendor
	}
	if !CanWatch(claims, vendorID) {
		return uuid.Nil, http.StatusForbidden, errAccessDenied
	}
	return vendorID, http.StatusOK, nil
}

// ServeWS subscribes a dashboard to a vendor's placed-order feed.
// Endpoint: WS /ws/vendors/{vid}/orders?token=JWT
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	vendorID, status, err := authorize(jwtSecret, r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: websocket upgrade: %v", err)
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		vendorID: vendorID,
		send:     make(chan []byte, sendBuffer),
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// CanWatch reports whether the token holder may subscribe to a vendor's feed.
// ADMIN watches any vendor; VENDOR staff only their own.
func CanWatch(claims *auth.Claims, vendorID uuid.UUID) bool {
	switch claims.Role {
	case enum.UserRoleAdmin:
		return true
	case enum.UserRoleVendor:
		return claims.VendorID == vendorID
	}
	return false
}
