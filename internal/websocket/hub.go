package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dresperanto/studio-flora/pkg/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The shop dashboard runs on a different origin in development;
		// lock this down when the dashboard origin is fixed.
		return true
	},
}

const (
	EventOrderCreated  = "order_created"
	EventStatusChanged = "order_status_changed"
)

// Notification is what dashboard clients receive for every order event.
type Notification struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// orderSummary is the trimmed order view pushed to the dashboard; the full
// record stays behind the orders API.
type orderSummary struct {
	ID                 string    `json:"id"`
	OrderNumber        string    `json:"orderNumber"`
	CustomerName       string    `json:"customerName"`
	Occasion           string    `json:"occasion"`
	DeliveryType       string    `json:"deliveryType"`
	PickupDeliveryDate time.Time `json:"pickupDeliveryDate"`
	TotalAmount        float64   `json:"totalAmount"`
	Status             string    `json:"status"`
}

type statusChange struct {
	ID          string `json:"id"`
	OrderNumber string `json:"orderNumber"`
	From        string `json:"from"`
	To          string `json:"to"`
}

type Client struct {
	conn   *websocket.Conn
	send   chan Notification
	hub    *Hub
	logger *logrus.Logger
}

// Hub fans order notifications out to connected dashboard clients. Slow
// clients are dropped rather than allowed to stall the feed.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Notification
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	logger     *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Notification, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.logger.WithField("client_count", h.GetClientCount()).Info("Dashboard client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			h.logger.WithField("client_count", h.GetClientCount()).Info("Dashboard client disconnected")

		case notification := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- notification:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastOrderCreated pushes a new-order summary to every dashboard.
func (h *Hub) BroadcastOrderCreated(order *models.Order) {
	h.send(Notification{
		Type: EventOrderCreated,
		Data: orderSummary{
			ID:                 order.ID,
			OrderNumber:        order.OrderNumber,
			CustomerName:       order.Customer.FirstName + " " + order.Customer.LastName,
			Occasion:           order.Occasion,
			DeliveryType:       order.DeliveryType,
			PickupDeliveryDate: order.PickupDeliveryDate,
			TotalAmount:        order.TotalAmount,
			Status:             order.Status,
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// BroadcastStatusChanged pushes a lifecycle transition to every dashboard.
func (h *Hub) BroadcastStatusChanged(order *models.Order, from, to string) {
	h.send(Notification{
		Type: EventStatusChanged,
		Data: statusChange{
			ID:          order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          to,
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (h *Hub) send(notification Notification) {
	select {
	case h.broadcast <- notification:
	default:
		h.logger.Warn("Broadcast channel full, dropping notification")
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan Notification, 256),
		hub:    h,
		logger: h.logger,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Dashboards only listen; reads exist to notice disconnects and pongs.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Error("WebSocket error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case notification, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(notification)
			if err != nil {
				c.logger.WithError(err).Error("Failed to marshal notification")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
