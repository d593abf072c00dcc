package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"crypto-desk/src/interfaces"
	"crypto-desk/src/logger"
	"crypto-desk/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait         = 2 * time.Second
	heartbeatPeriod   = 25 * time.Second
	reconnectBaseWait = 2 * time.Second
	maxReconnectWait  = 60 * time.Second
)

// -----------------------------------------------------------------------------
// Wire Structures (phoenix-style channel protocol)
// -----------------------------------------------------------------------------

type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// changePayload is the row-change body carried by INSERT/UPDATE/DELETE events.
type changePayload struct {
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

// -----------------------------------------------------------------------------

// RealtimeClient maintains one websocket connection to the backend's
// change-notification endpoint and fans events out to table subscriptions.
// A dropped connection is redialed with backoff and all topics rejoined.
type RealtimeClient struct {
	Config *models.MConfig
	Logger *logger.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[string]map[int]func(models.MChangeEvent) // topic -> sub id -> callback
	nextID int
	closed bool

	refCounter atomic.Int64
}

// -----------------------------------------------------------------------------

func NewRealtimeClient(cfg *models.MConfig) *RealtimeClient {
	return &RealtimeClient{
		Config: cfg,
		Logger: logger.NewLogger(cfg, "RealtimeClient"),
		subs:   make(map[string]map[int]func(models.MChangeEvent)),
	}
}

// -----------------------------------------------------------------------------

// endpoint converts the backend's http(s) URL into the realtime ws(s) URL.
func (c *RealtimeClient) endpoint() string {
	base := c.Config.Backend.URL
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return fmt.Sprintf("%s/realtime/v1/websocket?apikey=%s&vsn=1.0.0", base, c.Config.Backend.AnonKey)
}

// -----------------------------------------------------------------------------

// topicFor maps a table name to its channel topic.
func topicFor(table string) string {
	return "realtime:public:" + table
}

// -----------------------------------------------------------------------------

// Connect dials the endpoint and starts the read and heartbeat loops.
func (c *RealtimeClient) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.endpoint(), nil)
	if err != nil {
		return fmt.Errorf("realtime dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readPump(conn)
	go c.heartbeatLoop(conn)

	c.Logger.Info("Realtime connection established")
	return nil
}

// -----------------------------------------------------------------------------

// Subscribe registers a callback for any row-level change to the table. The
// topic is joined on first subscription. The returned handle removes the
// callback deterministically; no events are dispatched after Unsubscribe.
func (c *RealtimeClient) Subscribe(table string, fn func(models.MChangeEvent)) (interfaces.ISubscription, error) {
	topic := topicFor(table)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("realtime client is closed")
	}

	firstForTopic := len(c.subs[topic]) == 0
	if c.subs[topic] == nil {
		c.subs[topic] = make(map[int]func(models.MChangeEvent))
	}
	c.nextID++
	id := c.nextID
	c.subs[topic][id] = fn
	conn := c.conn
	c.mu.Unlock()

	if firstForTopic && conn != nil {
		if err := c.join(conn, topic); err != nil {
			c.removeSub(topic, id)
			return nil, err
		}
	}

	c.Logger.Info("Subscribed to %s", topic)
	return &Subscription{client: c, topic: topic, id: id}, nil
}

// -----------------------------------------------------------------------------

// Close terminates the connection and drops all subscriptions.
func (c *RealtimeClient) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.subs = make(map[string]map[int]func(models.MChangeEvent))
	if conn != nil {
		// Written under the lock so it cannot interleave with a heartbeat.
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage, []byte{})
	}
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (c *RealtimeClient) removeSub(topic string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if subs, ok := c.subs[topic]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(c.subs, topic)
		}
	}
}

// -----------------------------------------------------------------------------

// join sends the channel join frame for a topic.
func (c *RealtimeClient) join(conn *websocket.Conn, topic string) error {
	return c.send(conn, phoenixMessage{
		Topic:   topic,
		Event:   "phx_join",
		Payload: json.RawMessage(`{}`),
		Ref:     c.nextRef(),
	})
}

// -----------------------------------------------------------------------------

func (c *RealtimeClient) nextRef() string {
	return strconv.FormatInt(c.refCounter.Add(1), 10)
}

// -----------------------------------------------------------------------------

func (c *RealtimeClient) send(conn *websocket.Conn, msg phoenixMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// -----------------------------------------------------------------------------
// readPump - dispatches row-change events to subscriptions.
// Acts as the watchdog for the connection.
// -----------------------------------------------------------------------------

func (c *RealtimeClient) readPump(conn *websocket.Conn) {
	defer conn.Close()

	for {
		var msg phoenixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Logger.Warning("Realtime read error: %v", err)
			}
			c.maybeReconnect(conn)
			return
		}

		switch msg.Event {
		case models.ChangeInsert, models.ChangeUpdate, models.ChangeDelete:
			c.dispatch(msg)
		case "phx_reply", "phx_close", "presence_state":
			// Channel bookkeeping, nothing to do.
		}
	}
}

// -----------------------------------------------------------------------------

// dispatch fans a change event out to every callback on its topic.
func (c *RealtimeClient) dispatch(msg phoenixMessage) {
	var payload changePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.Logger.Warning("Bad change payload on %s: %v", msg.Topic, err)
		return
	}

	event := models.MChangeEvent{
		Table:  payload.Table,
		Type:   msg.Event,
		Record: payload.Record,
	}
	if event.Table == "" {
		event.Table = strings.TrimPrefix(msg.Topic, "realtime:public:")
	}

	c.mu.Lock()
	callbacks := make([]func(models.MChangeEvent), 0, len(c.subs[msg.Topic]))
	for _, fn := range c.subs[msg.Topic] {
		callbacks = append(callbacks, fn)
	}
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(event)
	}
}

// -----------------------------------------------------------------------------

// heartbeatLoop keeps the channel connection alive.
func (c *RealtimeClient) heartbeatLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatPeriod)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		current := c.conn
		c.mu.Unlock()
		if current != conn {
			return // connection was replaced or closed
		}

		if err := c.send(conn, phoenixMessage{
			Topic:   "phoenix",
			Event:   "heartbeat",
			Payload: json.RawMessage(`{}`),
			Ref:     c.nextRef(),
		}); err != nil {
			c.Logger.Warning("Heartbeat failed: %v", err)
			return
		}
	}
}

// -----------------------------------------------------------------------------

// maybeReconnect redials after a dropped connection and rejoins every topic
// that still has subscribers.
func (c *RealtimeClient) maybeReconnect(old *websocket.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != old {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	wait := reconnectBaseWait
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		time.Sleep(wait)
		if wait < maxReconnectWait {
			wait *= 2
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.endpoint(), nil)
		if err != nil {
			c.Logger.Warning("Realtime reconnect failed: %v", err)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		topics := make([]string, 0, len(c.subs))
		for topic := range c.subs {
			topics = append(topics, topic)
		}
		c.mu.Unlock()

		for _, topic := range topics {
			if err := c.join(conn, topic); err != nil {
				c.Logger.Warning("Rejoin %s failed: %v", topic, err)
			}
		}

		go c.readPump(conn)
		go c.heartbeatLoop(conn)

		c.Logger.Info("Realtime connection re-established")
		return
	}
}

// -----------------------------------------------------------------------------
// Subscription Handle
// -----------------------------------------------------------------------------

type Subscription struct {
	client *RealtimeClient
	topic  string
	id     int
	once   sync.Once
}

// Unsubscribe removes the callback from its topic.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.removeSub(s.topic, s.id)
		s.client.Logger.Info("Unsubscribed from %s", s.topic)
	})
}
