package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crypto-desk/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Test Server
// -----------------------------------------------------------------------------

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// changeServer fakes the backend's realtime endpoint: it records the join
// frame, then emits change events on demand.
type changeServer struct {
	srv    *httptest.Server
	joins  chan phoenixMessage
	emit   chan phoenixMessage
	apikey chan string
}

func newChangeServer(t *testing.T) *changeServer {
	cs := &changeServer{
		joins:  make(chan phoenixMessage, 8),
		emit:   make(chan phoenixMessage, 8),
		apikey: make(chan string, 8),
	}

	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.apikey <- r.URL.Query().Get("apikey")

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			for msg := range cs.emit {
				if conn.WriteJSON(msg) != nil {
					return
				}
			}
		}()

		for {
			var msg phoenixMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Event == "phx_join" {
				cs.joins <- msg
			}
		}
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *changeServer) config() *models.MConfig {
	return &models.MConfig{
		Name:     "test",
		Host:     "127.0.0.1",
		Port:     8400,
		LogLevel: "ERROR",
		Backend: models.MBackendConfig{
			URL:     cs.srv.URL, // http://..., rewritten to ws:// by the client
			AnonKey: "test-anon-key",
		},
	}
}

func (cs *changeServer) emitInsert(topic, table string) {
	payload, _ := json.Marshal(changePayload{
		Table:  table,
		Record: json.RawMessage(`{"id":1}`),
	})
	cs.emit <- phoenixMessage{
		Topic:   topic,
		Event:   models.ChangeInsert,
		Payload: payload,
		Ref:     "",
	}
}

// -----------------------------------------------------------------------------

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "realtime:public:orders", topicFor("orders"))
}

func TestEndpoint(t *testing.T) {
	cfg := &models.MConfig{
		Backend: models.MBackendConfig{URL: "https://proj.supabase.co", AnonKey: "key123"},
	}
	client := NewRealtimeClient(cfg)

	assert.Equal(t,
		"wss://proj.supabase.co/realtime/v1/websocket?apikey=key123&vsn=1.0.0",
		client.endpoint())
}

// -----------------------------------------------------------------------------

func TestSubscribe_JoinsTopicAndDispatches(t *testing.T) {
	cs := newChangeServer(t)
	client := NewRealtimeClient(cs.config())

	require.NoError(t, client.Connect())
	defer client.Close()

	assert.Equal(t, "test-anon-key", <-cs.apikey)

	events := make(chan models.MChangeEvent, 8)
	_, err := client.Subscribe("orders", func(ev models.MChangeEvent) {
		events <- ev
	})
	require.NoError(t, err)

	// The join frame goes out on first subscription.
	select {
	case join := <-cs.joins:
		assert.Equal(t, "realtime:public:orders", join.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("no join frame received")
	}

	cs.emitInsert("realtime:public:orders", "orders")

	select {
	case ev := <-events:
		assert.Equal(t, "orders", ev.Table)
		assert.Equal(t, models.ChangeInsert, ev.Type)
		assert.JSONEq(t, `{"id":1}`, string(ev.Record))
	case <-time.After(2 * time.Second):
		t.Fatal("change event not dispatched")
	}
}

// -----------------------------------------------------------------------------

func TestUnsubscribe_StopsDispatch(t *testing.T) {
	cs := newChangeServer(t)
	client := NewRealtimeClient(cs.config())

	require.NoError(t, client.Connect())
	defer client.Close()

	events := make(chan models.MChangeEvent, 8)
	sub, err := client.Subscribe("wallets", func(ev models.MChangeEvent) {
		events <- ev
	})
	require.NoError(t, err)
	<-cs.joins

	cs.emitInsert("realtime:public:wallets", "wallets")
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an event before unsubscribing")
	}

	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	cs.emitInsert("realtime:public:wallets", "wallets")
	select {
	case <-events:
		t.Fatal("event dispatched after unsubscribe")
	case <-time.After(300 * time.Millisecond):
	}
}

// -----------------------------------------------------------------------------

func TestSubscribe_SecondCallbackSameTopic(t *testing.T) {
	cs := newChangeServer(t)
	client := NewRealtimeClient(cs.config())

	require.NoError(t, client.Connect())
	defer client.Close()

	first := make(chan models.MChangeEvent, 8)
	second := make(chan models.MChangeEvent, 8)

	_, err := client.Subscribe("trades", func(ev models.MChangeEvent) { first <- ev })
	require.NoError(t, err)
	<-cs.joins

	_, err = client.Subscribe("trades", func(ev models.MChangeEvent) { second <- ev })
	require.NoError(t, err)

	// Only one join frame per topic.
	select {
	case <-cs.joins:
		t.Fatal("second subscription must not rejoin the topic")
	case <-time.After(200 * time.Millisecond):
	}

	cs.emitInsert("realtime:public:trades", "trades")
	for _, ch := range []chan models.MChangeEvent{first, second} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("both callbacks must fire")
		}
	}
}

// -----------------------------------------------------------------------------

func TestSubscribe_AfterClose(t *testing.T) {
	cs := newChangeServer(t)
	client := NewRealtimeClient(cs.config())

	require.NoError(t, client.Connect())
	require.NoError(t, client.Close())

	_, err := client.Subscribe("orders", func(models.MChangeEvent) {})
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestDispatch_TableFallsBackToTopic(t *testing.T) {
	cs := newChangeServer(t)
	client := NewRealtimeClient(cs.config())

	require.NoError(t, client.Connect())
	defer client.Close()

	events := make(chan models.MChangeEvent, 8)
	_, err := client.Subscribe("orders", func(ev models.MChangeEvent) { events <- ev })
	require.NoError(t, err)
	<-cs.joins

	// Payload without a table field: the topic suffix fills it in.
	cs.emit <- phoenixMessage{
		Topic:   "realtime:public:orders",
		Event:   models.ChangeDelete,
		Payload: json.RawMessage(`{}`),
	}

	select {
	case ev := <-events:
		assert.Equal(t, "orders", ev.Table)
		assert.Equal(t, models.ChangeDelete, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("change event not dispatched")
	}
}
