package transport

// The websocket handler speaks the two subscription protocols in common use:
//   - graphql-ws: the legacy subscriptions-transport-ws protocol
//   - graphql-transport-ws: the graphql-ws protocol, which also carries queries and mutations

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/hjeronen/FullStackGraphQL/graph"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	protocolLegacy    = "graphql-ws"
	protocolTransport = "graphql-transport-ws"

	initTimeout = 10 * time.Second
	writeWait   = 10 * time.Second

	closeBadRequest   = 4400
	closeUnauthorized = 4401
	closeForbidden    = 4403
	closeInitTimeout  = 4408
	closeDuplicateID  = 4409
	closeTooManyInits = 4429
)

// Subscriber hands out event bus subscriptions.
type Subscriber interface {
	Subscribe(topic string) (*graph.Subscription, error)
}

type wsMessage struct {
	Type    string              `json:"type"`
	ID      string              `json:"id,omitempty"`
	Payload jsoniter.RawMessage `json:"payload,omitempty"`
}

type wsReply struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

type WSHandler struct {
	exec     Executor
	bus      Subscriber
	auth     *Authenticator
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*wsConnection]struct{}
	closed bool
}

func NewWSHandler(exec Executor, bus Subscriber, auth *Authenticator) *WSHandler {
	return &WSHandler{
		exec: exec,
		bus:  bus,
		auth: auth,
		upgrader: websocket.Upgrader{
			CheckOrigin:  func(r *http.Request) bool { return true },
			Subprotocols: []string{protocolTransport, protocolLegacy},
		},
		conns: make(map[*wsConnection]struct{}),
	}
}

func isUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &wsConnection{
		conn:      conn,
		h:         h,
		log:       log.With().Str("protocol", conn.Subprotocol()).Logger(),
		user:      UserFrom(r.Context()),
		transport: conn.Subprotocol() == protocolTransport,
		ops:       make(map[string]context.CancelFunc),
	}
	if !h.track(c) {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.untrack(c)

	ctx, cancel := context.WithCancel(c.log.WithContext(r.Context()))
	defer cancel()
	c.serve(ctx)
}

// Close disconnects every open websocket. Later upgrades are refused.
func (h *WSHandler) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*wsConnection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
}

func (h *WSHandler) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *WSHandler) track(c *wsConnection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	return true
}

func (h *WSHandler) untrack(c *wsConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

type wsConnection struct {
	conn      *websocket.Conn
	h         *WSHandler
	log       zerolog.Logger
	user      *model.User
	transport bool

	writeMu sync.Mutex

	mu  sync.Mutex
	ops map[string]context.CancelFunc
	wg  sync.WaitGroup
}

func (c *wsConnection) serve(ctx context.Context) {
	defer func() {
		c.stopAll()
		c.wg.Wait()
		_ = c.conn.Close()
	}()

	if !c.init(ctx) {
		return
	}

	for {
		msg, err := c.read()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}

		switch msg.Type {
		case "subscribe", "start":
			if !c.start(ctx, msg) {
				return
			}
		case "complete", "stop":
			c.stop(msg.ID)
		case "ping":
			_ = c.write(wsReply{Type: "pong"})
		case "pong":
		case "connection_init":
			c.closeWith(closeTooManyInits, "Too many initialisation requests")
			return
		case "connection_terminate":
			return
		default:
			c.log.Warn().Str("type", msg.Type).Msg("unexpected websocket message")
			if c.transport {
				c.closeWith(closeBadRequest, "Invalid message received")
				return
			}
			_ = c.write(wsReply{Type: "error", ID: msg.ID, Payload: errorPayload("unexpected message type " + msg.Type)})
		}
	}
}

// init waits for connection_init and acknowledges it. An authorization value
// in the init payload replaces any user found on the upgrade request.
func (c *wsConnection) init(ctx context.Context) bool {
	_ = c.conn.SetReadDeadline(time.Now().Add(initTimeout))
	msg, err := c.read()
	_ = c.conn.SetReadDeadline(time.Time{})
	if err != nil || msg.Type != "connection_init" {
		c.log.Warn().Err(err).Msg("websocket init failed")
		switch {
		case !c.transport:
			_ = c.write(wsReply{Type: "connection_error", Payload: errorPayload("expected connection_init")})
		case err != nil:
			c.closeWith(closeInitTimeout, "Connection initialisation timeout")
		default:
			c.closeWith(closeUnauthorized, "Unauthorized")
		}
		return false
	}

	if header := initAuthorization(msg.Payload); header != "" && c.h.auth != nil {
		user, err := c.h.auth.Authenticate(ctx, header)
		if err != nil {
			c.log.Warn().Err(err).Msg("websocket authentication failed")
			if c.transport {
				c.closeWith(closeForbidden, "Forbidden")
			} else {
				_ = c.write(wsReply{Type: "connection_error", Payload: errorPayload("invalid token")})
			}
			return false
		}
		c.user = user
	}

	if err := c.write(wsReply{Type: "connection_ack"}); err != nil {
		c.log.Warn().Err(err).Msg("websocket ack failed")
		return false
	}
	if !c.transport {
		_ = c.write(wsReply{Type: "ka"})
	}
	return true
}

func initAuthorization(payload jsoniter.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var params map[string]interface{}
	if err := json.Unmarshal(payload, &params); err != nil {
		return ""
	}
	for _, key := range []string{"authorization", "Authorization"} {
		if v, ok := params[key].(string); ok {
			return v
		}
	}
	return ""
}

// start runs one operation. It reports false when the connection must close.
func (c *wsConnection) start(ctx context.Context, msg *wsMessage) bool {
	var req graph.Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil || req.Query == "" {
		if c.transport {
			c.closeWith(closeBadRequest, "Invalid message received")
			return false
		}
		_ = c.write(wsReply{Type: "error", ID: msg.ID, Payload: errorPayload("invalid payload")})
		return true
	}

	c.mu.Lock()
	if _, ok := c.ops[msg.ID]; ok {
		c.mu.Unlock()
		c.closeWith(closeDuplicateID, "Subscriber for "+msg.ID+" already exists")
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	c.ops[msg.ID] = cancel
	c.mu.Unlock()

	op, ok := ParseOperation(req.Query, req.OperationName)
	if !ok || !op.IsSubscription() {
		c.wg.Add(1)
		go c.executeOnce(ctx, msg.ID, req)
		return true
	}

	sub, err := c.subscribe(op)
	if err != nil {
		c.finish(msg.ID)
		_ = c.write(wsReply{Type: "error", ID: msg.ID, Payload: c.errorsFor(errorPayload(err.Error()))})
		return true
	}
	c.wg.Add(1)
	go c.process(ctx, msg.ID, req, op.Fields[0], sub)
	return true
}

func (c *wsConnection) subscribe(op Operation) (*graph.Subscription, error) {
	if len(op.Fields) != 1 {
		return nil, errors.New("subscription must select exactly one top level field")
	}
	topic, ok := c.h.exec.Topic(op.Fields[0])
	if !ok {
		return nil, errors.Errorf("unknown subscription field '%s'", op.Fields[0])
	}
	return c.h.bus.Subscribe(topic)
}

func (c *wsConnection) executeOnce(ctx context.Context, id string, req graph.Request) {
	defer c.wg.Done()
	defer c.finish(id)

	result := c.h.exec.Execute(ctx, c.user, req)
	if ctx.Err() != nil {
		return
	}
	if result.Data == nil && len(result.Errors) > 0 {
		_ = c.write(wsReply{Type: "error", ID: id, Payload: c.errorsFor(result.Errors)})
		return
	}
	if err := c.write(wsReply{Type: c.dataType(), ID: id, Payload: result}); err != nil {
		return
	}
	_ = c.write(wsReply{Type: "complete", ID: id})
}

// process executes the subscription once per event, each time with a fresh
// request context.
func (c *wsConnection) process(ctx context.Context, id string, req graph.Request, field string, sub *graph.Subscription) {
	defer c.wg.Done()
	defer c.finish(id)
	defer sub.Unsubscribe()

	for {
		select {
		case payload, ok := <-sub.C():
			if !ok {
				_ = c.write(wsReply{Type: "complete", ID: id})
				return
			}
			result := c.h.exec.Deliver(ctx, c.user, req, field, payload)
			if err := c.write(wsReply{Type: c.dataType(), ID: id, Payload: result}); err != nil {
				c.log.Debug().Err(err).Str("id", id).Msg("websocket write failed")
				return
			}
		case <-ctx.Done():
			if !c.transport {
				_ = c.write(wsReply{Type: "complete", ID: id})
			}
			return
		}
	}
}

func (c *wsConnection) stop(id string) {
	c.mu.Lock()
	cancel, ok := c.ops[id]
	c.mu.Unlock()
	if !ok {
		c.log.Debug().Str("id", id).Msg("operation not found or already complete")
		return
	}
	cancel()
}

func (c *wsConnection) finish(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.ops[id]; ok {
		cancel()
		delete(c.ops, id)
	}
}

func (c *wsConnection) stopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.ops {
		cancel()
	}
}

func (c *wsConnection) dataType() string {
	if c.transport {
		return "next"
	}
	return "data"
}

// errorsFor shapes an error payload for the protocol: a list for
// graphql-transport-ws, a single error for graphql-ws.
func (c *wsConnection) errorsFor(errs interface{}) interface{} {
	if c.transport {
		return errs
	}
	switch list := errs.(type) {
	case []map[string]interface{}:
		if len(list) > 0 {
			return list[0]
		}
	case []gqlerrors.FormattedError:
		if len(list) > 0 {
			return list[0]
		}
	}
	return errs
}

func errorPayload(message string) []map[string]interface{} {
	return []map[string]interface{}{{"message": message}}
}

func (c *wsConnection) read() (*wsMessage, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(err, "decode websocket message")
	}
	return &msg, nil
}

func (c *wsConnection) write(reply wsReply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConnection) closeWith(code int, reason string) {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	_ = c.conn.Close()
}
