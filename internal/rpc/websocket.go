package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeJamon/goCustody/internal/storage/journal"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

// WebSocketServer serves the methods and journal subscriptions over websocket
type WebSocketServer struct {
	upgrader    websocket.Upgrader
	registry    *MethodRegistry
	svc         *Services
	logger      *zap.Logger
	connections *xsync.Map[string, *wsConnection]
	nextID      atomic.Uint64
}

// wsConnection is one websocket client
type wsConnection struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	records     map[string]struct{} // empty streams every record
	unsubscribe func()
}

// WebSocketCommand is a request read from a client. Fields besides
// command and id are the method params.
type WebSocketCommand struct {
	Command string          `json:"command"`
	ID      interface{}     `json:"id,omitempty"`
	Params  json.RawMessage `json:"-"`
}

// WebSocketResponse is a reply to a command
type WebSocketResponse struct {
	Type   string      `json:"type"`
	ID     interface{} `json:"id,omitempty"`
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`
	Error  *RpcError   `json:"error,omitempty"`
}

// eventMessage carries one journal event to a subscriber
type eventMessage struct {
	Type  string        `json:"type"`
	Event journal.Event `json:"event"`
}

// NewWebSocketServer creates a websocket server dispatching to registry
func NewWebSocketServer(svc *Services, registry *MethodRegistry) *WebSocketServer {
	logger := svc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		registry:    registry,
		svc:         svc,
		logger:      logger.Named("ws"),
		connections: xsync.NewMap[string, *wsConnection](),
	}
}

// ConnectionCount returns the number of open connections
func (ws *WebSocketServer) ConnectionCount() int {
	return ws.connections.Size()
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (ws *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &wsConnection{
		id:     strconv.FormatUint(ws.nextID.Add(1), 10),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	ws.connections.Store(c.id, c)
	ws.logger.Debug("websocket connected", zap.String("conn", c.id), zap.String("client", getClientIP(r)))

	go ws.writePump(c)
	ws.readPump(c, getClientIP(r))
}

// readPump processes messages until the client goes away
func (ws *WebSocketServer) readPump(c *wsConnection, clientIP string) {
	defer ws.closeConnection(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.Debug("websocket read failed", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}
		ws.handleMessage(c, clientIP, message)
	}
}

// writePump sends queued messages and keeps the connection alive
func (ws *WebSocketServer) writePump(c *wsConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				ws.logger.Debug("websocket send failed", zap.String("conn", c.id), zap.Error(err))
				c.cancel()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

func (ws *WebSocketServer) closeConnection(c *wsConnection) {
	ws.connections.Delete(c.id)
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.mu.Unlock()
	c.cancel()
	_ = c.conn.Close()
	ws.logger.Debug("websocket closed", zap.String("conn", c.id))
}

// handleMessage dispatches one command
func (ws *WebSocketServer) handleMessage(c *wsConnection, clientIP string, message []byte) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(message, &fields); err != nil {
		ws.sendResponse(c, nil, nil, RpcErrorInvalidParams("Invalid JSON: "+err.Error()))
		return
	}

	var cmd WebSocketCommand
	if raw, ok := fields["command"]; ok {
		_ = json.Unmarshal(raw, &cmd.Command)
	}
	if raw, ok := fields["id"]; ok {
		_ = json.Unmarshal(raw, &cmd.ID)
	}
	if cmd.Command == "" {
		ws.sendResponse(c, cmd.ID, nil, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing command field"))
		return
	}

	// Remaining fields are the params
	delete(fields, "command")
	delete(fields, "id")
	cmd.Params, _ = json.Marshal(fields)

	switch cmd.Command {
	case "subscribe":
		result, rpcErr := ws.subscribe(c, cmd.Params)
		ws.sendResponse(c, cmd.ID, result, rpcErr)
	case "unsubscribe":
		ws.unsubscribe(c)
		ws.sendResponse(c, cmd.ID, map[string]interface{}{"unsubscribed": true}, nil)
	default:
		ctx := &RpcContext{Context: c.ctx, ClientIP: clientIP}
		result, rpcErr := execute(ws.registry, ws.logger, ctx, cmd.Command, cmd.Params)
		ws.sendResponse(c, cmd.ID, result, rpcErr)
	}
}

// subscribe starts streaming journal events, optionally only those of the
// given records. Subscribing again replaces the record filter.
func (ws *WebSocketServer) subscribe(c *wsConnection, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Records []string `json:"records"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if ws.svc.Feed == nil {
		return nil, RpcErrorNotEnabled("Event streaming is disabled")
	}

	records := make(map[string]struct{}, len(request.Records))
	for _, r := range request.Records {
		records[r] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = records
	if c.unsubscribe == nil {
		events, cancel := ws.svc.Feed.Subscribe()
		c.unsubscribe = cancel
		go ws.forward(c, events)
	}
	return map[string]interface{}{"subscribed": true, "records": request.Records}, nil
}

func (ws *WebSocketServer) unsubscribe(c *wsConnection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// forward relays events until the subscription or the connection ends
func (ws *WebSocketServer) forward(c *wsConnection, events <-chan journal.Event) {
	for ev := range events {
		if !c.wants(ev.Record) {
			continue
		}
		data, err := json.Marshal(eventMessage{Type: "event", Event: ev})
		if err != nil {
			ws.logger.Error("failed to marshal event", zap.Error(err))
			continue
		}
		ws.enqueue(c, data)
	}
}

func (c *wsConnection) wants(record string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.records) == 0 {
		return true
	}
	_, ok := c.records[record]
	return ok
}

func (ws *WebSocketServer) sendResponse(c *wsConnection, id interface{}, result interface{}, rpcErr *RpcError) {
	response := WebSocketResponse{Type: "response", ID: id, Status: "success", Result: result}
	if rpcErr != nil {
		response.Status = "error"
		response.Result = nil
		response.Error = rpcErr
	}
	data, err := json.Marshal(response)
	if err != nil {
		ws.logger.Error("failed to marshal response", zap.Error(err))
		return
	}
	ws.enqueue(c, data)
}

// enqueue drops the message when the client is gone or too slow
func (ws *WebSocketServer) enqueue(c *wsConnection, data []byte) {
	select {
	case <-c.ctx.Done():
	case c.send <- data:
	default:
		ws.logger.Warn("websocket send buffer full", zap.String("conn", c.id))
	}
}
