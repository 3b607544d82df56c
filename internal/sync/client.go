package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	stdsync "sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/huverse/AstraLinks-sub001/internal/errors"
	"github.com/huverse/AstraLinks-sub001/internal/id"
	"github.com/huverse/AstraLinks-sub001/internal/session"
	"github.com/huverse/AstraLinks-sub001/internal/token"
)

// notConnectedMsg is the ack error every command returns while no
// connection is established.
const notConnectedMsg = "Not connected"

// Client maintains the single websocket connection to the simulation
// server. All methods are safe for concurrent use.
type Client struct {
	cfg    Config
	tokens token.Source
	logger *log.Logger
	tracer trace.Tracer

	mu         stdsync.Mutex
	conn       *websocket.Conn
	gen        int
	state      ConnState
	connecting bool
	sessionID  string
	schedule   *reconnectSchedule
	reconnect  *time.Timer
	pending    map[string]chan Ack
	observers  map[int]Observer
	nextObs    int
	resyncing  bool
	resyncBuf  []session.WorldEvent

	coalescer *Coalescer
}

// NewClient builds a client around a token accessor. The client does not
// dial until Connect is called.
func NewClient(cfg Config, tokens token.Source, logger *log.Logger) *Client {
	cfg = cfg.withDefaults()
	if tokens == nil {
		tokens = token.SourceFunc(func(context.Context) (string, error) { return "", nil })
	}
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{
		cfg:       cfg,
		tokens:    tokens,
		logger:    logger,
		tracer:    otel.Tracer("astralinks/sync"),
		state:     StateDisconnected,
		schedule:  newReconnectSchedule(cfg.InitialReconnectDelay, cfg.MaxReconnectDelay, cfg.MaxReconnectAttempts),
		pending:   map[string]chan Ack{},
		observers: map[int]Observer{},
	}
	c.coalescer = NewCoalescer(cfg.CoalesceWindow, c.notifyEvents)
	return c
}

// Attach registers an observer and returns a function that detaches it.
func (c *Client) Attach(o Observer) func() {
	c.mu.Lock()
	key := c.nextObs
	c.nextObs++
	c.observers[key] = o
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, key)
		c.mu.Unlock()
	}
}

// State reports the connection phase and, while reconnecting, the 1-based
// attempt number last scheduled.
func (c *Client) State() (ConnState, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	attempt := 0
	if c.state == StateReconnecting {
		attempt = c.schedule.attempt()
	}
	return c.state, attempt
}

// CurrentSession reports the session the client is joined to, if any.
func (c *Client) CurrentSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connect establishes the websocket connection. A second Connect while one
// is already in flight is rejected rather than racing it. Missing or
// expired credentials fail without retry; transport failures hand over to
// the reconnect schedule and still return the dial error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connecting {
		c.mu.Unlock()
		return apperrors.New(apperrors.CodeConnectInProgress, "connection attempt already in progress")
	}
	if c.state == StateConnected && c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.cancelReconnectLocked()
	c.schedule.reset()
	c.state = StateConnecting
	c.mu.Unlock()

	c.notifyState(StateConnecting, 0)
	err := c.dial(ctx)
	c.mu.Lock()
	c.connecting = false
	c.mu.Unlock()
	if err != nil {
		c.handleDialFailure(err)
		return err
	}
	return nil
}

// Disconnect closes the connection voluntarily: it clears the session
// affinity, cancels any scheduled reconnect, and fails pending requests.
// No reconnect follows.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.sessionID = ""
	c.cancelReconnectLocked()
	c.state = StateDisconnected
	c.resyncing = false
	c.resyncBuf = nil
	c.gen++
	conn := c.conn
	c.conn = nil
	c.failPendingLocked("Connection closed")
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
	c.mu.Unlock()
	// Events accepted before the disconnect still belong to consumers.
	c.coalescer.Flush()
	c.notifyState(StateDisconnected, 0)
}

// Join subscribes to a session. The affinity is recorded before the request
// goes out so a disconnect mid-join still resyncs the right session.
func (c *Client) Join(ctx context.Context, sessionID string) Ack {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
	return c.request(ctx, clientMessage{Type: msgJoinSession, SessionID: sessionID})
}

// SubmitIntent sends a discussion intent on behalf of the operator.
func (c *Client) SubmitIntent(ctx context.Context, sessionID, intent string) Ack {
	return c.request(ctx, clientMessage{
		Type:      msgSubmitIntent,
		SessionID: sessionID,
		Payload:   map[string]any{"intent": intent},
	})
}

// ModeratorCall asks the moderator to intervene with a directive.
func (c *Client) ModeratorCall(ctx context.Context, sessionID, directive string) Ack {
	return c.request(ctx, clientMessage{
		Type:      msgModeratorCall,
		SessionID: sessionID,
		Payload:   map[string]any{"directive": directive},
	})
}

// SetInterventionLevel adjusts how aggressively the moderator steers.
func (c *Client) SetInterventionLevel(ctx context.Context, sessionID string, level int) Ack {
	return c.request(ctx, clientMessage{
		Type:      msgSetInterventionLevel,
		SessionID: sessionID,
		Payload:   map[string]any{"level": level},
	})
}

// GenerateOutline requests a structured outline of the discussion so far.
func (c *Client) GenerateOutline(ctx context.Context, sessionID string) Ack {
	return c.request(ctx, clientMessage{Type: msgGenerateOutline, SessionID: sessionID})
}

// TriggerScoring requests evaluation scoring for the session.
func (c *Client) TriggerScoring(ctx context.Context, sessionID string) Ack {
	return c.request(ctx, clientMessage{Type: msgTriggerScoring, SessionID: sessionID})
}

// dial performs one handshake attempt and, on success, installs the
// connection and kicks off the read loop plus any session resync.
func (c *Client) dial(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "sync.dial")
	defer span.End()

	raw, err := c.tokens.Token(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeAuthTokenMissing, "token accessor failed", err)
	}
	if err := token.Validate(raw, nil); err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+raw)
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		span.RecordError(err)
		return apperrors.Wrap(apperrors.CodeTransportFailure,
			fmt.Sprintf("websocket handshake with %s failed", c.cfg.URL), err)
	}

	c.mu.Lock()
	if c.state == StateDisconnected {
		// A voluntary disconnect raced this attempt; nobody owns the new
		// handle, so release it instead of installing it.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.gen++
	gen := c.gen
	c.conn = conn
	c.state = StateConnected
	c.schedule.reset()
	rejoin := c.sessionID
	if rejoin != "" {
		// Hold incremental events back until the full state lands.
		c.resyncing = true
	}
	c.mu.Unlock()

	c.notifyState(StateConnected, 0)
	go c.readLoop(conn, gen)
	if rejoin != "" {
		go c.resync(rejoin)
	}
	return nil
}

// resync re-joins the current session asking for a full state snapshot, so
// anything missed while disconnected is replaced rather than guessed at.
func (c *Client) resync(sessionID string) {
	ack := c.request(context.Background(), clientMessage{
		Type:             msgJoinSession,
		SessionID:        sessionID,
		RequestFullState: true,
	})
	if !ack.Success {
		c.notifyError(apperrors.New(apperrors.CodeCommandFailed, "session resync failed: "+ack.Error))
		c.releaseResync()
	}
}

// releaseResync flushes events buffered during a resync through the
// coalescer and resumes normal forwarding.
func (c *Client) releaseResync() {
	c.mu.Lock()
	buffered := c.resyncBuf
	c.resyncBuf = nil
	c.resyncing = false
	co := c.coalescer
	c.mu.Unlock()
	for _, evt := range buffered {
		co.Add(evt)
	}
}

// request sends one message and waits for its ack. It never returns a Go
// error: anything that prevents a server answer becomes a failed Ack.
func (c *Client) request(ctx context.Context, msg clientMessage) Ack {
	reqID, err := id.NewID()
	if err != nil {
		return Ack{Success: false, Error: "generate request id: " + err.Error()}
	}
	msg.RequestID = reqID

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return Ack{Success: false, Error: notConnectedMsg}
	}
	ch := make(chan Ack, 1)
	c.pending[reqID] = ch
	// Writes stay under the mutex so concurrent requests never interleave
	// on the websocket.
	err = c.conn.WriteJSON(msg)
	c.mu.Unlock()
	if err != nil {
		c.forgetPending(reqID)
		return Ack{Success: false, Error: "write request: " + err.Error()}
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()
	select {
	case ack := <-ch:
		return ack
	case <-ctx.Done():
		c.forgetPending(reqID)
		return Ack{Success: false, Error: ctx.Err().Error()}
	case <-timer.C:
		c.forgetPending(reqID)
		return Ack{Success: false, Error: "request timed out"}
	}
}

func (c *Client) forgetPending(reqID string) {
	c.mu.Lock()
	delete(c.pending, reqID)
	c.mu.Unlock()
}

// failPendingLocked resolves every in-flight request with a failure. Caller
// holds c.mu.
func (c *Client) failPendingLocked(reason string) {
	for reqID, ch := range c.pending {
		delete(c.pending, reqID)
		ch <- Ack{Success: false, Error: reason}
	}
}

// readLoop drains one connection handle until it errors. gen identifies the
// handle so a loop outliving its connection cannot disturb a newer one.
func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.handleConnectionLost(gen, err)
			return
		}
		c.handleMessage(payload)
	}
}

func (c *Client) handleMessage(payload []byte) {
	var msg serverMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Printf("sync: discarding malformed server message: %v", err)
		return
	}
	switch msg.Type {
	case msgWorldEvent:
		record := msg.Event
		if record == nil {
			record = payload
		}
		evt, err := session.ParseRecord(record)
		if err != nil {
			c.logger.Printf("sync: discarding malformed event: %v", err)
			return
		}
		if evt.SessionID == "" {
			evt.SessionID = msg.SessionID
		}
		c.acceptEvent(evt)
	case msgStateUpdate:
		c.notifySnapshot(snapshotFrom(msg))
	case msgFullState:
		c.handleFullState(msg)
	case msgSimulationEnded:
		c.notifySessionEnded(msg.SessionID, msg.Reason)
	case msgAck:
		c.resolvePending(msg)
	default:
		if msg.RequestID != "" {
			c.resolvePending(msg)
			return
		}
		c.logger.Printf("sync: ignoring server message with unknown type %q", msg.Type)
	}
}

// acceptEvent routes one normalized event either into the resync buffer or
// through the coalescer.
func (c *Client) acceptEvent(evt session.WorldEvent) {
	c.mu.Lock()
	if c.resyncing {
		c.resyncBuf = append(c.resyncBuf, evt)
		c.mu.Unlock()
		return
	}
	co := c.coalescer
	c.mu.Unlock()
	co.Add(evt)
}

// handleFullState delivers the authoritative snapshot and backlog, then
// releases anything that was buffered while waiting for it.
func (c *Client) handleFullState(msg serverMessage) {
	// Anything still coalescing predates the snapshot; deliver it first so
	// batch order matches acceptance order.
	c.coalescer.Flush()

	events := make([]session.WorldEvent, 0, len(msg.Events))
	for _, record := range msg.Events {
		evt, err := session.ParseRecord(record)
		if err != nil {
			c.logger.Printf("sync: discarding malformed backlog event: %v", err)
			continue
		}
		if evt.SessionID == "" {
			evt.SessionID = msg.SessionID
		}
		events = append(events, evt)
	}

	c.notifySnapshot(snapshotFrom(msg))
	if len(events) > 0 {
		c.notifyEvents(events)
	}
	c.releaseResync()
}

func snapshotFrom(msg serverMessage) session.StateSnapshot {
	return session.StateSnapshot{
		SessionID:         msg.SessionID,
		WorldState:        msg.WorldState,
		Tick:              msg.Tick,
		IsTerminated:      msg.IsTerminated,
		TerminationReason: msg.TerminationReason,
	}
}

func (c *Client) resolvePending(msg serverMessage) {
	c.mu.Lock()
	ch, ok := c.pending[msg.RequestID]
	delete(c.pending, msg.RequestID)
	c.mu.Unlock()
	if !ok {
		return
	}
	ch <- Ack{
		Success: msg.Success != nil && *msg.Success,
		Error:   msg.Error,
		Data:    msg.Data,
	}
}

// handleConnectionLost reacts to an involuntary drop of the given handle
// generation. Voluntary disconnects bumped the generation already, so their
// read loops land here as stale no-ops.
func (c *Client) handleConnectionLost(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.resyncing = false
	c.resyncBuf = nil
	c.failPendingLocked("Connection lost")
	c.logger.Printf("sync: connection lost: %v", cause)
	fire := c.scheduleReconnectLocked()
	c.mu.Unlock()
	// Release the errored handle; the read loop only observed the failure.
	if conn != nil {
		conn.Close()
	}
	fire()
}

// scheduleReconnectLocked arms the next reconnect timer or declares the
// schedule exhausted. Caller holds c.mu; the returned closure performs the
// observer notifications and must run after unlocking.
func (c *Client) scheduleReconnectLocked() func() {
	delay, ok := c.schedule.next()
	if !ok {
		c.state = StateDisconnected
		c.sessionID = ""
		attempts := c.cfg.MaxReconnectAttempts
		return func() {
			c.notifyState(StateDisconnected, 0)
			c.notifyError(apperrors.New(apperrors.CodeReconnectExhausted,
				fmt.Sprintf("gave up reconnecting after %d attempts", attempts)))
		}
	}
	c.state = StateReconnecting
	attempt := c.schedule.attempt()
	c.reconnect = time.AfterFunc(delay, c.redial)
	return func() {
		c.notifyState(StateReconnecting, attempt)
	}
}

// redial runs when a reconnect timer fires.
func (c *Client) redial() {
	c.mu.Lock()
	if c.state != StateReconnecting || c.connecting {
		c.mu.Unlock()
		return
	}
	c.connecting = true
	c.mu.Unlock()

	err := c.dial(context.Background())
	c.mu.Lock()
	c.connecting = false
	c.mu.Unlock()
	if err != nil {
		c.handleDialFailure(err)
	}
}

// handleDialFailure decides whether a failed attempt retries. Credential
// problems stop the cycle; transport problems feed the backoff schedule.
func (c *Client) handleDialFailure(err error) {
	if apperrors.IsCode(err, apperrors.CodeAuthTokenMissing) {
		c.mu.Lock()
		c.state = StateDisconnected
		c.cancelReconnectLocked()
		c.mu.Unlock()
		c.notifyState(StateDisconnected, 0)
		c.notifyError(err)
		return
	}
	c.logger.Printf("sync: dial failed: %v", err)
	c.mu.Lock()
	fire := c.scheduleReconnectLocked()
	c.mu.Unlock()
	fire()
}

// cancelReconnectLocked stops a pending reconnect timer. Caller holds c.mu.
func (c *Client) cancelReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
}

func (c *Client) observerList() []Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := make([]Observer, 0, len(c.observers))
	for _, o := range c.observers {
		list = append(list, o)
	}
	return list
}

func (c *Client) notifyState(state ConnState, attempt int) {
	for _, o := range c.observerList() {
		o.ConnectionStateChanged(state, attempt)
	}
}

func (c *Client) notifyEvents(events []session.WorldEvent) {
	for _, o := range c.observerList() {
		o.EventsReceived(events)
	}
}

func (c *Client) notifySnapshot(snap session.StateSnapshot) {
	for _, o := range c.observerList() {
		o.SnapshotReceived(snap)
	}
}

func (c *Client) notifySessionEnded(sessionID, reason string) {
	for _, o := range c.observerList() {
		o.SessionEnded(sessionID, reason)
	}
}

func (c *Client) notifyError(err error) {
	for _, o := range c.observerList() {
		o.ErrorOccurred(err)
	}
}
