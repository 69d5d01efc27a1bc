// internal/phone/client.go
package phone

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/practiceops/smsbridge-backend/internal/model"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	readBufferSize     = 64 * 1024
	eventBufferSize    = 64
)

// Client talks to the tether agent over a line-delimited JSON TCP socket. It
// is the only Bridge implementation; everything above it sees the Bridge
// interface.
type Client struct {
	addr   string
	source string // the practice's own number, attached to every send

	mu     sync.Mutex
	conn   net.Conn
	state  model.ConnectionState
	closed bool

	events chan Event
	done   chan struct{}
}

// wireframe is one line on the socket, either direction. Unused fields stay
// empty for a given type.
type wireframe struct {
	Type string `json:"type"`

	// type=hello (outbound)
	Name string `json:"name,omitempty"`

	// type=state (inbound)
	App    string `json:"app,omitempty"`
	OldApp string `json:"old_app,omitempty"`
	Device string `json:"device,omitempty"`

	// type=sms (inbound); From doubles as the source number on type=send
	From       string    `json:"from,omitempty"`
	Label      string    `json:"label,omitempty"`
	Body       string    `json:"body,omitempty"`
	ReceivedAt time.Time `json:"received_at,omitempty"`

	// type=send (outbound) / type=send_result (inbound)
	ID      string          `json:"id,omitempty"`
	Numbers []string        `json:"numbers,omitempty"`
	Results map[string]bool `json:"results,omitempty"`
}

func NewClient(addr, source string) *Client {
	return &Client{
		addr:   addr,
		source: source,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// Connect dials the agent and starts the read loop. The loop reconnects with
// backoff until Close is called.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.state = model.ConnectionState{App: model.AppConnecting}
	c.mu.Unlock()

	conn, err := c.dial()
	if err != nil {
		c.setApp(model.AppDisconnected)
		return err
	}
	c.adopt(conn)

	go c.readLoop()
	return nil
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", c.addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dialing tether agent %s: %w", c.addr, err)
	}
	hello, _ := json.Marshal(wireframe{Type: "hello", Name: "smsbridge"})
	if _, err := conn.Write(append(hello, '\n')); err != nil {
		conn.Close()
		return nil, fmt.Errorf("greeting tether agent: %w", err)
	}
	return conn, nil
}

func (c *Client) adopt(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.state = model.ConnectionState{App: model.AppStartingSession}
	c.mu.Unlock()
}

func (c *Client) State() model.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SendSMS writes one send frame and returns the correlation id the later
// send_result event will carry.
func (c *Client) SendSMS(numbers []string, body string) (string, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return "", fmt.Errorf("tether agent not connected")
	}

	id := uuid.NewString()
	frame, err := json.Marshal(wireframe{Type: "send", ID: id, From: c.source, Numbers: numbers, Body: body})
	if err != nil {
		return "", err
	}
	if _, err := conn.Write(append(frame, '\n')); err != nil {
		return "", fmt.Errorf("writing send frame: %w", err)
	}
	return id, nil
}

func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	close(c.done)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) readLoop() {
	delay := reconnectBaseDelay
	for {
		c.mu.Lock()
		conn := c.conn
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		if conn != nil {
			c.consume(conn)
			// Connection dropped: everything downstream treats that as a
			// disconnect until the agent reports otherwise.
			old := c.State().App
			c.mu.Lock()
			c.conn = nil
			c.state = model.ConnectionState{App: model.AppDisconnected}
			c.mu.Unlock()
			c.publish(StateChanged{New: model.AppDisconnected, Old: old})
		}

		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}

		conn, err := c.dial()
		if err != nil {
			log.Println("⚠️ tether agent reconnect failed:", err)
			continue
		}
		delay = reconnectBaseDelay
		c.adopt(conn)
	}
}

func (c *Client) consume(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, readBufferSize), readBufferSize)
	for scanner.Scan() {
		var f wireframe
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			log.Println("⚠️ undecodable frame from tether agent:", err)
			continue
		}
		c.handleFrame(f)
	}
}

func (c *Client) handleFrame(f wireframe) {
	switch f.Type {
	case "state":
		newState := parseAppState(f.App)
		oldState := parseAppState(f.OldApp)
		device := parseDeviceState(f.Device)
		c.mu.Lock()
		c.state = model.ConnectionState{App: newState, Device: device}
		c.mu.Unlock()
		c.publish(StateChanged{New: newState, Old: oldState, Device: device})
	case "sms":
		at := f.ReceivedAt
		if at.IsZero() {
			at = time.Now()
		}
		c.publish(SmsReceived{From: f.From, Label: f.Label, Body: f.Body, At: at})
	case "send_result":
		c.publish(SendResult{CorrelationID: f.ID, Results: f.Results})
	default:
		log.Println("⚠️ unknown frame type from tether agent:", f.Type)
	}
}

// publish never blocks the read loop: when the consumer falls behind the
// event is dropped and logged.
func (c *Client) publish(ev Event) {
	select {
	case c.events <- ev:
	default:
		log.Printf("⚠️ event buffer full, dropping %T", ev)
	}
}

func (c *Client) setApp(app model.AppState) {
	c.mu.Lock()
	c.state.App = app
	c.mu.Unlock()
}

func parseAppState(s string) model.AppState {
	switch s {
	case "Connecting":
		return model.AppConnecting
	case "StartingSession":
		return model.AppStartingSession
	case "Connected":
		return model.AppConnected
	}
	return model.AppDisconnected
}

func parseDeviceState(s string) model.DeviceState {
	switch s {
	case "Idle":
		return model.DeviceIdle
	case "Busy":
		return model.DeviceBusy
	}
	return model.DeviceUnknown
}
