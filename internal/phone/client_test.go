package phone

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/practiceops/smsbridge-backend/internal/model"
)

// fakeAgent is a one-connection tether agent: it records the hello frame and
// lets tests push frames down the wire.
type fakeAgent struct {
	listener net.Listener
	conns    chan net.Conn
}

func newFakeAgent(t *testing.T) *fakeAgent {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	a := &fakeAgent{listener: l, conns: make(chan net.Conn, 1)}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			a.conns <- conn
		}
	}()
	t.Cleanup(func() { l.Close() })
	return a
}

func (a *fakeAgent) addr() string { return a.listener.Addr().String() }

func (a *fakeAgent) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case conn := <-a.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func readFrame(t *testing.T, conn net.Conn) wireframe {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatal("no frame from client:", scanner.Err())
	}
	var f wireframe
	if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
		t.Fatal(err)
	}
	return f
}

func writeFrame(t *testing.T, conn net.Conn, f wireframe) {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		t.Fatal(err)
	}
}

func nextEvent(t *testing.T, client *Client) Event {
	t.Helper()
	select {
	case ev := <-client.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event from client")
		return nil
	}
}

func TestClientGreetsAndReportsState(t *testing.T) {
	agent := newFakeAgent(t)
	client := NewClient(agent.addr(), "035550100")
	defer client.Close()

	if err := client.Connect(); err != nil {
		t.Fatal(err)
	}
	conn := agent.accept(t)

	hello := readFrame(t, conn)
	if hello.Type != "hello" || hello.Name != "smsbridge" {
		t.Errorf("greeting = %+v", hello)
	}
	if client.State().App != model.AppStartingSession {
		t.Errorf("state after connect = %s, want starting", client.State().App)
	}

	writeFrame(t, conn, wireframe{Type: "state", App: "Connected", OldApp: "StartingSession", Device: "Idle"})

	ev := nextEvent(t, client)
	change, ok := ev.(StateChanged)
	if !ok {
		t.Fatalf("event = %T", ev)
	}
	if change.New != model.AppConnected || change.Old != model.AppStartingSession || change.Device != model.DeviceIdle {
		t.Errorf("state change = %+v", change)
	}
	if st := client.State(); st.App != model.AppConnected || st.Device != model.DeviceIdle {
		t.Errorf("client state = %+v", st)
	}
}

func TestClientDeliversInboundSms(t *testing.T) {
	agent := newFakeAgent(t)
	client := NewClient(agent.addr(), "035550100")
	defer client.Close()

	if err := client.Connect(); err != nil {
		t.Fatal(err)
	}
	conn := agent.accept(t)
	readFrame(t, conn) // hello

	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	writeFrame(t, conn, wireframe{Type: "sms", From: "+64211626986", Body: "yes", ReceivedAt: at})

	ev := nextEvent(t, client)
	sms, ok := ev.(SmsReceived)
	if !ok {
		t.Fatalf("event = %T", ev)
	}
	if sms.From != "+64211626986" || sms.Body != "yes" || !sms.At.Equal(at) {
		t.Errorf("sms = %+v", sms)
	}
}

func TestClientSendCarriesCorrelationID(t *testing.T) {
	agent := newFakeAgent(t)
	client := NewClient(agent.addr(), "035550100")
	defer client.Close()

	if err := client.Connect(); err != nil {
		t.Fatal(err)
	}
	conn := agent.accept(t)
	readFrame(t, conn) // hello

	id, err := client.SendSMS([]string{"64211626986"}, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("SendSMS returned an empty correlation id")
	}

	frame := readFrame(t, conn)
	if frame.Type != "send" || frame.ID != id || frame.Body != "hello" {
		t.Errorf("send frame = %+v", frame)
	}
	if frame.From != "035550100" {
		t.Errorf("send frame source = %q, want the practice number", frame.From)
	}
	if len(frame.Numbers) != 1 || frame.Numbers[0] != "64211626986" {
		t.Errorf("send numbers = %v", frame.Numbers)
	}

	writeFrame(t, conn, wireframe{Type: "send_result", ID: id, Results: map[string]bool{"64211626986": true}})
	ev := nextEvent(t, client)
	result, ok := ev.(SendResult)
	if !ok {
		t.Fatalf("event = %T", ev)
	}
	if result.CorrelationID != id || !result.OK() {
		t.Errorf("send result = %+v", result)
	}
}

func TestClientSendWithoutConnection(t *testing.T) {
	client := NewClient("127.0.0.1:1", "035550100")
	if _, err := client.SendSMS([]string{"64211626986"}, "hello"); err == nil {
		t.Error("SendSMS without a connection must fail")
	}
}

func TestClientDisconnectPublishesStateChange(t *testing.T) {
	agent := newFakeAgent(t)
	client := NewClient(agent.addr(), "035550100")
	defer client.Close()

	if err := client.Connect(); err != nil {
		t.Fatal(err)
	}
	conn := agent.accept(t)
	readFrame(t, conn) // hello
	conn.Close()

	ev := nextEvent(t, client)
	change, ok := ev.(StateChanged)
	if !ok {
		t.Fatalf("event = %T", ev)
	}
	if change.New != model.AppDisconnected {
		t.Errorf("disconnect published %+v", change)
	}
}

func TestParseStates(t *testing.T) {
	if parseAppState("Connected") != model.AppConnected ||
		parseAppState("Connecting") != model.AppConnecting ||
		parseAppState("StartingSession") != model.AppStartingSession {
		t.Error("known app states must parse")
	}
	if parseAppState("whatever") != model.AppDisconnected {
		t.Error("unknown app states collapse to disconnected")
	}
	if parseDeviceState("Idle") != model.DeviceIdle || parseDeviceState("Busy") != model.DeviceBusy {
		t.Error("known device states must parse")
	}
	if parseDeviceState("") != model.DeviceUnknown {
		t.Error("missing device state is unknown")
	}
}

func TestSendResultOK(t *testing.T) {
	if (SendResult{}).OK() {
		t.Error("an empty result set is not a success")
	}
	if !(SendResult{Results: map[string]bool{"a": true, "b": true}}).OK() {
		t.Error("all-accepted must be OK")
	}
	if (SendResult{Results: map[string]bool{"a": true, "b": false}}).OK() {
		t.Error("any rejection fails the send")
	}
}
