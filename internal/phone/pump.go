// internal/phone/pump.go
package phone

import (
	"context"
	"log"
	"time"
)

// ResultResolver completes a pending send request.
type ResultResolver interface {
	Resolve(correlationID string, ok bool)
}

// InboundHandler processes one phone-originated message. Implementations must
// not panic outward; a panic here would land in the session's event path.
type InboundHandler interface {
	Handle(from, body string, at time.Time)
}

// RunEventPump drains bridge events on one goroutine, fanning them out to the
// monitor, the dispatcher's pending map and the inbound processor. Having a
// single consumer keeps tether callbacks away from shared maps.
func RunEventPump(ctx context.Context, bridge Bridge, monitor *Monitor, resolver ResultResolver, handler InboundHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-bridge.Events():
			if !open {
				return
			}
			switch e := ev.(type) {
			case StateChanged:
				if monitor != nil {
					monitor.OnStateChanged(e.New, e.Old, e.Device)
				}
			case SendResult:
				if resolver != nil {
					resolver.Resolve(e.CorrelationID, e.OK())
				}
			case SmsReceived:
				if handler != nil {
					handler.Handle(e.From, e.Body, e.At)
				}
			default:
				log.Printf("⚠️ unhandled bridge event %T", ev)
			}
		}
	}
}
