package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pixelfolio/apiserver/internal/mq"
	"github.com/pixelfolio/apiserver/types"
	"go.uber.org/zap"
)

// Channel is the bus channel carrying OTP notification events.
const Channel = "otp.email"

const deliveryTimeout = 30 * time.Second

// Mailer delivers a one-time passcode to an address.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// Event is the payload published for each issued passcode.
type Event struct {
	Email   string `json:"email"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}

// Dispatcher fans OTP notifications out to the mailer. With a bus it
// publishes events for the subscriber worker; without one it delivers
// directly from a goroutine. Either way delivery failures are logged and
// never surfaced to the caller: a code is issued once persisted.
type Dispatcher struct {
	mailer Mailer
	bus    *mq.Bus
	logger *zap.SugaredLogger
}

// NewDispatcher constructs a Dispatcher. bus may be nil for direct delivery.
func NewDispatcher(mailer Mailer, bus *mq.Bus, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		mailer: mailer,
		bus:    bus,
		logger: logger,
	}
}

// Dispatch queues delivery of the passcode and returns immediately.
func (d *Dispatcher) Dispatch(email, code string, purpose types.OTPPurpose) {
	event := Event{Email: email, Code: code, Purpose: string(purpose)}

	if d.bus != nil {
		data, err := json.Marshal(event)
		if err != nil {
			d.logger.Errorw("otp event marshal failed", "email", email, "error", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if _, err := d.bus.Publish(ctx, Channel, data, map[string]string{"purpose": event.Purpose}); err != nil {
			d.logger.Errorw("otp event publish failed", "email", email, "error", err)
		}
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := d.mailer.SendOTP(ctx, event.Email, event.Code); err != nil {
			d.logger.Errorw("otp email delivery failed", "email", event.Email, "error", err)
		}
	}()
}

// Run consumes OTP events from the bus and hands them to the mailer. It
// blocks until the context is canceled. A delivery failure is logged and
// the event acknowledged; the user requests a resend rather than the
// system retrying a stale code.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.bus == nil {
		return nil
	}
	return d.bus.Subscribe(ctx, Channel, func(ctx context.Context, msg mq.Message) error {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			d.logger.Errorw("otp event decode failed", "id", msg.ID, "error", err)
			return nil
		}
		if err := d.mailer.SendOTP(ctx, event.Email, event.Code); err != nil {
			d.logger.Errorw("otp email delivery failed", "email", event.Email, "error", err)
		}
		return nil
	})
}
