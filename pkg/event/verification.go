package event

import (
	"fmt"
	"time"

	"github.com/luxfi/srup/pkg/encoding"
	"github.com/luxfi/srup/pkg/srup"
)

// Default NATS subjects for inbound commands and verification results.
const (
	CommandSubject = "srup.command"
	ResultSubject  = "srup.result"
)

// VerificationEvent reports what a receiver did with one inbound message.
type VerificationEvent struct {
	CorrelationID string     `json:"correlation_id"`
	ResultType    ResultType `json:"result_type"`
	ErrorCode     ErrorCode  `json:"error_code,omitempty"`
	ErrorReason   string     `json:"error_reason,omitempty"`
	Subject       string     `json:"subject"`
	MessageType   string     `json:"message_type,omitempty"`
	SenderID      string     `json:"sender_id,omitempty"`
	SequenceID    string     `json:"sequence_id,omitempty"`
	Token         string     `json:"token,omitempty"`
	ReceivedAt    time.Time  `json:"received_at"`
}

func describe(ev *VerificationEvent, msg *srup.Message) {
	if msg == nil {
		return
	}
	ev.MessageType = msg.Type().String()
	if v, ok := msg.SenderID(); ok {
		ev.SenderID = fmt.Sprintf("%#016x", v)
	}
	if v, ok := msg.SequenceID(); ok {
		ev.SequenceID = fmt.Sprintf("%#016x", v)
	}
	if v, ok := msg.Token(); ok {
		ev.Token = v
	}
}

// CreateVerificationSuccess records an accepted message.
func CreateVerificationSuccess(correlationID, subject string, msg *srup.Message) *VerificationEvent {
	ev := &VerificationEvent{
		CorrelationID: correlationID,
		ResultType:    ResultTypeSuccess,
		Subject:       subject,
		ReceivedAt:    time.Now().UTC(),
	}
	describe(ev, msg)
	return ev
}

// CreateVerificationFailure records a rejected message. msg may be nil when
// the bytes could not be decoded.
func CreateVerificationFailure(correlationID, subject string, msg *srup.Message, code ErrorCode, err error) *VerificationEvent {
	ev := &VerificationEvent{
		CorrelationID: correlationID,
		ResultType:    ResultTypeError,
		ErrorCode:     code,
		Subject:       subject,
		ReceivedAt:    time.Now().UTC(),
	}
	if err != nil {
		ev.ErrorReason = err.Error()
	}
	describe(ev, msg)
	return ev
}

func (e *VerificationEvent) Marshal() ([]byte, error) {
	return encoding.StructToJsonBytes(e)
}

func UnmarshalVerificationEvent(data []byte) (*VerificationEvent, error) {
	var ev VerificationEvent
	if err := encoding.JsonBytesToStruct(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
