package bridge

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

// Cross-boundary event names.
const (
	// engine -> page
	EventRequestPokemonData = "RequestPokemonData"
	EventCaptureSuccess     = "OnCaptureSuccess"
	EventCaptureFailed      = "OnCaptureFailed"
	EventReturnToMenu       = "ReturnToMenu"

	// page -> engine
	EventReceivePokemonData = "ReceivePokemonData"
	EventPokemonDataError   = "OnPokemonDataError"
	EventStartGame          = "StartGame"
)

// Message is one named event with a string payload. TargetID is set on page
// replies that echo the id from RequestPokemonData; zero means unknown.
type Message struct {
	Name     string `json:"name"`
	Payload  string `json:"payload,omitempty"`
	TargetID int    `json:"targetId,omitempty"`
}

// MalformedPayloadError reports an inbound payload that could not be decoded.
type MalformedPayloadError struct {
	Event string
	Err   error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("bridge: malformed %s payload: %v", e.Event, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// PageError carries an error message reported by the page.
type PageError struct {
	Message string
}

func (e *PageError) Error() string { return "bridge: page error: " + e.Message }

// EncodeRequest renders a metadata request as RequestPokemonData
func EncodeRequest(req MetadataRequest) Message {
	return Message{Name: EventRequestPokemonData, Payload: strconv.Itoa(req.TargetID)}
}

// EncodeOutcome renders an outcome in the page vocabulary.
func EncodeOutcome(o Outcome) (Message, error) {
	switch o.Kind {
	case CaptureSucceeded:
		if o.Record == nil {
			return Message{}, fmt.Errorf("bridge: encode %s: missing record", o.Kind)
		}
		raw, err := json.Marshal(o.Record)
		if err != nil {
			return Message{}, fmt.Errorf("bridge: encode %s: %w", o.Kind, err)
		}
		return Message{Name: EventCaptureSuccess, Payload: string(raw)}, nil
	case CaptureFailed:
		return Message{Name: EventCaptureFailed}, nil
	case ReturnToMenu:
		return Message{Name: EventReturnToMenu}, nil
	default:
		return Message{}, fmt.Errorf("bridge: encode: unknown outcome %q", o.Kind)
	}
}

// InboundKind classifies a decoded page message
type InboundKind string

const (
	InboundMetadata InboundKind = "metadata"
	InboundStart    InboundKind = "start"
)

// Inbound is a decoded page message.
type Inbound struct {
	Kind   InboundKind
	Result MetadataResult
}

// DecodeInbound interprets a page message in the context of the request that
// is currently outstanding. A record reply is tagged with its own id so a
// reply for an old target is recognizably stale. An error reply is tagged
// with the target it echoes, if any. Malformed JSON becomes a failed result
// for the live request.
func DecodeInbound(m Message, live MetadataRequest) (Inbound, error) {
	switch m.Name {
	case EventStartGame:
		return Inbound{Kind: InboundStart}, nil
	case EventPokemonDataError:
		req := live
		if m.TargetID != 0 {
			req.TargetID = m.TargetID
		}
		return Inbound{Kind: InboundMetadata, Result: Failed(req, &PageError{Message: strings.TrimSpace(m.Payload)})}, nil
	case EventReceivePokemonData:
		var rec pokemon.Record
		if err := json.Unmarshal([]byte(m.Payload), &rec); err != nil {
			merr := &MalformedPayloadError{Event: m.Name, Err: err}
			return Inbound{Kind: InboundMetadata, Result: Failed(live, merr)}, merr
		}
		rec = rec.Normalize()
		if err := rec.Validate(); err != nil {
			merr := &MalformedPayloadError{Event: m.Name, Err: err}
			return Inbound{Kind: InboundMetadata, Result: Failed(live, merr)}, merr
		}
		return Inbound{Kind: InboundMetadata, Result: MetadataResult{
			RequestID: live.RequestID,
			TargetID:  rec.ID,
			Record:    &rec,
		}}, nil
	default:
		return Inbound{}, fmt.Errorf("bridge: unknown inbound event %q", m.Name)
	}
}

// MessagePort speaks the named-event vocabulary through a send function.
// It remembers the outstanding request so replies can be tagged.
type MessagePort struct {
	send   func(Message)
	logger *log.Logger

	mu   sync.Mutex
	live MetadataRequest
}

// NewMessagePort returns a port that emits through send. A nil logger uses log.Default.
func NewMessagePort(send func(Message), logger *log.Logger) *MessagePort {
	if logger == nil {
		logger = log.Default()
	}
	return &MessagePort{send: send, logger: logger}
}

// RequestMetadata emits RequestPokemonData
func (p *MessagePort) RequestMetadata(req MetadataRequest) {
	p.mu.Lock()
	p.live = req
	p.mu.Unlock()
	p.send(EncodeRequest(req))
}

// Notify emits the outcome. Encoding failures are logged and dropped.
func (p *MessagePort) Notify(o Outcome) {
	m, err := EncodeOutcome(o)
	if err != nil {
		p.logger.Printf("bridge: drop outcome: %v", err)
		return
	}
	p.send(m)
}

// Receive decodes a page message against the outstanding request. Malformed
// payloads are logged and still produce a failed result.
func (p *MessagePort) Receive(m Message) (Inbound, error) {
	p.mu.Lock()
	live := p.live
	p.mu.Unlock()

	in, err := DecodeInbound(m, live)
	if err != nil {
		p.logger.Printf("bridge: receive %s: %v", m.Name, err)
	}
	return in, err
}
