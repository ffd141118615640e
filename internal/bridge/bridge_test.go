package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

var pikachu = pokemon.Record{ID: 25, Name: "pikachu", Image: "https://img.test/25.png", Types: []string{"electric"}}

func TestEncodeVocabulary(t *testing.T) {
	m := EncodeRequest(MetadataRequest{RequestID: 9, TargetID: 25})
	if m.Name != "RequestPokemonData" || m.Payload != "25" {
		t.Errorf("request = %+v", m)
	}

	rec := pikachu
	m, err := EncodeOutcome(Outcome{Kind: CaptureSucceeded, Record: &rec})
	if err != nil {
		t.Fatalf("EncodeOutcome: %v", err)
	}
	if m.Name != "OnCaptureSuccess" {
		t.Errorf("name = %s", m.Name)
	}
	var back pokemon.Record
	if err := json.Unmarshal([]byte(m.Payload), &back); err != nil || back.Name != "pikachu" {
		t.Errorf("payload %q did not carry the record: %v", m.Payload, err)
	}

	for kind, name := range map[OutcomeKind]string{CaptureFailed: "OnCaptureFailed", ReturnToMenu: "ReturnToMenu"} {
		m, err := EncodeOutcome(Outcome{Kind: kind})
		if err != nil || m.Name != name || m.Payload != "" {
			t.Errorf("%s encoded as %+v (%v)", kind, m, err)
		}
	}

	if _, err := EncodeOutcome(Outcome{Kind: CaptureSucceeded}); err == nil {
		t.Error("success without record should fail to encode")
	}
}

func TestDecodeInbound(t *testing.T) {
	live := MetadataRequest{RequestID: 3, TargetID: 25}

	in, err := DecodeInbound(Message{Name: EventStartGame}, live)
	if err != nil || in.Kind != InboundStart {
		t.Errorf("start decoded as %+v (%v)", in, err)
	}

	raw, _ := json.Marshal(pikachu)
	in, err = DecodeInbound(Message{Name: EventReceivePokemonData, Payload: string(raw)}, live)
	if err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if !in.Result.OK() || in.Result.RequestID != 3 || in.Result.TargetID != 25 {
		t.Errorf("result = %+v", in.Result)
	}

	in, err = DecodeInbound(Message{Name: EventReceivePokemonData, Payload: "{not json"}, live)
	var merr *MalformedPayloadError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want MalformedPayloadError", err)
	}
	if in.Kind != InboundMetadata || in.Result.OK() || in.Result.RequestID != 3 || in.Result.TargetID != 25 {
		t.Errorf("malformed payload should fail the live request, got %+v", in.Result)
	}

	in, _ = DecodeInbound(Message{Name: EventReceivePokemonData, Payload: `{"id":25,"name":"pikachu"}`}, live)
	if in.Result.OK() {
		t.Error("partial record accepted")
	}

	in, err = DecodeInbound(Message{Name: EventPokemonDataError, Payload: " 404 "}, live)
	var perr *PageError
	if err != nil || !errors.As(in.Result.Err, &perr) || perr.Message != "404" {
		t.Errorf("page error decoded as %+v (%v)", in.Result, err)
	}

	if _, err := DecodeInbound(Message{Name: "Bogus"}, live); err == nil {
		t.Error("unknown event accepted")
	}
}

func TestPageErrorTaggedWithEchoedTarget(t *testing.T) {
	p := NewMessagePort(func(Message) {}, log.New(&bytes.Buffer{}, "", 0))
	p.RequestMetadata(MetadataRequest{RequestID: 1, TargetID: 4})
	p.RequestMetadata(MetadataRequest{RequestID: 2, TargetID: 9})

	tests := []struct {
		name       string
		target     int
		wantTarget int
	}{
		{"late error for the torn-down target", 4, 4},
		{"error for the live target", 9, 9},
		{"error without a target", 0, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := p.Receive(Message{Name: EventPokemonDataError, Payload: "offline", TargetID: tt.target})
			if err != nil || in.Kind != InboundMetadata {
				t.Fatalf("got %+v (%v)", in, err)
			}
			if in.Result.RequestID != 2 || in.Result.TargetID != tt.wantTarget || in.Result.Err == nil {
				t.Errorf("result = %+v, want request 2 target %d", in.Result, tt.wantTarget)
			}
		})
	}
}

func TestMessagePortTagsRepliesWithLiveRequest(t *testing.T) {
	var sent []Message
	var logs bytes.Buffer
	p := NewMessagePort(func(m Message) { sent = append(sent, m) }, log.New(&logs, "", 0))

	p.RequestMetadata(MetadataRequest{RequestID: 7, TargetID: 4})
	if len(sent) != 1 || sent[0].Payload != "4" {
		t.Fatalf("sent = %+v", sent)
	}

	in, err := p.Receive(Message{Name: EventReceivePokemonData, Payload: "]"})
	if err == nil || in.Result.RequestID != 7 || in.Result.TargetID != 4 {
		t.Errorf("got %+v (%v)", in.Result, err)
	}
	if logs.Len() == 0 {
		t.Error("malformed payload should be logged")
	}

	p.Notify(Outcome{Kind: "nonsense"})
	if len(sent) != 1 {
		t.Error("unencodable outcome should be dropped")
	}
	p.Notify(Outcome{Kind: CaptureFailed})
	if len(sent) != 2 || sent[1].Name != EventCaptureFailed {
		t.Errorf("sent = %+v", sent)
	}
}

func TestFanout(t *testing.T) {
	var a, b []OutcomeKind
	f := Fanout{
		NotifierFunc(func(o Outcome) { a = append(a, o.Kind) }),
		nil,
		NotifierFunc(func(o Outcome) { b = append(b, o.Kind) }),
	}
	f.Notify(Outcome{Kind: CaptureFailed})
	if len(a) != 1 || len(b) != 1 {
		t.Errorf("a=%v b=%v", a, b)
	}
}

func TestFetchPortDelivers(t *testing.T) {
	results := make(chan MetadataResult, 1)
	fetcher := FetcherFunc(func(ctx context.Context, id int) (pokemon.Record, error) {
		r := pikachu
		r.ID = id
		return r, nil
	})
	p := NewFetchPort(context.Background(), fetcher, results, time.Second, nil)
	p.RequestMetadata(MetadataRequest{RequestID: 1, TargetID: 25})
	p.Wait()

	res := <-results
	if !res.OK() || res.Record.ID != 25 || res.RequestID != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestFetchPortTimeout(t *testing.T) {
	results := make(chan MetadataResult, 1)
	fetcher := FetcherFunc(func(ctx context.Context, id int) (pokemon.Record, error) {
		<-ctx.Done()
		return pokemon.Record{}, ctx.Err()
	})
	p := NewFetchPort(context.Background(), fetcher, results, 10*time.Millisecond, nil)
	p.RequestMetadata(MetadataRequest{RequestID: 2, TargetID: 1})
	p.Wait()

	res := <-results
	if !errors.Is(res.Err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", res.Err)
	}
}

func TestFetchPortRejectsInvalidRecord(t *testing.T) {
	results := make(chan MetadataResult, 2)
	p := NewFetchPort(context.Background(), FetcherFunc(func(ctx context.Context, id int) (pokemon.Record, error) {
		return pokemon.Record{ID: id, Name: "missingno"}, nil
	}), results, 0, nil)
	p.RequestMetadata(MetadataRequest{RequestID: 1, TargetID: 1})

	p2 := NewFetchPort(context.Background(), FetcherFunc(func(ctx context.Context, id int) (pokemon.Record, error) {
		return pikachu, nil
	}), results, 0, nil)
	p2.RequestMetadata(MetadataRequest{RequestID: 2, TargetID: 1})

	p.Wait()
	p2.Wait()
	for i := 0; i < 2; i++ {
		if res := <-results; res.OK() {
			t.Errorf("request %d accepted %+v", res.RequestID, res.Record)
		}
	}
}

func TestFetchPortAbandonsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan MetadataResult)
	p := NewFetchPort(ctx, FetcherFunc(func(ctx context.Context, id int) (pokemon.Record, error) {
		return pikachu, nil
	}), results, 0, nil)
	cancel()
	p.RequestMetadata(MetadataRequest{RequestID: 1, TargetID: 25})

	done := make(chan struct{})
	go func() { p.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lookup goroutine leaked after cancel")
	}
}
