package wire

import (
	"bytes"
	"testing"

	"github.com/ferriscommerce/fabric/internal/model"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := NewLocalIDPayload{LocalID: 3}

	line, err := Encode(NewLocalID, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, err := Decode(line)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != NewLocalID {
		t.Fatalf("want type %s, got %s", NewLocalID, env.Type)
	}

	var got NewLocalIDPayload
	if err := env.Into(&got); err != nil {
		t.Fatalf("into: %v", err)
	}
	if got.LocalID != 3 {
		t.Fatalf("want local_id 3, got %d", got.LocalID)
	}
}

func TestDecodeRejectsMissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"payload":{}}`)); err != ErrUnknownType {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error decoding malformed line")
	}
}

func TestPostOrderResultPayloadRoundTrip(t *testing.T) {
	order := model.Order{ID: 42, Kind: model.Local, Products: []model.Product{{Name: "pen", Quantity: 1}}}
	payload := PostOrderResultPayload{LocalID: 9, Order: order, Completed: true}

	line, err := Encode(PostOrderResult, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := Decode(line)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var got PostOrderResultPayload
	if err := env.Into(&got); err != nil {
		t.Fatalf("into: %v", err)
	}
	if got.LocalID != 9 || !got.Completed || got.Order.ID != 42 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestNewLineReaderSplitsOnNewlines(t *testing.T) {
	input := "line one\nline two\n"
	sc := NewLineReader(bytes.NewBufferString(input))

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 2 || lines[0] != "line one" || lines[1] != "line two" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}
