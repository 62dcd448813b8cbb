package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agrioracle/agri-oracle/internal/narrative"
	"github.com/agrioracle/agri-oracle/internal/network"
	"github.com/agrioracle/agri-oracle/internal/oracle"
	"github.com/agrioracle/agri-oracle/internal/ratelimit"
	"github.com/agrioracle/agri-oracle/internal/sampler"
	"github.com/agrioracle/agri-oracle/internal/shock"
)

func newTestOracle(gen narrative.Generator) *oracle.Oracle {
	return oracle.New(oracle.Options{
		Params:    network.DefaultParams(),
		Sampler:   sampler.Config{Workers: 2, Seed: 11},
		Shots:     400,
		Generator: gen,
	})
}

func startServer(t *testing.T, runner Runner, opts Options) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer(runner, opts).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// roundTrip sends raw and decodes the reply into a generic map.
func roundTrip(t *testing.T, conn *websocket.Conn, raw string) map[string]any {
	t.Helper()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var reply map[string]any
	if err := json.Unmarshal(msg, &reply); err != nil {
		t.Fatalf("bad reply %s: %v", msg, err)
	}
	return reply
}

func TestSimulate_Result(t *testing.T) {
	conn := startServer(t, newTestOracle(nil), Options{})

	reply := roundTrip(t, conn, `{
		"type": "SIMULATE",
		"request_id": "req-1",
		"scenario": {"initial": {"monsoon": "Disrupted"}, "shocks": ["Severe Drought Hits"], "shots": 300}
	}`)

	if reply["type"] != TypeResult {
		t.Fatalf("reply = %v", reply)
	}
	if reply["request_id"] != "req-1" {
		t.Errorf("request_id = %v", reply["request_id"])
	}
	result := reply["result"].(map[string]any)
	if result["shots"] != float64(300) || result["event"] != shock.SevereDrought {
		t.Errorf("result shots/event = %v/%v", result["shots"], result["event"])
	}
	table := result["table"].(map[string]any)
	if outcomes := table["outcomes"].([]any); len(outcomes) == 0 {
		t.Error("expected outcomes")
	}
	if _, ok := result["Network"]; ok {
		t.Error("network should not be serialized")
	}
}

func TestSimulate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode string
	}{
		{"malformed json", `{"type":`, ErrBadRequest},
		{"wrong type", `{"type":"HELLO"}`, ErrBadRequest},
		{"missing scenario", `{"type":"SIMULATE"}`, ErrBadRequest},
		{"extra field", `{"type":"SIMULATE","scenario":{},"debug":true}`, ErrBadRequest},
		{"bad order", `{"type":"SIMULATE","scenario":{"order":"random"}}`, ErrBadRequest},
		{"zero shots", `{"type":"SIMULATE","scenario":{"shots":0}}`, ErrBadRequest},
		{"over max shots", `{"type":"SIMULATE","scenario":{"shots":5001}}`, ErrBadRequest},
		{"unknown shock", `{"type":"SIMULATE","scenario":{"shocks":["Locust Swarm"]}}`, ErrUnknownShock},
	}

	conn := startServer(t, newTestOracle(nil), Options{MaxShots: 5000})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := roundTrip(t, conn, tt.raw)
			if reply["type"] != TypeError || reply["code"] != tt.wantCode {
				t.Errorf("reply = %v, want %s", reply, tt.wantCode)
			}
		})
	}

	// The connection survives bad requests.
	reply := roundTrip(t, conn, `{"type":"SIMULATE","scenario":{"shots":10}}`)
	if reply["type"] != TypeResult {
		t.Errorf("expected RESULT after errors, got %v", reply)
	}
}

func TestSimulate_RequestIDSanitized(t *testing.T) {
	conn := startServer(t, newTestOracle(nil), Options{})

	reply := roundTrip(t, conn, `{"type":"SIMULATE","request_id":"<b>run 9</b>","scenario":{"shots":5}}`)
	if reply["request_id"] != "brun9b" {
		t.Errorf("request_id = %v", reply["request_id"])
	}
}

func TestSimulate_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(0, 1)
	conn := startServer(t, newTestOracle(nil), Options{Limiter: limiter})

	if reply := roundTrip(t, conn, `{"type":"SIMULATE","scenario":{"shots":5}}`); reply["type"] != TypeResult {
		t.Fatalf("first request: %v", reply)
	}
	reply := roundTrip(t, conn, `{"type":"SIMULATE","scenario":{"shots":5}}`)
	if reply["code"] != ErrRateLimit {
		t.Errorf("second request: %v", reply)
	}
}

func TestSimulate_ForgetsLimiterOnClose(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, 5)
	conn := startServer(t, newTestOracle(nil), Options{Limiter: limiter})

	roundTrip(t, conn, `{"type":"SIMULATE","scenario":{"shots":5}}`)
	if limiter.Len() != 1 {
		t.Fatalf("Len = %d, want 1", limiter.Len())
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for limiter.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("limiter bucket not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSimulate_NarrativeError(t *testing.T) {
	gen := narrative.NewMockGenerator().WithError(context.DeadlineExceeded)
	conn := startServer(t, newTestOracle(gen), Options{})

	reply := roundTrip(t, conn, `{"type":"SIMULATE","scenario":{"shots":20,"narrate":true}}`)
	if reply["type"] != TypeResult {
		t.Fatalf("reply = %v", reply)
	}
	if msg, _ := reply["narrative_error"].(string); !strings.Contains(msg, "narrative") {
		t.Errorf("narrative_error = %q", msg)
	}
	if reply["result"] == nil {
		t.Error("expected result alongside narrative error")
	}
}

func TestSimulate_Narrate(t *testing.T) {
	gen := narrative.NewMockGenerator().WithText("Rains fail across Marathwada.")
	conn := startServer(t, newTestOracle(gen), Options{})

	reply := roundTrip(t, conn, `{"type":"SIMULATE","scenario":{"name":"Kharif 2026","shots":20,"narrate":true}}`)
	result := reply["result"].(map[string]any)
	if result["narrative"] != "Rains fail across Marathwada." {
		t.Errorf("narrative = %v", result["narrative"])
	}
	if result["event"] != "Kharif 2026" {
		t.Errorf("event = %v", result["event"])
	}
}
