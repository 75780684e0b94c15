package server

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/app"
	"github.com/ayusman/vaultjudge/internal/vault"
)

func dialHub(t *testing.T, hub *LiveHub) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(hub)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	for i := 0; hub.Clients() == 0 && i < 100; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("hub has %d clients, want 1", hub.Clients())
	}
	return conn
}

func TestLiveHub_FrameProcessed(t *testing.T) {
	hub := NewLiveHub(zerolog.Nop())
	conn := dialHub(t, hub)

	hub.FrameProcessed("job1", app.FrameResult{
		Index:    7,
		Detected: true,
		Phase:    vault.Repulsion,
		Result: vault.Result{
			Phase: vault.Repulsion,
			Label: vault.LabelRepulsion,
			Deductions: []vault.Deduction{
				{Kind: vault.BentKnees, Value: 0.1},
				{Kind: vault.ShoulderAngle, Value: 0.3},
			},
		},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg LiveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	if msg.Type != MessageFrame || msg.Job != "job1" || msg.Frame != 7 || !msg.Detected {
		t.Errorf("message = %+v", msg)
	}
	if msg.Phase != "repulsion" || msg.Label != "Repulsion" {
		t.Errorf("phase/label = %q/%q", msg.Phase, msg.Label)
	}
	if msg.Deductions["shoulder_angle"] != 0.3 || len(msg.Deductions) != 2 {
		t.Errorf("deductions = %v", msg.Deductions)
	}
}

func TestLiveHub_RejectedFrameIsNotDetected(t *testing.T) {
	hub := NewLiveHub(zerolog.Nop())
	conn := dialHub(t, hub)

	hub.FrameProcessed("job1", app.FrameResult{Index: 1, Detected: true, Phase: vault.Jump, Err: errors.New("missing joints")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg LiveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Detected || msg.Phase != "jump" || msg.Deductions != nil {
		t.Errorf("message = %+v", msg)
	}
}

func TestLiveHub_ClientDisconnect(t *testing.T) {
	hub := NewLiveHub(zerolog.Nop())
	conn := dialHub(t, hub)
	conn.Close()

	for i := 0; hub.Clients() != 0 && i < 100; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Clients() != 0 {
		t.Fatalf("hub still has %d clients after disconnect", hub.Clients())
	}

	// Broadcasting with no clients is a no-op.
	hub.JobFinished(app.VideoReport{JobID: "job1"})
}
