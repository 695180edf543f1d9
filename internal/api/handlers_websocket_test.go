// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	ws "github.com/tomtom215/fieldmap/internal/websocket"
)

func startServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = env.hub.RunWithContext(ctx) }()
	server := httptest.NewServer(env.router)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return server
}

func dialSession(t *testing.T, server *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

// readUntil reads frames until one of type typ satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatal(err)
		}
		var msg ws.Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg.Type == typ && (match == nil || match(msg.Data)) {
			return msg.Data
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(ws.Inbound{Type: typ, Data: raw}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	server := startServer(t, env)

	for _, origin := range []string{"", "https://evil.example.com"} {
		_, resp, err := dialSession(t, server, origin)
		if err == nil {
			t.Errorf("origin %q: dial succeeded, want rejection", origin)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("origin %q: resp = %v, want 403", origin, resp)
		}
	}
}

// A browser mounts a map, answers map_create and gets the first device
// selected and drawn.
func TestWebSocket_MapSession(t *testing.T) {
	env := newTestEnv(t)
	server := startServer(t, env)

	conn, _, err := dialSession(t, server, "https://fields.example.com")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	send(t, conn, ws.MessageTypeMount, ws.MountData{Container: "map"})

	var create ws.MapCreateData
	if err := json.Unmarshal(readUntil(t, conn, ws.MessageTypeMapCreate, nil), &create); err != nil {
		t.Fatal(err)
	}
	if create.Container != "map" || create.Handle == "" {
		t.Fatalf("map_create = %+v", create)
	}
	if create.View.Zoom != 4 || create.View.Center.Longitude != -98 {
		t.Errorf("initial view = %+v, want default (-98, 39) zoom 4", create.View)
	}

	send(t, conn, ws.MessageTypeMapReady, ws.MapReadyData{Handle: create.Handle})

	var overlay ws.OverlayAddData
	raw := readUntil(t, conn, ws.MessageTypeOverlayAdd, func(d json.RawMessage) bool {
		return strings.Contains(string(d), `"device_marker"`)
	})
	if err := json.Unmarshal(raw, &overlay); err != nil {
		t.Fatal(err)
	}
	if overlay.Handle != create.Handle {
		t.Errorf("overlay handle = %s, want %s", overlay.Handle, create.Handle)
	}
	if overlay.Overlay.Attributes["device_id"] != "17" {
		t.Errorf("marker attributes = %v", overlay.Overlay.Attributes)
	}

	readUntil(t, conn, ws.MessageTypeSessionState, func(d json.RawMessage) bool {
		var st struct {
			Selected string `json:"selected_device_id"`
			Loading  bool   `json:"loading"`
			Phase    string `json:"phase"`
		}
		_ = json.Unmarshal(d, &st)
		return st.Selected == "17" && !st.Loading && st.Phase == "ready"
	})

	if loc, ok := env.cache.Get("17"); !ok || loc.Latitude != 39.1 {
		t.Errorf("cache after fetch = %+v, %v", loc, ok)
	}
}
