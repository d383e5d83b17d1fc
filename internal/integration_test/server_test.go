package integration

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/leengari/gridops/internal/network"
	"github.com/leengari/gridops/internal/session"
)

// startServer serves a registry over dir until the test ends
func startServer(t *testing.T, dir string) (*json.Encoder, *json.Decoder, func()) {
	t.Helper()
	reg := session.NewRegistry(dir+"/grids", setupRunner(t), session.Options{Store: setupStore(t, dir)})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- network.Serve(ctx, listener, reg) }()

	conn, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	stop := func() {
		conn.Close()
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve returned %v", err)
		}
		reg.Close()
	}
	return json.NewEncoder(conn), json.NewDecoder(conn), stop
}

func roundTrip(t *testing.T, enc *json.Encoder, dec *json.Decoder, req network.Request) network.Response {
	t.Helper()
	if err := enc.Encode(req); err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	var res network.Response
	if err := dec.Decode(&res); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("%s failed: %s", req.Command, res.Error)
	}
	return res
}

func TestServerJSON(t *testing.T) {
	dir := setupWorkspace(t)

	enc, dec, stop := startServer(t, dir)
	roundTrip(t, enc, dec, network.Request{Command: network.CmdCreate, Session: "people", CSV: peopleCSV, KeyColumn: "id"})
	res := roundTrip(t, enc, dec, network.Request{Command: network.CmdApply, Session: "people", Ops: `
operation "text-transform" {
  column     = "country"
  expression = upper(value)
  persist    = true
}
`})
	if len(res.Steps) != 1 || res.Steps[0].Operation != "text-transform" {
		t.Fatalf("Unexpected steps: %+v", res.Steps)
	}
	roundTrip(t, enc, dec, network.Request{Command: network.CmdSave, Session: "people"})
	stop()

	// a restarted server serves the saved grid and its history
	enc, dec, stop = startServer(t, dir)
	defer stop()

	res = roundTrip(t, enc, dec, network.Request{Command: network.CmdHistory, Session: "people"})
	if len(res.Steps) != 1 || res.Steps[0].Description == "" {
		t.Errorf("Expected one restored step, got %+v", res.Steps)
	}

	res = roundTrip(t, enc, dec, network.Request{Command: network.CmdShow, Session: "people"})
	if len(res.Rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(res.Rows))
	}
	if country := res.Rows[2][2]; country == nil || *country != "US" {
		t.Errorf("Expected country 'US' in row 2, got %v", country)
	}
	if res.Rows[1][2] != nil {
		t.Errorf("Expected blank country in row 1, got %v", *res.Rows[1][2])
	}

	res = roundTrip(t, enc, dec, network.Request{Command: network.CmdList})
	if len(res.Sessions) != 1 || res.Sessions[0] != "people" {
		t.Errorf("Expected session 'people', got %v", res.Sessions)
	}
}
