package network

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/leengari/gridops/internal/runner/local"
	"github.com/leengari/gridops/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t   *testing.T
	enc *json.Encoder
	dec *json.Decoder
}

func (c *client) do(req Request) Response {
	c.t.Helper()
	require.NoError(c.t, c.enc.Encode(req))
	var resp Response
	require.NoError(c.t, c.dec.Decode(&resp))
	return resp
}

func startServer(t *testing.T) *client {
	t.Helper()
	r, err := local.New(2, 2)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	reg := session.NewRegistry(t.TempDir(), r, session.Options{ProjectID: "net"})
	t.Cleanup(reg.Close)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, reg) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}
}

func TestServer_CreateApplyShow(t *testing.T) {
	c := startServer(t)

	resp := c.do(Request{Command: CmdCreate, Session: "people", CSV: "name,city\nada,london\ngrace,\n"})
	require.Empty(t, resp.Error)
	assert.Equal(t, []string{"name", "city"}, resp.Columns)

	resp = c.do(Request{Command: CmdApply, Session: "people", Ops: `
operation "column-addition" {
  base_column = "name"
  new_column  = "shout"
  expression  = upper(value)
}
`})
	require.Empty(t, resp.Error)
	require.Len(t, resp.Steps, 1)
	assert.Equal(t, "column-addition", resp.Steps[0].Operation)
	assert.Equal(t, []string{"name", "shout", "city"}, resp.Columns)

	resp = c.do(Request{Command: CmdShow, Session: "people", Limit: 1})
	require.Empty(t, resp.Error)
	require.Len(t, resp.Rows, 1)
	require.NotNil(t, resp.Rows[0][1])
	assert.Equal(t, "ADA", *resp.Rows[0][1])

	resp = c.do(Request{Command: CmdShow, Session: "people"})
	require.Len(t, resp.Rows, 2)
	assert.Nil(t, resp.Rows[1][2])

	resp = c.do(Request{Command: CmdUndo, Session: "people"})
	assert.Equal(t, "undone: Create column shout", resp.Message)

	resp = c.do(Request{Command: CmdSave, Session: "people"})
	require.Empty(t, resp.Error)

	resp = c.do(Request{Command: CmdList})
	assert.Equal(t, []string{"people"}, resp.Sessions)
}

func TestServer_Errors(t *testing.T) {
	c := startServer(t)

	resp := c.do(Request{Command: CmdShow, Session: "nobody"})
	assert.Contains(t, resp.Error, "does not exist")

	c.do(Request{Command: CmdCreate, Session: "s", CSV: "a\n1\n"})
	resp = c.do(Request{Command: "frobnicate", Session: "s"})
	assert.Equal(t, `unknown command "frobnicate"`, resp.Error)

	resp = c.do(Request{Command: CmdApply, Session: "s", Ops: `operation "nope" {}`})
	assert.NotEmpty(t, resp.Error)

	resp = c.do(Request{Command: CmdUndo, Session: "s"})
	assert.Equal(t, "nothing to undo", resp.Error)
}
