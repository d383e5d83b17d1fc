package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/leengari/gridops/internal/ops"
	"github.com/leengari/gridops/internal/session"
)

// Commands accepted by the server
const (
	CmdList    = "list"
	CmdCreate  = "create"
	CmdApply   = "apply"
	CmdShow    = "show"
	CmdUndo    = "undo"
	CmdHistory = "history"
	CmdSave    = "save"
	CmdExit    = "exit"
)

// Request is one JSON message sent by a client
type Request struct {
	Command string `json:"command"`
	Session string `json:"session,omitempty"`
	// Ops is the source of an operations file, for apply
	Ops string `json:"ops,omitempty"`
	// CSV and KeyColumn describe the grid of a new session, for create
	CSV       string `json:"csv,omitempty"`
	KeyColumn string `json:"key_column,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Response answers one request
type Response struct {
	Message  string       `json:"message,omitempty"`
	Sessions []string     `json:"sessions,omitempty"`
	Steps    []StepResult `json:"steps,omitempty"`
	Columns  []string     `json:"columns,omitempty"`
	Rows     [][]*string  `json:"rows,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// StepResult describes one applied operation
type StepResult struct {
	HistoryEntryID int64  `json:"history_entry_id"`
	Operation      string `json:"operation"`
	Description    string `json:"description"`
	Preservation   string `json:"preservation"`
	Rows           int64  `json:"rows"`
}

// Start starts the TCP server
func Start(port int, registry *session.Registry) {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("Failed to bind to port", "port", port, "error", err)
		return
	}
	slog.Info("Running on port", "port", port)
	if err := Serve(context.Background(), listener, registry); err != nil {
		slog.Error("server stopped", "error", err)
	}
}

// Serve accepts connections on listener until ctx is done. The listener is
// closed on return.
func Serve(ctx context.Context, listener net.Listener, registry *session.Registry) error {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			slog.Error("Failed to accept connection", "error", err)
			continue
		}
		go handleConnection(ctx, conn, registry)
	}
}

func handleConnection(ctx context.Context, conn net.Conn, registry *session.Registry) {
	defer conn.Close()
	log := slog.With(slog.String("remote", conn.RemoteAddr().String()))

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if err == io.EOF {
				return // Connection closed gracefully
			}
			log.Error("decode error", "error", err)
			_ = encoder.Encode(&Response{Error: fmt.Sprintf("Invalid request format: %v", err)})
			return
		}

		if req.Command == CmdExit {
			return
		}

		resp, err := handle(ctx, registry, req)
		if err != nil {
			log.Warn("request failed", "command", req.Command, "session", req.Session, "error", err)
			resp = &Response{Error: err.Error()}
		}
		if err := encoder.Encode(resp); err != nil {
			log.Error("encode error", "error", err)
			return
		}
	}
}

func handle(ctx context.Context, registry *session.Registry, req Request) (*Response, error) {
	if req.Command == CmdList {
		names, err := registry.List()
		if err != nil {
			return nil, err
		}
		return &Response{Sessions: names}, nil
	}
	if req.Command == CmdCreate {
		s, err := registry.ImportReader(req.Session, strings.NewReader(req.CSV), req.KeyColumn)
		if err != nil {
			return nil, err
		}
		return &Response{
			Message: fmt.Sprintf("created '%s' with %d rows", s.Name(), s.Grid().RowCount()),
			Columns: s.Grid().ColumnModel().ColumnNames(),
		}, nil
	}

	s, err := registry.Get(req.Session)
	if err != nil {
		return nil, err
	}
	switch req.Command {
	case CmdApply:
		parsed, err := ops.DecodeBytes([]byte(req.Ops), "request")
		if err != nil {
			return nil, err
		}
		steps, err := s.ApplyAll(ctx, parsed)
		resp := &Response{Columns: s.Grid().ColumnModel().ColumnNames(), Steps: stepResults(steps)}
		if err != nil {
			resp.Error = err.Error()
		}
		return resp, nil
	case CmdHistory:
		return &Response{Steps: stepResults(s.History())}, nil
	case CmdShow:
		g := s.Grid()
		resp := &Response{Columns: g.ColumnModel().ColumnNames()}
		for n, r := range g.Rows() {
			if req.Limit > 0 && n == req.Limit {
				break
			}
			row := make([]*string, len(resp.Columns))
			for i := range row {
				if cell := r.Row.Cell(i); !cell.IsBlank() {
					v := cell.String()
					row[i] = &v
				}
			}
			resp.Rows = append(resp.Rows, row)
		}
		return resp, nil
	case CmdUndo:
		step, ok := s.Undo()
		if !ok {
			return nil, fmt.Errorf("nothing to undo")
		}
		return &Response{Message: "undone: " + step.Description}, nil
	case CmdSave:
		if err := registry.Save(s.Name()); err != nil {
			return nil, err
		}
		return &Response{Message: fmt.Sprintf("saved '%s'", s.Name())}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", req.Command)
	}
}

func stepResults(steps []session.Step) []StepResult {
	out := make([]StepResult, 0, len(steps))
	for _, step := range steps {
		out = append(out, StepResult{
			HistoryEntryID: step.HistoryEntryID,
			Operation:      step.Operation,
			Description:    step.Description,
			Preservation:   step.Preservation.String(),
			Rows:           step.Rows,
		})
	}
	return out
}
