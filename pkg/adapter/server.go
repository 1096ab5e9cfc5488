package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/manifest"
)

// Version is reported by initialize and /health.
const Version = "0.1.0"

// ProtocolVersion is the supported tool protocol revision.
const ProtocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

const maxRequestSize = 1 << 20

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements error.
func (e *RPCError) Error() string {
	return e.Message
}

// Device is the connected device seen by the Server.
type Device interface {
	Status() Status
	Call(ctx context.Context, tag byte, args []byte) ([]byte, error)
}

// Server serves the tool endpoint at /mcp along with /status, /health
// and /manifests.
type Server struct {
	Name      string
	Device    Device
	Manifests *Manifests
	// Events serves the event stream at /events and for
	// notifications/initialized. Optional.
	Events http.Handler
}

const retrySuggestion = "Check device connection and try again"

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	switch r.Method + " " + r.URL.Path {
	case "POST /mcp":
		s.serveRPC(w, r)
	case "GET /status", "POST /status":
		writeJSON(w, s.Device.Status())
	case "GET /health":
		writeJSON(w, map[string]string{"status": "ok", "service": s.Name, "version": Version})
	case "GET /manifests":
		s.serveManifestList(w)
	case "POST /manifests/reload":
		s.serveManifestReload(w, r)
	case "GET /events":
		if s.Events == nil {
			http.NotFound(w, r)
			return
		}
		s.Events.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("write response: %v", err)
	}
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		writeJSON(w, &Response{JSONRPC: "2.0", Error: &RPCError{Code: CodeParseError, Message: "read request: " + err.Error()}})
		return
	}
	glog.V(2).Infof("request: %s", body)

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, &Response{JSONRPC: "2.0", Error: &RPCError{Code: CodeParseError, Message: "parse error: " + err.Error()}})
		return
	}

	if req.Method == "notifications/initialized" && s.Events != nil {
		glog.Info("client initialized")
		s.Events.ServeHTTP(w, r)
		return
	}
	if strings.HasPrefix(req.Method, "notifications/") {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	resp := &Response{JSONRPC: "2.0", ID: req.ID}
	resp.Result, err = s.Handle(r.Context(), req.Method, req.Params)
	if err != nil {
		resp.Result = nil
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			rpcErr = &RPCError{Code: CodeInternalError, Message: err.Error()}
		}
		resp.Error = rpcErr
		glog.V(1).Infof("%s: %s", req.Method, rpcErr.Message)
	}
	writeJSON(w, resp)
}

// Handle dispatches a JSON-RPC method.
func (s *Server) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "initialize":
		return s.initialize(), nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return s.listTools()
	case "tools/call":
		return s.callTool(ctx, params)
	}
	return nil, &RPCError{Code: CodeMethodNotFound, Message: "method not found: " + method}
}

func (s *Server) initialize() interface{} {
	return map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]interface{}{"tools": struct{}{}},
		"serverInfo":      map[string]string{"name": s.Name, "version": Version},
	}
}

func (s *Server) listTools() (interface{}, error) {
	st := s.Device.Status()
	if !st.IsReady() {
		return map[string]interface{}{
			"tools": []Tool{},
			"_status": map[string]string{
				"device_state": st.State.String(),
				"message":      st.Message(),
			},
		}, nil
	}
	m, err := s.Manifests.Get(st.DeviceID)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: "failed to load manifest: " + err.Error()}
	}
	return map[string]interface{}{"tools": ToolsFor(m)}, nil
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// TextContent is a text item of a tool result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the result of tools/call.
type ToolResult struct {
	Content []TextContent `json:"content"`
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if len(params) == 0 || string(params) == "null" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "missing params"}
	}
	var p callParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	if p.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "missing tool name"}
	}

	st := s.Device.Status()
	if !st.IsReady() {
		return nil, notReady(st)
	}
	m, err := s.Manifests.Get(st.DeviceID)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: "failed to load manifest: " + err.Error()}
	}
	fn := m.ByName(p.Name)
	if fn == nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "function not found: " + p.Name}
	}
	args, err := EncodeArguments(fn, p.Arguments)
	if err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "invalid arguments: " + err.Error()}
	}

	text, err := s.execute(ctx, fn, args)
	if err != nil {
		var notReadyErr *NotReadyError
		if errors.As(err, &notReadyErr) {
			return nil, notReady(notReadyErr.Status)
		}
		return nil, &RPCError{
			Code:    CodeInternalError,
			Message: "execution error: " + err.Error(),
			Data:    map[string]string{"suggestion": retrySuggestion},
		}
	}
	return &ToolResult{Content: []TextContent{{Type: "text", Text: text}}}, nil
}

func (s *Server) execute(ctx context.Context, fn *manifest.Function, args []byte) (string, error) {
	glog.V(1).Infof("call %s with %d arg bytes", fn.Name, len(args))
	data, err := s.Device.Call(ctx, fn.Tag, args)
	if err != nil {
		return "", err
	}
	return FormatResult(fn, data)
}

func notReady(st Status) *RPCError {
	return &RPCError{
		Code:    CodeInternalError,
		Message: (&NotReadyError{Status: st}).Error(),
		Data: map[string]string{
			"device_state": st.State.String(),
			"suggestion":   retrySuggestion,
		},
	}
}

func (s *Server) serveManifestList(w http.ResponseWriter) {
	ids, err := s.Manifests.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string][]string{"manifests": ids})
}

// serveManifestReload reloads the manifest of the device given by ?id=,
// defaulting to the connected one.
func (s *Server) serveManifestReload(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		id = s.Device.Status().DeviceID
	}
	if id == "" {
		http.Error(w, "device id required", http.StatusBadRequest)
		return
	}
	m, err := s.Manifests.Reload(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrManifestNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "name": m.Name, "version": m.Version, "functions": len(m.Functions)})
}
