package mcp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

const defaultProtocolVersion = "2024-11-05"

const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// rpcRequest keeps ID raw so a missing id can be told apart from id:null.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ServeHTTP handles one JSON-RPC request. Protocol violations get JSON-RPC
// error codes; tool-level failures never surface here, Call folds them into
// the result body.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeRPCError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required")
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, http.StatusBadRequest, nil, codeInvalidRequest, "invalid JSON body")
		return
	}

	notification := strings.HasPrefix(req.Method, "notifications/")

	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPCError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid JSON-RPC request")
		return
	}
	if req.ID == nil && !notification {
		writeRPCError(w, http.StatusBadRequest, nil, codeInvalidRequest, "missing request id")
		return
	}

	if notification {
		// Acknowledged, never answered.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx := WithAuthHeader(r.Context(), r.Header.Get("Authorization"))

	switch req.Method {
	case "initialize":
		var params initializeParams
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params, &params)
		}
		version := params.ProtocolVersion
		if version == "" {
			version = defaultProtocolVersion
		}
		writeRPCResult(w, req.ID, map[string]any{
			"protocolVersion": version,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    ServerName,
				"version": g.deps.Version,
			},
		})

	case "ping":
		writeRPCResult(w, req.ID, map[string]any{})

	case "tools/list":
		writeRPCResult(w, req.ID, map[string]any{"tools": g.Tools()})

	case "tools/call":
		var params callToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			writeRPCError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid tools/call params")
			return
		}
		result := g.Call(ctx, params.Name, params.Arguments)
		if result.IsError {
			slog.Warn("tool call failed", "tool", params.Name)
		}
		writeRPCResult(w, req.ID, result)

	default:
		// Unknown method is a JSON-RPC fault, but the transport stays 200.
		writeJSON(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method},
		})
	}
}

func writeRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: normalizeID(id), Result: result})
}

func writeRPCError(w http.ResponseWriter, status int, id json.RawMessage, code int, message string) {
	writeJSON(w, status, rpcResponse{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Error:   &rpcError{Code: code, Message: message},
	})
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if id == nil {
		return json.RawMessage("null")
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
