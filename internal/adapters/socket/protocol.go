// Package socket implements a JSON-over-Unix-socket protocol for the
// specflow-lsp daemon. The protocol uses newline-delimited JSON: each message
// is one JSON object + \n. Editor-facing values (diagnostics, completion
// items, locations) use the LSP 3.16 types so a transport can forward them
// unchanged.
package socket

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// SocketPath returns the Unix socket path for a given workspace root.
// Format: {tmp}/specflow-{first12hex}.sock
func SocketPath(workspaceRoot string) string {
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		abs = workspaceRoot
	}
	h := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), fmt.Sprintf("specflow-%x.sock", h[:6]))
}

// Method names for the protocol.
const (
	MethodOpen       = "open"
	MethodChange     = "change"
	MethodClose      = "close"
	MethodComplete   = "complete"
	MethodDefinition = "definition"
	MethodReferences = "references"
	MethodSteps      = "steps"
	MethodBindings   = "bindings"
	MethodHealth     = "health"
	MethodReindex    = "reindex"
	MethodShutdown   = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages. Code carries the
// error code of a coded error so clients can branch on it.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   string      `json:"code,omitempty"`
}

// DocumentParams is the params for open, change and close requests.
// Path may be a file path or a file:// URI.
type DocumentParams struct {
	Path string `json:"path"`
	Text string `json:"text,omitempty"`
}

// PositionParams is the params for complete, definition and references
// requests. Line and Character are 0-based.
type PositionParams struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

// StepsParams is the params for a steps request.
type StepsParams struct {
	Unbound bool `json:"unbound,omitempty"` // only steps no binding implements
}

// DiagnosticsResult is the result of open and change requests.
type DiagnosticsResult struct {
	Diagnostics []protocol.Diagnostic `json:"diagnostics"`
}

// CompletionResult is the result of a complete request.
type CompletionResult struct {
	Items []protocol.CompletionItem `json:"items"`
}

// LocationsResult is the result of definition and references requests.
type LocationsResult struct {
	Locations []protocol.Location `json:"locations"`
}

// StepsResult is the result of a steps request.
type StepsResult struct {
	Steps []StepInfo `json:"steps"`
	Count int        `json:"count"`
}

// StepInfo describes one step occurrence.
type StepInfo struct {
	Text     string `json:"text"`
	Keyword  string `json:"keyword"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Bindings int    `json:"bindings"` // number of implementing declarations
}

// BindingsResult is the result of a bindings request.
type BindingsResult struct {
	Bindings []BindingInfo `json:"bindings"`
	Count    int           `json:"count"`
}

// BindingInfo describes one step binding declaration.
type BindingInfo struct {
	Pattern   string `json:"pattern"`
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Class     string `json:"class"`
	Method    string `json:"method"`
	Attribute string `json:"attribute"`
	Steps     int    `json:"steps"` // number of matching step occurrences
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status       string `json:"status"`
	Root         string `json:"root,omitempty"`
	FeatureFiles int    `json:"feature_files"`
	OpenFiles    int    `json:"open_files"`
	FailedFiles  int    `json:"failed_files"`
	Steps        int    `json:"steps"`
	BindingFiles int    `json:"binding_files"`
	Declarations int    `json:"declarations"`
	FrontEnd     bool   `json:"front_end"`
	Cache        bool   `json:"cache"`
	Uptime       string `json:"uptime"`
}

// ReindexResult is the result of a reindex request.
type ReindexResult struct {
	FeatureFiles int   `json:"feature_files"`
	BindingFiles int   `json:"binding_files"`
	Cached       int   `json:"cached"`
	Failed       int   `json:"failed"`
	Removed      int   `json:"removed"`
	ElapsedMs    int64 `json:"elapsed_ms"`
}
