package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/quillhaven/sitechat/internal/rag"
)

// EmbedderPinger probes the embedding backend by embedding a single short
// string. It satisfies the Pinger interface and is used by GET /readyz.
// Each probe costs one embedding call against the backend's quota.
type EmbedderPinger struct {
	// embedder is the embedding backend to probe.
	embedder rag.Embedder
	// name identifies the backend in readiness responses (e.g. "gemini").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embedder and
// backend name.
func NewEmbedderPinger(e rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds a single short string to confirm the backend is reachable.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vecs, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("embed returned no vector")
	}
	return nil
}

// LLMPinger probes the generation backend by sending a minimal generate
// request. It satisfies the Pinger interface and is used by GET /readyz.
// Each probe consumes a handful of tokens against the backend's quota.
type LLMPinger struct {
	// model is the chat model to probe.
	model model.ToolCallingChatModel
	// name identifies the backend in readiness responses (e.g. "gemini").
	name string
}

// NewLLMPinger constructs an LLMPinger for the given model and backend name.
func NewLLMPinger(m model.ToolCallingChatModel, name string) *LLMPinger {
	return &LLMPinger{model: m, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping sends a minimal generate request to confirm the backend is reachable.
func (p *LLMPinger) Ping(ctx context.Context) error {
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// SMTPPinger probes the contact-form SMTP server with a TCP dial. No SMTP
// conversation takes place; reachability is all /readyz needs to know.
type SMTPPinger struct {
	// addr is the "host:port" of the SMTP server.
	addr string
}

// NewSMTPPinger constructs an SMTPPinger for the given SMTP host and port.
func NewSMTPPinger(host string, port int) *SMTPPinger {
	return &SMTPPinger{addr: fmt.Sprintf("%s:%d", host, port)}
}

// Name returns the dependency label used in readiness responses.
func (p *SMTPPinger) Name() string { return "smtp" }

// Ping dials the SMTP server and closes the connection immediately.
func (p *SMTPPinger) Ping(ctx context.Context) error {
	d := &net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	return conn.Close()
}
