// Package tracing hooks Langfuse observability into the eino callback
// chain so every chat generation is traced end to end, retrieval-augmented
// prompt included.
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

const defaultLangfuseHost = "http://localhost:3000"

// Setup builds a Langfuse callback handler when LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY are both present; otherwise it reports false and
// tracing stays off. The returned flush function must run before process
// exit or buffered spans are lost.
func Setup() (callbacks.Handler, func(), bool) {
	publicKey := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secretKey := os.Getenv("LANGFUSE_SECRET_KEY")
	if publicKey == "" || secretKey == "" {
		return nil, nil, false
	}

	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultLangfuseHost
	}

	handler, flush := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: publicKey,
		SecretKey: secretKey,
		Name:      "sitechat",
	})
	return handler, flush, true
}
