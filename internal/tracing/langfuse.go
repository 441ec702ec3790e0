// Package tracing wires Langfuse observability into the eino model calls
// made during answer generation. Tracing is opt-in: it activates only when
// Langfuse credentials are present in the environment.
//
// Environment variables:
//
//	LANGFUSE_PUBLIC_KEY  Langfuse project public key (required to enable)
//	LANGFUSE_SECRET_KEY  Langfuse project secret key (required to enable)
//	LANGFUSE_HOST        Langfuse server URL (default: http://localhost:3000)
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is a self-hosted Langfuse instance on the local machine.
const defaultHost = "http://localhost:3000"

// Setup builds the Langfuse callback handler from the environment. The
// returned flush function must run before process exit so buffered traces
// are delivered. When credentials are absent it reports false and the
// caller skips tracing entirely.
func Setup() (callbacks.Handler, func(), bool) {
	publicKey := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secretKey := os.Getenv("LANGFUSE_SECRET_KEY")
	if publicKey == "" || secretKey == "" {
		return nil, nil, false
	}

	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}

	handler, flush := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: publicKey,
		SecretKey: secretKey,
	})
	return handler, flush, true
}
