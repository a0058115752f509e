// Package llm is the gateway to the external language model. It exposes a
// small interface for streamed chat replies and one-shot completions so the
// services can be tested against fakes.
package llm

import "context"

// Turn is one role-tagged entry of a conversation.
type Turn struct {
	Role    string
	Content string
}

// Request is a single model call. Schema, when set, asks the model for a
// JSON document conforming to it.
type Request struct {
	System      string
	Turns       []Turn
	Model       string
	Temperature *float64

	Schema            any
	SchemaName        string
	SchemaDescription string
}

// Stream yields the text deltas of a streamed reply.
//
//	for s.Next() {
//		buf.WriteString(s.Delta())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream interface {
	Next() bool
	Delta() string
	Err() error
	Close() error
}

// Client talks to the model.
type Client interface {
	// Stream starts a streamed reply. Rate-limit and quota rejections are
	// returned here, before any delta is produced.
	Stream(ctx context.Context, req Request) (Stream, error)

	// Complete returns the full text of a non-streamed reply.
	Complete(ctx context.Context, req Request) (string, error)
}
