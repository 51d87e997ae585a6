package ports

import "context"

// Prompt is a natural-language request for the decision oracle.
type Prompt struct {
	// System frames the oracle's persona and the reply format it should use.
	System string
	// User describes the current table.
	User string
}

// OraclePort is the boundary to the external decision oracle.
type OraclePort interface {
	// Complete sends the prompt and returns the raw reply text.
	// The reply has no guaranteed schema; callers must treat it as untrusted.
	Complete(ctx context.Context, prompt Prompt) (string, error)
}
