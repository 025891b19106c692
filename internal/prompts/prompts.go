package prompts

import (
	_ "embed"
	"strings"
)

// ContractVersion identifies the revision of contract.md. Bump it whenever the
// text changes; it is logged with every model call.
const ContractVersion = "2025-01"

// SchemaName is the name the response schema is registered under with the provider.
const SchemaName = "response_schema"

//go:embed contract.md
var contract string

//go:embed retry.md
var retry string

//go:embed response_schema.json
var responseSchema []byte

// Contract returns the system instruction sent verbatim with every call.
func Contract() string {
	return strings.TrimSpace(contract)
}

// RetryRequestedChanges is the fixed requestedChanges text used by retry calls.
func RetryRequestedChanges() string {
	return strings.TrimSpace(retry)
}

// ResponseSchema returns a copy of the JSON schema the model output must satisfy.
func ResponseSchema() []byte {
	out := make([]byte, len(responseSchema))
	copy(out, responseSchema)
	return out
}
