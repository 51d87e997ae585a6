package nakama

const (
	// RpcStart deals a new blackjack session.
	RpcStart = "blackjack_start"
	// RpcAct applies hit, stand or end to a session.
	RpcAct = "blackjack_act"
	// RpcPeek returns a session summary without counting as activity.
	RpcPeek = "blackjack_peek"
	// RpcHistory returns the retained action log of a session.
	RpcHistory = "blackjack_history"

	// EngineConfigPath is resolved relative to the Nakama data directory.
	EngineConfigPath = "data/engine_config.json"
)

// gRPC status codes passed to runtime.NewError.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeResourceExhausted  = 8
	codeFailedPrecondition = 9
	codeInternal           = 13
)
