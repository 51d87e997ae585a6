package app

// Status messages carried in snapshots.
const (
	msgYourMove       = "Your move: hit, stand or end."
	msgDealerStepped  = "The dealer drew a card. Stand again to settle the hand."
	msgAlreadyOver    = "This hand is already over."
	msgLastAction     = "One action left before this session closes."
	msgLimitReached   = "Action limit reached. This session will close."
	msgGameOverFormat = "Game over: %s."
)
