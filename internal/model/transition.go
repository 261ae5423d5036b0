package model

// TransitionTrigger is what caused a transition attempt
type TransitionTrigger string

const (
	TriggerUserAction   TransitionTrigger = "USER_ACTION"
	TriggerTimerExpired TransitionTrigger = "TIMER_EXPIRED"
	TriggerPlayerLeft   TransitionTrigger = "PLAYER_LEFT"
)

// TransitionContext is the request handed to the phase router
type TransitionContext struct {
	Game        *Game
	Package     *Package
	Trigger     TransitionTrigger
	ActionType  ActionType
	TriggeredBy *Player // nil for timer-triggered transitions
	Timer       *GameStateTimer
	Payload     any
}

// TransitionResult is the router's response. Game is the same pointer that
// was passed in, mutated in place.
type TransitionResult struct {
	Success    bool
	FromPhase  GamePhase
	ToPhase    GamePhase
	Game       *Game
	Broadcasts []Broadcast
	Mutations  []DataMutation // timer writes; persistence is left to the caller
	Timer      *GameStateTimer
	Data       any
}
