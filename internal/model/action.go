package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType tags a GameAction and selects its handler
type ActionType string

const (
	ActionJoinGame          ActionType = "JOIN_GAME"
	ActionLeaveGame         ActionType = "LEAVE_GAME"
	ActionDisconnect        ActionType = "DISCONNECT"
	ActionStartGame         ActionType = "START_GAME"
	ActionPauseGame         ActionType = "PAUSE_GAME"
	ActionUnpauseGame       ActionType = "UNPAUSE_GAME"
	ActionQuestionPick      ActionType = "QUESTION_PICK"
	ActionMediaDownloaded   ActionType = "MEDIA_DOWNLOADED"
	ActionAnswerRequest     ActionType = "ANSWER_REQUEST"
	ActionAnswerResult      ActionType = "ANSWER_RESULT"
	ActionQuestionSkip      ActionType = "QUESTION_SKIP"
	ActionSecretTransfer    ActionType = "SECRET_QUESTION_TRANSFER"
	ActionStakeBid          ActionType = "STAKE_BID"
	ActionThemeEliminate    ActionType = "THEME_ELIMINATE"
	ActionFinalBid          ActionType = "FINAL_BID"
	ActionFinalAnswer       ActionType = "FINAL_ANSWER"
	ActionFinalAnswerReview ActionType = "FINAL_ANSWER_REVIEW"
	ActionScoreChange       ActionType = "SCORE_CHANGE"
	ActionPlayerRestriction ActionType = "PLAYER_RESTRICTION"

	// Synthetic actions produced by the timer expiration subsystem
	ActionMediaDownloadTimeout    ActionType = "MEDIA_DOWNLOAD_TIMEOUT"
	ActionShowingTimeout          ActionType = "SHOWING_TIMEOUT"
	ActionAnsweringTimeout        ActionType = "ANSWERING_TIMEOUT"
	ActionShowingAnswerTimeout    ActionType = "SHOWING_ANSWER_TIMEOUT"
	ActionSecretTransferTimeout   ActionType = "SECRET_TRANSFER_TIMEOUT"
	ActionStakeBiddingTimeout     ActionType = "STAKE_BIDDING_TIMEOUT"
	ActionThemeEliminationTimeout ActionType = "THEME_ELIMINATION_TIMEOUT"
	ActionFinalBiddingTimeout     ActionType = "FINAL_BIDDING_TIMEOUT"
	ActionFinalAnsweringTimeout   ActionType = "FINAL_ANSWERING_TIMEOUT"
)

type timeoutKey struct {
	roundType RoundType
	state     QuestionState
}

var timeoutActions = map[timeoutKey]ActionType{
	{RoundTypeSimple, QuestionStateMediaDownloading}: ActionMediaDownloadTimeout,
	{RoundTypeSimple, QuestionStateShowing}:          ActionShowingTimeout,
	{RoundTypeSimple, QuestionStateAnswering}:        ActionAnsweringTimeout,
	{RoundTypeSimple, QuestionStateShowingAnswer}:    ActionShowingAnswerTimeout,
	{RoundTypeSimple, QuestionStateSecretTransfer}:   ActionSecretTransferTimeout,
	{RoundTypeSimple, QuestionStateBidding}:          ActionStakeBiddingTimeout,
	{RoundTypeFinal, QuestionStateThemeElimination}:  ActionThemeEliminationTimeout,
	{RoundTypeFinal, QuestionStateBidding}:           ActionFinalBiddingTimeout,
	{RoundTypeFinal, QuestionStateAnswering}:         ActionFinalAnsweringTimeout,
}

// TimeoutActionFor returns the synthetic action fired when the timer of the
// given state expires, or "" if that state has no timer
func TimeoutActionFor(roundType RoundType, state QuestionState) ActionType {
	return timeoutActions[timeoutKey{roundType, state}]
}

// TimeoutActionTypes lists every synthetic timer action type
func TimeoutActionTypes() []ActionType {
	types := make([]ActionType, 0, len(timeoutActions))
	for _, t := range timeoutActions {
		types = append(types, t)
	}
	return types
}

// IsTimeoutAction reports whether t is fired by an expired timer rather
// than sent by a client
func IsTimeoutAction(t ActionType) bool {
	_, _, ok := TimedOutState(t)
	return ok
}

// TimedOutState returns the round type and question state a timeout action
// was derived from
func TimedOutState(t ActionType) (RoundType, QuestionState, bool) {
	for k, v := range timeoutActions {
		if v == t {
			return k.roundType, k.state, true
		}
	}
	return "", "", false
}

// GameAction is an immutable request to mutate one game
type GameAction struct {
	ID        string          `json:"id"`
	Type      ActionType      `json:"type"`
	GameID    GameID          `json:"gameId"`
	PlayerID  PlayerID        `json:"playerId,omitempty"`
	SocketID  string          `json:"socketId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// IsSystem returns true for actions that no connection originated
func (a *GameAction) IsSystem() bool {
	return a.SocketID == ""
}

// DecodePayload unmarshals the action payload into T
func DecodePayload[T any](a *GameAction) (T, error) {
	var payload T
	if len(a.Payload) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(a.Payload, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}
	return payload, nil
}

// Action payloads

type JoinGamePayload struct {
	Role     PlayerRole `json:"role"`
	Name     string     `json:"name"`
	Password string     `json:"password,omitempty"`
}

type QuestionPickPayload struct {
	QuestionID int `json:"questionId"`
}

type AnswerResultPayload struct {
	Correct bool `json:"correct"`
}

type SecretTransferPayload struct {
	TargetPlayerID PlayerID `json:"targetPlayerId"`
}

// StakeBidType is the kind of bid placed on a stake question
type StakeBidType string

const (
	StakeBidNormal StakeBidType = "NORMAL"
	StakeBidPass   StakeBidType = "PASS"
	StakeBidAllIn  StakeBidType = "ALL_IN"
)

type StakeBidPayload struct {
	Type   StakeBidType `json:"type"`
	Amount int          `json:"amount,omitempty"`
}

type ThemeEliminatePayload struct {
	ThemeID int `json:"themeId"`
}

type FinalBidPayload struct {
	Amount int `json:"amount"`
}

type FinalAnswerPayload struct {
	Answer string `json:"answer"`
}

type FinalAnswerReviewPayload struct {
	PlayerID PlayerID `json:"playerId"`
	Correct  bool     `json:"correct"`
}

type ScoreChangePayload struct {
	PlayerID PlayerID `json:"playerId"`
	Score    int      `json:"score"`
}

type PlayerRestrictionPayload struct {
	PlayerID   PlayerID `json:"playerId"`
	Muted      bool     `json:"muted"`
	Restricted bool     `json:"restricted"`
	Banned     bool     `json:"banned"`
}

// ActionExecutionContext is built once per lock acquisition and discarded
// after the action completes
type ActionExecutionContext struct {
	Action        *GameAction
	Game          *Game
	CurrentPlayer *Player         // nil if the author is not in the roster
	Timer         *GameStateTimer // nil if no timer is running
	LockToken     string
	Session       *SocketSession // nil if the connection is gone
}

// RequireSession returns the originating session or ErrSessionNotFound
func (c *ActionExecutionContext) RequireSession() (*SocketSession, error) {
	if c.Session == nil {
		return nil, ErrSessionNotFound
	}
	return c.Session, nil
}

// RequirePlayer returns the resolved author or ErrPlayerNotFound
func (c *ActionExecutionContext) RequirePlayer() (*Player, error) {
	if _, err := c.RequireSession(); err != nil {
		return nil, err
	}
	if c.CurrentPlayer == nil {
		return nil, ErrPlayerNotFound
	}
	return c.CurrentPlayer, nil
}

// ActionResult is what a handler hands back to the executor
type ActionResult struct {
	Success       bool           `json:"success"`
	Data          any            `json:"data,omitempty"`
	Mutations     []DataMutation `json:"-"`
	BroadcastGame *Game          `json:"-"` // if set, a role-filtered game state is broadcast
}
