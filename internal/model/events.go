package model

// Broadcast payloads

type PlayerEvent struct {
	PlayerID PlayerID   `json:"playerId"`
	Name     string     `json:"name,omitempty"`
	Role     PlayerRole `json:"role,omitempty"`
	Slot     *int       `json:"slot,omitempty"`
}

// GameJoinedEvent is sent to the joining socket only
type GameJoinedEvent struct {
	GameID   GameID     `json:"gameId"`
	PlayerID PlayerID   `json:"playerId"`
	Role     PlayerRole `json:"role"`
	Game     *Game      `json:"game"`
}

type RoundStartedEvent struct {
	RoundIndex int       `json:"roundIndex"`
	Name       string    `json:"name"`
	Type       RoundType `json:"type"`
	Themes     []string  `json:"themes"`
}

type QuestionPickedEvent struct {
	PickedBy   PlayerID     `json:"pickedBy"`
	ThemeID    int          `json:"themeId"`
	ThemeName  string       `json:"themeName"`
	QuestionID int          `json:"questionId"`
	Price      int          `json:"price"`
	Type       QuestionType `json:"type"`
}

// QuestionShownEvent carries the question text; Answer is only filled in the
// showman's copy
type QuestionShownEvent struct {
	ThemeID    int    `json:"themeId"`
	QuestionID int    `json:"questionId"`
	Text       string `json:"text"`
	Answer     string `json:"answer,omitempty"`
	TimerMs    int64  `json:"timerMs"`
}

type AnswerRequestedEvent struct {
	PlayerID PlayerID `json:"playerId"`
	TimerMs  int64    `json:"timerMs"`
}

type AnswerResultEvent struct {
	PlayerID   PlayerID `json:"playerId"`
	Correct    bool     `json:"correct"`
	ScoreDelta int      `json:"scoreDelta"`
	Score      int      `json:"score"`
	TimedOut   bool     `json:"timedOut,omitempty"`
}

type QuestionFinishedEvent struct {
	ThemeID    int    `json:"themeId"`
	QuestionID int    `json:"questionId"`
	Answer     string `json:"answer"`
	TimerMs    int64  `json:"timerMs"`
}

type SecretTransferredEvent struct {
	FromPlayerID PlayerID `json:"fromPlayerId"`
	ToPlayerID   PlayerID `json:"toPlayerId"`
}

type StakeBidEvent struct {
	PlayerID      PlayerID     `json:"playerId"`
	Type          StakeBidType `json:"type"`
	Amount        int          `json:"amount"`
	NextBidderID  *PlayerID    `json:"nextBidderId,omitempty"`
	HighestBid    int          `json:"highestBid"`
	HighestBidder *PlayerID    `json:"highestBidder,omitempty"`
}

type StakeWinnerEvent struct {
	PlayerID PlayerID `json:"playerId"`
	Bid      int      `json:"bid"`
}

type ThemeEliminatedEvent struct {
	ThemeID      int       `json:"themeId"`
	EliminatedBy *PlayerID `json:"eliminatedBy,omitempty"`
	NextPlayerID *PlayerID `json:"nextPlayerId,omitempty"`
}

type FinalThemeEvent struct {
	ThemeID   int    `json:"themeId"`
	ThemeName string `json:"themeName"`
	Text      string `json:"text,omitempty"`
	Answer    string `json:"answer,omitempty"`
	TimerMs   int64  `json:"timerMs"`
}

type FinalSubmissionEvent struct {
	PlayerID PlayerID `json:"playerId"`
}

// FinalReviewEvent lists answers up for review. Players only see who
// answered; the showman also sees the texts and bids.
type FinalReviewEvent struct {
	Answers map[PlayerID]FinalAnswer `json:"answers,omitempty"`
	Bids    map[PlayerID]int         `json:"bids,omitempty"`
	Players []PlayerID               `json:"players"`
}

type FinalAnswerReviewedEvent struct {
	PlayerID   PlayerID `json:"playerId"`
	Correct    bool     `json:"correct"`
	ScoreDelta int      `json:"scoreDelta"`
	Score      int      `json:"score"`
	Answer     string   `json:"answer"`
}

type ScoreChangedEvent struct {
	PlayerID PlayerID `json:"playerId"`
	Score    int      `json:"score"`
}

type PlayerRestrictedEvent struct {
	PlayerID     PlayerID     `json:"playerId"`
	Restrictions Restrictions `json:"restrictions"`
}

type GamePausedEvent struct {
	RemainingMs int64 `json:"remainingMs"`
}

type PlayerScore struct {
	PlayerID PlayerID `json:"playerId"`
	Name     string   `json:"name"`
	Score    int      `json:"score"`
}

type GameFinishedEvent struct {
	Scores []PlayerScore `json:"scores"`
}

type ExpirationWarningEvent struct {
	GameID      GameID `json:"gameId"`
	ExpiresInMs int64  `json:"expiresInMs"`
}

type ErrorEvent struct {
	Code     string     `json:"code"`
	Message  string     `json:"message"`
	ActionID string     `json:"actionId,omitempty"`
	Action   ActionType `json:"action,omitempty"`
}
