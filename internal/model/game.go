package model

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
)

// GameID is the short alphanumeric identifier of a game
type GameID string

// QuestionState is the stored position within a question's lifecycle
type QuestionState string

const (
	QuestionStateChoosing         QuestionState = "CHOOSING"
	QuestionStateMediaDownloading QuestionState = "MEDIA_DOWNLOADING"
	QuestionStateShowing          QuestionState = "SHOWING"
	QuestionStateAnswering        QuestionState = "ANSWERING"
	QuestionStateShowingAnswer    QuestionState = "SHOWING_ANSWER"
	QuestionStateSecretTransfer   QuestionState = "SECRET_TRANSFER"
	QuestionStateBidding          QuestionState = "BIDDING"
	QuestionStateThemeElimination QuestionState = "THEME_ELIMINATION"
	QuestionStateReviewing        QuestionState = "REVIEWING"
)

// CurrentQuestion identifies the question in play
type CurrentQuestion struct {
	ThemeID    int          `json:"themeId"`
	QuestionID int          `json:"questionId"`
	Price      int          `json:"price"`
	Type       QuestionType `json:"type"`
}

// AnswerRecord is one evaluated answer to the current question
type AnswerRecord struct {
	PlayerID   PlayerID `json:"playerId"`
	Correct    bool     `json:"correct"`
	ScoreDelta int      `json:"scoreDelta"`
}

// SecretQuestionData tracks a secret question hand-over
type SecretQuestionData struct {
	PickerID   PlayerID  `json:"pickerId"`
	ReceiverID *PlayerID `json:"receiverId,omitempty"`
}

// StakeQuestionData tracks the bidding for a stake question
type StakeQuestionData struct {
	PickerID           PlayerID         `json:"pickerId"`
	BiddingOrder       []PlayerID       `json:"biddingOrder"`
	CurrentBidderIndex int              `json:"currentBidderIndex"`
	Bids               map[PlayerID]int `json:"bids"`
	Passed             []PlayerID       `json:"passed"`
	HighestBid         int              `json:"highestBid"`
	HighestBidder      *PlayerID        `json:"highestBidder,omitempty"`
	AllIn              bool             `json:"allIn"`
	WinnerID           *PlayerID        `json:"winnerId,omitempty"`
}

// FinalAnswer is a player's written answer in the final round
type FinalAnswer struct {
	Text     string `json:"text"`
	Reviewed bool   `json:"reviewed"`
	Correct  bool   `json:"correct"`
}

// FinalRoundData tracks the final round sub-machine
type FinalRoundData struct {
	TurnOrder        []PlayerID               `json:"turnOrder"`
	TurnIndex        int                      `json:"turnIndex"`
	EliminatedThemes []int                    `json:"eliminatedThemes"`
	ThemeID          *int                     `json:"themeId,omitempty"` // the remaining theme
	Bids             map[PlayerID]int         `json:"bids"`
	Answers          map[PlayerID]FinalAnswer `json:"answers"`
}

// GameState is the mutable lifecycle state of a started game
type GameState struct {
	RoundIndex        int                 `json:"roundIndex"`
	RoundType         RoundType           `json:"roundType"`
	QuestionState     QuestionState       `json:"questionState"`
	CurrentQuestion   *CurrentQuestion    `json:"currentQuestion,omitempty"`
	Timer             *GameStateTimer     `json:"timer,omitempty"`
	AnsweringPlayer   *PlayerID           `json:"answeringPlayer,omitempty"`
	AnsweredPlayers   []AnswerRecord      `json:"answeredPlayers"`
	ReadyPlayers      []PlayerID          `json:"readyPlayers"`
	SkippedPlayers    []PlayerID          `json:"skippedPlayers"`
	CurrentTurnPlayer *PlayerID           `json:"currentTurnPlayer,omitempty"`
	PlayedQuestions   []int               `json:"playedQuestions"`
	IsPaused          bool                `json:"isPaused"`
	SecretQuestion    *SecretQuestionData `json:"secretQuestion,omitempty"`
	StakeQuestion     *StakeQuestionData  `json:"stakeQuestion,omitempty"`
	FinalRound        *FinalRoundData     `json:"finalRound,omitempty"`
}

// ResetQuestionProgress clears everything tied to the question in play
func (s *GameState) ResetQuestionProgress() {
	s.CurrentQuestion = nil
	s.AnsweringPlayer = nil
	s.AnsweredPlayers = nil
	s.ReadyPlayers = nil
	s.SkippedPlayers = nil
	s.SecretQuestion = nil
	s.StakeQuestion = nil
}

// HasAnswered returns true if the player already answered the current question
func (s *GameState) HasAnswered(id PlayerID) bool {
	for _, a := range s.AnsweredPlayers {
		if a.PlayerID == id {
			return true
		}
	}
	return false
}

// Game is the aggregate root mutated by the action pipeline
type Game struct {
	ID           GameID     `json:"id"`
	Title        string     `json:"title"`
	CreatedBy    PlayerID   `json:"createdBy"`
	IsPrivate    bool       `json:"isPrivate"`
	PasswordHash string     `json:"-"`
	MaxPlayers   int        `json:"maxPlayers"`
	PackageID    string     `json:"packageId"`
	Players      []*Player  `json:"players"`
	GameState    GameState  `json:"gameState"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// Standings returns the scores of the competing players, highest first
func (g *Game) Standings() []PlayerScore {
	var scores []PlayerScore
	for _, p := range g.Players {
		if p.Role != RolePlayer {
			continue
		}
		scores = append(scores, PlayerScore{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	slices.SortStableFunc(scores, func(a, b PlayerScore) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return scores
}

// FindPlayer returns the participant with the given id, or nil
func (g *Game) FindPlayer(id PlayerID) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Showman returns the current in-game showman, or nil
func (g *Game) Showman() *Player {
	for _, p := range g.Players {
		if p.Role == RoleShowman && p.Status != PlayerStatusLeft {
			return p
		}
	}
	return nil
}

// ActivePlayers returns competing players that can act, ordered by slot
func (g *Game) ActivePlayers() []*Player {
	var players []*Player
	for _, p := range g.Players {
		if p.IsActivePlayer() {
			players = append(players, p)
		}
	}
	slices.SortStableFunc(players, func(a, b *Player) int {
		return cmp.Compare(slotOf(a), slotOf(b))
	})
	return players
}

// PlayerCount returns the number of players occupying a slot
func (g *Game) PlayerCount() int {
	count := 0
	for _, p := range g.Players {
		if p.Role == RolePlayer && p.Status != PlayerStatusLeft {
			count++
		}
	}
	return count
}

// FreeSlot returns the lowest slot not taken by a remaining player, or -1 if full
func (g *Game) FreeSlot() int {
	if g.PlayerCount() >= g.MaxPlayers {
		return -1
	}
	taken := make(map[int]bool)
	for _, p := range g.Players {
		if p.Slot != nil && p.Status != PlayerStatusLeft {
			taken[*p.Slot] = true
		}
	}
	for slot := 0; ; slot++ {
		if !taken[slot] {
			return slot
		}
	}
}

// IsFinished returns true once the game has reached its terminal state
func (g *Game) IsFinished() bool {
	return g.FinishedAt != nil
}

// SetFinished stamps the finish time; it is set at most once
func (g *Game) SetFinished(at time.Time) bool {
	if g.FinishedAt != nil {
		return false
	}
	g.FinishedAt = &at
	return true
}

func slotOf(p *Player) int {
	if p.Slot == nil {
		return math.MaxInt
	}
	return *p.Slot
}

// Hash field names of the game hash
const (
	hashFieldID           = "id"
	hashFieldTitle        = "title"
	hashFieldCreatedBy    = "createdBy"
	hashFieldIsPrivate    = "isPrivate"
	hashFieldPasswordHash = "passwordHash"
	hashFieldMaxPlayers   = "maxPlayers"
	hashFieldPackageID    = "packageId"
	hashFieldPlayers      = "players"
	hashFieldGameState    = "gameState"
	hashFieldCreatedAt    = "createdAt"
	hashFieldStartedAt    = "startedAt"
	hashFieldFinishedAt   = "finishedAt"

	// GameStateHashField is read on its own by the timer subsystem
	GameStateHashField = hashFieldGameState
)

// ToHash encodes the game into the field map stored under game:{id}
func (g *Game) ToHash() (map[string]any, error) {
	players, err := json.Marshal(g.Players)
	if err != nil {
		return nil, fmt.Errorf("encode players: %w", err)
	}
	state, err := json.Marshal(g.GameState)
	if err != nil {
		return nil, fmt.Errorf("encode game state: %w", err)
	}
	return map[string]any{
		hashFieldID:           string(g.ID),
		hashFieldTitle:        g.Title,
		hashFieldCreatedBy:    string(g.CreatedBy),
		hashFieldIsPrivate:    strconv.FormatBool(g.IsPrivate),
		hashFieldPasswordHash: g.PasswordHash,
		hashFieldMaxPlayers:   strconv.Itoa(g.MaxPlayers),
		hashFieldPackageID:    g.PackageID,
		hashFieldPlayers:      string(players),
		hashFieldGameState:    string(state),
		hashFieldCreatedAt:    formatTime(&g.CreatedAt),
		hashFieldStartedAt:    formatTime(g.StartedAt),
		hashFieldFinishedAt:   formatTime(g.FinishedAt),
	}, nil
}

// GameFromHash decodes a game hash; an empty hash means the game does not exist
func GameFromHash(fields map[string]string) (*Game, error) {
	if len(fields) == 0 {
		return nil, ErrGameNotFound
	}

	g := &Game{
		ID:           GameID(fields[hashFieldID]),
		Title:        fields[hashFieldTitle],
		CreatedBy:    PlayerID(fields[hashFieldCreatedBy]),
		PasswordHash: fields[hashFieldPasswordHash],
		PackageID:    fields[hashFieldPackageID],
	}

	g.IsPrivate, _ = strconv.ParseBool(fields[hashFieldIsPrivate])
	if v := fields[hashFieldMaxPlayers]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("decode maxPlayers: %w", err)
		}
		g.MaxPlayers = n
	}

	if v := fields[hashFieldPlayers]; v != "" {
		if err := json.Unmarshal([]byte(v), &g.Players); err != nil {
			return nil, fmt.Errorf("decode players: %w", err)
		}
	}
	if v := fields[hashFieldGameState]; v != "" {
		if err := json.Unmarshal([]byte(v), &g.GameState); err != nil {
			return nil, fmt.Errorf("decode game state: %w", err)
		}
	}

	createdAt, err := parseTime(fields[hashFieldCreatedAt])
	if err != nil {
		return nil, err
	}
	if createdAt != nil {
		g.CreatedAt = *createdAt
	}
	if g.StartedAt, err = parseTime(fields[hashFieldStartedAt]); err != nil {
		return nil, err
	}
	if g.FinishedAt, err = parseTime(fields[hashFieldFinishedAt]); err != nil {
		return nil, err
	}

	return g, nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("decode time %q: %w", v, err)
	}
	return &t, nil
}
