package testutil

import (
	"time"

	"github.com/mcoot/quizgame/internal/model"
)

// Fixture ids
const (
	GameID    model.GameID   = "ABCD"
	ShowmanID model.PlayerID = "showman"
	Player1ID model.PlayerID = "p1"
	Player2ID model.PlayerID = "p2"
	Player3ID model.PlayerID = "p3"
)

// Questions of the fixture package
const (
	SimpleQuestionID  = 101
	SecretQuestionID  = 102
	StakeQuestionID   = 201
	LastQuestionID    = 202
	FinalThemeAID     = 10
	FinalThemeBID     = 11
	FinalThemeCID     = 12
	FinalQuestionID   = 1001
	SimpleQuestionVal = 100
)

// Package returns a two-round package: a simple round with one question of
// every type, then a final round of three themes
func Package() *model.Package {
	return &model.Package{
		ID:    "pkg-1",
		Title: "Test pack",
		Rounds: []model.Round{
			{
				Name: "Round 1",
				Type: model.RoundTypeSimple,
				Themes: []model.Theme{
					{ID: 1, Name: "Space", Questions: []model.Question{
						{ID: SimpleQuestionID, Price: SimpleQuestionVal, Type: model.QuestionTypeSimple, Text: "Closest planet to the sun?", Answer: "Mercury"},
						{ID: SecretQuestionID, Price: 200, Type: model.QuestionTypeSecret, Text: "Largest moon?", Answer: "Ganymede"},
					}},
					{ID: 2, Name: "Rivers", Questions: []model.Question{
						{ID: StakeQuestionID, Price: 100, Type: model.QuestionTypeStake, Text: "Longest river?", Answer: "Nile"},
						{ID: LastQuestionID, Price: 200, Type: model.QuestionTypeSimple, Text: "River through Vienna?", Answer: "Danube"},
					}},
				},
			},
			{
				Name: "Final",
				Type: model.RoundTypeFinal,
				Themes: []model.Theme{
					{ID: FinalThemeAID, Name: "Chemistry", Questions: []model.Question{{ID: FinalQuestionID, Text: "Symbol for gold?", Answer: "Au"}}},
					{ID: FinalThemeBID, Name: "Music", Questions: []model.Question{{ID: 1002, Text: "Composer of the Ring cycle?", Answer: "Wagner"}}},
					{ID: FinalThemeCID, Name: "Film", Questions: []model.Question{{ID: 1003, Text: "First Pixar feature?", Answer: "Toy Story"}}},
				},
			},
		},
	}
}

// NewGame returns a game waiting to start with a showman and two players
func NewGame(now time.Time) *model.Game {
	return &model.Game{
		ID:         GameID,
		Title:      "Test game",
		CreatedBy:  ShowmanID,
		MaxPlayers: 4,
		PackageID:  "pkg-1",
		Players: []*model.Player{
			{ID: ShowmanID, Name: "Sam", Role: model.RoleShowman, Status: model.PlayerStatusInGame, JoinedAt: now},
			NewPlayer(Player1ID, "Alice", 0, now),
			NewPlayer(Player2ID, "Bob", 1, now),
		},
		GameState: model.GameState{
			RoundType: model.RoundTypeSimple,
		},
		CreatedAt: now,
	}
}

// NewPlayer returns an in-game player in the given slot
func NewPlayer(id model.PlayerID, name string, slot int, now time.Time) *model.Player {
	return &model.Player{
		ID:       id,
		Name:     name,
		Role:     model.RolePlayer,
		Slot:     &slot,
		Status:   model.PlayerStatusInGame,
		JoinedAt: now,
	}
}

// ChoosingGame returns a started game in the first round waiting for p1 to pick
func ChoosingGame(now time.Time) *model.Game {
	g := NewGame(now)
	started := now
	g.StartedAt = &started
	turn := Player1ID
	g.GameState = model.GameState{
		RoundIndex:        0,
		RoundType:         model.RoundTypeSimple,
		QuestionState:     model.QuestionStateChoosing,
		CurrentTurnPlayer: &turn,
	}
	return g
}

// ShowingGame returns a game showing the simple question
func ShowingGame(now time.Time) *model.Game {
	g := ChoosingGame(now)
	g.GameState.QuestionState = model.QuestionStateShowing
	g.GameState.CurrentQuestion = &model.CurrentQuestion{
		ThemeID:    1,
		QuestionID: SimpleQuestionID,
		Price:      SimpleQuestionVal,
		Type:       model.QuestionTypeSimple,
	}
	g.GameState.PlayedQuestions = []int{SimpleQuestionID}
	return g
}

// AnsweringGame returns a game where the given player is answering the simple question
func AnsweringGame(now time.Time, answering model.PlayerID) *model.Game {
	g := ShowingGame(now)
	g.GameState.QuestionState = model.QuestionStateAnswering
	g.GameState.AnsweringPlayer = &answering
	return g
}

// SessionFor returns a socket session for the given user
func SessionFor(userID model.PlayerID, now time.Time) *model.SocketSession {
	return &model.SocketSession{
		SocketID:    "sock-" + string(userID),
		UserID:      userID,
		GameID:      GameID,
		ConnectedAt: now,
	}
}

// Now is the fixed time used by tests
func Now() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}
