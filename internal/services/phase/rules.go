package phase

import (
	"cmp"
	"slices"

	"github.com/mcoot/quizgame/internal/model"
)

func containsPlayer(ids []model.PlayerID, id model.PlayerID) bool {
	return slices.Contains(ids, id)
}

// inGame reports whether a player can still act in the game
func inGame(g *model.Game) func(model.PlayerID) bool {
	return func(id model.PlayerID) bool {
		p := g.FindPlayer(id)
		return p != nil && p.IsActivePlayer()
	}
}

// eligibleAnswerers returns active players who may still try the current question
func eligibleAnswerers(g *model.Game) []*model.Player {
	s := &g.GameState
	var out []*model.Player
	for _, p := range g.ActivePlayers() {
		if s.HasAnswered(p.ID) || containsPlayer(s.SkippedPlayers, p.ID) {
			continue
		}
		if s.AnsweringPlayer != nil && *s.AnsweringPlayer == p.ID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// questionExhausted reports whether nobody may answer after the current
// answerer. Secret and stake questions belong to a single player.
func questionExhausted(g *model.Game) bool {
	q := g.GameState.CurrentQuestion
	if q != nil && q.Type != model.QuestionTypeSimple {
		return true
	}
	return len(eligibleAnswerers(g)) == 0
}

func currentRound(tc *model.TransitionContext) *model.Round {
	return tc.Package.Round(tc.Game.GameState.RoundIndex)
}

// currentQuestion resolves the question in play from the package
func currentQuestion(tc *model.TransitionContext) (*model.Theme, *model.Question) {
	cq := tc.Game.GameState.CurrentQuestion
	round := currentRound(tc)
	if cq == nil || round == nil {
		return nil, nil
	}
	return round.FindQuestion(cq.QuestionID)
}

// unplayedQuestions counts the questions of a round still on the board
func unplayedQuestions(round *model.Round, played []int) int {
	count := 0
	for _, t := range round.Themes {
		for _, q := range t.Questions {
			if !slices.Contains(played, q.ID) {
				count++
			}
		}
	}
	return count
}

// remainingThemes returns the final round themes not yet eliminated
func remainingThemes(round *model.Round, eliminated []int) []model.Theme {
	var out []model.Theme
	for _, t := range round.Themes {
		if !slices.Contains(eliminated, t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// finalParticipants returns the final round players still in the game
func finalParticipants(g *model.Game) []*model.Player {
	final := g.GameState.FinalRound
	if final == nil {
		return nil
	}
	active := inGame(g)
	var out []*model.Player
	for _, id := range final.TurnOrder {
		if active(id) {
			out = append(out, g.FindPlayer(id))
		}
	}
	return out
}

// lowestScoring returns the active players ordered by score, then slot
func lowestScoring(g *model.Game) []*model.Player {
	players := g.ActivePlayers()
	slices.SortStableFunc(players, func(a, b *model.Player) int {
		return cmp.Compare(a.Score, b.Score)
	})
	return players
}

// rotateFrom orders the active players by slot starting with the given player
func rotateFrom(g *model.Game, first model.PlayerID) []model.PlayerID {
	players := g.ActivePlayers()
	start := slices.IndexFunc(players, func(p *model.Player) bool { return p.ID == first })
	if start < 0 {
		start = 0
	}
	ids := make([]model.PlayerID, 0, len(players))
	for i := range players {
		ids = append(ids, players[(start+i)%len(players)].ID)
	}
	return ids
}

func ptr[T any](v T) *T {
	return &v
}
