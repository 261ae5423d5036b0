package model

// GamePhase is the closed, derived position of a game in its lifecycle.
// It is never stored; GetGamePhase projects it from the game snapshot.
type GamePhase string

const (
	PhaseWaiting                GamePhase = "WAITING"
	PhaseChoosing               GamePhase = "CHOOSING"
	PhaseMediaDownloading       GamePhase = "MEDIA_DOWNLOADING"
	PhaseShowing                GamePhase = "SHOWING"
	PhaseAnswering              GamePhase = "ANSWERING"
	PhaseShowingAnswer          GamePhase = "SHOWING_ANSWER"
	PhaseSecretQuestionTransfer GamePhase = "SECRET_QUESTION_TRANSFER"
	PhaseStakeBidding           GamePhase = "STAKE_BIDDING"
	PhaseThemeElimination       GamePhase = "THEME_ELIMINATION"
	PhaseFinalBidding           GamePhase = "FINAL_BIDDING"
	PhaseFinalAnswering         GamePhase = "FINAL_ANSWERING"
	PhaseFinalReviewing         GamePhase = "FINAL_REVIEWING"
	PhaseGameFinished           GamePhase = "GAME_FINISHED"

	// PhaseNone is returned for a state combination no phase describes
	PhaseNone GamePhase = ""
)

// GetGamePhase derives the phase from the game's lifecycle fields
func GetGamePhase(g *Game) GamePhase {
	if g.FinishedAt != nil {
		return PhaseGameFinished
	}
	if g.StartedAt == nil {
		return PhaseWaiting
	}

	state := g.GameState.QuestionState
	if g.GameState.RoundType == RoundTypeFinal {
		switch state {
		case QuestionStateThemeElimination:
			return PhaseThemeElimination
		case QuestionStateBidding:
			return PhaseFinalBidding
		case QuestionStateAnswering:
			return PhaseFinalAnswering
		case QuestionStateReviewing:
			return PhaseFinalReviewing
		}
		return PhaseNone
	}

	switch state {
	case QuestionStateChoosing:
		return PhaseChoosing
	case QuestionStateMediaDownloading:
		return PhaseMediaDownloading
	case QuestionStateShowing:
		return PhaseShowing
	case QuestionStateAnswering:
		return PhaseAnswering
	case QuestionStateShowingAnswer:
		return PhaseShowingAnswer
	case QuestionStateSecretTransfer:
		return PhaseSecretQuestionTransfer
	case QuestionStateBidding:
		return PhaseStakeBidding
	}
	return PhaseNone
}
