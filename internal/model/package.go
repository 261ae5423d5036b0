package model

// RoundType distinguishes the regular board rounds from the final round
type RoundType string

const (
	RoundTypeSimple RoundType = "SIMPLE"
	RoundTypeFinal  RoundType = "FINAL"
)

// QuestionType selects the special rules applied when a question is picked
type QuestionType string

const (
	QuestionTypeSimple QuestionType = "SIMPLE"
	QuestionTypeSecret QuestionType = "SECRET" // picker hands the question to another player
	QuestionTypeStake  QuestionType = "STAKE"  // players bid for the right to answer
)

// Question is a single priced question of a theme
type Question struct {
	ID     int          `json:"id"`
	Price  int          `json:"price"`
	Type   QuestionType `json:"type"`
	Text   string       `json:"text"`
	Answer string       `json:"answer"`
}

// Theme groups questions in a round
type Theme struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Round is one board of themes
type Round struct {
	Name   string    `json:"name"`
	Type   RoundType `json:"type"`
	Themes []Theme   `json:"themes"`
}

// Package is the question pack a game is played with
type Package struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Rounds []Round `json:"rounds"`
}

// Round returns the round at the given index, or nil if out of range
func (p *Package) Round(idx int) *Round {
	if p == nil || idx < 0 || idx >= len(p.Rounds) {
		return nil
	}
	return &p.Rounds[idx]
}

// FindQuestion locates a question within a round
func (r *Round) FindQuestion(questionID int) (*Theme, *Question) {
	for i := range r.Themes {
		for j := range r.Themes[i].Questions {
			if r.Themes[i].Questions[j].ID == questionID {
				return &r.Themes[i], &r.Themes[i].Questions[j]
			}
		}
	}
	return nil, nil
}

// FindTheme locates a theme within a round
func (r *Round) FindTheme(themeID int) *Theme {
	for i := range r.Themes {
		if r.Themes[i].ID == themeID {
			return &r.Themes[i]
		}
	}
	return nil
}

// QuestionCount returns the number of questions on the round's board
func (r *Round) QuestionCount() int {
	count := 0
	for _, t := range r.Themes {
		count += len(t.Questions)
	}
	return count
}
