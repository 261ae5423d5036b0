package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mcoot/quizgame/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Game:
		o.printGame(v)
	case response.Queue:
		o.printQueue(v)
	case response.ActionResponse:
		o.printActionResponse(v)
	case response.Health:
		o.printHealth(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printGame(g response.Game) {
	fmt.Printf("Game: %s (%s)\n", g.ID, g.Title)
	fmt.Printf("Phase: %s\n", g.Phase)
	if g.IsPrivate {
		fmt.Println("Private: yes")
	}
	fmt.Printf("Package: %s\n", g.PackageID)

	fmt.Printf("Players (%d/%d):\n", countPlayers(g.Players), g.MaxPlayers)
	for _, p := range g.Players {
		slot := ""
		if p.Slot != nil {
			slot = fmt.Sprintf(" #%d", *p.Slot)
		}
		fmt.Printf("  - %s (%s) - %s%s, %d points [%s]\n", p.Name, p.ID, strings.ToLower(p.Role), slot, p.Score, strings.ToLower(p.Status))
	}

	if g.State == nil {
		return
	}
	s := g.State
	fmt.Printf("Round: %d (%s)\n", s.RoundIndex+1, s.RoundType)
	fmt.Printf("Question state: %s\n", s.QuestionState)
	if s.CurrentTurnPlayer != nil {
		fmt.Printf("Picking: %s\n", *s.CurrentTurnPlayer)
	}
	if s.AnsweringPlayer != nil {
		fmt.Printf("Answering: %s\n", *s.AnsweringPlayer)
	}
	if s.IsPaused {
		fmt.Println("Paused")
	}
	if s.Timer != nil {
		left := s.Timer.DurationMs - s.Timer.ElapsedMs
		fmt.Printf("Timer: %dms of %dms left when started at %s\n", left, s.Timer.DurationMs, s.Timer.StartedAt.Format("15:04:05"))
	}
	if g.FinishedAt != nil {
		fmt.Printf("Finished: %s\n", g.FinishedAt.Format("2006-01-02 15:04:05"))
	}
}

func countPlayers(players []response.Player) int {
	n := 0
	for _, p := range players {
		if p.Role == "PLAYER" {
			n++
		}
	}
	return n
}

func (o *Output) printQueue(q response.Queue) {
	lock := "free"
	if q.Locked {
		lock = "held"
	}
	fmt.Printf("Game: %s\n", q.GameID)
	fmt.Printf("Lock: %s\n", lock)
	fmt.Printf("Pending (%d):\n", q.Length)
	for _, a := range q.Pending {
		player := ""
		if a.PlayerID != "" {
			player = " by " + a.PlayerID
		}
		fmt.Printf("  - %s %s%s at %s\n", a.ID, a.Type, player, a.QueuedAt.Format("15:04:05"))
	}
}

func (o *Output) printActionResponse(a response.ActionResponse) {
	if a.Queued {
		fmt.Printf("Action %s queued behind the current lock holder\n", a.ID)
		return
	}
	result := "applied"
	if !a.Success {
		result = "ignored"
	}
	fmt.Printf("Action %s %s\n", a.ID, result)
}

func (o *Output) printHealth(h response.Health) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Redis: %s\n", h.Redis)
}
