package redis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcoot/quizgame/internal/model"
)

func encodeTimer(t *model.GameStateTimer) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode timer: %w", err)
	}
	return string(data), nil
}

func decodeTimer(raw string) (*model.GameStateTimer, error) {
	var t model.GameStateTimer
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("decode timer: %w", err)
	}
	return &t, nil
}

// Socket session hash fields
const (
	sessionFieldSocketID    = "socketId"
	sessionFieldUserID      = "userId"
	sessionFieldGameID      = "gameId"
	sessionFieldRole        = "role"
	sessionFieldConnectedAt = "connectedAt"
)

func sessionToHash(s *model.SocketSession) map[string]any {
	return map[string]any{
		sessionFieldSocketID:    s.SocketID,
		sessionFieldUserID:      string(s.UserID),
		sessionFieldGameID:      string(s.GameID),
		sessionFieldRole:        string(s.Role),
		sessionFieldConnectedAt: s.ConnectedAt.UTC().Format(time.RFC3339Nano),
	}
}

func sessionFromHash(fields map[string]string) (*model.SocketSession, error) {
	s := &model.SocketSession{
		SocketID: fields[sessionFieldSocketID],
		UserID:   model.PlayerID(fields[sessionFieldUserID]),
		GameID:   model.GameID(fields[sessionFieldGameID]),
		Role:     model.PlayerRole(fields[sessionFieldRole]),
	}
	if v := fields[sessionFieldConnectedAt]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("decode session connectedAt: %w", err)
		}
		s.ConnectedAt = t
	}
	return s, nil
}

// Question package hash fields
const (
	packageFieldID     = "id"
	packageFieldTitle  = "title"
	packageFieldRounds = "rounds"
)

func packageToHash(p *model.Package) (map[string]any, error) {
	rounds, err := json.Marshal(p.Rounds)
	if err != nil {
		return nil, fmt.Errorf("encode package rounds: %w", err)
	}
	return map[string]any{
		packageFieldID:     p.ID,
		packageFieldTitle:  p.Title,
		packageFieldRounds: string(rounds),
	}, nil
}

func packageFromHash(fields map[string]string) (*model.Package, error) {
	p := &model.Package{
		ID:    fields[packageFieldID],
		Title: fields[packageFieldTitle],
	}
	if v := fields[packageFieldRounds]; v != "" {
		if err := json.Unmarshal([]byte(v), &p.Rounds); err != nil {
			return nil, fmt.Errorf("decode package rounds: %w", err)
		}
	}
	return p, nil
}
