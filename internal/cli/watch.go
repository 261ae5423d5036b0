package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/quizgame/internal/model"
)

func newWatchCmd() *cobra.Command {
	var (
		userID     string
		name       string
		role       string
		password   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Join a game over a websocket and stream its events",
		Long: `Connect to the server's websocket, join the game and print every
event the server sends.

Joining as a spectator sees the same payloads as any other spectator.
Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			join := model.JoinGamePayload{
				Role:     model.PlayerRole(strings.ToUpper(role)),
				Name:     name,
				Password: password,
			}
			if join.Name == "" {
				join.Name = userID
			}
			return watchGame(cmd.Context(), model.GameID(strings.ToUpper(args[0])), userID, join, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to connect as")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the user id)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleSpectator), "Role to join with: SHOWMAN, PLAYER, SPECTATOR")
	cmd.Flags().StringVar(&password, "password", "", "Password of a private game")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// socketMessage is what quizctl sends and receives on the websocket
type socketMessage struct {
	Type    model.ActionType `json:"type,omitempty"`
	GameID  model.GameID     `json:"gameId,omitempty"`
	Payload any              `json:"payload,omitempty"`
}

type socketEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func socketURL(server, userID string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"userId": {userID}}.Encode()
	return u.String(), nil
}

func watchGame(ctx context.Context, gameID model.GameID, userID string, join model.JoinGamePayload, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	target, err := socketURL(cfg.ServerURL, userID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Closing the connection unblocks ReadJSON on interrupt
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if err := conn.WriteJSON(socketMessage{Type: model.ActionJoinGame, GameID: gameID, Payload: join}); err != nil {
		return fmt.Errorf("failed to join game: %w", err)
	}
	if !jsonOutput {
		fmt.Printf("Joined game %s as %s\n", gameID, join.Role)
	}

	for {
		var evt socketEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		printEvent(evt, jsonOutput)
	}
}

func printEvent(evt socketEvent, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		line, _ := json.Marshal(struct {
			Time  time.Time       `json:"time"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data,omitempty"`
		}{now, evt.Event, evt.Data})
		fmt.Fprintln(os.Stdout, string(line))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := string(evt.Data)
	if len(displayData) > 120 {
		displayData = displayData[:120] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", timestamp, evt.Event, displayData)
}
