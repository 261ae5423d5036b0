package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/quizgame/internal/api/request"
	"github.com/mcoot/quizgame/internal/api/response"
	"github.com/mcoot/quizgame/internal/model"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameQueueCmd())
	cmd.AddCommand(newGameSubmitCmd())

	return cmd
}

func newGameCreateCmd() *cobra.Command {
	var (
		title       string
		createdBy   string
		password    string
		maxPlayers  int
		packageFile string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game from a question package file",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := readPackage(packageFile)
			if err != nil {
				return err
			}

			req := request.CreateGameRequest{
				Title:      title,
				CreatedBy:  createdBy,
				Password:   password,
				MaxPlayers: maxPlayers,
				Package:    pkg,
			}
			var result response.Game

			if err := client.Post("/api/v1/games", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Game title")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "Id of the creating user")
	cmd.Flags().StringVar(&password, "password", "", "Password for a private game")
	cmd.Flags().IntVar(&maxPlayers, "max-players", 0, "Maximum number of players (default 6)")
	cmd.Flags().StringVar(&packageFile, "package", "", "Path to the question package JSON")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("created-by")
	_ = cmd.MarkFlagRequired("package")

	return cmd
}

func readPackage(path string) (*model.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read package: %w", err)
	}
	var pkg model.Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package %s: %w", path, err)
	}
	return &pkg, nil
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToUpper(args[0])

			var result response.Game

			if err := client.Get(fmt.Sprintf("/api/v1/games/%s", id), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue <id>",
		Short: "Show the lock and pending actions of a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToUpper(args[0])

			var result response.Queue

			if err := client.Get(fmt.Sprintf("/api/v1/games/%s/queue", id), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameSubmitCmd() *cobra.Command {
	var (
		playerID string
		payload  string
	)

	cmd := &cobra.Command{
		Use:   "submit <id> <action-type>",
		Short: "Submit an action to a game",
		Long: `Submit an action to a game's executor.

The action is attributed to the session of --socket when one is given,
otherwise to --player. Example:

  quizctl --socket sock-1 game submit ABCD QUESTION_PICK --payload '{"questionId": 101}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToUpper(args[0])

			req := request.SubmitActionRequest{
				Type:     strings.ToUpper(args[1]),
				PlayerID: playerID,
			}
			if payload != "" {
				if !json.Valid([]byte(payload)) {
					return fmt.Errorf("payload must be valid JSON")
				}
				req.Payload = json.RawMessage(payload)
			}

			var result response.ActionResponse
			status, err := client.Do(http.MethodPost, fmt.Sprintf("/api/v1/games/%s/actions", id), req, &result)
			if err != nil {
				return err
			}
			if cfg.Verbose {
				fmt.Fprintf(os.Stderr, "HTTP %d\n", status)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&playerID, "player", "", "Player the action is for when no socket is given")
	cmd.Flags().StringVar(&payload, "payload", "", "Action payload as JSON")

	return cmd
}
