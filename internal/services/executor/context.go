package executor

import (
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/storage"
)

// buildContext assembles the execution context from one prefetch. The
// author is taken from the originating session when it still exists, so a
// client cannot act for somebody else; otherwise the action's own player id
// is used, which lets DISCONNECT run after the session is gone.
func buildContext(action *model.GameAction, token string, prefetch *storage.Prefetch) (*model.ActionExecutionContext, error) {
	if prefetch == nil || prefetch.Game == nil {
		return nil, model.ErrGameNotFound
	}

	ec := &model.ActionExecutionContext{
		Action:    action,
		Game:      prefetch.Game,
		Timer:     prefetch.Timer,
		LockToken: token,
		Session:   prefetch.Session,
	}

	author := action.PlayerID
	if prefetch.Session != nil {
		author = prefetch.Session.UserID
	}
	if author != "" {
		ec.CurrentPlayer = prefetch.Game.FindPlayer(author)
	}
	return ec, nil
}
