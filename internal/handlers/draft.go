package handlers

import (
	"encoding/json"

	"github.com/skulebot/core/internal/router"
)

// draft is per-user scratch space for multi-step flows: partially entered
// names, the entity a pending upload belongs to, authored broadcast message
// ids. It is persisted, so an interrupted flow survives a restart.
type draft map[string]string

func loadDraft(c *router.Context) (draft, error) {
	raw, err := c.Store.States.UserData(c.User.ID)
	if err != nil {
		return nil, err
	}
	d := draft{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func saveDraft(c *router.Context, d draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.Store.States.SetUserData(c.User.ID, raw)
}

func clearDraft(c *router.Context) error {
	return c.Store.States.SetUserData(c.User.ID, []byte("{}"))
}
