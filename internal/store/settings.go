package store

import (
	"context"
	"strings"
)

// SlackWorkspaceID returns the configured Slack workspace ID, empty when
// unset. Satisfies the service settings interface.
func (s *Store) SlackWorkspaceID(ctx context.Context) (string, error) {
	var id string
	if _, err := s.getJSON(ctx, s.db, keySlackID, &id); err != nil {
		return "", err
	}
	return id, nil
}

// SetSlackWorkspaceID stores the Slack workspace ID. An empty value clears
// the setting.
func (s *Store) SetSlackWorkspaceID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.deleteKey(ctx, s.db, keySlackID)
	}
	return s.putJSON(ctx, s.db, keySlackID, id)
}
