package notifs

import (
	"context"
)

type NullNotifier struct{}

func (NullNotifier) Notify(ctx context.Context, accountID uint, event Event, payload map[string]any) error {
	return nil
}
