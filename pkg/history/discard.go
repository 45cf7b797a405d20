package history

import (
	"context"

	"harvest-hq/gateway/pkg/proxy/types"
)

// DiscardStore drops every turn. It is used when persistence is turned off.
type DiscardStore struct{}

// NewDiscardStore creates a DiscardStore.
func NewDiscardStore() *DiscardStore {
	return &DiscardStore{}
}

// Add always succeeds.
func (DiscardStore) Add(context.Context, string, []types.ChatMessage) error {
	return nil
}

// Close is a no-op.
func (DiscardStore) Close() error {
	return nil
}
