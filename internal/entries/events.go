package entries

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Board event types.
const (
	EventCreated = "ENTRY_CREATED"
	EventUpdated = "ENTRY_UPDATED"
	EventDeleted = "ENTRY_DELETED"
)

// Event is broadcast to everyone viewing a board.
type Event struct {
	Type    string          `json:"type"`
	BoardID int64           `json:"board_id"`
	EntryID int64           `json:"entry_id"`
	Entry   *EntryResponse  `json:"entry,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// Broadcaster fans board events out over Redis pub/sub.
type Broadcaster struct {
	client *redis.Client
}

// NewBroadcaster returns a broadcaster; a nil client makes it a no-op.
func NewBroadcaster(client *redis.Client) *Broadcaster {
	return &Broadcaster{client: client}
}

func boardChannel(instituteID, boardID int64) string {
	return fmt.Sprintf("entries.board.%d.%d", instituteID, boardID)
}

// Publish sends ev to the board channel.
func (b *Broadcaster) Publish(ctx context.Context, instituteID int64, ev Event) error {
	if b == nil || b.client == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, boardChannel(instituteID, ev.BoardID), payload).Err()
}

// Subscribe streams board events until ctx ends. The returned channel is
// closed when the subscription stops.
func (b *Broadcaster) Subscribe(ctx context.Context, instituteID, boardID int64) (<-chan Event, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("entries: broadcaster not configured")
	}
	pubsub := b.client.Subscribe(ctx, boardChannel(instituteID, boardID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				ev.Raw = json.RawMessage(msg.Payload)
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
