package cart

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Subscribe registers for change events of cartID. The returned cancel func
// must be called to release the subscription. Slow readers only see the
// latest count.
func (s *Store) Subscribe(cartID string) (<-chan Event, func()) {
	ch := make(chan Event, 1)

	s.subsMu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.subs[cartID] == nil {
		s.subs[cartID] = make(map[uint64]chan Event)
	}
	s.subs[cartID][id] = ch
	s.subsMu.Unlock()

	cancel := func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if _, ok := s.subs[cartID][id]; !ok {
			return
		}
		delete(s.subs[cartID], id)
		if len(s.subs[cartID]) == 0 {
			delete(s.subs, cartID)
		}
		close(ch)
	}
	return ch, cancel
}

func (s *Store) notify(ctx context.Context, event Event) {
	s.dispatch(event)

	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(relayMessage{Origin: s.origin, Event: event})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, eventsChannel, string(payload)); err != nil {
		s.logger.Warn("cart event publish failed", zap.String("cart_id", event.CartID), zap.Error(err))
	}
}

func (s *Store) dispatch(event Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subs[event.CartID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// StartRelay forwards change events published by other instances to local
// subscribers until ctx is done. It is a no-op for backends that cannot
// broadcast.
func (s *Store) StartRelay(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	messages, err := s.bus.Subscribe(ctx, eventsChannel)
	if err != nil {
		return err
	}

	go func() {
		for raw := range messages {
			var msg relayMessage
			if err := json.Unmarshal([]byte(raw), &msg); err != nil {
				s.logger.Warn("ignoring malformed cart event", zap.Error(err))
				continue
			}
			if msg.Origin == s.origin || msg.CartID == "" {
				continue
			}
			s.dispatch(msg.Event)
		}
	}()
	return nil
}
