package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Message is one pub/sub delivery.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription is a single-channel subscriber on its own dedicated
// connection; it never touches the command pool. Receive returns
// messages in the order the server delivered them. Close tears the
// connection down and unblocks any pending Receive.
type Subscription struct {
	store   *Store
	conn    *clientConn
	channel string

	closeOnce sync.Once
	closeErr  error
}

// Subscribe opens a dedicated connection, issues SUBSCRIBE, and waits for
// the server's confirmation before returning.
func (s *Store) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	conn, err := s.newConn(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.send(conn, "SUBSCRIBE", channel); err != nil {
		_ = conn.Close()
		return nil, err
	}

	// Confirmation frame: ["subscribe", channel, <count>]. Read it with
	// the normal command timeout so a dead server fails fast.
	resp, err := s.read(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if kind, _, ok := pushFrame(resp); !ok || kind != "subscribe" {
		_ = conn.Close()
		return nil, fmt.Errorf("redis: unexpected SUBSCRIBE reply %v", resp)
	}

	return &Subscription{store: s, conn: conn, channel: channel}, nil
}

// Channel returns the subscribed channel name.
func (sub *Subscription) Channel() string { return sub.channel }

// Receive blocks until the next message arrives or the subscription is
// closed. Non-message push frames (subscribe/unsubscribe confirmations)
// are skipped. Receive is not safe for concurrent use; run it from a
// single delivery loop.
func (sub *Subscription) Receive(ctx context.Context) (Message, error) {
	if err := ctxErr(ctx); err != nil {
		return Message{}, err
	}

	for {
		// No read deadline in subscriber mode: messages may be minutes
		// apart. Close unblocks the read.
		if err := sub.conn.SetReadDeadline(time.Time{}); err != nil {
			return Message{}, err
		}
		resp, err := decodeRESP(sub.conn.reader)
		if err != nil {
			return Message{}, err
		}
		kind, frame, ok := pushFrame(resp)
		if !ok {
			return Message{}, fmt.Errorf("redis: unexpected pub/sub frame %v", resp)
		}
		if kind != "message" || len(frame) < 3 {
			continue
		}
		channel, _ := frame[1].([]byte)
		payload, _ := frame[2].([]byte)
		return Message{Channel: string(channel), Payload: append([]byte(nil), payload...)}, nil
	}
}

// Close terminates the subscription. The underlying connection is closed
// rather than returned to the pool; subscriber connections are single
// purpose.
func (sub *Subscription) Close() error {
	sub.closeOnce.Do(func() {
		sub.closeErr = sub.conn.Close()
	})
	return sub.closeErr
}

func pushFrame(resp any) (string, []any, bool) {
	frame, ok := resp.([]any)
	if !ok || len(frame) == 0 {
		return "", nil, false
	}
	kind, ok := frame[0].([]byte)
	if !ok {
		return "", nil, false
	}
	return strings.ToLower(string(kind)), frame, true
}
