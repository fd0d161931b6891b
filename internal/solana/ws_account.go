package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// AccountNotification is a single accountSubscribe update: the account's
// raw (decoded) data and the slot the update was observed at.
type AccountNotification struct {
	Data []byte
	Slot int64
}

// accountSubs is a bare best-effort registry for accountSubscribe
// notifications, separate from the logsSubscribe machinery's
// reconnect/resubscribe bookkeeping: account subscriptions are used for
// the pool service's watchlist refresh, where a dropped subscription is
// recovered by the next poll-driven RefreshBatch rather than by
// reconnect-time resubscription.
type accountSubs struct {
	mu   sync.RWMutex
	subs map[int64]chan AccountNotification
}

var accountSubsOnce sync.Once
var accountSubRegistry *accountSubs

func getAccountSubs() *accountSubs {
	accountSubsOnce.Do(func() { accountSubRegistry = &accountSubs{subs: make(map[int64]chan AccountNotification)} })
	return accountSubRegistry
}

// SubscribeAccount subscribes to account-data updates for address and
// returns a channel of decoded notifications.
func (c *WSClientImpl) SubscribeAccount(ctx context.Context, address string) (<-chan AccountNotification, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "accountSubscribe",
		Params: []interface{}{
			address,
			map[string]string{"encoding": "base64", "commitment": "confirmed"},
		},
	}

	confirmCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		return nil, fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write accountSubscribe: %w", err)
	}

	var subID int64
	select {
	case subID = <-confirmCh:
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("subscription timeout after 30s")
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ch := make(chan AccountNotification, 256)
	reg := getAccountSubs()
	reg.mu.Lock()
	reg.subs[subID] = ch
	reg.mu.Unlock()

	return ch, nil
}

// dispatchAccountNotification parses an accountNotification message and
// routes it to its subscriber, if still registered. Safe to call
// unconditionally from handleMessage; it is a no-op for other methods.
func dispatchAccountNotification(message []byte) {
	var notif struct {
		Method string `json:"method"`
		Params *struct {
			Subscription int64 `json:"subscription"`
			Result       struct {
				Context struct {
					Slot int64 `json:"slot"`
				} `json:"context"`
				Value struct {
					Data []string `json:"data"`
				} `json:"value"`
			} `json:"result"`
		} `json:"params"`
	}
	if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "accountNotification" || notif.Params == nil {
		return
	}

	reg := getAccountSubs()
	reg.mu.RLock()
	ch, ok := reg.subs[notif.Params.Subscription]
	reg.mu.RUnlock()
	if !ok {
		return
	}

	var raw []byte
	if len(notif.Params.Result.Value.Data) >= 1 {
		raw, _ = base64.StdEncoding.DecodeString(notif.Params.Result.Value.Data[0])
	}

	select {
	case ch <- AccountNotification{Data: raw, Slot: notif.Params.Result.Context.Slot}:
	default:
	}
}
