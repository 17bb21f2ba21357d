package ws

import (
	"context"
	"time"

	"coinmine/internal/accrual"
	"coinmine/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// BalanceStream pushes live balance estimates to a connected client at a
// fixed interval, replacing per-second HTTP polling. Everything sent is an
// estimate; the periodic settlement writes the durable figure.
type BalanceStream struct {
	estimator *accrual.Estimator
	interval  time.Duration
}

func NewBalanceStream(estimator *accrual.Estimator, interval time.Duration) *BalanceStream {
	if interval <= 0 {
		interval = time.Second
	}
	return &BalanceStream{estimator: estimator, interval: interval}
}

// Serve owns the connection until the client disconnects or an estimate
// cannot be produced. Run it in its own goroutine.
func (s *BalanceStream) Serve(conn *websocket.Conn, accountID int64) {
	defer conn.Close()

	// read pump: discard inbound frames, notice the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-done:
			return
		case <-pinger.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			est, err := s.estimator.EstimatedBalance(ctx, accountID)
			cancel()
			if err != nil {
				logger.Warn("balance stream estimate failed", "account_id", accountID, "error", err)
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(est); err != nil {
				return
			}
		}
	}
}
