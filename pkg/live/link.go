package live

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// link is one physical WebSocket. It is never reused after it closes.
type link struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newLink(ws *websocket.Conn) *link {
	return &link{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (l *link) close() {
	l.once.Do(func() {
		close(l.done)
		_ = l.ws.Close()
	})
}

// closeGraceful sends a normal-closure frame before closing.
func (l *link) closeGraceful() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = l.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	l.close()
}

func (l *link) writePump(log *zap.Logger) {
	for {
		select {
		case <-l.done:
			return
		case msg := <-l.send:
			_ = l.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Warn("live write failed", zap.Error(err))
				l.close()
				return
			}
		}
	}
}
