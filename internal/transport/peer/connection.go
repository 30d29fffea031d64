package peer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
)

// frame - one outgoing message. written runs after the frame reached the socket.
type frame struct {
	payload []byte
	written func()
}

type connection struct {
	ws   *websocket.Conn
	send chan frame
	done chan struct{}

	closeOnce sync.Once
}

func newConnection(ws *websocket.Conn, buffer int) *connection {
	return &connection{
		ws:   ws,
		send: make(chan frame, buffer),
		done: make(chan struct{}),
	}
}

func (that *connection) enqueue(out frame) error {
	select {
	case <-that.done:
		return apperror.ErrPeerUnreachable
	default:
	}

	select {
	case that.send <- out:
		return nil
	case <-that.done:
		return apperror.ErrPeerUnreachable
	default:
		return apperror.ErrSendQueueFull
	}
}

func (that *connection) close() {
	that.closeOnce.Do(func() {
		close(that.done)
		_ = that.ws.Close()
	})
}

func (that *connection) readPump(logger *slog.Logger, receiver Receiver) {
	log := logger.With("method", "readPump")

	that.ws.SetReadLimit(maxPayloadSize)
	_ = that.ws.SetReadDeadline(time.Now().Add(pongWait))
	that.ws.SetPongHandler(func(string) error {
		return that.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := that.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("peer connection closed unexpectedly", "error", err)
			}
			return
		}

		receiver.HandlePayload(payload)
	}
}

func (that *connection) writePump(logger *slog.Logger) {
	log := logger.With("method", "writePump")

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		that.close()
	}()

	for {
		select {
		case <-that.done:
			return
		case out := <-that.send:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteMessage(websocket.TextMessage, out.payload); err != nil {
				log.Warn("failed to write to peer", "error", err)
				return
			}

			if out.written != nil {
				out.written()
			}
		case <-ticker.C:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
