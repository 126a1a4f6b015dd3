// Package feed pushes store changes to socket.io clients.
package feed

import (
	"net/http"
	"storefront/core"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// Room every client joins on connection; store events are emitted to it.
const Room socketio.Room = "stores"

type Hub struct {
	ioo *socketio.Server
}

func NewHub() *Hub {
	opts := socketio.DefaultServerOptions()
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	ioo := socketio.NewServer(nil, opts)

	ioo.On("connection", func(clients ...any) {
		socket := clients[0].(*socketio.Socket)
		me := socket.Id()
		socket.Join(Room)
		logrus.WithField("socket_id", me).Debug("Feed client connected")

		socket.On("disconnect", func(datas ...any) {
			logrus.WithField("socket_id", me).Debug("Feed client disconnected")
			socket.RemoveAllListeners("")
		})
	})

	return &Hub{ioo: ioo}
}

// Publish emits event with the stored view of store to every connected
// client.
func (h *Hub) Publish(event string, store *core.Store) {
	logrus.WithFields(logrus.Fields{
		"event":    event,
		"store_id": store.ID.Hex(),
	}).Debug("Publishing store event")
	h.ioo.To(Room).Emit(event, store.View())
}

func (h *Hub) Handler() http.Handler {
	return h.ioo.ServeHandler(nil)
}

func (h *Hub) Close() {
	h.ioo.Close(nil)
}
