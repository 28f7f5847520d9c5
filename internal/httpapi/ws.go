package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/bus"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Peers authenticate with a bearer token; origin checks do not apply to
	// non-browser clients.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEventSocket upgrades the connection and bridges it onto the event
// bus: every local event is streamed out, every inbound event from the peer
// is injected. Presence events mark the peer joining and leaving.
func (a *API) handleEventSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			token = strings.TrimSpace(authorization[len("Bearer "):])
		}
	}
	actor, err := a.auth.ParseToken(token)
	if err != nil {
		writeError(a.log, w, http.StatusUnauthorized, errors.New("invalid or missing token"))
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	// Buffered tap on the bus; a stalled socket drops events rather than
	// backpressuring publishers.
	outbound := make(chan bus.Event, 128)
	unsubscribe := a.events.Subscribe(func(evt bus.Event) {
		select {
		case outbound <- evt:
		default:
			a.log.WithField("event", evt.Type).Debug("event socket buffer full, dropping")
		}
	})
	defer unsubscribe()

	a.events.Publish(bus.EventPeerJoined, "", map[string]string{"actor": actor.Username})
	defer a.events.Publish(bus.EventPeerLeft, "", map[string]string{"actor": actor.Username})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt bus.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			if evt.Origin == "" || evt.Origin == a.events.Origin() {
				continue
			}
			a.events.Inject(evt)
		}
	}()

	for {
		select {
		case <-done:
			return
		case evt := <-outbound:
			if err := conn.WriteJSON(evt); err != nil {
				a.log.WithError(err).WithFields(logrus.Fields{"actor": actor.Username}).
					Debug("event socket write failed")
				return
			}
		}
	}
}
