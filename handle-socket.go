package publicchat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/google/uuid"
)

// IdentityProvider supplies the authenticated identity for a connection.
// Authentication itself happens upstream; the hub only consumes the opaque
// identity string.
type IdentityProvider interface {
	IdentityFromRequest(w http.ResponseWriter, r *http.Request) (string, error)
}

type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// HandleSocket upgrades the request and registers a session with the hub.
func (h *Hub) HandleSocket(provider IdentityProvider, onError ErrorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := provider.IdentityFromRequest(w, r)
		if err != nil {
			onError(w, r, err)
			return
		}
		identity = strings.TrimSpace(identity)
		if identity == "" {
			onError(w, r, errors.New("identity is empty"))
			return
		}

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			onError(w, r, err)
			return
		}
		h.Slogger.Info("new socket connection", "identity", identity)

		s := newSession(conn, uuid.NewString(), identity, h)
		s.emit(sessionEvent{peer: s, typ: sessionOpened})
		s.start()
	}
}

// IdentityFunc adapts a function to the IdentityProvider interface.
type IdentityFunc func(w http.ResponseWriter, r *http.Request) (string, error)

func (f IdentityFunc) IdentityFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	return f(w, r)
}
