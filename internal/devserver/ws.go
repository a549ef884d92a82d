package devserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"roomviewer/internal/transport"
)

// handleWS serves the room channel over a websocket: one reply per request,
// in order.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, u *user) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "user", u.name, "error", err)
		return
	}
	defer conn.Close()

	ops := map[string]roomOp{
		transport.OpHasChanged: s.hasChanged,
		transport.OpGetState:   s.getState,
		transport.OpMakeMove:   s.makeMove,
	}
	for {
		var req transport.WSRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket closed", "user", u.name, "error", err)
			}
			return
		}
		status, reply := http.StatusBadRequest, any(map[string]string{"error": "unknown op " + req.Op})
		if op, ok := ops[req.Op]; ok {
			status, reply = s.call(u, op, req.Move)
		}
		body, err := json.Marshal(reply)
		if err != nil {
			s.logger.Warn("encode websocket reply", "op", req.Op, "error", err)
			return
		}
		if err := conn.WriteJSON(transport.WSResponse{Op: req.Op, Status: status, Body: body}); err != nil {
			return
		}
	}
}
