package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"irisforest/predictor"
)

const (
	streamReadLimit = 4096
	streamWriteWait = 10 * time.Second
)

// handleStream answers each JSON sample frame with one prediction or error frame.
func (h *Handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamReadLimit)

	requestID := GetRequestID(r.Context())
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}

		var reply any
		var fields map[string]any
		if err := json.Unmarshal(message, &fields); err != nil {
			reply = errorResponse{Error: err.Error(), Kind: kindBadRequest}
		} else if prediction, _, err := h.service.PredictFields(r.Context(), predictor.JSONFields(fields)); err != nil {
			reply = errorResponse{Error: err.Error(), Kind: predictor.ErrorCode(err)}
		} else {
			reply = prediction
		}

		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("websocket write", zap.String("request_id", requestID), zap.Error(err))
			return
		}
	}
}
