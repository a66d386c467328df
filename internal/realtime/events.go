package realtime

import (
	"encoding/json"
	"log/slog"

	"github.com/offbeatfm/offbeat/internal/metrics"
)

// Client-to-server event types.
const (
	EvStationJoin     = "station-join"
	EvStationLeave    = "station-leave"
	EvStationSendPlay = "station-send-play"
	EvStationPause    = "station-send-pause"
	EvChatSetTopic    = "chat-set-topic"
	EvChatSendMsg     = "chat-send-msg"
	EvUserWatch       = "user-watch"
	EvSetUserSocket   = "set-user-socket"
	EvUnsetUserSocket = "unset-user-socket"
)

// Server-to-client event types.
const (
	EvStationReceivePlay  = "station-receive-play"
	EvStationReceivePause = "station-receive-pause"
	EvChatAddMsg          = "chat-add-msg"
)

// clientFrame is the inbound wire format: a type tag plus an opaque payload.
type clientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// playPayload carries playback sync state. The full payload is relayed
// verbatim; only stationId is inspected for routing.
type playPayload struct {
	StationID string `json:"stationId"`
}

// handleInbound runs inside the actor, so every membership read during
// dispatch sees consistent state.
func (h *Hub) handleInbound(connID string, raw []byte) {
	m, ok := h.members[connID]
	if !ok {
		return
	}

	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		metrics.HubDroppedFrames.Inc()
		slog.Debug("Dropping malformed frame", "conn_id", connID, "error", err)
		return
	}

	switch frame.Type {
	case EvStationJoin:
		if id, ok := decodeString(frame.Data); ok {
			h.handleJoin(connID, StationRoom(id))
		}

	case EvStationLeave:
		if id, ok := decodeString(frame.Data); ok {
			h.handleLeave(connID, StationRoom(id))
		}

	case EvStationSendPlay:
		var p playPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.StationID == "" {
			metrics.HubDroppedFrames.Inc()
			slog.Debug("Dropping play event without station id", "conn_id", connID)
			return
		}
		slog.Debug("Relaying play event", "conn_id", connID, "station_id", p.StationID)
		h.handleEmitRoom(StationRoom(p.StationID), EvStationReceivePlay, frame.Data, connID)

	case EvStationPause:
		if id, ok := decodeString(frame.Data); ok {
			slog.Debug("Relaying pause event", "conn_id", connID, "station_id", id)
			h.handleEmitRoom(StationRoom(id), EvStationReceivePause, map[string]string{"stationId": id}, connID)
		}

	case EvChatSetTopic:
		if topic, ok := decodeString(frame.Data); ok {
			h.handleJoin(connID, TopicRoom(topic))
		}

	case EvChatSendMsg:
		if m.topic == "" {
			slog.Debug("Dropping chat message without topic", "conn_id", connID)
			return
		}
		// The sender receives its own echo: the server echo is the message's
		// canonical ordering point.
		h.handleEmitRoom(m.topic, EvChatAddMsg, frame.Data, "")

	case EvUserWatch:
		if userID, ok := decodeString(frame.Data); ok {
			h.handleJoin(connID, WatchingRoom(userID))
		}

	case EvSetUserSocket:
		if userID, ok := decodeString(frame.Data); ok {
			h.handleSetUser(connID, userID)
		}

	case EvUnsetUserSocket:
		h.handleUnsetUser(connID)

	default:
		metrics.HubDroppedFrames.Inc()
		slog.Debug("Dropping frame with unknown type", "conn_id", connID, "type", frame.Type)
	}
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		metrics.HubDroppedFrames.Inc()
		return "", false
	}
	return s, true
}
