package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pyrometer-server/logger"
	"pyrometer-server/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebRequest struct {
	ID      string   `json:"id,omitempty"` // echoed back; generated when empty
	Command string   `json:"command"`      // "READ_TEMPERATURE", "SET_EMISSIVITY", ...
	Value   *float64 `json:"value,omitempty"`
	Name    string   `json:"name,omitempty"`
}

type WebResponse struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"` // "success", "error"
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"` // error kind
	Data    interface{} `json:"data,omitempty"`
}

type Handler struct {
	Instrument Instrument
	Timeout    time.Duration // per request
}

func NewHandler(inst Instrument) *Handler {
	return &Handler{Instrument: inst, Timeout: 10 * time.Second}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req WebRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			h.sendJSON(conn, WebResponse{ID: uuid.NewString(), Status: "error", Kind: "bad_request", Message: "Invalid JSON"})
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		// Requests on one connection are answered in order
		h.sendJSON(conn, h.handleRequest(r.Context(), req))
	}
}

func (h *Handler) sendJSON(conn *websocket.Conn, resp WebResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		logger.Error("write response %s: %v", resp.ID, err)
	}
}

func (h *Handler) handleRequest(parent context.Context, req WebRequest) WebResponse {
	ctx, cancel := context.WithTimeout(parent, h.Timeout)
	defer cancel()

	logger.Debug("ws request %s %s", req.ID, req.Command)

	var (
		data interface{}
		err  error
	)
	switch req.Command {
	case "FOCUS":
		data, err = h.Instrument.Focus(ctx)
	case "INSTRUMENT_ID":
		data, err = h.Instrument.InstrumentID(ctx)
	case "GET_EMISSIVITY":
		data, err = h.Instrument.Emissivity(ctx)
	case "GET_TRANSMISSIVITY":
		data, err = h.Instrument.Transmissivity(ctx)
	case "GET_T90":
		data, err = h.Instrument.T90(ctx)
	case "READ_TEMPERATURE":
		data, err = h.Instrument.ReadTemperature(ctx)
	case "SET_EMISSIVITY":
		if req.Value == nil {
			return badRequest(req, "value is required")
		}
		err = h.Instrument.SetEmissivity(ctx, *req.Value)
	case "SET_TRANSMISSIVITY":
		if req.Value == nil {
			return badRequest(req, "value is required")
		}
		err = h.Instrument.SetTransmissivity(ctx, *req.Value)
	case "SET_T90":
		if req.Name == "" {
			return badRequest(req, "name is required")
		}
		err = h.Instrument.SetT90(ctx, req.Name)
	default:
		return badRequest(req, "Unknown Command")
	}

	if err != nil {
		logger.Error("ws request %s %s failed: %v", req.ID, req.Command, err)
		return WebResponse{ID: req.ID, Status: "error", Kind: ErrorKind(err), Message: err.Error()}
	}
	return WebResponse{ID: req.ID, Status: "success", Message: req.Command, Data: data}
}

func badRequest(req WebRequest, msg string) WebResponse {
	return WebResponse{ID: req.ID, Status: "error", Kind: "bad_request", Message: msg}
}

// ErrorKind names the failure class of a driver error.
func ErrorKind(err error) string {
	var (
		ioErr    *protocol.IOError
		parseErr *protocol.ParseError
		ackErr   *protocol.AckRejectedError
		codeErr  *protocol.UnknownCodeError
		nameErr  *protocol.UnknownNameError
		verErr   *protocol.VerificationError
		rangeErr *protocol.RangeError
	)
	switch {
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &ackErr):
		return "ack_rejected"
	case errors.As(err, &codeErr):
		return "unknown_code"
	case errors.As(err, &nameErr):
		return "unknown_name"
	case errors.As(err, &verErr):
		return "verification"
	case errors.As(err, &rangeErr):
		return "range"
	default:
		return "internal"
	}
}
