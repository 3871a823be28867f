package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler plays one session over a websocket: answers go in, grading and progress
// come out.
type WSHandler struct {
	service  *app.SessionService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsAnswerPayload struct {
	QuestionID    string `json:"questionId"`
	QuestionIndex *int   `json:"questionIndex"`
	Answer        *int   `json:"answer"`
}

type answerResult struct {
	QuestionID string `json:"questionId,omitempty"`
	domain.GradeResult
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Status: StatusFor(err)}}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the session use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	session, err := h.service.Get(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", "session_id", sessionID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "progress", Payload: update}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	alive := enqueue(send, writerDone, outboundMessage[any]{Type: "session", Payload: session})
	for alive {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.handleInbound(r, session, inbound) {
			if alive = enqueue(send, writerDone, msg); !alive {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer goroutine. It reports false once the writer has
// exited, so a dead connection never blocks the caller on a full buffer.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// handleInbound runs one client message against the session and returns the replies.
func (h *WSHandler) handleInbound(r *http.Request, session domain.Session, inbound inboundMessage) []outboundMessage[any] {
	switch inbound.Type {
	case "answer":
		var payload wsAnswerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: "invalid answer payload", Status: http.StatusBadRequest}}}
		}
		req := answerRequest{QuestionID: payload.QuestionID, QuestionIndex: payload.QuestionIndex, Answer: payload.Answer}
		ref, err := req.itemRef(session.Kind)
		if err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		result, err := h.service.Submit(r.Context(), session.ID, ref, *payload.Answer)
		if err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		out := []outboundMessage[any]{{Type: "answerResult", Payload: answerResult{QuestionID: payload.QuestionID, GradeResult: result}}}
		if result.Completed {
			if res, err := h.service.Results(r.Context(), session.ID); err == nil {
				out = append(out, outboundMessage[any]{Type: "results", Payload: res})
			}
		}
		return out
	case "results":
		res, err := h.service.Results(r.Context(), session.ID)
		if err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		return []outboundMessage[any]{{Type: "results", Payload: res}}
	default:
		return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: "unsupported message type", Status: http.StatusBadRequest}}}
	}
}
