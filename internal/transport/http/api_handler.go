package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/domain"
)

// APIHandler exposes the session and ledger use cases as JSON over HTTP.
type APIHandler struct {
	service *app.SessionService
	ledger  *app.Ledger
	game    domain.GameConfig
	logger  *slog.Logger
}

func NewAPIHandler(service *app.SessionService, ledger *app.Ledger, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{service: service, ledger: ledger, logger: logger}
}

// WithGame sets the game catalog served under /api/config.
func (h *APIHandler) WithGame(game domain.GameConfig) *APIHandler {
	h.game = game
	return h
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quiz/sessions", h.startSession(domain.KindQuiz))
	mux.HandleFunc("GET /api/quiz/sessions/{id}", h.getSession)
	mux.HandleFunc("POST /api/quiz/sessions/{id}/answer", h.submitAnswer(domain.KindQuiz))
	mux.HandleFunc("GET /api/quiz/sessions/{id}/results", h.results)

	mux.HandleFunc("POST /api/budget/sessions", h.startSession(domain.KindBudget))
	mux.HandleFunc("GET /api/budget/sessions/{id}", h.getSession)
	mux.HandleFunc("POST /api/budget/sessions/{id}/answer", h.submitAnswer(domain.KindBudget))
	mux.HandleFunc("GET /api/budget/sessions/{id}/results", h.results)

	mux.HandleFunc("GET /api/users/{id}/profile", h.profile)
	mux.HandleFunc("GET /api/users/{id}/progress", h.progress)
	mux.HandleFunc("GET /api/users/{id}/avatars", h.userAvatars)
	mux.HandleFunc("POST /api/users/{id}/activities", h.recordActivity)

	mux.HandleFunc("GET /api/config/game", h.gameConfig)
	mux.HandleFunc("GET /api/config/avatars", h.avatars)
	mux.HandleFunc("GET /api/config/badges", h.badges)
	mux.HandleFunc("GET /api/config/themes", h.themes)
}

type startRequest struct {
	UserID     string `json:"userId"`
	Theme      string `json:"theme"`
	ScenarioID string `json:"scenarioId"`
}

type answerRequest struct {
	QuestionID    string `json:"questionId"`
	QuestionIndex *int   `json:"questionIndex"`
	Answer        *int   `json:"answer"`
}

type activityRequest struct {
	ActivityID string `json:"activityId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandler) startSession(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if !h.decode(w, r, &req) {
			return
		}
		q := r.URL.Query()
		if req.UserID == "" {
			req.UserID = q.Get("user_id")
		}
		content := req.Theme
		if kind == domain.KindBudget {
			content = req.ScenarioID
			if content == "" {
				content = q.Get("scenario_id")
			}
		} else if content == "" {
			content = q.Get("theme")
		}

		session, err := h.service.Start(r.Context(), kind, req.UserID, content)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	}
}

func (h *APIHandler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *APIHandler) submitAnswer(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if !h.decode(w, r, &req) {
			return
		}
		if err := req.fromQuery(r); err != nil {
			h.writeError(w, r, err)
			return
		}

		ref, err := req.itemRef(kind)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		result, err := h.service.Submit(r.Context(), r.PathValue("id"), ref, *req.Answer)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *APIHandler) results(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) profile(w http.ResponseWriter, r *http.Request) {
	standing, err := h.ledger.Profile(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standing)
}

func (h *APIHandler) progress(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.History(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// userAvatars marks each avatar unlocked or not for the user's current level.
func (h *APIHandler) userAvatars(w http.ResponseWriter, r *http.Request) {
	standing, err := h.ledger.Profile(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.AvatarsFor(h.game.Avatars, standing.Level))
}

func (h *APIHandler) gameConfig(w http.ResponseWriter, r *http.Request) {
	game := h.game
	game.Avatars = domain.AvatarsFor(game.Avatars, 1)
	writeJSON(w, http.StatusOK, game)
}

func (h *APIHandler) avatars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.AvatarsFor(h.game.Avatars, 1))
}

func (h *APIHandler) badges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.game.Badges))
}

func (h *APIHandler) themes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.game.Themes))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (h *APIHandler) recordActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RecordActivity(r.Context(), r.PathValue("id"), req.ActivityID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// fromQuery fills fields the body left empty from question_id / question_index / user_answer.
func (req *answerRequest) fromQuery(r *http.Request) error {
	q := r.URL.Query()
	if req.QuestionID == "" {
		req.QuestionID = q.Get("question_id")
	}
	if req.QuestionIndex == nil && q.Has("question_index") {
		i, err := strconv.Atoi(q.Get("question_index"))
		if err != nil {
			return errors.Join(domain.ErrInvalidArgument, err)
		}
		req.QuestionIndex = &i
	}
	if req.Answer == nil && q.Has("user_answer") {
		a, err := strconv.Atoi(q.Get("user_answer"))
		if err != nil {
			return errors.Join(domain.ErrInvalidArgument, err)
		}
		req.Answer = &a
	}
	return nil
}

func (req answerRequest) itemRef(kind domain.Kind) (domain.ItemRef, error) {
	if req.Answer == nil {
		return domain.ItemRef{}, errors.Join(domain.ErrInvalidArgument, errors.New("answer is required"))
	}
	if kind == domain.KindBudget && req.QuestionIndex != nil {
		return domain.ByIndex(*req.QuestionIndex), nil
	}
	if req.QuestionID != "" {
		return domain.ByID(req.QuestionID), nil
	}
	if req.QuestionIndex != nil {
		return domain.ByIndex(*req.QuestionIndex), nil
	}
	return domain.ItemRef{}, errors.Join(domain.ErrInvalidArgument, errors.New("questionId or questionIndex is required"))
}

// decode reads an optional JSON body. An empty body is accepted so that query-string
// clients keep working.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyCompleted), errors.Is(err, domain.ErrOutOfSequence):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotReady), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
