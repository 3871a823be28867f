package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/infra/memory"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleCatalog() []domain.Content {
	return []domain.Content{
		{
			Kind:  domain.KindQuiz,
			ID:    "legislation",
			Title: "Législation",
			Questions: []domain.Question{
				{ID: "leg_1", Prompt: "Âge minimum ?", Options: []string{"16", "17", "18"}, CorrectAnswer: 1, Explanation: "17 ans"},
				{ID: "leg_2", Prompt: "Taux ?", Options: []string{"1/8", "1/12"}, CorrectAnswer: 0, Explanation: "1 pour 8"},
			},
		},
		{
			Kind:   domain.KindBudget,
			ID:     "scen_1",
			Title:  "Séjour",
			Budget: 5000,
			Questions: []domain.Question{
				{Prompt: "Poste principal ?", Options: []string{"Transport", "Hébergement"}, CorrectAnswer: 1},
			},
		},
	}
}

func sampleGame() domain.GameConfig {
	return domain.GameConfig{
		Avatars: []domain.Avatar{
			{ID: "avatar1", Name: "Débutant", RequiredLevel: 1},
			{ID: "avatar2", Name: "Experte", RequiredLevel: 2},
		},
		Badges:     []domain.Badge{{ID: "creator", Name: "Créateur"}},
		Themes:     []domain.ThemeInfo{{ID: "legislation", Name: "Législation"}},
		XPPerLevel: 100,
	}
}

type testServer struct {
	*httptest.Server
	service *app.SessionService
	ledger  *app.Ledger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	catalog := memory.NewCatalogRepository(memory.NewStaticLoader(sampleCatalog()...), time.Minute)
	ledger := app.NewLedger(memory.NewProfileStore(), 100, testLogger).WithHistory(memory.NewProgressStore())
	rewards := app.NewRewards(ledger, app.DefaultRewardsConfig(), testLogger)
	service := app.NewSessionService(memory.NewSessionStore(), catalog, rewards, app.NewRandShuffler(7), testLogger)

	mux := http.NewServeMux()
	NewAPIHandler(service, ledger, testLogger).WithGame(sampleGame()).Register(mux)
	mux.HandleFunc("/ws", NewWSHandler(service, testLogger).ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, service: service, ledger: ledger}
}

func (s *testServer) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusAccepted {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestQuizFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	var session domain.Session
	if code := s.do(t, http.MethodPost, "/api/quiz/sessions", map[string]string{"userId": "u1", "theme": "legislation"}, &session); code != http.StatusCreated {
		t.Fatalf("start: status %d", code)
	}
	if len(session.Items) != 2 {
		t.Fatalf("unexpected session %+v", session)
	}

	if code := s.do(t, http.MethodGet, "/api/quiz/sessions/"+session.ID+"/results", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("results before completion: expected 400, got %d", code)
	}

	answers := map[string]int{"leg_1": 1, "leg_2": 0}
	var grade domain.GradeResult
	for _, id := range session.Items {
		body := map[string]any{"questionId": id, "answer": answers[id]}
		if code := s.do(t, http.MethodPost, "/api/quiz/sessions/"+session.ID+"/answer", body, &grade); code != http.StatusOK {
			t.Fatalf("answer %s: status %d", id, code)
		}
		if !grade.IsCorrect {
			t.Fatalf("expected correct grade for %s: %+v", id, grade)
		}
	}
	if !grade.Completed || grade.Score != 2 {
		t.Fatalf("expected completed with score 2, got %+v", grade)
	}

	body := map[string]any{"questionId": session.Items[0], "answer": 1}
	if code := s.do(t, http.MethodPost, "/api/quiz/sessions/"+session.ID+"/answer", body, nil); code != http.StatusConflict {
		t.Fatalf("answer after completion: expected 409, got %d", code)
	}

	var result domain.Result
	if code := s.do(t, http.MethodGet, "/api/quiz/sessions/"+session.ID+"/results", nil, &result); code != http.StatusOK {
		t.Fatalf("results: status %d", code)
	}
	if result.Percentage != 100 || !result.Passed || result.Total != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	var standing domain.Standing
	if code := s.do(t, http.MethodGet, "/api/users/u1/profile", nil, &standing); code != http.StatusOK {
		t.Fatalf("profile: status %d", code)
	}
	if standing.XP != 40 || standing.Level != 1 || len(standing.CompletedThemes) != 1 {
		t.Fatalf("unexpected standing %+v", standing)
	}
}

func TestStartAcceptsQueryParameters(t *testing.T) {
	s := newTestServer(t)

	var session domain.Session
	if code := s.do(t, http.MethodPost, "/api/quiz/sessions?user_id=u1&theme=legislation", nil, &session); code != http.StatusCreated {
		t.Fatalf("start: status %d", code)
	}
	if session.OwnerID != "u1" || session.ContentRef != "legislation" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestBudgetFlowByIndex(t *testing.T) {
	s := newTestServer(t)

	var session domain.Session
	if code := s.do(t, http.MethodPost, "/api/budget/sessions", map[string]string{"userId": "u2", "scenarioId": "scen_1"}, &session); code != http.StatusCreated {
		t.Fatalf("start: status %d", code)
	}
	var grade domain.GradeResult
	body := map[string]any{"questionIndex": 0, "answer": 1}
	if code := s.do(t, http.MethodPost, "/api/budget/sessions/"+session.ID+"/answer", body, &grade); code != http.StatusOK {
		t.Fatalf("answer: status %d", code)
	}
	if !grade.IsCorrect || !grade.Completed {
		t.Fatalf("unexpected grade %+v", grade)
	}

	var standing domain.Standing
	s.do(t, http.MethodGet, "/api/users/u2/profile", nil, &standing)
	if standing.XP != 30 {
		t.Fatalf("expected budget xp, got %+v", standing)
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)

	if code := s.do(t, http.MethodGet, "/api/quiz/sessions/missing", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", code)
	}
	if code := s.do(t, http.MethodPost, "/api/quiz/sessions", map[string]string{"userId": "u1", "theme": "nope"}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown theme: expected 404, got %d", code)
	}

	var session domain.Session
	s.do(t, http.MethodPost, "/api/quiz/sessions", map[string]string{"userId": "u1", "theme": "legislation"}, &session)

	wrong := session.Items[1]
	if code := s.do(t, http.MethodPost, "/api/quiz/sessions/"+session.ID+"/answer", map[string]any{"questionId": wrong, "answer": 0}, nil); code != http.StatusConflict {
		t.Fatalf("out of sequence: expected 409, got %d", code)
	}
	if code := s.do(t, http.MethodPost, "/api/quiz/sessions/"+session.ID+"/answer", map[string]any{"questionId": "ghost", "answer": 0}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown question: expected 404, got %d", code)
	}
	if code := s.do(t, http.MethodPost, "/api/quiz/sessions/"+session.ID+"/answer", map[string]any{"questionId": session.Items[0]}, nil); code != http.StatusBadRequest {
		t.Fatalf("missing answer: expected 400, got %d", code)
	}
}

func TestRecordActivity(t *testing.T) {
	s := newTestServer(t)

	if code := s.do(t, http.MethodPost, "/api/users/u3/activities", map[string]string{"activityId": "act_1"}, nil); code != http.StatusAccepted {
		t.Fatalf("activity: status %d", code)
	}
	var standing domain.Standing
	s.do(t, http.MethodGet, "/api/users/u3/profile", nil, &standing)
	if standing.XP != 50 || len(standing.Badges) != 1 || standing.Badges[0] != "creator" {
		t.Fatalf("unexpected standing %+v", standing)
	}
	if code := s.do(t, http.MethodPost, "/api/users/u3/activities", map[string]string{}, nil); code != http.StatusBadRequest {
		t.Fatalf("missing activity id: expected 400, got %d", code)
	}
}

func TestStatusForStoreUnavailable(t *testing.T) {
	if got := StatusFor(domain.ErrStoreUnavailable); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", got)
	}
}

func TestProgressHistoryOverHTTP(t *testing.T) {
	s := newTestServer(t)

	var empty []domain.ProgressRecord
	if code := s.do(t, http.MethodGet, "/api/users/u4/progress", nil, &empty); code != http.StatusOK || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %d %v", code, empty)
	}

	var session domain.Session
	s.do(t, http.MethodPost, "/api/quiz/sessions", map[string]string{"userId": "u4", "theme": "legislation"}, &session)
	answers := map[string]int{"leg_1": 1, "leg_2": 1}
	for _, id := range session.Items {
		s.do(t, http.MethodPost, "/api/quiz/sessions/"+session.ID+"/answer", map[string]any{"questionId": id, "answer": answers[id]}, nil)
	}
	s.do(t, http.MethodPost, "/api/users/u4/activities", map[string]string{"activityId": "act_9"}, nil)

	var records []domain.ProgressRecord
	if code := s.do(t, http.MethodGet, "/api/users/u4/progress", nil, &records); code != http.StatusOK {
		t.Fatalf("progress: status %d", code)
	}
	if len(records) != 2 {
		t.Fatalf("expected two records, got %+v", records)
	}
	quiz, activity := records[0], records[1]
	if quiz.ContentID != "legislation" || quiz.Score != 1 || quiz.Total != 2 || quiz.XPEarned != 20 {
		t.Fatalf("unexpected quiz record %+v", quiz)
	}
	if activity.ActivityID != "act_9" || activity.XPEarned != 50 {
		t.Fatalf("unexpected activity record %+v", activity)
	}
}

func TestGameConfigAndAvatarUnlocks(t *testing.T) {
	s := newTestServer(t)

	var game domain.GameConfig
	if code := s.do(t, http.MethodGet, "/api/config/game", nil, &game); code != http.StatusOK {
		t.Fatalf("game config: status %d", code)
	}
	if len(game.Badges) != 1 || game.XPPerLevel != 100 || !game.Avatars[0].Unlocked || game.Avatars[1].Unlocked {
		t.Fatalf("unexpected game config %+v", game)
	}
	var themes []domain.ThemeInfo
	if code := s.do(t, http.MethodGet, "/api/config/themes", nil, &themes); code != http.StatusOK || len(themes) != 1 {
		t.Fatalf("themes: %d %+v", code, themes)
	}

	if _, err := s.ledger.AwardXP(context.Background(), "u5", 120); err != nil {
		t.Fatalf("award: %v", err)
	}
	var avatars []domain.Avatar
	if code := s.do(t, http.MethodGet, "/api/users/u5/avatars", nil, &avatars); code != http.StatusOK {
		t.Fatalf("avatars: status %d", code)
	}
	if len(avatars) != 2 || !avatars[1].Unlocked {
		t.Fatalf("expected level 2 avatar unlocked, got %+v", avatars)
	}
}
