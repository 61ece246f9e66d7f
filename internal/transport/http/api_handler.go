package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quiz-journey/internal/app"
	"quiz-journey/internal/domain"
)

// APIHandler serves the quiz building endpoints used before a session starts.
type APIHandler struct {
	service *app.QuizService
}

func NewAPIHandler(service *app.QuizService) *APIHandler {
	return &APIHandler{service: service}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/levels", h.listLevels)
	mux.HandleFunc("GET /api/levels/{id}", h.getLevel)
	mux.HandleFunc("POST /api/levels/{id}/questions", h.topicQuestions)
	mux.HandleFunc("POST /api/levels/{id}/quiz", h.levelQuiz)
	mux.HandleFunc("POST /api/quizzes/random", h.randomQuiz)
	mux.HandleFunc("POST /api/quizzes/edit", h.editQuestions)
}

func (h *APIHandler) listLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.SearchLevels(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	if levels == nil {
		levels = []domain.Level{}
	}
	writeJSON(w, http.StatusOK, levels)
}

func (h *APIHandler) getLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := levelID(w, r)
	if !ok {
		return
	}
	level, err := h.service.Level(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, level)
}

type topicRequest struct {
	Count int `json:"count"`
}

func (h *APIHandler) topicQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := levelID(w, r)
	if !ok {
		return
	}
	var req topicRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
			return
		}
	}
	questions, err := h.service.TopicQuestions(r.Context(), id, req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *APIHandler) levelQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := levelID(w, r)
	if !ok {
		return
	}
	h.respondQuiz(w, func(ctx context.Context) (domain.QuizConfig, error) {
		return h.service.LevelQuiz(ctx, id)
	}, r)
}

func (h *APIHandler) randomQuiz(w http.ResponseWriter, r *http.Request) {
	var settings domain.RandomSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}
	h.respondQuiz(w, func(ctx context.Context) (domain.QuizConfig, error) {
		return h.service.RandomQuiz(ctx, settings)
	}, r)
}

type editRequest struct {
	Questions []domain.Question `json:"questions"`
	domain.Edit
}

type editResponse struct {
	Questions []domain.Question `json:"questions"`
}

// editQuestions applies one setup-screen edit (move, update, delete or time)
// to a question list and returns the result.
func (h *APIHandler) editQuestions(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}
	questions, err := domain.ApplyEdit(req.Questions, req.Edit)
	if err != nil {
		writeError(w, err)
		return
	}
	if questions == nil {
		questions = []domain.Question{}
	}
	writeJSON(w, http.StatusOK, editResponse{Questions: questions})
}

func (h *APIHandler) respondQuiz(w http.ResponseWriter, build func(context.Context) (domain.QuizConfig, error), r *http.Request) {
	cfg, err := build(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func levelID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid level id"})
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrLevelNotFound), errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSettings), errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrEmptyQuestionSet), errors.Is(err, domain.ErrCorrectAnswerMissing):
		status = http.StatusBadRequest
	case domain.IsGenerationError(err):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Printf("api error: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
