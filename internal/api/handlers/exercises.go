package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/api/middleware"
	"github.com/felixgeelhaar/gptutor/internal/api/respond"
	"github.com/felixgeelhaar/gptutor/internal/exercise"
	"github.com/felixgeelhaar/gptutor/internal/stopwatch"
	"github.com/felixgeelhaar/gptutor/internal/tutor"
)

// ExerciseHandler handles exercise endpoints
type ExerciseHandler struct {
	controller *tutor.Controller
	log        exercise.Log
	validate   *Validator
}

// NewExerciseHandler creates a new exercise handler
func NewExerciseHandler(controller *tutor.Controller, log exercise.Log, validate *Validator) *ExerciseHandler {
	return &ExerciseHandler{
		controller: controller,
		log:        log,
		validate:   validate,
	}
}

// StartRequest is the request body for starting or resetting an exercise
type StartRequest struct {
	Action   string `json:"action" validate:"required,oneof=start reset"`
	Level    string `json:"level" validate:"required_if=Action start,max=64"`
	Topic    string `json:"topic" validate:"required_if=Action start,max=64"`
	Duration string `json:"duration" validate:"required_if=Action start,max=64"`
}

// ExerciseSummary is one row of the exercise history
type ExerciseSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartedAt string `json:"started_at"`
}

// ExerciseDetail is the full view of a single exercise
type ExerciseDetail struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	StartedAt string `json:"started_at"`
}

// TimerResponse is the stopwatch reading
type TimerResponse struct {
	Elapsed    string  `json:"elapsed"`
	StartedAt  *string `json:"started_at"`
	ExerciseID *string `json:"exercise_id"`
}

// Options lists the accepted levels, topics and durations
func (h *ExerciseHandler) Options(w http.ResponseWriter, r *http.Request) {
	opts := h.controller.Options()
	respond.WriteJSON(w, http.StatusOK, map[string][]string{
		"levels":    nonNil(opts.Levels),
		"topics":    nonNil(opts.Topics),
		"durations": nonNil(opts.Durations),
	})
}

// Start starts a new exercise or resets the running one
func (h *ExerciseHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		respond.Unauthorized(w, r, "authentication required")
		return
	}

	var req StartRequest
	if err := h.validate.decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.controller.Handle(r.Context(), session, tutor.Request{
		Action:   tutor.Action(req.Action),
		Level:    req.Level,
		Topic:    req.Topic,
		Duration: req.Duration,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if tutor.Action(req.Action) == tutor.ActionReset {
		respond.WriteJSON(w, http.StatusOK, map[string]string{
			"elapsed": stopwatch.Zero,
		})
		return
	}

	respond.WriteJSON(w, http.StatusCreated, ExerciseDetail{
		ID:        result.ExerciseID.String(),
		Title:     result.Title,
		Body:      result.Body,
		StartedAt: result.StartedAt.UTC().Format(time.RFC3339),
	})
}

// List returns the user's exercise history, newest first
func (h *ExerciseHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		respond.Unauthorized(w, r, "authentication required")
		return
	}

	exercises, err := h.log.ListExercises(r.Context(), session.UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	response := make([]ExerciseSummary, 0, len(exercises))
	for _, ex := range exercises {
		response = append(response, ExerciseSummary{
			ID:        ex.ID.String(),
			Title:     exercise.DisplayTitle(ex.Title, exercise.UntitledFallback),
			StartedAt: ex.StartedAt.UTC().Format(time.RFC3339),
		})
	}

	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"exercises": response,
		"total":     len(response),
	})
}

// Get returns one exercise with its body
func (h *ExerciseHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		respond.Unauthorized(w, r, "authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respond.NotFound(w, r, "exercise")
		return
	}

	detail, err := exercise.LoadDetail(r.Context(), h.log, session.UserID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, ExerciseDetail{
		ID:        detail.Exercise.ID.String(),
		Title:     detail.Title,
		Body:      detail.Body,
		StartedAt: detail.Exercise.StartedAt.UTC().Format(time.RFC3339),
	})
}

// Timer returns the elapsed time of the active exercise
func (h *ExerciseHandler) Timer(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		respond.Unauthorized(w, r, "authentication required")
		return
	}

	timer, err := h.controller.Timer(r.Context(), session)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, timerResponse(timer))
}

func timerResponse(t *tutor.Timer) TimerResponse {
	resp := TimerResponse{Elapsed: t.Elapsed}
	if t.StartedAt != nil {
		s := t.StartedAt.UTC().Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if t.ExerciseID != nil {
		s := t.ExerciseID.String()
		resp.ExerciseID = &s
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
