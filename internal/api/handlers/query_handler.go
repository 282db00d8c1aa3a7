package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/markdave123-py/officerag/internal/models"
)

// Answerer produces a grounded answer for a question.
type Answerer interface {
	Answer(ctx context.Context, question string, topK int) (*models.Answer, error)
}

type QueryHandler struct {
	answers Answerer
}

func NewQueryHandler(a Answerer) *QueryHandler {
	return &QueryHandler{answers: a}
}

// QueryRequest accepts "question" or the older "query" field.
type QueryRequest struct {
	Question string `json:"question"`
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	question := req.Question
	if question == "" {
		question = req.Query
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, "top_k must not be negative")
		return
	}

	answer, err := h.answers.Answer(r.Context(), question, req.TopK)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}
