package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/api/models"
	"github.com/agrimind/agrimind/internal/api/response"
	"github.com/agrimind/agrimind/internal/chat"
)

// maxChatBody bounds the POST /chat request body.
const maxChatBody = 16 << 10

// ChatAnswerer answers farmer questions.
type ChatAnswerer interface {
	Answer(ctx context.Context, query string) (*chat.Answer, error)
}

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	answerer ChatAnswerer
	logger   zerolog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(answerer ChatAnswerer, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{answerer: answerer, logger: logger}
}

// Chat handles POST /chat - answer one question.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var input models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	answer, err := h.answerer.Answer(r.Context(), input.Query)
	if err != nil {
		fail(h.logger, w, r, err, "chat failed")
		return
	}

	h.logger.Debug().
		Str("source", string(answer.Source)).
		Msg("chat answered")

	response.JSON(w, r, http.StatusOK, models.ChatResponse{
		Response: answer.Response,
		Source:   string(answer.Source),
	})
}
