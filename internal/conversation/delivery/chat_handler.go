package delivery

import (
	"log"
	"net/http"

	"pmchat-backend/internal/conversation/usecase"
	"pmchat-backend/pkg/ai"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChatHandler exposes the chat relay. Streaming routes answer with chunked
// text/plain; the others answer once with JSON.
type ChatHandler struct {
	relay *usecase.ChatRelay
}

func NewChatHandler(relay *usecase.ChatRelay) *ChatHandler {
	return &ChatHandler{relay: relay}
}

func (h *ChatHandler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/chat", h.stream(ai.ProviderOpenAI))
	rg.POST("/geminiChat", h.stream(ai.ProviderGemini))
	rg.POST("/multi-model-chat", h.stream(""))
	rg.POST("/dbChat", h.complete(ai.ProviderMindsDB))
	rg.POST("/openai", h.complete(ai.ProviderOpenAI))
}

// bind decodes the chat request. An empty provider keeps the one in the
// body. The verified caller replaces the body's email.
func bind(c *gin.Context, provider ai.ProviderType) (usecase.ChatRequest, bool) {
	var req usecase.ChatRequest
	if err := response.Bind(c, &req); err != nil {
		response.Error(c, err)
		return req, false
	}
	req.Email = response.CallerEmail(c, req.Email)
	if provider != "" {
		req.Provider = string(provider)
	} else if req.Provider == "" {
		response.Error(c, apperror.Validation("chat.Relay", "provider is required"))
		return req, false
	}
	return req, true
}

func (h *ChatHandler) stream(provider ai.ProviderType) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bind(c, provider)
		if !ok {
			return
		}

		started := false
		onDelta := func(chunk string) error {
			if !started {
				started = true
				c.Header("Content-Type", "text/plain; charset=utf-8")
				c.Header("Cache-Control", "no-cache")
				c.Header("X-Conversation-Id", req.ConversationID)
				c.Status(http.StatusOK)
			}
			if _, err := c.Writer.Write([]byte(chunk)); err != nil {
				return err
			}
			c.Writer.Flush()
			return nil
		}

		result, err := h.relay.Chat(c.Request.Context(), req, onDelta)
		if err != nil {
			if !started {
				response.Error(c, err)
				return
			}
			// Headers are gone; the client sees a truncated stream
			log.Printf("[ChatHandler] Stream for %s/%s ended with error: %v", req.Email, req.ConversationID, err)
			return
		}
		if !started {
			// Provider replied without streaming any chunk
			c.Header("X-Conversation-Id", req.ConversationID)
			c.String(http.StatusOK, result.Reply.Content)
		}
	}
}

func (h *ChatHandler) complete(provider ai.ProviderType) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bind(c, provider)
		if !ok {
			return
		}
		result, err := h.relay.Chat(c.Request.Context(), req, nil)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
