package delivery

import (
	"net/http"
	"strconv"

	"pmchat-backend/internal/conversation/domain"
	"pmchat-backend/internal/conversation/usecase"
	"pmchat-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// ConversationHandler serves a user's chat history
type ConversationHandler struct {
	conversationUsecase usecase.ConversationUsecase
	relay               *usecase.ChatRelay
}

func NewConversationHandler(conversationUsecase usecase.ConversationUsecase, relay *usecase.ChatRelay) *ConversationHandler {
	return &ConversationHandler{
		conversationUsecase: conversationUsecase,
		relay:               relay,
	}
}

type AppendMessageRequest struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
	Model   string      `json:"model,omitempty"`
	Name    string      `json:"name,omitempty"`
}

// NameRequest sets the name directly, or asks provider for one when Name is empty
type NameRequest struct {
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
}

func (h *ConversationHandler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/conversations", h.ListConversations)
	rg.GET("/conversations/search", h.Search)
	rg.GET("/conversations/:id", h.GetConversation)
	rg.POST("/conversations/:id", h.AppendMessage)
	rg.DELETE("/conversations/:id", h.DeleteConversation)
	rg.POST("/conversations/:id/name", h.NameConversation)
}

// GET /conversations?email=
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	list, err := h.conversationUsecase.ListConversations(c.Request.Context(), response.CallerEmail(c, c.Query("email")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /conversations/:id?email=
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	messages, err := h.conversationUsecase.GetConversation(c.Request.Context(), response.CallerEmail(c, c.Query("email")), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// POST /conversations/:id?email=
func (h *ConversationHandler) AppendMessage(c *gin.Context) {
	var req AppendMessageRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	conv, err := h.conversationUsecase.AppendMessage(c.Request.Context(), response.CallerEmail(c, c.Query("email")), c.Param("id"), domain.Message{
		Role:    req.Role,
		Content: req.Content,
		Model:   req.Model,
	}, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// DELETE /conversations/:id?email=
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	if err := h.conversationUsecase.DeleteConversation(c.Request.Context(), response.CallerEmail(c, c.Query("email")), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /conversations/:id/name?email=
func (h *ConversationHandler) NameConversation(c *gin.Context) {
	var req NameRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	email, id := response.CallerEmail(c, c.Query("email")), c.Param("id")

	if req.Name != "" {
		if err := h.conversationUsecase.RenameConversation(c.Request.Context(), email, id, req.Name); err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": req.Name})
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = "openai"
	}
	name, err := h.relay.GenerateName(c.Request.Context(), email, id, provider)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name})
}

// GET /conversations/search?email=&q=&limit=
func (h *ConversationHandler) Search(c *gin.Context) {
	limit := 10
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	results, err := h.conversationUsecase.Search(c.Request.Context(), response.CallerEmail(c, c.Query("email")), c.Query("q"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
