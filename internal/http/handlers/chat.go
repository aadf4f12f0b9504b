package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	domain "github.com/yungbote/vibecode-backend/internal/domain/chat"
	"github.com/yungbote/vibecode-backend/internal/domain/project"
	"github.com/yungbote/vibecode-backend/internal/http/response"
)

// ChatSessions is the chat manager as seen by the HTTP layer.
type ChatSessions interface {
	OpenSession(ctx context.Context, ref project.Reference) (string, error)
	Send(ctx context.Context, id, text string) (domain.Reply, error)
	History(id string) ([]domain.Message, error)
	UpdateContext(ctx context.Context, id string, ref project.Reference) error
}

type ChatHandler struct {
	chat ChatSessions
}

func NewChatHandler(chat ChatSessions) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type openSessionReq struct {
	ProjectReference *project.Reference `json:"project_reference"`
}

// POST /chat/session
func (h *ChatHandler) OpenSession(c *gin.Context) {
	var req openSessionReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondInvalid(c, err)
			return
		}
	}
	var ref project.Reference
	if req.ProjectReference != nil {
		ref = *req.ProjectReference
	}
	id, err := h.chat.OpenSession(c.Request.Context(), ref)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session_id": id})
}

type sendReq struct {
	Text string `json:"text"`
}

// POST /chat/session/:id/send
func (h *ChatHandler) Send(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, err)
		return
	}
	reply, err := h.chat.Send(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, reply)
}

// GET /chat/session/:id/history
func (h *ChatHandler) History(c *gin.Context) {
	msgs, err := h.chat.History(c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// POST /chat/session/:id/context
func (h *ChatHandler) UpdateContext(c *gin.Context) {
	var ref project.Reference
	if err := c.ShouldBindJSON(&ref); err != nil {
		response.RespondInvalid(c, err)
		return
	}
	if err := h.chat.UpdateContext(c.Request.Context(), c.Param("id"), ref); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"project_reference": ref})
}
