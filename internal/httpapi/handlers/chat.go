package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/reviselabs/revise/internal/chat"
	"github.com/reviselabs/revise/internal/common"
)

type startSessionReq struct {
	PersonaType       string `json:"persona_type" binding:"required"`
	PersonaName       string `json:"persona_name" binding:"required"`
	RelationshipStage string `json:"relationship_stage" binding:"required"`
}

func (h *Handler) StartChatSession(c *gin.Context) {
	uid, name, ok := principalFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req startSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "persona_type, persona_name and relationship_stage required")
		return
	}

	sess, err := h.ChatSvc.StartSession(c.Request.Context(), uid, name,
		req.PersonaType, req.PersonaName, req.RelationshipStage)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrInvalidPersona):
			common.Fail(c, http.StatusBadRequest, 10010, "unsupported persona type")
		case errors.Is(err, chat.ErrEmptyInput):
			common.Fail(c, http.StatusBadRequest, 10011, "missing required field")
		default:
			logrus.WithError(err).WithField("user_id", uid).Error("start session failed")
			common.Fail(c, http.StatusInternalServerError, 50010, "failed to start session")
		}
		return
	}

	common.OK(c, gin.H{
		"session_id":   sess.ID,
		"persona_name": sess.PersonaName,
		"user_name":    name,
	})
}

type postMessageReq struct {
	UserInput string `json:"user_input" binding:"required"`
}

func (h *Handler) PostChatMessage(c *gin.Context) {
	uid, name, ok := principalFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessionID := c.Param("session_id")

	var req postMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "user_input required")
		return
	}

	reply, err := h.ChatSvc.PostMessage(c.Request.Context(), uid, name, sessionID, req.UserInput)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyInput):
			common.Fail(c, http.StatusBadRequest, 10001, "user_input required")
		case errors.Is(err, chat.ErrForbidden):
			common.Fail(c, http.StatusForbidden, 40301, "forbidden")
		default:
			logrus.WithError(err).WithFields(logrus.Fields{
				"user_id":    uid,
				"session_id": sessionID,
			}).Error("chat failed")
			common.Fail(c, http.StatusInternalServerError, 50011, "chat failed")
		}
		return
	}

	common.OK(c, gin.H{"text": reply})
}

func (h *Handler) GetChatContext(c *gin.Context) {
	uid, _, ok := principalFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessionID := c.Param("session_id")

	summary, msgs, err := h.ChatSvc.GetContext(c.Request.Context(), uid, sessionID)
	if err != nil {
		if errors.Is(err, chat.ErrForbidden) {
			common.Fail(c, http.StatusForbidden, 40301, "forbidden")
			return
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":    uid,
			"session_id": sessionID,
		}).Error("fetch session context failed")
		common.Fail(c, http.StatusInternalServerError, 50012, "failed to fetch session context")
		return
	}

	common.OK(c, gin.H{
		"summary":         summary,
		"recent_messages": msgs,
	})
}
