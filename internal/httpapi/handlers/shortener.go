package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/reviselabs/revise/internal/common"
	"github.com/reviselabs/revise/internal/shortener"
	"github.com/reviselabs/revise/internal/store/rabbitmq"
)

type shortenReq struct {
	LongURL string `json:"longurl" binding:"required"`
}

func (h *Handler) CreateShortURL(c *gin.Context) {
	uid, _, ok := principalFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req shortenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "longurl required")
		return
	}

	link, existed, err := h.ShortSvc.Shorten(c.Request.Context(), uid, req.LongURL)
	if err != nil {
		if errors.Is(err, shortener.ErrEmptyInput) {
			common.Fail(c, http.StatusBadRequest, 10001, "longurl required")
			return
		}
		logrus.WithError(err).WithField("user_id", uid).Error("shorten failed")
		common.Fail(c, http.StatusInternalServerError, 50020, "failed to create short url")
		return
	}

	common.OK(c, gin.H{
		"longurl":  link.LongURL,
		"shorturl": link.ShortCode,
		"existing": existed,
	})
}

func (h *Handler) ListUserURLs(c *gin.Context) {
	uid, _, ok := principalFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	links, err := h.ShortSvc.ListByUser(c.Request.Context(), uid)
	if err != nil {
		logrus.WithError(err).WithField("user_id", uid).Error("list urls failed")
		common.Fail(c, http.StatusInternalServerError, 50021, "failed to fetch urls")
		return
	}
	common.OK(c, gin.H{"urls": links})
}

func (h *Handler) DeleteShortURL(c *gin.Context) {
	uid, _, ok := principalFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid url id")
		return
	}

	link, err := h.ShortSvc.Delete(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "url not found")
			return
		}
		logrus.WithError(err).WithField("user_id", uid).Error("delete url failed")
		common.Fail(c, http.StatusInternalServerError, 50022, "failed to delete url")
		return
	}

	if h.Redis != nil {
		_ = h.Redis.DeleteCachedURL(c.Request.Context(), link.ShortCode)
	}
	common.OK(c, gin.H{"message": "url deleted"})
}

// Redirect serves the public short link. The hot path reads redis first and
// falls back to the database; click counting is handed to the worker.
func (h *Handler) Redirect(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		common.Fail(c, http.StatusBadRequest, 10006, "missing code")
		return
	}

	var target string
	if h.Redis != nil {
		if cached, err := h.Redis.GetCachedURL(c.Request.Context(), code); err == nil {
			target = cached
		}
	}

	if target == "" {
		resolved, err := h.ShortSvc.Resolve(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, shortener.ErrNotFound) {
				common.Fail(c, http.StatusNotFound, 40405, "short url not found")
				return
			}
			logrus.WithError(err).WithField("code", code).Error("redirect failed")
			common.Fail(c, http.StatusInternalServerError, 50023, "internal error")
			return
		}
		target = resolved
		if h.Redis != nil {
			_ = h.Redis.SetCachedURL(c.Request.Context(), code, target)
		}
	}

	h.publishClick(c, code)

	c.Redirect(http.StatusMovedPermanently, target)
}

func (h *Handler) publishClick(c *gin.Context, code string) {
	if h.Rabbit == nil {
		return
	}
	eventID, err := common.NewULID()
	if err != nil {
		return
	}
	msg := rabbitmq.ClickMessage{
		EventID:   eventID,
		ShortCode: code,
		ClickedAt: time.Now(),
	}
	if err := h.Rabbit.PublishClick(c.Request.Context(), msg); err != nil {
		// analytics only; the redirect must not fail on a broker hiccup
		logrus.WithError(err).WithField("code", code).Warn("click publish failed")
	}
}
