package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/reviselabs/revise/internal/auth"
	"github.com/reviselabs/revise/internal/common"
	"github.com/reviselabs/revise/internal/httpapi/middleware"
	"github.com/reviselabs/revise/internal/models"
)

type signupReq struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "name, email and password (min 8 chars) required")
		return
	}

	var existing models.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		common.Fail(c, http.StatusConflict, 10002, "user already exists, please login")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	user := models.User{Name: req.Name, Email: req.Email, PasswordHash: hash}
	if err := h.DB.Create(&user).Error; err != nil {
		common.Fail(c, http.StatusConflict, 10002, "user already exists, please login")
		return
	}

	h.issueToken(c, &user)
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "email and password required")
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 10003, "user not found, please signup first")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 10004, "invalid password")
		return
	}

	h.issueToken(c, &user)
}

func (h *Handler) issueToken(c *gin.Context, user *models.User) {
	token, err := auth.SignJWT(user.ID, user.Name, user.Email, h.Cfg.JWTSecret, h.Cfg.JWTTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, token, int(h.Cfg.JWTTTL.Seconds()), "/", "", false, true)

	common.OK(c, gin.H{
		"token": token,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// Logout clears the cookie and blacklists the live token until it expires,
// so a stolen cookie cannot be replayed after logout.
func (h *Handler) Logout(c *gin.Context) {
	if v, ok := c.Get(middleware.TokenKey); ok {
		if token, ok := v.(string); ok && token != "" {
			if claims, err := auth.ParseJWT(token, h.Cfg.JWTSecret); err == nil && claims.ExpiresAt != nil {
				ttl := time.Until(claims.ExpiresAt.Time)
				if err := h.Redis.BlacklistToken(c.Request.Context(), token, ttl); err != nil {
					logrus.WithError(err).Warn("logout: blacklist failed")
				}
			}
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, "", -1, "/", "", false, true)
	common.OK(c, gin.H{"message": "logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	uid, name, ok := principalFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	common.OK(c, gin.H{"id": uid, "name": name})
}
