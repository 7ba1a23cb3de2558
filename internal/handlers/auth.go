package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/import-wizard/internal/sandbox"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh. Both spellings are accepted.
type RefreshRequest struct {
	RefreshToken      string `json:"refreshToken"`
	RefreshTokenSnake string `json:"refresh_token"`
}

// Login exchanges a username and password for a token pair
// POST /auth/login
func (a *API) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pair, err := a.issuer.Login(req.Username, req.Password)
	if err != nil {
		a.logger.Warn().Str("username", req.Username).Msg("Login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresIn":    int(pair.ExpiresIn.Seconds()),
	})
}

// Refresh rotates a refresh token into a new token pair
// POST /auth/refresh
func (a *API) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	token := req.RefreshToken
	if token == "" {
		token = req.RefreshTokenSnake
	}

	pair, err := a.issuer.Rotate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": sandbox.ErrInvalidToken.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    int(pair.ExpiresIn.Seconds()),
	})
}
