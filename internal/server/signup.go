package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	signupdomain "github.com/smallbiznis/talentgate/internal/signup/domain"
)

const HeaderTabID = "X-Tab-Id"

type pendingSignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

type completeSignupRequest struct {
	SessionID string `json:"session_id"`
}

type completeSignupResponse struct {
	State        signupdomain.State `json:"state"`
	UserID       string             `json:"user_id,omitempty"`
	Token        string             `json:"token,omitempty"`
	RedirectPath string             `json:"redirect_path,omitempty"`
	RedirectMS   int64              `json:"redirect_after_ms,omitempty"`
	Error        *errorPayload      `json:"error,omitempty"`
}

// StagePendingSignup keeps the signup form for the tab until checkout
// returns.
func (s *Server) StagePendingSignup(c *gin.Context) {
	var req pendingSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.signupSvc.Stage(c.Request.Context(), strings.TrimSpace(c.GetHeader(HeaderTabID)), signupdomain.PendingSignupData{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		UserType: req.UserType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CompletePendingSignup answers 200 with the terminal state. Failures are
// reported in the body so the page can show its retry screen.
func (s *Server) CompletePendingSignup(c *gin.Context) {
	var req completeSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	out, err := s.signupSvc.Complete(c.Request.Context(), strings.TrimSpace(c.GetHeader(HeaderTabID)), strings.TrimSpace(req.SessionID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := completeSignupResponse{
		State:        out.State,
		UserID:       out.UserID,
		Token:        out.Token,
		RedirectPath: out.RedirectPath,
		RedirectMS:   out.RedirectAfter.Milliseconds(),
	}
	if out.Err != nil {
		_, payload := mapError(out.Err)
		resp.Error = &payload
	}
	c.JSON(http.StatusOK, resp)
}
