package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/talentgate/internal/auth/domain"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	UserType string `json:"user_type"`
}

type signUpResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

func (s *Server) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.authsvc.SignUp(c.Request.Context(), authdomain.SignUpRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		UserType: req.UserType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	signed, err := s.tokens.Issue(user)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, signUpResponse{UserID: user.ID.String(), Token: signed})
}
