// Feedback HTTP handlers.
//
//   - POST /sessions/{token}/feedback
//   - GET  /sessions/{token}/feedback
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/services"
)

// FeedbackRequest is the JSON payload for leaving feedback.
type FeedbackRequest struct {
	// "proposal" or "summary"
	Subject string `json:"subject" binding:"required" example:"proposal"`
	// "sim", "parcial" or "nao"
	Adequate string `json:"adequate" binding:"required" example:"parcial"`
	Notes    string `json:"notes" example:"Faltou o kit de interfonia"`
	Rating   int    `json:"rating" binding:"required" example:"4"`
}

// ListFeedbackResponse wraps the session's feedback entries.
type ListFeedbackResponse struct {
	Feedback []domain.Feedback `json:"feedback"`
}

// LeaveFeedback godoc
// @ID          leaveFeedback
// @Summary     Rate a proposal or summary
// @Description Feedback is additive; every call stores a new entry.
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  false  "Vendor ID (demo header)"  example(vendor-1)
// @Param       token      path    string  true   "Session token"
// @Param       body       body    handlers.FeedbackRequest  true  "Feedback"
// @Success     201  {object}  domain.Feedback
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid feedback"
// @Failure     404  {object}  handlers.ErrorResponse  "Session or proposal not found"
// @Router      /sessions/{token}/feedback [post]
func (h *Handlers) LeaveFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subject, adequate and rating required")
		return
	}
	fb, err := h.feedback.Leave(c.Request.Context(), c.Param("token"), userID(c), services.FeedbackInput{
		Subject:  req.Subject,
		Adequate: req.Adequate,
		Notes:    req.Notes,
		Rating:   req.Rating,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, fb)
}

// ListFeedback godoc
// @ID          listFeedback
// @Summary     Feedback left on a session
// @Tags        Feedback
// @Produce     json
// @Param       token  path  string  true  "Session token"
// @Success     200  {object}  handlers.ListFeedbackResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{token}/feedback [get]
func (h *Handlers) ListFeedback(c *gin.Context) {
	items, err := h.feedback.List(c.Request.Context(), c.Param("token"))
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Feedback{}
	}
	ok(c, http.StatusOK, ListFeedbackResponse{Feedback: items})
}
