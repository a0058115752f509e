// Session HTTP handlers.
//
//   - POST /sessions                        (issue a quote link)
//   - GET  /sessions                        (vendor's sessions, paginated, ETag)
//   - GET  /sessions/{token}                (one session)
//   - GET  /sessions/{token}/messages       (conversation log, paginated, ETag)
//   - POST /sessions/{token}/validate-scope (proposal_generated -> scope_validated)
//   - POST /sessions/{token}/send-report    (scope_validated -> report_sent)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/http/middleware"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
	"github.com/tbourn/go-orcamento-backend/internal/services"
)

// CreateSessionRequest is the JSON payload for issuing a session.
type CreateSessionRequest struct {
	ClientName string `json:"client_name" binding:"required" example:"Condomínio Aurora"`
	Address    string `json:"address" example:"Rua das Flores, 120"`
}

// ListSessionsResponse wraps a page of sessions.
type ListSessionsResponse struct {
	Sessions   []domain.Session `json:"sessions"`
	Pagination Pagination       `json:"pagination"`
}

// ListMessagesResponse wraps a page of the conversation log.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// SendReportResponse is the sent session and, when storage is configured,
// a signed link to the published PDF.
type SendReportResponse struct {
	Session   *domain.Session `json:"session"`
	ReportURL string          `json:"report_url,omitempty"`
	ExpiresAt *time.Time      `json:"report_expires_at,omitempty"`
}

// sessionDB reaches the database behind the concrete service for ETag
// pre-checks. Fakes have none and skip them.
func (h *Handlers) sessionDB() *gorm.DB {
	if svc, ok := h.sessions.(*services.SessionService); ok {
		return svc.DB
	}
	return nil
}

// notModified sets a weak ETag and reports whether If-None-Match matched it.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// CreateSession godoc
// @ID          createSession
// @Summary     Issue a quote session
// @Description Creates an active session for the calling vendor and returns it with its public token.
// @Tags        Sessions
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  false  "Vendor ID (demo header)"  example(vendor-1)
// @Param       body       body    handlers.CreateSessionRequest  true  "Customer data"
// @Success     201  {object}  domain.Session
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ClientName) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client_name required")
		return
	}
	sess, err := h.sessions.Create(c.Request.Context(), userID(c), req.ClientName, req.Address)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, sess)
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List the vendor's sessions (paginated)
// @Description Newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Sessions
// @Produce     json
// @Param       X-User-ID      header  string  false  "Vendor ID (demo header)"     example(vendor-1)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListSessionsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [get]
func (h *Handlers) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	vid := userID(c)
	page, pageSize := clampPagination(c)

	if db := h.sessionDB(); db != nil {
		if count, maxTS, err := repo.SessionsStats(ctx, db, vid); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"sessions:%s:%d:%d:%d:%d"`, vid, count, ts, page, pageSize)
			if notModified(c, etag) {
				return
			}
		}
	}

	items, total, err := h.sessions.ListPage(ctx, vid, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListSessionsResponse{Sessions: items, Pagination: newPagination(page, pageSize, total)})
}

// GetSession godoc
// @ID          getSession
// @Summary     Get a session
// @Tags        Sessions
// @Produce     json
// @Param       token  path  string  true  "Session token"
// @Success     200  {object}  domain.Session
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{token} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	sess, err := h.sessions.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     Conversation log (paginated)
// @Description Messages in replay order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Sessions
// @Produce     json
// @Param       token          path    string  true   "Session token"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListMessagesResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{token}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	token := c.Param("token")
	page, pageSize := clampPagination(c)

	if db := h.sessionDB(); db != nil {
		sess, err := h.sessions.Get(ctx, token)
		if err != nil {
			failErr(c, err)
			return
		}
		if count, last, err := repo.MessagesStats(ctx, db, sess.ID); err == nil {
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d:%d:%d"`, sess.ID, count, last, page, pageSize)
			if notModified(c, etag) {
				return
			}
		}
	}

	items, total, err := h.sessions.Messages(ctx, token, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: newPagination(page, pageSize, total)})
}

// ValidateScope godoc
// @ID          validateScope
// @Summary     Confirm the proposal's scope
// @Description Moves a session from proposal_generated to scope_validated.
// @Tags        Sessions
// @Produce     json
// @Param       token  path  string  true  "Session token"
// @Success     200  {object}  domain.Session
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Invalid status"
// @Router      /sessions/{token}/validate-scope [post]
func (h *Handlers) ValidateScope(c *gin.Context) {
	sess, err := h.sessions.ValidateScope(c.Request.Context(), c.Param("token"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

// SendReport godoc
// @ID          sendReport
// @Summary     Send the report to the customer
// @Description Moves a session from scope_validated to report_sent and, when object storage is configured, publishes the PDF and returns a signed link.
// @Tags        Sessions
// @Produce     json
// @Param       token  path  string  true  "Session token"
// @Success     200  {object}  handlers.SendReportResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Invalid status"
// @Router      /sessions/{token}/send-report [post]
func (h *Handlers) SendReport(c *gin.Context) {
	ctx := c.Request.Context()
	token := c.Param("token")

	sess, err := h.sessions.SendReport(ctx, token)
	if err != nil {
		failErr(c, err)
		return
	}
	resp := SendReportResponse{Session: sess}
	if h.exports != nil {
		pub, err := h.exports.Publish(ctx, token)
		switch {
		case err == nil:
			resp.ReportURL = pub.URL
			resp.ExpiresAt = &pub.ExpiresAt
		case errors.Is(err, services.ErrStorageUnavailable):
		default:
			middleware.LoggerFrom(c).Warn().Err(err).Str("session_id", sess.ID).Msg("report not published")
		}
	}
	ok(c, http.StatusOK, resp)
}
