// Media HTTP handlers.
//
//   - POST /sessions/{token}/media             (multipart, field "files")
//   - GET  /sessions/{token}/media             (media with signed links)
//   - GET  /sessions/{token}/media/{file}/url  (one signed link)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-orcamento-backend/internal/services"
)

// mediaField is the multipart field carrying the files.
const mediaField = "files"

// ListMediaResponse wraps the session's media.
type ListMediaResponse struct {
	Media []services.MediaLink `json:"media"`
}

// UploadMedia godoc
// @ID          uploadMedia
// @Summary     Upload site photos, videos or audio
// @Description Stores every file of the batch. Files that fail are listed under "failed"; the others are still stored.
// @Tags        Media
// @Accept      multipart/form-data
// @Produce     json
// @Param       token  path      string  true  "Session token"
// @Param       files  formData  file    true  "One or more files"
// @Success     201  {object}  services.UploadResult
// @Failure     400  {object}  handlers.ErrorResponse  "No files"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /sessions/{token}/media [post]
func (h *Handlers) UploadMedia(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.MaxUploadMemory); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart form required")
		return
	}
	form := c.Request.MultipartForm
	if form == nil || len(form.File[mediaField]) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `at least one file in field "files" required`)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	var (
		uploads []services.Upload
		failed  []services.UploadFailure
	)
	for _, fh := range form.File[mediaField] {
		f, err := fh.Open()
		if err != nil {
			failed = append(failed, services.UploadFailure{Name: fh.Filename, Reason: err.Error()})
			continue
		}
		defer f.Close()
		uploads = append(uploads, services.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	res, err := h.media.Upload(c.Request.Context(), c.Param("token"), uploads)
	if err != nil {
		failErr(c, err)
		return
	}
	res.Failed = append(failed, res.Failed...)
	ok(c, http.StatusCreated, res)
}

// ListMedia godoc
// @ID          listMedia
// @Summary     List media
// @Description Returns the session's media with freshly signed download links.
// @Tags        Media
// @Produce     json
// @Param       token  path  string  true  "Session token"
// @Success     200  {object}  handlers.ListMediaResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /sessions/{token}/media [get]
func (h *Handlers) ListMedia(c *gin.Context) {
	items, err := h.media.List(c.Request.Context(), c.Param("token"))
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []services.MediaLink{}
	}
	ok(c, http.StatusOK, ListMediaResponse{Media: items})
}

// MediaURL godoc
// @ID          mediaURL
// @Summary     Signed link for one file
// @Tags        Media
// @Produce     json
// @Param       token  path  string  true  "Session token"
// @Param       file   path  string  true  "File name as uploaded"
// @Success     200  {object}  services.MediaLink
// @Failure     404  {object}  handlers.ErrorResponse  "Session or media not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /sessions/{token}/media/{file}/url [get]
func (h *Handlers) MediaURL(c *gin.Context) {
	link, err := h.media.SignedURL(c.Request.Context(), c.Param("token"), c.Param("file"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, link)
}
