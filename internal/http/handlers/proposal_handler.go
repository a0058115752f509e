// Proposal HTTP handlers.
//
//   - GET  /sessions/{token}/proposal       (stored proposal)
//   - POST /sessions/{token}/proposal       (synthesize; If-Match optional)
//   - GET  /sessions/{token}/proposal.pdf   (rendered PDF)
//   - GET  /sessions/{token}/proposal.xlsx  (rendered spreadsheet)
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-orcamento-backend/internal/services"
)

// GetProposal godoc
// @ID          getProposal
// @Summary     Stored proposal
// @Description Returns the latest synthesized proposal with its totals. The ETag is the proposal version.
// @Tags        Proposals
// @Produce     json
// @Param       token  path  string  true  "Session token"
// @Success     200  {object}  handlers.ProposalResponse
// @Header      200  {string}  ETag  "Proposal version"
// @Failure     404  {object}  handlers.ErrorResponse  "Session or proposal not found"
// @Router      /sessions/{token}/proposal [get]
func (h *Handlers) GetProposal(c *gin.Context) {
	res, err := h.proposals.Current(c.Request.Context(), c.Param("token"))
	if err != nil {
		failErr(c, err)
		return
	}
	if notModified(c, strconv.Quote(strconv.Itoa(res.Version))) {
		return
	}
	ok(c, http.StatusOK, newProposalResponse(res))
}

// GenerateProposal godoc
// @ID          generateProposal
// @Summary     Synthesize a proposal
// @Description Synthesizes the conversation into a proposal. Send the version you last read in If-Match to avoid overwriting a concurrent synthesis.
// @Tags        Proposals
// @Produce     json
// @Param       token     path    string  true   "Session token"
// @Param       If-Match  header  string  false  "Expected proposal version"  example("1")
// @Success     200  {object}  handlers.ProposalResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad If-Match"
// @Failure     402  {object}  handlers.ErrorResponse  "Model quota exceeded"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Proposal conflict or invalid status"
// @Failure     422  {object}  handlers.ErrorResponse  "Not enough conversation"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /sessions/{token}/proposal [post]
func (h *Handlers) GenerateProposal(c *gin.Context) {
	h.synthesize(c, c.Param("token"))
}

// ProposalPDF godoc
// @ID          proposalPDF
// @Summary     Proposal as PDF
// @Tags        Proposals
// @Produce     application/pdf
// @Param       token  path  string  true  "Session token"
// @Success     200  {file}    file
// @Failure     404  {object}  handlers.ErrorResponse  "Session or proposal not found"
// @Router      /sessions/{token}/proposal.pdf [get]
func (h *Handlers) ProposalPDF(c *gin.Context) {
	h.sendDocument(c, h.exports.PDF)
}

// ProposalXLSX godoc
// @ID          proposalXLSX
// @Summary     Proposal as spreadsheet
// @Tags        Proposals
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param       token  path  string  true  "Session token"
// @Success     200  {file}    file
// @Failure     404  {object}  handlers.ErrorResponse  "Session or proposal not found"
// @Router      /sessions/{token}/proposal.xlsx [get]
func (h *Handlers) ProposalXLSX(c *gin.Context) {
	h.sendDocument(c, h.exports.XLSX)
}

func (h *Handlers) sendDocument(c *gin.Context, render func(ctx context.Context, token string) (*services.Rendered, error)) {
	doc, err := render(c.Request.Context(), c.Param("token"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
