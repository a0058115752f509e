package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/http/middleware"
	"github.com/tbourn/go-orcamento-backend/internal/proposal"
	"github.com/tbourn/go-orcamento-backend/internal/services"
	"github.com/tbourn/go-orcamento-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// SessionService issues quote sessions and walks them through their
// lifecycle.
type SessionService interface {
	Create(ctx context.Context, vendorID, clientName, address string) (*domain.Session, error)
	Get(ctx context.Context, token string) (*domain.Session, error)
	ListPage(ctx context.Context, vendorID string, page, pageSize int) ([]domain.Session, int64, error)
	Messages(ctx context.Context, token string, page, pageSize int) ([]domain.Message, int64, error)
	ValidateScope(ctx context.Context, token string) (*domain.Session, error)
	SendReport(ctx context.Context, token string) (*domain.Session, error)
}

// ChatService relays a conversation turn to the model.
type ChatService interface {
	Relay(ctx context.Context, in services.RelayInput) (*services.Reply, error)
}

// ProposalService synthesizes and reads proposals.
type ProposalService interface {
	Generate(ctx context.Context, token string, expectedVersion *int) (*services.Result, error)
	Current(ctx context.Context, token string) (*services.Result, error)
}

// ExportService renders and publishes proposal documents.
type ExportService interface {
	PDF(ctx context.Context, token string) (*services.Rendered, error)
	XLSX(ctx context.Context, token string) (*services.Rendered, error)
	Publish(ctx context.Context, token string) (*services.Published, error)
}

// MediaService manages uploads and their signed links.
type MediaService interface {
	Upload(ctx context.Context, token string, files []services.Upload) (*services.UploadResult, error)
	List(ctx context.Context, token string) ([]services.MediaLink, error)
	SignedURL(ctx context.Context, token, fileName string) (*services.MediaLink, error)
}

// FeedbackService records vendor feedback.
type FeedbackService interface {
	Leave(ctx context.Context, token, authorID string, in services.FeedbackInput) (*domain.Feedback, error)
	List(ctx context.Context, token string) ([]domain.Feedback, error)
}

//
// Handler wiring
//

// Services groups the dependencies of Handlers.
type Services struct {
	Sessions  SessionService
	Chat      ChatService
	Proposals ProposalService
	Exports   ExportService
	Media     MediaService
	Feedback  FeedbackService
}

// Handlers groups the HTTP endpoints. It depends on service interfaces only.
type Handlers struct {
	sessions  SessionService
	chat      ChatService
	proposals ProposalService
	exports   ExportService
	media     MediaService
	feedback  FeedbackService

	// MaxUploadMemory bounds the in-memory part of multipart parsing.
	MaxUploadMemory int64
}

// New constructs Handlers bound to svc.
func New(svc Services) *Handlers {
	return &Handlers{
		sessions:        svc.Sessions,
		chat:            svc.Chat,
		proposals:       svc.Proposals,
		exports:         svc.Exports,
		media:           svc.Media,
		feedback:        svc.Feedback,
		MaxUploadMemory: 8 << 20,
	}
}

// userID is the vendor identity of the request.
func userID(c *gin.Context) string {
	return middleware.VendorID(c)
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// ProposalResponse is a stored proposal. Field names follow the wire format
// of the field app.
type ProposalResponse struct {
	// Verbatim model output
	Text string `json:"proposta"`
	// Structured form; null when the output was not JSON
	Structure *proposal.Proposal `json:"estrutura"`
	// Totals of the structured form
	Totals *proposal.Totals `json:"totais,omitempty"`
	// Equipment found in raw text (display only)
	Equipment []proposal.Equipment `json:"equipamentos,omitempty"`
	Version   int                  `json:"versao" example:"1"`
	Status    string               `json:"status" example:"proposal_generated"`
}

func newProposalResponse(r *services.Result) ProposalResponse {
	resp := ProposalResponse{
		Text:      r.Text,
		Structure: r.Proposal,
		Equipment: r.Equipment,
		Version:   r.Version,
	}
	if r.Structured() {
		t := r.Totals
		resp.Totals = &t
	}
	if r.Session != nil {
		resp.Status = string(r.Session.Status)
	}
	return resp
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const maxPageSize = 100
	page = utils.ParseBounded(c.Query("page"), 1, 1, 0)
	pageSize = utils.ParseBounded(c.Query("page_size"), utils.DefaultPageSize, 1, maxPageSize)
	return
}
