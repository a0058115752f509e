package handlers

import "github.com/gin-gonic/gin"

// Mount registers the REST endpoints on api and the function endpoint on
// functions. upload handlers run in front of the media upload route only,
// typically a larger body limit.
func (h *Handlers) Mount(api, functions gin.IRoutes, upload ...gin.HandlerFunc) {
	functions.POST("/orcamento-chat", h.OrcamentoChat)

	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/:token", h.GetSession)
	api.GET("/sessions/:token/messages", h.ListMessages)
	api.POST("/sessions/:token/validate-scope", h.ValidateScope)
	api.POST("/sessions/:token/send-report", h.SendReport)

	api.GET("/sessions/:token/proposal", h.GetProposal)
	api.POST("/sessions/:token/proposal", h.GenerateProposal)
	api.GET("/sessions/:token/proposal.pdf", h.ProposalPDF)
	api.GET("/sessions/:token/proposal.xlsx", h.ProposalXLSX)

	api.POST("/sessions/:token/media", append(upload, h.UploadMedia)...)
	api.GET("/sessions/:token/media", h.ListMedia)
	api.GET("/sessions/:token/media/:file/url", h.MediaURL)

	api.POST("/sessions/:token/feedback", h.LeaveFeedback)
	api.GET("/sessions/:token/feedback", h.ListFeedback)
}
