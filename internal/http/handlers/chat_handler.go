// Function endpoint used by the field app.
//
//   - POST /functions/v1/orcamento-chat
//
// With no action (or "chat") the reply is streamed as server-sent events in
// the OpenAI chunk shape and terminated by "data: [DONE]". With action
// "generate_proposal" (or "gerar_proposta") the conversation is synthesized
// into a proposal and returned as JSON.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/http/middleware"
	"github.com/tbourn/go-orcamento-backend/internal/llm"
	"github.com/tbourn/go-orcamento-backend/internal/services"
)

const (
	actionChat     = "chat"
	actionProposal = "generate_proposal"
)

// ChatTurn is one conversation entry as sent by the client.
type ChatTurn struct {
	Role    string `json:"role" example:"user"`
	Content string `json:"content" example:"Preciso de 4 câmeras na garagem"`
}

// ChatRequest is the function endpoint payload.
type ChatRequest struct {
	Token    string     `json:"token" example:"0f1e2d3c4b5a69788796a5b4c3d2e1f0"`
	Messages []ChatTurn `json:"messages"`
	// Empty or "chat" streams a reply; "generate_proposal" synthesizes.
	Action string `json:"action,omitempty" example:"chat"`
}

// streamChunk is one SSE frame in the OpenAI delta shape.
type streamChunk struct {
	Choices []streamChoice `json:"choices"`
}

type streamChoice struct {
	Delta streamDelta `json:"delta"`
}

type streamDelta struct {
	Content string `json:"content"`
}

// normalizeAction maps the accepted spellings to an action, or "" when
// unknown.
func normalizeAction(a string) string {
	switch strings.ToLower(strings.TrimSpace(a)) {
	case "", actionChat:
		return actionChat
	case actionProposal, "gerar_proposta":
		return actionProposal
	}
	return ""
}

// ifMatchVersion parses an optional If-Match proposal version. Quotes and a
// weak prefix are accepted: 3, "3", W/"3".
func ifMatchVersion(c *gin.Context) (*int, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" {
		return nil, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, false
	}
	return &v, true
}

// OrcamentoChat godoc
// @ID          orcamentoChat
// @Summary     Chat relay and proposal synthesis
// @Description Streams the assistant reply as server-sent events (`data: {"choices":[{"delta":{"content":"..."}}]}` frames, then `data: [DONE]`). With action generate_proposal, returns the synthesized proposal as JSON instead.
// @Tags        Functions
// @Accept      json
// @Produce     text/event-stream
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Deduplicates the user turn"
// @Param       If-Match         header  string  false  "Expected proposal version (synthesis only)"
// @Param       body             body    handlers.ChatRequest  true  "Conversation"
// @Success     200  {object}  handlers.ProposalResponse  "Synthesis mode"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid body or turn"
// @Failure     402  {object}  handlers.ErrorResponse  "Model quota exceeded"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or closed session"
// @Failure     409  {object}  handlers.ErrorResponse  "Stale If-Match proposal version"
// @Failure     422  {object}  handlers.ErrorResponse  "Conversation bound reached"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /functions/v1/orcamento-chat [post]
func (h *Handlers) OrcamentoChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token required")
		return
	}

	switch normalizeAction(req.Action) {
	case actionChat:
		h.streamReply(c, req)
	case actionProposal:
		h.synthesize(c, req.Token)
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown action")
	}
}

func (h *Handlers) streamReply(c *gin.Context, req ChatRequest) {
	turns := make([]llm.Turn, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != domain.RoleUser && role != domain.RoleAssistant {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message role must be user or assistant")
			return
		}
		turns = append(turns, llm.Turn{Role: role, Content: m.Content})
	}
	key, _ := middleware.GetIdempotencyKey(c)

	reply, err := h.chat.Relay(c.Request.Context(), services.RelayInput{
		Token:          req.Token,
		Turns:          turns,
		IdempotencyKey: key,
	})
	if err != nil {
		failErr(c, err)
		return
	}

	// Streams outlive the server's WriteTimeout.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		middleware.LoggerFrom(c).Debug().Err(err).Msg("write deadline not cleared")
	}

	hdr := c.Writer.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	lg := middleware.LoggerFrom(c)
	writing := true
	for d := range reply.Deltas() {
		if !writing {
			continue
		}
		b, _ := json.Marshal(streamChunk{Choices: []streamChoice{{Delta: streamDelta{Content: d}}}})
		if err := writeFrame(c, string(b)); err != nil {
			lg.Info().Str("session_id", reply.SessionID).Msg("client stopped reading the stream")
			writing = false
		}
	}
	if !writing {
		return
	}
	if err := reply.Err(); err != nil {
		lg.Warn().Err(err).Str("session_id", reply.SessionID).Msg("upstream stream failed")
		b, _ := json.Marshal(gin.H{"error": "a resposta do assistente foi interrompida"})
		_ = writeFrame(c, string(b))
		return
	}
	_ = writeFrame(c, "[DONE]")
}

func writeFrame(c *gin.Context, data string) error {
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

func (h *Handlers) synthesize(c *gin.Context, token string) {
	expected, valid := ifMatchVersion(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "If-Match must be a proposal version")
		return
	}
	res, err := h.proposals.Generate(c.Request.Context(), token, expected)
	if errors.Is(err, services.ErrInvalidStatus) {
		// Closed sessions are unknown to the field app.
		err = services.ErrSessionNotFound
	}
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("ETag", strconv.Quote(strconv.Itoa(res.Version)))
	ok(c, http.StatusOK, newProposalResponse(res))
}
