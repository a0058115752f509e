// Package services – ExportService
//
// ExportService assembles a session's stored proposal into an export.Document
// and renders it. Photos referenced by the proposal are resolved through the
// session's media and fetched over signed URLs.
package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-orcamento-backend/internal/export"
	"github.com/tbourn/go-orcamento-backend/internal/utils"
)

// Content types of rendered documents.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Rendered is a rendered document ready to be sent.
type Rendered struct {
	FileName    string
	ContentType string
	Body        []byte
}

// Published is a report stored in object storage.
type Published struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders proposals.
type ExportService struct {
	DB    *gorm.DB
	Media *MediaService

	Company       string
	PhotoTimeout  time.Duration
	MaxPhotoBytes int64

	// Now is the clock used for the document date.
	Now func() time.Time
}

// Document loads the session's proposal as a renderable document.
func (s *ExportService) Document(ctx context.Context, token string) (*export.Document, string, error) {
	sess, err := lookupSession(ctx, s.DB, token)
	if err != nil {
		return nil, "", err
	}
	res, err := currentProposal(sess)
	if err != nil {
		return nil, "", err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return &export.Document{
		Company:     s.Company,
		ClientName:  sess.ClientName,
		Address:     sess.Address,
		GeneratedAt: now().UTC(),
		Version:     res.Version,
		Proposal:    res.Proposal,
		Totals:      res.Totals,
		Raw:         res.Text,
		Equipment:   res.Equipment,
	}, sess.ID, nil
}

// PDF renders the proposal as PDF.
func (s *ExportService) PDF(ctx context.Context, token string) (*Rendered, error) {
	ctx, span := otel.Tracer("services/ExportService").Start(ctx, "PDF")
	defer span.End()

	doc, sessionID, err := s.Document(ctx, token)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	body, err := export.RenderPDF(ctx, *doc, s.photos(sessionID))
	if err != nil {
		return nil, err
	}
	return &Rendered{FileName: fileName(doc, "pdf"), ContentType: ContentTypePDF, Body: body}, nil
}

// XLSX renders the proposal as a spreadsheet.
func (s *ExportService) XLSX(ctx context.Context, token string) (*Rendered, error) {
	doc, _, err := s.Document(ctx, token)
	if err != nil {
		return nil, err
	}
	body, err := export.RenderXLSX(*doc)
	if err != nil {
		return nil, err
	}
	return &Rendered{FileName: fileName(doc, "xlsx"), ContentType: ContentTypeXLSX, Body: body}, nil
}

// Publish renders the PDF, stores it next to the session's media and returns
// a signed link to it.
func (s *ExportService) Publish(ctx context.Context, token string) (*Published, error) {
	if s.Media == nil || s.Media.Store == nil {
		return nil, ErrStorageUnavailable
	}
	doc, sessionID, err := s.Document(ctx, token)
	if err != nil {
		return nil, err
	}
	body, err := export.RenderPDF(ctx, *doc, s.photos(sessionID))
	if err != nil {
		return nil, err
	}

	key := path.Join("sessions", sessionID, "reports", fmt.Sprintf("proposta-v%d.pdf", doc.Version))
	if err := s.Media.Store.Put(ctx, key, bytes.NewReader(body), ContentTypePDF); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	url, err := s.Media.Store.SignedURL(ctx, key, s.Media.URLTTL)
	if err != nil {
		return nil, fmt.Errorf("sign report: %w", err)
	}
	log.Info().Str("session_id", sessionID).Str("key", key).Msg("report published")
	return &Published{Key: key, URL: url, ExpiresAt: time.Now().UTC().Add(s.Media.URLTTL)}, nil
}

func (s *ExportService) photos(sessionID string) export.PhotoSource {
	if s.Media == nil || s.Media.Store == nil {
		return nil
	}
	timeout := s.PhotoTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return export.NewHTTPPhotoSource(s.Media.Resolver(sessionID), timeout, s.MaxPhotoBytes)
}

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

func fileName(doc *export.Document, ext string) string {
	slug := strings.Trim(slugRE.ReplaceAllString(utils.Fold(doc.ClientName), "-"), "-")
	if slug == "" {
		slug = "cliente"
	}
	return fmt.Sprintf("proposta-%s-v%d.%s", slug, doc.Version, ext)
}
