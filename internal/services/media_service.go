// Package services – MediaService
//
// MediaService stores field-visit uploads in object storage and records them
// against a session. Download links are signed on demand and never stored.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/domain"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
	"github.com/tbourn/go-orcamento-backend/internal/storage"
)

// Upload is one incoming file.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadFailure names a file that was skipped and why.
type UploadFailure struct {
	Name   string `json:"file_name"`
	Reason string `json:"reason"`
}

// UploadResult reports the outcome of a batch.
type UploadResult struct {
	Stored []domain.Media  `json:"stored"`
	Failed []UploadFailure `json:"failed"`
}

// MediaLink is a media row with a freshly signed URL.
type MediaLink struct {
	domain.Media
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MediaService manages session uploads.
type MediaService struct {
	DB    *gorm.DB
	Store storage.ObjectStore // nil when object storage is not configured

	URLTTL   time.Duration
	MaxBytes int64
}

// Upload stores every file of the batch. A failing file is logged and
// reported in the result; the rest of the batch continues.
func (s *MediaService) Upload(ctx context.Context, token string, files []Upload) (*UploadResult, error) {
	if s.Store == nil {
		return nil, ErrStorageUnavailable
	}
	sess, err := lookupSession(ctx, s.DB, token)
	if err != nil {
		return nil, err
	}

	res := &UploadResult{}
	for _, f := range files {
		m, err := s.store(ctx, sess.ID, f)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Str("file", f.Name).Msg("upload skipped")
			res.Failed = append(res.Failed, UploadFailure{Name: f.Name, Reason: err.Error()})
			continue
		}
		res.Stored = append(res.Stored, *m)
	}
	return res, nil
}

func (s *MediaService) store(ctx context.Context, sessionID string, f Upload) (*domain.Media, error) {
	name := cleanFileName(f.Name)
	if name == "" {
		return nil, errors.New("missing file name")
	}
	if s.MaxBytes > 0 && f.Size > s.MaxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", s.MaxBytes)
	}
	ct := strings.TrimSpace(f.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
			ct = byExt
		}
	}
	if ct == "" {
		ct = "application/octet-stream"
	}

	key := path.Join("sessions", sessionID, uuid.NewString()+"-"+name)
	if err := s.Store.Put(ctx, key, f.Body, ct); err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}
	m, err := repo.CreateMedia(ctx, s.DB, sessionID, repo.MediaFields{
		FileName:    name,
		StorageKey:  key,
		Kind:        mediaKind(ct),
		ContentType: ct,
		Size:        f.Size,
	})
	if err != nil {
		if derr := s.Store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			log.Warn().Err(derr).Str("key", key).Msg("orphaned object not removed")
		}
		return nil, fmt.Errorf("record media: %w", err)
	}
	return m, nil
}

// List returns the session's media with signed URLs.
func (s *MediaService) List(ctx context.Context, token string) ([]MediaLink, error) {
	sess, err := lookupSession(ctx, s.DB, token)
	if err != nil {
		return nil, err
	}
	items, err := repo.ListMedia(ctx, s.DB, sess.ID)
	if err != nil {
		return nil, err
	}
	out := make([]MediaLink, 0, len(items))
	for _, m := range items {
		link := MediaLink{Media: m}
		if s.Store != nil {
			url, err := s.Store.SignedURL(ctx, m.StorageKey, s.URLTTL)
			if err != nil {
				log.Warn().Err(err).Str("key", m.StorageKey).Msg("sign url")
			} else {
				link.URL = url
				link.ExpiresAt = time.Now().UTC().Add(s.URLTTL)
			}
		}
		out = append(out, link)
	}
	return out, nil
}

// SignedURL returns a download link for the session's file named fileName.
func (s *MediaService) SignedURL(ctx context.Context, token, fileName string) (*MediaLink, error) {
	sess, err := lookupSession(ctx, s.DB, token)
	if err != nil {
		return nil, err
	}
	return s.signByName(ctx, sess.ID, fileName)
}

func (s *MediaService) signByName(ctx context.Context, sessionID, fileName string) (*MediaLink, error) {
	if s.Store == nil {
		return nil, ErrStorageUnavailable
	}
	m, err := repo.GetMediaByName(ctx, s.DB, sessionID, cleanFileName(fileName))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}
	url, err := s.Store.SignedURL(ctx, m.StorageKey, s.URLTTL)
	if err != nil {
		return nil, err
	}
	return &MediaLink{Media: *m, URL: url, ExpiresAt: time.Now().UTC().Add(s.URLTTL)}, nil
}

// Resolver returns a function that signs a photo of the given session by
// file name.
func (s *MediaService) Resolver(sessionID string) func(ctx context.Context, name string) (string, error) {
	return func(ctx context.Context, name string) (string, error) {
		link, err := s.signByName(ctx, sessionID, name)
		if err != nil {
			return "", err
		}
		return link.URL, nil
	}
}

func cleanFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func mediaKind(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return domain.MediaPhoto
	case strings.HasPrefix(contentType, "video/"):
		return domain.MediaVideo
	case strings.HasPrefix(contentType, "audio/"):
		return domain.MediaAudio
	default:
		return domain.MediaOther
	}
}
