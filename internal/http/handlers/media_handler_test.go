package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/tbourn/go-orcamento-backend/internal/services"
)

type part struct{ name, contentType, body string }

func multipartUpload(t *testing.T, files []part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, mediaField, f.name))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		fw, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write([]byte(f.body))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, token string, files ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartUpload(t, files)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+token+"/media", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestMedia_UploadListAndSign(t *testing.T) {
	env := newEnv(t, true)
	sess := env.session(t)

	w := env.upload(t, sess.Token, part{"portaria.jpg", "", "jpeg-bytes"}, part{"audio.m4a", "audio/mp4", "m4a-bytes"})
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	res := decode[services.UploadResult](t, w)
	if len(res.Stored) != 2 || len(res.Failed) != 0 {
		t.Fatalf("upload result %+v", res)
	}
	kinds := map[string]string{}
	for _, m := range res.Stored {
		kinds[m.FileName] = m.Kind
	}
	if kinds["portaria.jpg"] != "photo" || kinds["audio.m4a"] != "audio" {
		t.Fatalf("kinds = %v", kinds)
	}

	w = env.do(http.MethodGet, "/api/v1/sessions/"+sess.Token+"/media", nil)
	list := decode[ListMediaResponse](t, w)
	if len(list.Media) != 2 || !strings.HasPrefix(list.Media[0].URL, "https://store.invalid/sessions/") {
		t.Fatalf("list = %+v", list)
	}

	w = env.do(http.MethodGet, "/api/v1/sessions/"+sess.Token+"/media/portaria.jpg/url", nil)
	if w.Code != http.StatusOK || !strings.Contains(decode[services.MediaLink](t, w).URL, "portaria.jpg") {
		t.Fatalf("sign: %d %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/v1/sessions/"+sess.Token+"/media/ghost.jpg/url", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != ErrCodeMediaNotFound {
		t.Fatalf("missing file: %d %s", w.Code, w.Body.String())
	}
}

func TestMedia_Rejections(t *testing.T) {
	env := newEnv(t, false)
	sess := env.session(t)

	w := env.upload(t, sess.Token, part{"foto.jpg", "image/jpeg", "x"})
	if w.Code != http.StatusServiceUnavailable || errorCode(t, w) != ErrCodeStorageUnavailable {
		t.Fatalf("no storage: %d %s", w.Code, w.Body.String())
	}

	w = env.upload(t, sess.Token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("no files: %d", w.Code)
	}

	w = env.do(http.MethodPost, "/api/v1/sessions/"+sess.Token+"/media", map[string]string{"a": "b"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("json body: %d", w.Code)
	}
}

func TestMedia_UnknownSession(t *testing.T) {
	env := newEnv(t, true)
	w := env.upload(t, "nope", part{"foto.jpg", "image/jpeg", "x"})
	if w.Code != http.StatusNotFound || errorCode(t, w) != ErrCodeSessionNotFound {
		t.Fatalf("unknown session: %d %s", w.Code, w.Body.String())
	}
}
