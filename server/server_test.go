package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axoncare-ai/hemolens"
	"github.com/axoncare-ai/hemolens/ai"
)

const reportText = `--- Page 1 ---
City Medical Laboratory
Patient blood test results with reference ranges
Cholesterol, Total: 250 mg/dL (range 125-200)
Glucose: 95 mg/dL (70-99)`

type fixedExtractor struct {
	text string
	err  error
}

func (f *fixedExtractor) ExtractText(ctx context.Context, payload []byte) (string, int, error) {
	if f.err != nil {
		return "", 0, f.err
	}
	return f.text, 1, nil
}

func newTestServer(t *testing.T, extractor *fixedExtractor, maxUploadBytes int64) *Server {
	t.Helper()
	model := ai.NewDummyModel(func(messages []ai.Message) (ai.AIMessage, error) {
		_, content := messages[len(messages)-1].Value()
		if strings.Contains(content, "Blood test analysis:") {
			return ai.AIMessage{
				Role:    ai.AssistantRole,
				Content: "General guidance. Please consult a qualified healthcare professional about these results.",
			}, nil
		}
		return ai.AIMessage{
			Role:    ai.AssistantRole,
			Content: "Cholesterol is elevated; glucose is within range. Please consult a healthcare professional.",
		}, nil
	})
	p := hemolens.New(hemolens.Options{
		MaxUploadBytes: maxUploadBytes,
		StageTimeout:   5 * time.Second,
		RetryCount:     1,
		RetryBaseDelay: time.Millisecond,
	}, model, extractor)
	return New(p, maxUploadBytes, nil)
}

func multipartUpload(t *testing.T, filename string, payload []byte, query string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)

	if query != "" {
		require.NoError(t, w.WriteField("query", query))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postAnalyze(t *testing.T, s *Server, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return rec, payload
}

func TestAnalyzeEndpoint_Success(t *testing.T) {
	s := newTestServer(t, &fixedExtractor{text: reportText}, 1<<20)
	body, ct := multipartUpload(t, "report.pdf", []byte("%PDF-1.4 content"), "what stands out?")

	rec, payload := postAnalyze(t, s, body, ct)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", payload["status"])
	assert.Equal(t, "what stands out?", payload["query"])
	assert.Equal(t, "report.pdf", payload["file_processed"])
	assert.NotEmpty(t, payload["analysis"])
	assert.NotEmpty(t, payload["recommendations"])
	assert.NotEmpty(t, payload["processing_id"])
	assert.Contains(t, payload["evidence"], "2 markers")
}

func TestAnalyzeEndpoint_RejectedDocument(t *testing.T) {
	s := newTestServer(t, &fixedExtractor{text: "INVOICE\nAmount due: 100"}, 1<<20)
	body, ct := multipartUpload(t, "invoice.pdf", []byte("%PDF-1.4 content"), "")

	rec, payload := postAnalyze(t, s, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rejected", payload["status"])
	assert.Contains(t, payload["reason"], "lab markers")
}

func TestAnalyzeEndpoint_NotAPDF(t *testing.T) {
	s := newTestServer(t, &fixedExtractor{text: reportText}, 1<<20)
	body, ct := multipartUpload(t, "notes.txt", []byte("plain text file"), "")

	rec, payload := postAnalyze(t, s, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", payload["status"])
	assert.Equal(t, "only PDF blood test reports are supported", payload["message"])
}

func TestAnalyzeEndpoint_OversizeUpload(t *testing.T) {
	s := newTestServer(t, &fixedExtractor{text: reportText}, 32)
	big := append([]byte("%PDF-"), bytes.Repeat([]byte("x"), 100)...)
	body, ct := multipartUpload(t, "big.pdf", big, "")

	rec, payload := postAnalyze(t, s, body, ct)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "the uploaded file exceeds the maximum allowed size", payload["message"])
}

func TestAnalyzeEndpoint_MissingFileField(t *testing.T) {
	s := newTestServer(t, &fixedExtractor{text: reportText}, 1<<20)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("query", "no file attached"))
	require.NoError(t, w.Close())

	rec, payload := postAnalyze(t, s, &buf, w.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, payload["message"], "'file' field")
}

// Backend failures surface as a generic 500; the cause stays in the logs.
func TestAnalyzeEndpoint_BackendFailureIsOpaque(t *testing.T) {
	s := newTestServer(t, &fixedExtractor{err: context.DeadlineExceeded}, 1<<20)
	body, ct := multipartUpload(t, "report.pdf", []byte("%PDF-1.4 content"), "")

	rec, payload := postAnalyze(t, s, body, ct)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", payload["status"])
	assert.NotContains(t, payload["message"], "deadline")
}

func TestRootAndHealthEndpoints(t *testing.T) {
	s := newTestServer(t, &fixedExtractor{text: reportText}, 1<<20)

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, "healthy", payload["status"], path)
	}
}
