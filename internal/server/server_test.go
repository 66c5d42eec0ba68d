package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffgrader/diffgrader/internal/archive"
	"github.com/diffgrader/diffgrader/internal/service"
	"github.com/diffgrader/diffgrader/internal/store"
	"github.com/diffgrader/diffgrader/pkg/config"
)

type testEnv struct {
	server  *httptest.Server
	service *service.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := store.Open(context.Background(), fmt.Sprintf("file:%s", filepath.Join(dir, "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	uploads, err := archive.NewStore(filepath.Join(dir, "uploads"), 0)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	svc := service.New(cfg, db, uploads)
	srv := New(cfg, svc, zerolog.Nop())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, service: svc}
}

func (e *testEnv) uploadZip(t *testing.T, name, kind string, files map[string]string) string {
	t.Helper()

	zipBuf := &bytes.Buffer{}
	zw := zip.NewWriter(zipBuf)
	for fname, content := range files {
		f, err := zw.Create(fname)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("type", kind))
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(zipBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(e.server.URL+"/api/files", mw.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var up archive.Upload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	require.NotEmpty(t, up.ID)
	return up.ID
}

func (e *testEnv) createSession(t *testing.T, studentID, referenceID string) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{
		"student_upload_id":   studentID,
		"reference_upload_id": referenceID,
	})
	resp, err := http.Post(e.server.URL+"/api/sessions", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sess store.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	return sess.ID
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

const calculatorJava = `public class Calculator {
    public int add(int a, int b) {
        return a + b;
    }
}
`

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]string
	status := getJSON(t, env.server.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestUploadRejectsNonZip(t *testing.T) {
	env := newTestEnv(t)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(env.server.URL+"/api/files", mw.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("type", "grader"))
	part, err := mw.CreateFormFile("file", "sub.zip")
	require.NoError(t, err)
	_, err = part.Write([]byte("PK"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(env.server.URL+"/api/files", mw.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)

	studentID := env.uploadZip(t, "student.zip", "student", map[string]string{"Calculator.java": calculatorJava})
	referenceID := env.uploadZip(t, "reference.zip", "reference", map[string]string{"Calculator.java": calculatorJava})

	sessionID := env.createSession(t, studentID, referenceID)
	env.service.Wait()

	var sess store.Session
	status := getJSON(t, env.server.URL+"/api/sessions/"+sessionID, &sess)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, store.StatusReady, sess.Status)

	var summary map[string]any
	status = getJSON(t, env.server.URL+"/api/sessions/"+sessionID+"/comparison", &summary)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 1.0, summary["overall_similarity"], 1e-9)

	// Complete the session with a final grade.
	payload, _ := json.Marshal(map[string]any{"score": 95, "comments": "matches the reference"})
	resp, err := http.Post(env.server.URL+"/api/sessions/"+sessionID+"/complete", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	var completed store.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&completed))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, store.StatusCompleted, completed.Status)
	assert.Equal(t, 95, completed.OverallScore)
	assert.Equal(t, "matches the reference", completed.FinalComments)

	// Completing again conflicts.
	resp, err = http.Post(env.server.URL+"/api/sessions/"+sessionID+"/complete", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Out-of-range score is rejected before the status check.
	payload, _ = json.Marshal(map[string]any{"score": 150})
	resp, err = http.Post(env.server.URL+"/api/sessions/"+sessionID+"/complete", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSuggestionEndpoint(t *testing.T) {
	env := newTestEnv(t)

	studentID := env.uploadZip(t, "student.zip", "student", map[string]string{"Calculator.java": calculatorJava})
	referenceID := env.uploadZip(t, "reference.zip", "reference", map[string]string{"Calculator.java": calculatorJava})
	sessionID := env.createSession(t, studentID, referenceID)
	env.service.Wait()

	var suggestion map[string]any
	status := getJSON(t, env.server.URL+"/api/sessions/"+sessionID+"/elements/student-0/suggestion", &suggestion)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, suggestion["score"])

	status = getJSON(t, env.server.URL+"/api/sessions/"+sessionID+"/elements/student-99/suggestion", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = getJSON(t, env.server.URL+"/api/sessions/"+sessionID+"/elements/bogus/suggestion", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFeedbackEndpoints(t *testing.T) {
	env := newTestEnv(t)

	studentID := env.uploadZip(t, "student.zip", "student", map[string]string{"Calculator.java": calculatorJava})
	referenceID := env.uploadZip(t, "reference.zip", "reference", map[string]string{"Calculator.java": calculatorJava})
	sessionID := env.createSession(t, studentID, referenceID)
	env.service.Wait()

	// Create.
	payload, _ := json.Marshal(map[string]any{
		"element_name": "add",
		"score":        88,
		"comments":     "clean and correct",
	})
	resp, err := http.Post(env.server.URL+"/api/sessions/"+sessionID+"/feedback", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	var created store.Feedback
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotZero(t, created.ID)

	// Invalid score rejected.
	payload, _ = json.Marshal(map[string]any{"score": 150})
	resp, err = http.Post(env.server.URL+"/api/sessions/"+sessionID+"/feedback", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// List.
	var list []store.Feedback
	status := getJSON(t, env.server.URL+"/api/sessions/"+sessionID+"/feedback", &list)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list, 1)

	// Average score.
	var avg map[string]float64
	status = getJSON(t, env.server.URL+"/api/sessions/"+sessionID+"/feedback/average", &avg)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 88.0, avg["average_score"], 1e-9)

	// Update.
	payload, _ = json.Marshal(map[string]any{"score": 92, "comments": "even better"})
	req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/api/feedback/%d", env.server.URL, created.ID), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Delete.
	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/feedback/%d", env.server.URL, created.ID), nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Deleting again is a 404.
	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/feedback/%d", env.server.URL, created.ID), nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionNotFound(t *testing.T) {
	env := newTestEnv(t)

	status := getJSON(t, env.server.URL+"/api/sessions/doesnotexist", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = getJSON(t, env.server.URL+"/api/sessions/doesnotexist/comparison", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateSessionValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/sessions", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload, _ := json.Marshal(map[string]string{
		"student_upload_id":   "ghost",
		"reference_upload_id": "ghost",
	})
	resp, err = http.Post(env.server.URL+"/api/sessions", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
