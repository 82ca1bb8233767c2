package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
	"github.com/MimeLyc/srt-translate-bot/internal/bot"
)

const testToken = "123:abc"

type fakeAPI struct {
	mu    sync.Mutex
	calls map[string][]map[string][]string
	files map[string]string
	// fail maps a method to the error codes returned by its next calls
	fail map[string][]int
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		calls: make(map[string][]map[string][]string),
		files: make(map[string]string),
		fail:  make(map[string][]int),
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/bot"+testToken+"/") {
		body, ok := f.files[strings.TrimPrefix(r.URL.Path, "/file/bot"+testToken+"/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
		return
	}

	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	_ = r.ParseMultipartForm(1 << 20)

	f.mu.Lock()
	f.calls[method] = append(f.calls[method], r.Form)
	var failCode int
	if codes := f.fail[method]; len(codes) > 0 {
		failCode, f.fail[method] = codes[0], codes[1:]
	}
	f.mu.Unlock()

	if failCode != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(failCode)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": failCode, "description": "failure"})
		return
	}

	var result any
	switch method {
	case "getMe":
		result = map[string]any{"id": 1, "is_bot": true, "first_name": "srt", "username": "srt_bot"}
	case "sendMessage", "sendDocument":
		result = map[string]any{"message_id": 77, "date": 0, "chat": map[string]any{"id": 5, "type": "private"}}
	case "getFile":
		result = map[string]any{"file_id": r.Form.Get("file_id"), "file_path": "documents/" + r.Form.Get("file_id")}
	default:
		result = true
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeAPI) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[method])
}

func (f *fakeAPI) lastCall(method string) map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := f.calls[method]
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1]
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(testToken,
		WithEndpoints(srv.URL+"/bot%s/%s", srv.URL+"/file/bot%s/%s"),
		WithHTTPClient(srv.Client()),
		WithRetry(3, time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestClient_SendMessageWithMenu(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv)

	id, err := c.SendMessage(context.Background(), 5, "pick", &bot.Menu{
		Rows: [][]bot.Button{{{Text: "German", Data: "lang:de"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 77, id)

	form := api.lastCall("sendMessage")
	require.NotNil(t, form)
	assert.Equal(t, "5", form["chat_id"][0])
	assert.Equal(t, "pick", form["text"][0])
	assert.Contains(t, form["reply_markup"][0], `"callback_data":"lang:de"`)
}

func TestClient_EditAndAnswer(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv)

	require.NoError(t, c.EditMessage(context.Background(), 5, 9, "done", nil))
	require.NoError(t, c.AnswerCallback(context.Background(), "cb-1", ""))

	edit := api.lastCall("editMessageText")
	require.NotNil(t, edit)
	assert.Equal(t, "9", edit["message_id"][0])
	assert.Equal(t, "cb-1", api.lastCall("answerCallbackQuery")["callback_query_id"][0])
}

func TestClient_DownloadFile(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.files["f1"] = "1\n00:00:01,000 --> 00:00:02,000\nHi\n"
	c := newTestClient(t, srv)

	data, err := c.DownloadFile(context.Background(), "f1", 1024)
	require.NoError(t, err)
	assert.Equal(t, api.files["f1"], string(data))
}

func TestClient_DownloadFile_EnforcesLimit(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.files["big"] = strings.Repeat("x", 100)
	c := newTestClient(t, srv)

	_, err := c.DownloadFile(context.Background(), "big", 10)
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.ErrInvalidFile))
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv)
	api.fail["sendMessage"] = []int{http.StatusBadGateway, http.StatusTooManyRequests}

	id, err := c.SendMessage(context.Background(), 5, "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, 77, id)
	assert.Equal(t, 3, api.callCount("sendMessage"))
}

func TestClient_DoesNotRetryRejectedRequests(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv)
	api.fail["sendMessage"] = []int{http.StatusBadRequest}

	_, err := c.SendMessage(context.Background(), 5, "hello", nil)
	require.Error(t, err)

	assert.True(t, apperr.IsType(err, apperr.ErrNetwork))
	assert.Equal(t, 1, api.callCount("sendMessage"))
}
