package bot

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/MimeLyc/srt-translate-bot/internal/jobs"
	"github.com/MimeLyc/srt-translate-bot/internal/service"
	"github.com/MimeLyc/srt-translate-bot/internal/session"
)

type sentMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Menu      *Menu
	Edited    bool
}

type sentDocument struct {
	ChatID  int64
	Name    string
	Data    []byte
	Caption string
}

type fakeMessenger struct {
	mu        sync.Mutex
	messages  []sentMessage
	documents []sentDocument
	answered  []string
	files     map[string][]byte
	downloads int
	nextID    int
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{files: make(map[string][]byte)}
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, menu *Menu) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages = append(f.messages, sentMessage{ChatID: chatID, MessageID: f.nextID, Text: text, Menu: menu})
	return f.nextID, nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, chatID int64, messageID int, text string, menu *Menu) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{ChatID: chatID, MessageID: messageID, Text: text, Menu: menu, Edited: true})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, callbackID string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeMessenger) SendDocument(_ context.Context, chatID int64, name string, data []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, sentDocument{ChatID: chatID, Name: name, Data: data, Caption: caption})
	return nil
}

func (f *fakeMessenger) DownloadFile(_ context.Context, fileID string, _ int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	return f.files[fileID], nil
}

func (f *fakeMessenger) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return sentMessage{}
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.Text)
	}
	return out
}

func (f *fakeMessenger) sentDocuments() []sentDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentDocument(nil), f.documents...)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, sess session.Session) (*service.RunResult, error) {
	args := m.Called(ctx, sess)
	result, _ := args.Get(0).(*service.RunResult)
	return result, args.Error(1)
}

type fakeEnqueuer struct {
	mu       sync.Mutex
	requests []jobs.EnqueueRequest
}

func (f *fakeEnqueuer) Enqueue(req jobs.EnqueueRequest) (*jobs.TranslationJob, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return &jobs.TranslationJob{
		ID:         "job-test",
		SessionKey: req.SessionKey,
		Epoch:      req.Epoch,
		Languages:  req.Languages,
		Status:     jobs.StatusPending,
	}, true
}
