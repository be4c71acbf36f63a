package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ryachat/internal/app/chat"
	"ryachat/internal/configs"
	"ryachat/internal/pkg/errs"
	"ryachat/internal/pkg/pow"
)

type fakeBlobStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeBlobStore) Store(_ context.Context, key string, body []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	handler http.Handler
	deps    *AppDeps
	blobs   *fakeBlobStore
}

func newTestServer(t *testing.T, opts chat.Options, powDifficulty int) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	opts.PresenceResetInterval = 0
	manager, err := chat.NewManager(opts)
	require.NoError(t, err)
	t.Cleanup(manager.Shutdown)

	blobs := &fakeBlobStore{}
	deps := &AppDeps{
		Manager: manager,
		Config:  &configs.AppConfig{Environment: "development"},
		Blobs:   blobs,
		Pow:     pow.NewManager(ctx, powDifficulty),
	}

	return &testServer{handler: Router(ctx, deps), deps: deps, blobs: blobs}
}

func (s *testServer) do(t *testing.T, method, target string, body any, header map[string]string) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, target, reader)
	r.RemoteAddr = "192.0.2.10:4321"
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		r.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) register(t *testing.T, userID, username string) string {
	t.Helper()

	status, env := s.do(t, http.MethodPost, "/api/register", map[string]string{
		"userId":   userID,
		"username": username,
	}, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func TestRegisterEndpoint(t *testing.T) {
	s := newTestServer(t, chat.BasicOptions(), 0)

	status, env := s.do(t, http.MethodPost, "/api/register", map[string]string{
		"userId":   "SN-1",
		"username": "mario",
		"console":  "3DS",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Code)

	var first struct {
		Token     string         `json:"token"`
		IsNewUser bool           `json:"isNewUser"`
		User      map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.True(t, first.IsNewUser)
	assert.Equal(t, "3DS", first.User["consoleType"])
	assert.NotContains(t, first.User, "token")

	_, env = s.do(t, http.MethodPost, "/api/register", map[string]string{"userId": "SN-1", "username": "other"}, nil)
	var second struct {
		Token     string `json:"token"`
		IsNewUser bool   `json:"isNewUser"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.False(t, second.IsNewUser)
	assert.Equal(t, first.Token, second.Token)

	status, env = s.do(t, http.MethodPost, "/api/register", map[string]string{"userId": "SN-2"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errs.ErrInvalidParams, env.Code)
}

func TestSendAndPoll(t *testing.T) {
	s := newTestServer(t, chat.BasicOptions(), 0)
	token := s.register(t, "alice", "Alice")

	status, env := s.do(t, http.MethodPost, "/api/send", map[string]string{
		"userId":   "alice",
		"token":    token,
		"text":     "hello",
		"username": "Mallory",
	}, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	var sent struct {
		Message chat.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.Equal(t, "Alice", sent.Message.Username)

	status, env = s.do(t, http.MethodPost, "/api/send", map[string]string{
		"userId": "alice",
		"token":  "RYA_wrong",
		"text":   "hello",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, errs.ErrUnauthorized, env.Code)

	status, env = s.do(t, http.MethodGet, "/api/messages?limit=10", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, status)

	var page chat.Page
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Messages, 2)
	assert.True(t, page.Messages[0].IsSystem)
	assert.Equal(t, 1, page.OnlineCount)
	assert.Equal(t, 1, page.TotalUsers)

	cursor := strconv.FormatInt(page.Messages[0].Timestamp.UnixMilli(), 10)
	_, env = s.do(t, http.MethodGet, "/api/messages?token="+token+"&since="+cursor, nil, nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "hello", page.Messages[0].Text)

	status, env = s.do(t, http.MethodGet, "/api/messages?token="+token+"&since=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errs.ErrInvalidParams, env.Code)

	status, _ = s.do(t, http.MethodGet, "/api/messages", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPollLimitFallsBackToDefault(t *testing.T) {
	opts := chat.BasicOptions()
	opts.RateMax = 500
	s := newTestServer(t, opts, 0)
	token := s.register(t, "alice", "Alice")

	for i := 0; i < DefaultPollLimit+20; i++ {
		_, err := s.deps.Manager.Send(chat.SendInput{UserID: "alice", Token: token, Text: strconv.Itoa(i)})
		require.Nil(t, err)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", DefaultPollLimit},
		{"&limit=0", DefaultPollLimit},
		{"&limit=-5", DefaultPollLimit},
		{"&limit=abc", DefaultPollLimit},
		{"&limit=5", 5},
	}

	for _, tt := range tests {
		status, env := s.do(t, http.MethodGet, "/api/messages?token="+token+tt.query, nil, nil)
		require.Equal(t, http.StatusOK, status, tt.query)

		var page chat.Page
		require.NoError(t, json.Unmarshal(env.Data, &page))
		require.Len(t, page.Messages, tt.want, tt.query)
		// the newest messages are kept
		assert.Equal(t, strconv.Itoa(DefaultPollLimit+19), page.Messages[len(page.Messages)-1].Text, tt.query)
	}
}

func TestSendRejectsUnknownFields(t *testing.T) {
	s := newTestServer(t, chat.BasicOptions(), 0)
	token := s.register(t, "alice", "Alice")

	status, env := s.do(t, http.MethodPost, "/api/send", map[string]string{
		"userId":   "alice",
		"token":    token,
		"text":     "hi",
		"isSystem": "true",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errs.ErrInvalidJSONFormat, env.Code)
}

func TestSearchOnlineProfileAndStats(t *testing.T) {
	s := newTestServer(t, chat.ProOptions(), 0)
	a := s.register(t, "AB1", "Xoxo")
	s.register(t, "C1", "abba")

	status, env := s.do(t, http.MethodGet, "/api/users/search?q=ab&token="+a, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var search struct {
		Query   string `json:"query"`
		Count   int    `json:"count"`
		Results []struct {
			UserID string `json:"userId"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &search))
	assert.Equal(t, "ab", search.Query)
	assert.Equal(t, 2, search.Count)

	status, env = s.do(t, http.MethodGet, "/api/users/search?q=a&token="+a, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errs.ErrQueryTooShort, env.Code)

	// polling marks the caller online
	s.do(t, http.MethodGet, "/api/messages?token="+a, nil, nil)

	for _, path := range []string{"/api/users/online", "/api/online"} {
		status, env = s.do(t, http.MethodGet, path+"?token="+a, nil, nil)
		require.Equal(t, http.StatusOK, status)
		var online struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &online))
		assert.Equal(t, 1, online.Count, path)
	}

	status, env = s.do(t, http.MethodPost, "/api/profile/update", map[string]string{
		"userId": "AB1",
		"token":  a,
		"bio":    "plays mario kart",
	}, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var profile struct {
		User struct {
			Bio string `json:"bio"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "plays mario kart", profile.User.Bio)

	status, env = s.do(t, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var stats chat.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.OnlineUsers)
	assert.Equal(t, 2, stats.TotalMessages)
}

func TestBasicEditionDisablesProEndpoints(t *testing.T) {
	s := newTestServer(t, chat.BasicOptions(), 0)
	a := s.register(t, "AB1", "Xoxo")

	status, env := s.do(t, http.MethodGet, "/api/users/search?q=ab&token="+a, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errs.ErrFeatureDisabled, env.Code)

	status, env = s.do(t, http.MethodGet, "/ws", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errs.ErrFeatureDisabled, env.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, chat.BasicOptions(), 0)

	status, env := s.do(t, http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errs.ErrNotFound, env.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, chat.BasicOptions(), 0)

	status, env := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Code)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func uploadRequest(t *testing.T, token, fileName, contentType string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("token", token))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+fileName+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	r.RemoteAddr = "192.0.2.10:4321"
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t, chat.ProOptions(), 0)
	token := s.register(t, "alice", "Alice")

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, uploadRequest(t, token, "cat.png", "image/png", pngBytes))
	env := decode(t, w)
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	var data struct {
		ImageURL string `json:"imageUrl"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, s.blobs.keys, 1)
	assert.True(t, strings.HasPrefix(s.blobs.keys[0], "uploads/"))
	assert.True(t, strings.HasSuffix(s.blobs.keys[0], ".png"))
	assert.Equal(t, "https://cdn.example.com/"+s.blobs.keys[0], data.ImageURL)

	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, uploadRequest(t, "bad", "cat.png", "image/png", pngBytes))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, uploadRequest(t, token, "cat.png", "image/png", []byte("plain text, not a png")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errs.ErrFileTypeInvalid, decode(t, w).Code)
}

func TestUploadStorageFailure(t *testing.T) {
	s := newTestServer(t, chat.ProOptions(), 0)
	token := s.register(t, "alice", "Alice")
	s.blobs.err = errors.New("bucket unreachable")

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, uploadRequest(t, token, "cat.png", "image/png", pngBytes))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, errs.ErrFileStorageFailed, decode(t, w).Code)
}

func TestUploadWithoutBlobStore(t *testing.T) {
	s := newTestServer(t, chat.ProOptions(), 0)
	token := s.register(t, "alice", "Alice")
	s.deps.Blobs = nil

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, uploadRequest(t, token, "cat.png", "image/png", pngBytes))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errs.ErrFeatureDisabled, decode(t, w).Code)
}

func TestProofOfWorkGate(t *testing.T) {
	s := newTestServer(t, chat.BasicOptions(), 1)

	body := map[string]string{"userId": "SN-1", "username": "mario"}

	status, env := s.do(t, http.MethodPost, "/api/register", body, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, errs.ErrPowChallengeRequired, env.Code)

	status, env = s.do(t, http.MethodGet, "/api/pow/challenge", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var challenge struct {
		Nonce      string `json:"nonce"`
		Difficulty int    `json:"difficulty"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &challenge))
	assert.Equal(t, 1, challenge.Difficulty)

	counter := 0
	for !pow.Satisfies(challenge.Nonce, strconv.Itoa(counter), challenge.Difficulty) {
		counter++
	}

	status, env = s.do(t, http.MethodPost, "/api/pow/verify", map[string]string{
		"nonce":   challenge.Nonce,
		"counter": strconv.Itoa(counter),
	}, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var proof struct {
		PowToken string `json:"powToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &proof))

	status, env = s.do(t, http.MethodPost, "/api/register", body, map[string]string{pow.TokenHeaderKey: proof.PowToken})
	assert.Equal(t, http.StatusOK, status, env.Message)

	// proof tokens are single use
	status, _ = s.do(t, http.MethodPost, "/api/register", body, map[string]string{pow.TokenHeaderKey: proof.PowToken})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestProofOfWorkDisabled(t *testing.T) {
	s := newTestServer(t, chat.BasicOptions(), 0)

	status, env := s.do(t, http.MethodGet, "/api/pow/challenge", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errs.ErrNotFound, env.Code)
}

func TestParseSince(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"", time.Time{}, true},
		{strconv.FormatInt(ts.UnixMilli(), 10), ts, true},
		{"2024-05-01T12:00:00Z", ts, true},
		{"2024-05-01T14:00:00+02:00", ts, true},
		{"-5", time.Time{}, false},
		{"tomorrow", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseSince(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}
