/*
Package chat contains the core of the global chat.

This file defines the Manager, the single owner of the directory, the message log and the
presence set. Every operation validates and mutates that state under one lock, so checks
such as the per-user send window always see every earlier send. Events are handed to the
Hub after the lock is released.
*/
package chat

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ryachat/internal/app/user"
	"ryachat/internal/pkg/errs"
	"ryachat/internal/pkg/logx"
	"ryachat/internal/pkg/metrics"
)

const (
	// MinSearchQueryLength is the shortest accepted user search query, in runes.
	MinSearchQueryLength = 2

	// MaxUserIDLength and MaxUsernameLength bound registration fields, in runes.
	MaxUserIDLength   = 64
	MaxUsernameLength = 32

	// MaxBioLength bounds the profile bio, in runes.
	MaxBioLength = 200

	// MaxImageURLLength bounds image and avatar URLs.
	MaxImageURLLength = 2048
)

// RegisterResult is returned by Register.
type RegisterResult struct {
	Token     string
	IsNewUser bool
	User      user.User
}

// SendInput carries a send request. The sender name always comes from the directory.
type SendInput struct {
	UserID   string
	Token    string
	Text     string
	ImageURL string
}

// ProfileUpdate carries the optional profile fields; empty fields are left unchanged.
type ProfileUpdate struct {
	Avatar string
	Bio    string
}

// Page is the result of a poll.
type Page struct {
	Messages    []Message `json:"messages"`
	OnlineCount int       `json:"onlineCount"`
	TotalUsers  int       `json:"totalUsers"`
}

// Stats summarizes the server state.
type Stats struct {
	TotalUsers    int     `json:"totalUsers"`
	OnlineUsers   int     `json:"onlineUsers"`
	TotalMessages int     `json:"totalMessages"`
	Uptime        float64 `json:"uptime"`
}

// Manager coordinates users, messages, presence and live subscribers.
type Manager struct {
	opts Options

	// mu serializes all access to users, messages, presence and tokens.
	mu       sync.Mutex
	users    *Directory
	messages *MessageLog
	presence *Presence
	tokens   TokenAuthority

	hub *Hub

	startedAt time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger zerolog.Logger
}

// NewManager builds a Manager, then starts the hub loop and the presence reset loop.
func NewManager(opts Options) (*Manager, error) {
	opts.applyDefaults()

	users := NewDirectory()

	tokens, err := NewTokenAuthority(opts.TokenMode, opts.TokenSecret, users)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		opts:      opts,
		users:     users,
		messages:  NewMessageLog(opts.HistoryLimit, opts.RateWindow, opts.RateMax),
		presence:  NewPresence(),
		tokens:    tokens,
		hub:       NewHub(opts.SubscriberQueueSize),
		startedAt: opts.Clock(),
		stopChan:  make(chan struct{}),
		logger:    logx.Component("Manager"),
	}

	go m.hub.Run()

	if opts.PresenceResetInterval > 0 {
		m.wg.Add(1)
		go m.runPresenceResetLoop(opts.PresenceResetInterval)
	}

	m.logger.Info().
		Str("token_mode", opts.TokenMode).
		Int("history_limit", opts.HistoryLimit).
		Int("max_text_length", opts.MaxTextLength).
		Bool("images", opts.Features.Images).
		Bool("search", opts.Features.Search).
		Bool("live", opts.Features.Live).
		Bool("profiles", opts.Features.Profiles).
		Msg("Chat manager started.")

	return m, nil
}

// Features returns the enabled feature set.
func (m *Manager) Features() Features {
	return m.opts.Features
}

// Hub returns the broadcast hub.
func (m *Manager) Hub() *Hub {
	return m.hub
}

func (m *Manager) runPresenceResetLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.ResetPresence()
		case <-m.stopChan:
			return
		}
	}
}

// ResetPresence clears the whole online set without publishing offline events.
// It returns the number of users cleared.
func (m *Manager) ResetPresence() int {
	m.mu.Lock()
	cleared := m.presence.ResetAll()
	m.mu.Unlock()

	metrics.PresenceResets.Inc()
	m.logger.Info().Int("cleared", cleared).Msg("Cleared online users list.")
	return cleared
}

// Register creates a user, or logs an existing one in by returning its current token.
func (m *Manager) Register(userID, username, consoleType string) (RegisterResult, *errs.CustomError) {
	userID = strings.TrimSpace(userID)
	username = strings.TrimSpace(username)
	consoleType = strings.TrimSpace(consoleType)

	if userID == "" || username == "" ||
		utf8.RuneCountInString(userID) > MaxUserIDLength ||
		utf8.RuneCountInString(username) > MaxUsernameLength {
		return RegisterResult{}, errs.NewError(errs.ErrInvalidParams)
	}
	if consoleType == "" {
		consoleType = user.DefaultConsoleType
	}

	m.mu.Lock()

	if existing, ok := m.users.Get(userID); ok {
		result := RegisterResult{Token: existing.Token, User: *existing}
		m.mu.Unlock()

		m.logger.Info().Str("user_id", userID).Msg("User login.")
		return result, nil
	}

	token, err := m.tokens.Issue(userID)
	if err != nil {
		m.mu.Unlock()
		return RegisterResult{}, errs.NewError(errs.ErrUnknown, err)
	}

	now := m.opts.Clock()
	u := &user.User{
		ID:           userID,
		Username:     username,
		Token:        token,
		ConsoleType:  consoleType,
		RegisteredAt: now.UTC(),
	}
	m.users.Add(u)

	joined := m.messages.Append(Message{
		UserID:   SystemUserID,
		Username: SystemUsername,
		Text:     fmt.Sprintf("%s joined the chat!", username),
		IsSystem: true,
	}, now)

	result := RegisterResult{Token: token, IsNewUser: true, User: *u}
	summary := u.Summary(user.StatusOnline)
	m.mu.Unlock()

	metrics.UsersRegistered.Inc()
	metrics.MessagesAppended.WithLabelValues(joined.kind()).Inc()

	m.hub.Publish(Event{Type: EventUserJoined, Payload: summary}, nil)
	m.hub.Publish(Event{Type: EventMessageCreated, Payload: joined}, nil)

	m.logger.Info().Str("user_id", userID).Str("username", username).Msg("New user registered.")
	return result, nil
}

// Authenticate maps a token to its user id.
func (m *Manager) Authenticate(token string) (string, *errs.CustomError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.tokens.Authenticate(token)
	if !ok {
		return "", errs.NewError(errs.ErrUnauthorized)
	}
	return userID, nil
}

// authorizeLocked checks that token belongs to userID. m.mu must be held.
func (m *Manager) authorizeLocked(userID, token string) (*user.User, bool) {
	holder, ok := m.tokens.Authenticate(token)
	if !ok || holder != userID {
		return nil, false
	}
	return m.users.Get(userID)
}

// Send appends a user message. All checks run before anything is written:
// missing fields, token, send window, then text length.
func (m *Manager) Send(in SendInput) (Message, *errs.CustomError) {
	hasText := strings.TrimSpace(in.Text) != ""
	hasImage := strings.TrimSpace(in.ImageURL) != ""

	if in.UserID == "" || in.Token == "" || (!hasText && !hasImage) {
		return Message{}, errs.NewError(errs.ErrInvalidParams)
	}

	if hasImage {
		if !m.opts.Features.Images {
			return Message{}, errs.NewError(errs.ErrFeatureDisabled)
		}
		if !validImageURL(in.ImageURL) {
			return Message{}, errs.NewError(errs.ErrInvalidParams)
		}
	}

	m.mu.Lock()

	sender, ok := m.authorizeLocked(in.UserID, in.Token)
	if !ok {
		m.mu.Unlock()
		metrics.SendsRejected.WithLabelValues("unauthorized").Inc()
		return Message{}, errs.NewError(errs.ErrUnauthorized)
	}

	now := m.opts.Clock()
	if !m.messages.Allow(in.UserID, now) {
		m.mu.Unlock()
		metrics.SendsRejected.WithLabelValues("rate_limited").Inc()
		m.logger.Warn().Str("user_id", in.UserID).Msg("Send rejected by rate limit.")
		return Message{}, errs.NewError(errs.ErrSendRateLimited)
	}

	if m.opts.MaxTextLength > 0 && utf8.RuneCountInString(in.Text) > m.opts.MaxTextLength {
		m.mu.Unlock()
		metrics.SendsRejected.WithLabelValues("too_long").Inc()
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong, m.opts.MaxTextLength)
	}

	msg := m.messages.Append(Message{
		UserID:   sender.ID,
		Username: sender.Username,
		Text:     in.Text,
		ImageURL: strings.TrimSpace(in.ImageURL),
	}, now)
	m.presence.MarkOnline(sender.ID)
	m.mu.Unlock()

	metrics.MessagesAppended.WithLabelValues(msg.kind()).Inc()
	m.hub.Publish(Event{Type: EventMessageCreated, Payload: msg}, nil)

	m.logger.Debug().Int64("message_id", msg.ID).Str("user_id", msg.UserID).Msg("Message appended.")
	return msg, nil
}

// Messages returns the poll page for the caller and marks the caller online.
// A zero since returns the whole log; limit keeps only the newest entries.
func (m *Manager) Messages(token string, since time.Time, limit int) (Page, *errs.CustomError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.tokens.Authenticate(token)
	if !ok {
		return Page{}, errs.NewError(errs.ErrUnauthorized)
	}

	m.presence.MarkOnline(userID)

	return Page{
		Messages:    m.messages.Since(since, limit),
		OnlineCount: m.presence.OnlineCount(),
		TotalUsers:  m.users.Len(),
	}, nil
}

// Search finds users whose id or username contains query, case-insensitively.
func (m *Manager) Search(token, query string) ([]user.Summary, *errs.CustomError) {
	if !m.opts.Features.Search {
		return nil, errs.NewError(errs.ErrFeatureDisabled)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens.Authenticate(token); !ok {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	if utf8.RuneCountInString(query) < MinSearchQueryLength {
		return nil, errs.NewError(errs.ErrQueryTooShort, MinSearchQueryLength)
	}

	return m.users.Search(query), nil
}

// Online lists the users currently in the presence set.
func (m *Manager) Online(token string) ([]user.Summary, *errs.CustomError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens.Authenticate(token); !ok {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	return m.users.Resolve(m.presence.Snapshot()), nil
}

// UpdateProfile merges the non-empty fields of update into the user's profile.
func (m *Manager) UpdateProfile(userID, token string, update ProfileUpdate) (user.User, *errs.CustomError) {
	if !m.opts.Features.Profiles {
		return user.User{}, errs.NewError(errs.ErrFeatureDisabled)
	}

	if userID == "" || token == "" {
		return user.User{}, errs.NewError(errs.ErrInvalidParams)
	}

	avatar := strings.TrimSpace(update.Avatar)
	bio := strings.TrimSpace(update.Bio)

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.authorizeLocked(userID, token)
	if !ok {
		return user.User{}, errs.NewError(errs.ErrUnauthorized)
	}

	if avatar != "" && !validImageURL(avatar) {
		return user.User{}, errs.NewError(errs.ErrInvalidParams)
	}
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return user.User{}, errs.NewError(errs.ErrInvalidParams)
	}

	if avatar != "" {
		u.Avatar = avatar
	}
	if bio != "" {
		u.Bio = bio
	}

	m.logger.Info().Str("user_id", userID).Msg("Profile updated.")
	return *u, nil
}

// Stats reports totals for the status endpoint.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		TotalUsers:    m.users.Len(),
		OnlineUsers:   m.presence.OnlineCount(),
		TotalMessages: m.messages.Len(),
		Uptime:        m.opts.Clock().Sub(m.startedAt).Seconds(),
	}
}

// Connect creates a live subscriber and registers it with the hub.
// It reports false when the manager is shutting down.
func (m *Manager) Connect() (*Subscriber, bool) {
	sub := m.hub.NewSubscriber()
	if !m.hub.Register(sub) {
		return nil, false
	}
	return sub, true
}

// Associate binds sub to userID after checking token, marks the user online and
// announces it to every subscriber. A sub already bound to another user releases
// that user first, who goes offline.
func (m *Manager) Associate(sub *Subscriber, userID, token string) *errs.CustomError {
	m.mu.Lock()

	u, ok := m.authorizeLocked(userID, token)
	if !ok {
		m.mu.Unlock()
		return errs.NewError(errs.ErrUnauthorized)
	}

	prev := sub.UserID()
	if prev != "" && prev != u.ID {
		m.presence.MarkOffline(prev)
	}
	m.presence.MarkOnline(u.ID)
	payload := PresencePayload{UserID: u.ID, Username: u.Username}
	m.mu.Unlock()

	sub.setUserID(u.ID)
	if prev != "" && prev != u.ID {
		m.hub.Publish(Event{Type: EventUserOffline, Payload: PresencePayload{UserID: prev}}, nil)
	}
	m.hub.Publish(Event{Type: EventUserOnline, Payload: payload}, nil)

	m.logger.Info().Str("user_id", u.ID).Str("subscriber_id", sub.ID).Msg("User authenticated via live channel.")
	return nil
}

// Typing relays a typing notice from an associated subscriber to everyone else.
// Anonymous subscribers are ignored.
func (m *Manager) Typing(sub *Subscriber) bool {
	userID := sub.UserID()
	if userID == "" {
		return false
	}

	m.mu.Lock()
	u, ok := m.users.Get(userID)
	var payload PresencePayload
	if ok {
		payload = PresencePayload{UserID: u.ID, Username: u.Username}
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	m.hub.Publish(Event{Type: EventUserTyping, Payload: payload}, sub)
	return true
}

// Disconnect removes sub from the hub. If it was associated, the user is marked offline
// and the departure is announced.
func (m *Manager) Disconnect(sub *Subscriber) {
	m.hub.Unregister(sub)

	userID := sub.UserID()
	if userID == "" {
		return
	}

	m.mu.Lock()
	m.presence.MarkOffline(userID)
	m.mu.Unlock()

	m.hub.Publish(Event{Type: EventUserOffline, Payload: PresencePayload{UserID: userID}}, sub)
	m.logger.Info().Str("user_id", userID).Str("subscriber_id", sub.ID).Msg("User disconnected.")
}

// Shutdown stops the presence loop and the hub. Live subscribers see their queues closed.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down chat manager...")

	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
	m.hub.Stop()

	m.logger.Info().Msg("Chat manager shutdown complete.")
}

// validImageURL accepts absolute http(s) URLs and server-relative paths.
func validImageURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > MaxImageURLLength {
		return false
	}

	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
