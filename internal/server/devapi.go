package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
)

// Version is reported by the dev API health endpoint.
const Version = "dev"

// DefaultTokenTTL is how long dev API tokens stay valid.
const DefaultTokenTTL = 24 * time.Hour

// DevOptions configures a [DevAPI].
type DevOptions struct {
	Logger     *log.Logger
	TokenTTL   time.Duration    // zero means [DefaultTokenTTL]
	BcryptCost int              // zero means [bcrypt.DefaultCost]
	Now        func() time.Time // zero means time.Now
}

type devUser struct {
	user models.User
	hash []byte
}

type devToken struct {
	userID  string
	expires time.Time
}

type devVideo struct {
	userID   string
	filename string
	size     int64
	metadata map[string]any
	uploaded time.Time
}

type practiceLog struct {
	techniqueID string
	result      models.PracticeResult
	at          time.Time
}

// DevAPI is an in-memory implementation of the coaching API for local development and tests.
//
// All state is lost when the process exits.
type DevAPI struct {
	mu     sync.Mutex
	logger *log.Logger
	ttl    time.Duration
	cost   int
	now    func() time.Time

	users    map[string]*devUser // by id
	emails   map[string]string   // lowercased email to user id
	tokens   map[string]devToken
	resets   map[string]string // reset token to user id
	sessions map[string]*models.TrainingSession
	messages map[string][]models.ChatMessage // by user id
	tasks    map[string][]models.Task        // by user id
	progress map[string][]models.ProgressEntry
	practice map[string][]practiceLog
	videos   map[string]devVideo
}

// NewDevAPI creates an empty [DevAPI].
func NewDevAPI(opts DevOptions) *DevAPI {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &DevAPI{
		logger:   shared.WithLogger(opts.Logger, "component", "devapi"),
		ttl:      opts.TokenTTL,
		cost:     opts.BcryptCost,
		now:      opts.Now,
		users:    map[string]*devUser{},
		emails:   map[string]string{},
		tokens:   map[string]devToken{},
		resets:   map[string]string{},
		sessions: map[string]*models.TrainingSession{},
		messages: map[string][]models.ChatMessage{},
		tasks:    map[string][]models.Task{},
		progress: map[string][]models.ProgressEntry{},
		practice: map[string][]practiceLog{},
		videos:   map[string]devVideo{},
	}
}

// NewDevRouter returns a [BasicRouter] serving api with request logging and panic recovery.
func NewDevRouter(api *DevAPI, logger *log.Logger) *BasicRouter {
	if logger == nil {
		logger = log.Default()
	}
	r := NewBasicRouter()
	r.Use(Recoverer(logger), RequestLogger(logger))
	r.Handler(api)
	return r
}

// Routes implements [Handler].
func (d *DevAPI) Routes() []Route {
	return []Route{
		{http.MethodGet, "/health", d.health},

		{http.MethodPost, "/auth/login", d.login},
		{http.MethodPost, "/auth/register", d.register},
		{http.MethodPost, "/auth/demo", d.demo},
		{http.MethodPost, "/auth/logout", d.logout},
		{http.MethodPost, "/auth/refresh", d.authed(d.refresh)},
		{http.MethodGet, "/auth/verify", d.authed(d.verify)},
		{http.MethodPost, "/auth/reset-password", d.requestReset},
		{http.MethodPost, "/auth/reset-password/confirm", d.confirmReset},

		{http.MethodGet, "/user/profile", d.authed(d.profile)},
		{http.MethodPut, "/user/profile", d.authed(d.updateProfile)},
		{http.MethodGet, "/user/{id}/stats", d.authed(d.userStats)},
		{http.MethodGet, "/user/{id}/sessions/recent", d.authed(d.recentSessions)},

		{http.MethodPost, "/training/sessions", d.authed(d.startSession)},
		{http.MethodGet, "/training/sessions", d.authed(d.listSessions)},
		{http.MethodPut, "/training/sessions/{id}/end", d.authed(d.endSession)},
		{http.MethodGet, "/training/sessions/{id}", d.authed(d.getSession)},

		{http.MethodPost, "/chat/message", d.authed(d.chatMessage)},
		{http.MethodGet, "/chat/history", d.authed(d.chatHistory)},
		{http.MethodGet, "/chat/personas", d.authed(d.personas)},

		{http.MethodGet, "/tasks", d.authed(d.listTasks)},
		{http.MethodPost, "/tasks", d.authed(d.createTask)},
		{http.MethodPut, "/tasks/{id}", d.authed(d.updateTask)},
		{http.MethodDelete, "/tasks/{id}", d.authed(d.deleteTask)},
		{http.MethodPatch, "/tasks/{id}/complete", d.authed(d.completeTask)},

		{http.MethodGet, "/techniques", d.authed(d.listTechniques)},
		{http.MethodGet, "/techniques/{id}", d.authed(d.getTechnique)},
		{http.MethodPost, "/techniques/{id}/practice", d.authed(d.logPractice)},

		{http.MethodGet, "/progress", d.authed(d.listProgress)},
		{http.MethodPost, "/progress", d.authed(d.recordProgress)},
		{http.MethodGet, "/progress/skills", d.authed(d.skills)},

		{http.MethodPost, "/video/upload", d.authed(d.uploadVideo)},
		{http.MethodGet, "/video/{id}/analysis", d.authed(d.videoAnalysis)},
		{http.MethodGet, "/video/{id}/feedback", d.authed(d.videoFeedback)},
	}
}

// ExpireTokens invalidates every issued token, as if each one had outlived its lifetime.
func (d *DevAPI) ExpireTokens() {
	d.mu.Lock()
	defer d.mu.Unlock()
	past := d.now().Add(-time.Second)
	for token, t := range d.tokens {
		t.expires = past
		d.tokens[token] = t
	}
}

// ResetToken returns the pending password reset token for email, which a real server would send by mail.
func (d *DevAPI) ResetToken(email string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.emails[normalizeEmail(email)]
	if !ok {
		return "", false
	}
	for token, userID := range d.resets {
		if userID == id {
			return token, true
		}
	}
	return "", false
}

type userHandler func(w http.ResponseWriter, r *http.Request, u *devUser)

// authed resolves the bearer token to a user, answering 401 when it is missing, unknown or expired.
func (d *DevAPI) authed(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		d.mu.Lock()
		t, found := d.tokens[token]
		var u *devUser
		if found {
			u = d.users[t.userID]
		}
		expired := found && !d.now().Before(t.expires)
		if expired {
			delete(d.tokens, token)
		}
		d.mu.Unlock()

		switch {
		case !found || u == nil:
			WriteError(w, http.StatusUnauthorized, "Invalid token")
		case expired:
			WriteError(w, http.StatusUnauthorized, "Token expired")
		default:
			next(w, r, u)
		}
	}
}

// issueToken must be called with d.mu held.
func (d *DevAPI) issueToken(userID string) string {
	token := uuid.New().String()
	d.tokens[token] = devToken{userID: userID, expires: d.now().Add(d.ttl)}
	return token
}

// revokeUser drops every token of userID. Must be called with d.mu held.
func (d *DevAPI) revokeUser(userID string) {
	for token, t := range d.tokens {
		if t.userID == userID {
			delete(d.tokens, token)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *DevAPI) health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, models.HealthStatus{Status: "ok", Version: Version, Time: d.now().UTC()})
}
