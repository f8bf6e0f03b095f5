package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/update"
)

// Checker starts a background release check
type Checker interface {
	StartCheck() error
}

// Handler turns GitHub release webhooks for the firmware repository into release checks
type Handler struct {
	checker    Checker
	repository string
	secret     string // Optional webhook secret for validation
}

// NewHandler creates a new webhook handler
func NewHandler(checker Checker, repository, secret string) *Handler {
	return &Handler{
		checker:    checker,
		repository: repository,
		secret:     secret,
	}
}

// GitHubWebhookPayload represents a GitHub release webhook payload
type GitHubWebhookPayload struct {
	Action     string     `json:"action"`
	Release    Release    `json:"release"`
	Repository Repository `json:"repository"`
}

type Release struct {
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
	Draft      bool   `json:"draft"`
}

type Repository struct {
	FullName string `json:"full_name"`
}

// HandleGitHubWebhook handles POST /webhook/github
func (h *Handler) HandleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	if h.secret != "" && !validSignature(h.secret, body, r.Header.Get("X-Hub-Signature-256")) {
		h.writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	if event := r.Header.Get("X-GitHub-Event"); event == "ping" {
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
		return
	}

	var payload GitHubWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	// Only process release events
	if payload.Action != "published" && payload.Action != "released" {
		log.Debugf("Ignoring webhook action: %s", payload.Action)
		h.writeJSON(w, http.StatusOK, map[string]string{
			"message": "ignored",
			"action":  payload.Action,
		})
		return
	}

	if !strings.EqualFold(payload.Repository.FullName, h.repository) {
		h.writeJSON(w, http.StatusOK, map[string]string{
			"message":    "ignored repository",
			"repository": payload.Repository.FullName,
		})
		return
	}

	// Ignore drafts and prereleases
	if payload.Release.Draft || payload.Release.Prerelease {
		log.Debugf("Ignoring draft/prerelease: %s", payload.Release.TagName)
		h.writeJSON(w, http.StatusOK, map[string]string{
			"message": "ignored draft/prerelease",
		})
		return
	}

	log.Infof("Received GitHub webhook for %s: %s", payload.Repository.FullName, payload.Release.TagName)

	if err := h.checker.StartCheck(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, update.ErrBusy) {
			status = http.StatusConflict
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":    "release check started",
		"repository": payload.Repository.FullName,
		"version":    payload.Release.TagName,
	})
}

func validSignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
