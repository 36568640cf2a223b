package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/ashureev/inapp-redirector/internal/redirect"
	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Message types sent to the page.
const (
	TypeLog        = "log"
	TypeReplaceURL = "replace_url"
	TypeNavigate   = "navigate"
	TypeFallback   = "fallback"
	TypeSession    = "session"
	TypeError      = "error"
)

// Message is the JSON frame exchanged with the page script.
type Message struct {
	Type    string           `json:"type"`
	Entry   *domain.LogEntry `json:"entry,omitempty"`
	URL     string           `json:"url,omitempty"`
	URI     string           `json:"uri,omitempty"`
	Session string           `json:"session,omitempty"`
	State   string           `json:"state,omitempty"`
	Content string           `json:"content,omitempty"`
}

var errHostMismatch = errors.New("page url host does not match")

// Handler upgrades a page's WebSocket and runs one redirect session for it.
type Handler struct {
	ctrl           *redirect.Controller
	registry       *Registry
	publicHost     string
	originPatterns []string
}

// NewHandler creates a page handler. publicHost, when set, is the only host
// page URLs may name; otherwise the request Host is used.
func NewHandler(ctrl *redirect.Controller, registry *Registry, publicHost string) *Handler {
	h := &Handler{
		ctrl:       ctrl,
		registry:   registry,
		publicHost: publicHost,
	}
	if publicHost != "" {
		h.originPatterns = []string{publicHost}
	}
	return h
}

// ServeHTTP implements http.Handler for the page WebSocket.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if err := h.checkPageURL(r, pageURL); err != nil {
		slog.Warn("Page URL rejected", "url", pageURL, "error", err)
		http.Error(w, `{"error":"invalid page url"}`, http.StatusBadRequest)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "page closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &Conn{ws: ws}
	sess := h.ctrl.Open(ctx, r.UserAgent(), pageURL, conn)
	h.registry.Register(sess.ID(), ws)
	defer func() {
		cancel()
		sess.Close()
		h.registry.Unregister(sess.ID(), ws)
	}()

	slog.Info("Page session opened", "session_id", sess.ID(), "state", sess.State().String(), "ip", r.RemoteAddr)
	if err := conn.send(ctx, Message{Type: TypeSession, Session: sess.ID(), State: sess.State().String()}); err != nil {
		slog.Debug("Failed to send session message", "error", err)
		return
	}

	// The page has nothing to say; reading only detects when it goes away.
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Page closed by client", "session_id", sess.ID())
			} else if ctx.Err() == nil {
				slog.Debug("Page read error", "session_id", sess.ID(), "error", err)
			}
			return
		}
	}
}

func (h *Handler) checkPageURL(r *http.Request, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parse page url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := h.publicHost
	if host == "" {
		host = r.Host
	}
	if u.Host != host {
		return fmt.Errorf("%w: %q != %q", errHostMismatch, u.Host, host)
	}
	return nil
}

// Conn adapts a WebSocket to redirect.Page.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// ReplaceURL implements redirect.Page.
func (c *Conn) ReplaceURL(ctx context.Context, url string) error {
	return c.send(ctx, Message{Type: TypeReplaceURL, URL: url})
}

// Navigate implements redirect.Page.
func (c *Conn) Navigate(ctx context.Context, uri string) error {
	return c.send(ctx, Message{Type: TypeNavigate, URI: uri})
}

// ShowFallback implements redirect.Page.
func (c *Conn) ShowFallback(ctx context.Context, uri string) error {
	return c.send(ctx, Message{Type: TypeFallback, URI: uri})
}

// AppendLog implements redirect.Page.
func (c *Conn) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	return c.send(ctx, Message{Type: TypeLog, Entry: &entry})
}

func (c *Conn) send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write %s message: %w", msg.Type, err)
	}
	return nil
}
