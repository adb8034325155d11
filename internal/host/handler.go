// Package host is a development stand-in for the runtime behind the bridge.
// It answers the user data screen's requests from a profile store and a
// directory of remote identities.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/standardbeagle/webview/internal/bridge"
	"github.com/standardbeagle/webview/internal/store"
	"github.com/standardbeagle/webview/internal/userdata"
	"github.com/standardbeagle/webview/pkg/events"
)

const StatusSaved = "User data saved."

var (
	errMissingUser     = errors.New("missing user id")
	errMissingUserData = errors.New("missing user data")
	errUserMismatch    = errors.New("user id does not match session")
)

// Directory maps user ids to remote identities.
type Directory struct {
	mu    sync.RWMutex
	users map[string]userdata.RemoteProfile
}

func NewDirectory(profiles ...userdata.RemoteProfile) *Directory {
	d := &Directory{users: make(map[string]userdata.RemoteProfile)}
	for _, p := range profiles {
		d.Register(p)
	}
	return d
}

// Register adds or replaces a remote identity.
func (d *Directory) Register(p userdata.RemoteProfile) {
	if p.UserID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[p.UserID] = p
}

func (d *Directory) Lookup(userID string) (userdata.RemoteProfile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.users[userID]
	return p, ok
}

type sessionKey struct{}

// WithSession binds the connection's session to ctx. Requests for another
// user are refused when a session is bound.
func WithSession(ctx context.Context, session bridge.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func sessionFrom(ctx context.Context) (bridge.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(bridge.Session)
	return s, ok
}

// Handler implements bridge.Responder for the user data messages.
type Handler struct {
	store     store.Store
	directory *Directory
	logger    *slog.Logger
}

func NewHandler(st store.Store, directory *Directory, logger *slog.Logger) *Handler {
	if directory == nil {
		directory = NewDirectory()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{store: st, directory: directory, logger: logger}
}

// Respond answers one request. Unknown kinds get no reply.
func (h *Handler) Respond(ctx context.Context, msg events.Message) []events.Message {
	var (
		reply events.Message
		err   error
	)

	switch msg.Type {
	case userdata.KindFetchUserData:
		reply, err = h.fetchUserData(ctx, msg)
	case userdata.KindSetUserData:
		reply, err = h.setUserData(ctx, msg)
	default:
		h.logger.Debug("ignoring message", "kind", msg.Type)
		return nil
	}

	if err != nil {
		h.logger.Error("failed to build reply", "kind", msg.Type, "error", err)
		return nil
	}
	return []events.Message{reply}
}

func (h *Handler) fetchUserData(ctx context.Context, msg events.Message) (events.Message, error) {
	var resp userdata.FetchUserDataResponse

	var req userdata.FetchUserDataRequest
	if err := msg.Decode(&req); err != nil {
		h.logger.Warn("bad fetch request", "error", err)
		return events.NewMessage(userdata.KindFetchUserDataResponse, resp)
	}
	if err := checkUser(ctx, req.UserID); err != nil {
		h.logger.Warn("refusing fetch", "user", req.UserID, "error", err)
		return events.NewMessage(userdata.KindFetchUserDataResponse, resp)
	}

	if remote, ok := h.directory.Lookup(req.UserID); ok {
		resp.RedditUser = userdata.Some(remote)
	}

	profile, found, err := h.store.Get(req.UserID)
	switch {
	case err != nil:
		h.logger.Error("failed to load profile", "user", req.UserID, "error", err)
	case found:
		resp.DBUser = userdata.Some(*profile)
	default:
		resp.DBUser = userdata.Some(userdata.AppProfile{Weapons: []string{}})
	}

	h.logger.Info("fetch user data", "user", req.UserID, "found", found)
	return events.NewMessage(userdata.KindFetchUserDataResponse, resp)
}

func (h *Handler) setUserData(ctx context.Context, msg events.Message) (events.Message, error) {
	status := StatusSaved
	if err := h.save(ctx, msg); err != nil {
		h.logger.Warn("save failed", "error", err)
		status = fmt.Sprintf("Failed to save user data: %v", err)
	}
	return events.NewMessage(userdata.KindSetUserDataResponse, userdata.SetUserDataResponse{
		Status: userdata.Some(status),
	})
}

func (h *Handler) save(ctx context.Context, msg events.Message) error {
	var req userdata.SetUserDataRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}
	if err := checkUser(ctx, req.UserID); err != nil {
		return err
	}
	if req.UserData == nil {
		return errMissingUserData
	}
	if err := h.store.Put(req.UserID, *req.UserData); err != nil {
		return err
	}
	h.logger.Info("set user data", "user", req.UserID, "weapons", len(req.UserData.Weapons))
	return nil
}

func checkUser(ctx context.Context, userID string) error {
	if userID == "" {
		return errMissingUser
	}
	if session, ok := sessionFrom(ctx); ok && session.UserID != "" && session.UserID != userID {
		return errUserMismatch
	}
	return nil
}
