package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/banpick-backend/internal/clock"
	"github.com/DoyleJ11/banpick-backend/internal/engine"
	"github.com/DoyleJ11/banpick-backend/internal/hub"
	"github.com/DoyleJ11/banpick-backend/internal/identity"
	"github.com/DoyleJ11/banpick-backend/internal/ws"
)

type Deps struct {
	Hub            *hub.Hub
	Gateway        *ws.Gateway
	Auth           identity.Authenticator
	Directory      identity.Directory
	Defaults       engine.Rules
	AllowedOrigins []string
	Clock          clock.Clock
	Log            *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Directory == nil {
		d.Directory = identity.StaticDirectory{}
	}
	h := &Handlers{
		hub:       d.Hub,
		gateway:   d.Gateway,
		directory: d.Directory,
		defaults:  d.Defaults,
		clock:     d.Clock,
		log:       d.Log.Named("http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.log))
	r.Use(CORS(d.AllowedOrigins))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
	})

	// Public routes
	r.Get("/healthz", h.Healthz)
	if d.Gateway != nil {
		r.Handle("/ws", d.Gateway)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(d.Auth))
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Post("/sessions/{id}/participants", h.AddParticipant)
		r.Post("/sessions/{id}/leave", h.Leave)
		r.Post("/sessions/{id}/start", h.Intent(engine.CmdStart))
		r.Post("/sessions/{id}/ready", h.Intent(engine.CmdSetReady))
		r.Post("/sessions/{id}/ban", h.Intent(engine.CmdBan))
		r.Post("/sessions/{id}/pick", h.Intent(engine.CmdPick))
	})
	return r
}
