package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"estatedesk/auth"
	"estatedesk/collaboration"
	"estatedesk/logging"
	"estatedesk/property"
	"estatedesk/revenue"
	"estatedesk/session"
	"estatedesk/web"
)

type propertyService interface {
	List(ctx context.Context) ([]property.Property, error)
	Get(ctx context.Context, id int64) (property.Detail, error)
	Create(ctx context.Context, params property.Params) (property.Property, error)
	Update(ctx context.Context, id int64, params property.UpdateParams) (property.Property, error)
	Delete(ctx context.Context, id int64) error
	MarkSold(ctx context.Context, params property.MarkSoldParams) (property.SaleResult, error)
	AddInteraction(ctx context.Context, params property.InteractionParams) (property.Interaction, error)
}

type collaborationService interface {
	List(ctx context.Context, view collaboration.View) ([]collaboration.Row, error)
	Get(ctx context.Context, id int64) (collaboration.Detail, error)
	Create(ctx context.Context, params collaboration.Params) (collaboration.Collaboration, error)
	Update(ctx context.Context, id int64, params collaboration.Params) (collaboration.Collaboration, error)
	Delete(ctx context.Context, id int64) error
	AddInteraction(ctx context.Context, params collaboration.InteractionParams) (collaboration.Interaction, error)
	DeleteInteraction(ctx context.Context, collaborationID, interactionID int64) error
	Today() time.Time
}

type revenueService interface {
	Report(ctx context.Context, view revenue.View) (revenue.Report, error)
	Dashboard(ctx context.Context, view revenue.View) (revenue.Stats, error)
}

// Server wires HTTP handlers to the domain services.
type Server struct {
	verifier       auth.Verifier
	sessions       *session.Manager
	properties     propertyService
	collaborations collaborationService
	revenue        revenueService
	renderer       *web.Renderer
	health         func(ctx context.Context) error
	csrfKey        []byte
	cookieSecure   bool
}

// Routes builds the router with request logging and CSRF protection. Every
// page except login, logout and the health check sits behind the session gate,
// which runs before the CSRF check so anonymous form posts go to /login.
func (s *Server) Routes() http.Handler {
	protect := csrf.Protect(s.csrfKey,
		csrf.Secure(s.cookieSecure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFFailure)),
	)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Page not found")
	})

	r.Handle("/", protect(http.HandlerFunc(s.handleLogin))).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/login", protect(http.HandlerFunc(s.handleLogin))).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/logout", protect(http.HandlerFunc(s.handleLogout))).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	gated := r.NewRoute().Subrouter()
	gated.Use(s.requireSession, protect)

	gated.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)

	gated.HandleFunc("/properties", s.handleProperties).Methods(http.MethodGet)
	gated.HandleFunc("/properties/add", s.handleAddProperty).Methods(http.MethodGet, http.MethodPost)
	gated.HandleFunc("/properties/{id:[0-9]+}", s.handlePropertyDetail).Methods(http.MethodGet)
	gated.HandleFunc("/properties/{id:[0-9]+}/sold", s.handleMarkSold).Methods(http.MethodPost)
	gated.HandleFunc("/properties/{id:[0-9]+}/edit", s.handleEditProperty).Methods(http.MethodGet, http.MethodPost)
	gated.HandleFunc("/properties/{id:[0-9]+}/delete", s.handleDeleteProperty).Methods(http.MethodPost)
	gated.HandleFunc("/properties/{id:[0-9]+}/interactions/add", s.handleAddPropertyInteraction).Methods(http.MethodPost)

	gated.HandleFunc("/collaborations", s.handleCollaborations).Methods(http.MethodGet)
	gated.HandleFunc("/collaborations/add", s.handleAddCollaboration).Methods(http.MethodGet, http.MethodPost)
	gated.HandleFunc("/collaborations/{id:[0-9]+}", s.handleCollaborationDetail).Methods(http.MethodGet)
	gated.HandleFunc("/collaborations/{id:[0-9]+}/edit", s.handleEditCollaboration).Methods(http.MethodGet, http.MethodPost)
	gated.HandleFunc("/collaborations/{id:[0-9]+}/delete", s.handleDeleteCollaboration).Methods(http.MethodPost)
	gated.HandleFunc("/collaborations/{id:[0-9]+}/add_interaction", s.handleAddCollaborationInteraction).Methods(http.MethodPost)
	gated.HandleFunc("/collaborations/{id:[0-9]+}/interactions/add", s.handleAddCollaborationInteraction).Methods(http.MethodPost)
	gated.HandleFunc("/collaborations/{id:[0-9]+}/delete_interaction/{iid:[0-9]+}", s.handleDeleteCollaborationInteraction).Methods(http.MethodPost)

	gated.HandleFunc("/revenue/actual", s.handleRevenueActual).Methods(http.MethodGet)
	gated.HandleFunc("/revenue/adjusted", s.handleRevenueAdjusted).Methods(http.MethodGet)

	return s.logRequests(s.markPlaintext(r))
}

func (s *Server) markPlaintext(next http.Handler) http.Handler {
	if s.cookieSecure {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		info := &requestInfo{}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestInfo, info)))

		fields := logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}
		if info.user != "" {
			fields["user"] = info.user
		}
		logging.Logger.WithFields(fields).Info("request")
	})
}

type ctxKey string

const ctxKeyRequestInfo ctxKey = "requestInfo"

// requestInfo lets the session gate report the username to the access log.
type requestInfo struct {
	user string
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.currentSession(r)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				logging.Logger.WithError(err).Error("session lookup failed")
			}
			s.clearCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if info, ok := r.Context().Value(ctxKeyRequestInfo).(*requestInfo); ok {
			info.user = sess.Username
		}
		next.ServeHTTP(w, r.WithContext(session.WithPrincipal(r.Context(), sess)))
	})
}

func (s *Server) currentSession(r *http.Request) (session.Session, error) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		return session.Session{}, session.ErrNoSession
	}
	return s.sessions.Resolve(r.Context(), cookie.Value)
}

func (s *Server) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, page web.Page) {
	if err := s.renderer.Render(w, r, status, name, page); err != nil {
		logging.Logger.WithError(err).WithField("page", name).Error("render failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, title string) {
	s.render(w, r, status, "error", web.Page{Title: title})
}

// fail maps a service error onto a response. Unexpected errors are logged and
// never shown.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, property.ErrNotFound),
		errors.Is(err, collaboration.ErrNotFound),
		errors.Is(err, collaboration.ErrInteractionNotFound):
		s.renderError(w, r, http.StatusNotFound, "Not found")
	default:
		logging.Logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		s.renderError(w, r, http.StatusInternalServerError, "Something went wrong")
	}
}

func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	logging.Logger.WithField("reason", csrf.FailureReason(r)).Warn("csrf check failed")
	s.renderError(w, r, http.StatusForbidden, "Form expired, please go back and try again")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if s.health != nil {
		if err := s.health(ctx); err != nil {
			logging.Logger.WithError(err).Warn("health check failed")
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func principal(r *http.Request) session.Session {
	sess, _ := session.PrincipalFrom(r.Context())
	return sess
}
