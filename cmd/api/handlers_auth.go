package main

import (
	"errors"
	"net/http"
	"net/url"

	"estatedesk/auth"
	"estatedesk/logging"
	"estatedesk/revenue"
	"estatedesk/session"
	"estatedesk/web"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if _, err := s.currentSession(r); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		s.render(w, r, http.StatusOK, "login", web.Page{Title: "Login"})
		return
	}

	vals, err := postForm(r)
	if err != nil {
		s.render(w, r, http.StatusBadRequest, "login", web.Page{Title: "Login", Error: "Invalid form submission"})
		return
	}
	req := auth.LoginRequest{Username: field(vals, "username"), Password: vals.Get("password")}

	role, err := s.verifier.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logging.Logger.WithError(err).Error("credential check failed")
		}
		s.render(w, r, http.StatusUnauthorized, "login", web.Page{
			Title: "Login",
			Error: "Invalid credentials",
			Form:  web.Form{Values: url.Values{"username": {req.Username}}},
		})
		return
	}

	token, sess, err := s.sessions.Issue(r.Context(), req.Username, role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setCookie(w, token, sess.ExpiresAt)
	logging.Logger.WithField("user", sess.Username).WithField("role", sess.Role).Info("login")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := s.sessions.Revoke(r.Context(), cookie.Value); err != nil {
			logging.Logger.WithError(err).Warn("session revoke failed")
		}
	}
	s.clearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := revenue.ViewForRole(principal(r).Role)
	stats, err := s.revenue.Dashboard(r.Context(), view)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard", web.Page{Title: "Dashboard", Data: stats})
}

func (s *Server) handleRevenueActual(w http.ResponseWriter, r *http.Request) {
	if !principal(r).IsSuperAdmin() {
		http.Redirect(w, r, "/revenue/adjusted", http.StatusSeeOther)
		return
	}
	s.renderRevenue(w, r, revenue.ViewActual)
}

func (s *Server) handleRevenueAdjusted(w http.ResponseWriter, r *http.Request) {
	s.renderRevenue(w, r, revenue.ViewAdjusted)
}

func (s *Server) renderRevenue(w http.ResponseWriter, r *http.Request, view revenue.View) {
	report, err := s.revenue.Report(r.Context(), view)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "revenue", web.Page{Title: "Revenue", Data: report})
}
