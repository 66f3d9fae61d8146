package fakebackend

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// User mirrors the identity payload of the real auth backend.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type account struct {
	user     User
	password string
}

type authBody struct {
	Success       bool   `json:"success"`
	Authenticated bool   `json:"authenticated,omitempty"`
	Message       string `json:"message,omitempty"`
	User          *User  `json:"user,omitempty"`
}

// AddUser registers an account. Emails match case-insensitively.
func (s *Server) AddUser(user User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = int64(len(s.users) + 1)
	}
	s.users[strings.ToLower(strings.TrimSpace(user.Email))] = account{user: user, password: password}
}

// Sessions returns the number of live login sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, authBody{Message: "Email and password are required"})
	}

	s.mu.Lock()
	acct, ok := s.users[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok || acct.password != req.Password {
		s.mu.Unlock()
		return c.JSON(http.StatusUnauthorized, authBody{Message: "Invalid email or password"})
	}
	token := uuid.NewString()
	s.sessions[token] = strings.ToLower(acct.user.Email)
	s.mu.Unlock()

	c.SetCookie(&http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	user := acct.user
	return c.JSON(http.StatusOK, authBody{Success: true, Message: "Login successful", User: &user})
}

func (s *Server) handleLogout(c echo.Context) error {
	if ck, err := c.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, ck.Value)
		s.mu.Unlock()
	}
	c.SetCookie(&http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	return c.JSON(http.StatusOK, authBody{Success: true, Message: "Logged out"})
}

func (s *Server) handleCheck(c echo.Context) error {
	ck, err := c.Cookie(sessionCookie)
	if err != nil {
		return c.JSON(http.StatusOK, authBody{Success: true})
	}
	s.mu.Lock()
	email, ok := s.sessions[ck.Value]
	acct, found := s.users[email]
	s.mu.Unlock()
	if !ok || !found {
		return c.JSON(http.StatusOK, authBody{Success: true})
	}
	user := acct.user
	return c.JSON(http.StatusOK, authBody{Success: true, Authenticated: true, User: &user})
}
