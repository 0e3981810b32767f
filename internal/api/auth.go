package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/IlyasAtabaev731/inventory-service/internal/lib/jwt"
	"github.com/IlyasAtabaev731/inventory-service/internal/lib/logger/sl"
	"github.com/IlyasAtabaev731/inventory-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const msgInvalidCredentials = "Invalid credentials"

type AuthRequest struct {
	Username *string `json:"username" validate:"required"`
	Password *string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
}

func (s *APIServer) registerHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AuthRequest
		if err := s.decodeRequest(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		username := *req.Username

		_, err := s.storage.GetUser(r.Context(), username)
		switch {
		case err == nil:
			writeMessage(w, http.StatusBadRequest, "Username already exists!")
			return
		case !errors.Is(err, storage.ErrUserNotFound):
			s.logger.Error("Failed to get user", sl.Err(err))
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		passHash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.bcryptCost)
		if err != nil {
			s.logger.Error("Failed to hash password", sl.Err(err))
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		id, err := s.storage.SaveUser(r.Context(), username, passHash)
		if err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				writeMessage(w, http.StatusBadRequest, "Username already exists!")
				return
			}
			s.logger.Error("Failed to save user", sl.Err(err))
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		s.logger.Info("Register new user", slog.Int64("uid", id))

		writeMessage(w, http.StatusCreated, fmt.Sprintf("User %s registered successfully!", username))
	}
}

func (s *APIServer) loginHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AuthRequest
		if err := s.decodeRequest(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}

		user, err := s.storage.GetUser(r.Context(), *req.Username)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				writeMessage(w, http.StatusUnauthorized, msgInvalidCredentials)
				return
			}
			s.logger.Error("Failed to get user", sl.Err(err))
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.Password)); err != nil {
			writeMessage(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}

		token, err := jwt.NewToken(user, s.jwtSecret, s.tokenTTL)
		if err != nil {
			s.logger.Error("Failed to issue token", sl.Err(err))
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, AuthResponse{AccessToken: token})
	}
}

func (s *APIServer) protectedHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		writeMessage(w, http.StatusOK, fmt.Sprintf("Welcome, user %d! This is a protected route.", userID))
	}
}

func (s *APIServer) healthHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.storage.Ping(r.Context()); err != nil {
			s.logger.Error("Storage ping failed", sl.Err(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
