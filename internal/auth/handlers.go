package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pitchside/pitchside/internal/apperrors"
	"github.com/pitchside/pitchside/internal/audit"
	"github.com/rs/zerolog/log"
)

// ErrEmailTaken is returned when a signup email is already registered.
var ErrEmailTaken = errors.New("email is already registered")

// User represents a registered account.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	if len(email) > 320 {
		return "", errors.New("email is too long")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", errors.New("invalid email address")
	}
	return email, nil
}

func createUser(ctx context.Context, pool *pgxpool.Pool, email, passwordHash, displayName string) (*User, error) {
	var user User
	err := pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, display_name)
		VALUES ($1, $2, $3)
		RETURNING id, email, display_name, created_at
	`, email, passwordHash, displayName).Scan(&user.ID, &user.Email, &user.DisplayName, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// HandleSignup handles POST /api/v1/auth/signup
func HandleSignup(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email, err := normalizeEmail(req.Email)
		if err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		if len(req.Password) < 8 {
			apperrors.WriteBadRequest(w, r, "Password must be at least 8 characters")
			return
		}
		if len(req.Password) > 128 {
			apperrors.WriteBadRequest(w, r, "Password is too long")
			return
		}

		displayName := strings.TrimSpace(req.DisplayName)
		if displayName == "" {
			apperrors.WriteBadRequest(w, r, "Display name is required")
			return
		}
		if len(displayName) > 120 {
			apperrors.WriteBadRequest(w, r, "Display name is too long")
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		user, err := createUser(ctx, pool, email, hash, displayName)
		if err != nil {
			if errors.Is(err, ErrEmailTaken) {
				apperrors.WriteConflict(w, r, "Email is already registered")
				return
			}
			log.Error().Err(err).Msg("Failed to create user")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		if err := auditor.LogUserSignup(ctx, user.ID, user.Email); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"user": user,
		})
	}
}

// HandleLogin handles POST /api/v1/auth/login
func HandleLogin(pool *pgxpool.Pool, auditor *audit.Writer, jwtSecret string, sessionDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email, err := normalizeEmail(req.Email)
		if err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		var user User
		var passwordHash string
		err = pool.QueryRow(ctx, `
			SELECT id, email, display_name, password_hash, created_at
			FROM users
			WHERE email = $1
		`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &passwordHash, &user.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeLoginFailed(w, r, ctx, auditor, email)
				return
			}
			log.Error().Err(err).Msg("Failed to load user")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		if err := VerifyPassword(passwordHash, req.Password); err != nil {
			writeLoginFailed(w, r, ctx, auditor, email)
			return
		}

		token, err := CreateToken(user.ID, jwtSecret, sessionDays)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create session token")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, LoginResponse{
			Token: token,
			User:  user,
		})
	}
}

func writeLoginFailed(w http.ResponseWriter, r *http.Request, ctx context.Context, auditor *audit.Writer, email string) {
	if err := auditor.LogLoginFailed(ctx, email, r.RemoteAddr); err != nil {
		log.Error().Err(err).Msg("Failed to log audit event")
	}
	apperrors.WriteUnauthorized(w, r, "Invalid email or password")
}
