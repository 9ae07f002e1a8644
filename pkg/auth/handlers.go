package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/antibyte/basicterm/pkg/configuration"
	"github.com/antibyte/basicterm/pkg/logger"
	"github.com/antibyte/basicterm/pkg/storage"
)

// Global reference to the user store, set once at startup.
var userStore *storage.Store

// SetStore wires the user store into the auth handlers.
func SetStore(store *storage.Store) {
	userStore = store
}

// CredentialsRequest is the body of register and login requests.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is the body of all session-issuing responses.
type SessionResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Username  string `json:"username,omitempty"`
	Message   string `json:"message"`
}

// HandleCreateSession creates a new guest session and returns its token.
func HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("invalid method for session creation: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !configuration.GetBool("Authentication", "enable_guest_access", true) {
		respondWithError(w, "Guest access is disabled", http.StatusForbidden)
		return
	}

	sessionID := "guest-" + uuid.NewString()
	token, err := GenerateGuestToken(sessionID)
	if err != nil {
		logger.AuthError("failed to generate guest token for session %s: %v", sessionID, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setTokenCookie(w, token)
	logger.AuthInfo("new guest session created: %s for IP: %s", sessionID, getClientIP(r))
	json.NewEncoder(w).Encode(SessionResponse{
		Success:   true,
		Token:     token,
		SessionID: sessionID,
		Message:   "Session created successfully",
	})
}

// HandleRegister creates a new user account and logs it in.
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("invalid method for registration: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if userStore == nil {
		respondWithError(w, "Registration unavailable", http.StatusServiceUnavailable)
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.AuthWarn("invalid JSON in register request: %v", err)
		respondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if err := userStore.CreateUser(req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserExists):
			respondWithError(w, "Username already taken", http.StatusConflict)
		case errors.Is(err, storage.ErrInvalidUsername), errors.Is(err, storage.ErrInvalidPassword):
			respondWithError(w, "Invalid username or password format", http.StatusBadRequest)
		default:
			logger.AuthError("failed to create user %s: %v", req.Username, err)
			respondWithError(w, "Registration failed", http.StatusInternalServerError)
		}
		return
	}

	issueUserSession(w, req.Username, "Registration successful")
}

// HandleLogin verifies credentials and issues a user session token.
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("invalid method for login: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if userStore == nil {
		respondWithError(w, "Login unavailable", http.StatusServiceUnavailable)
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.AuthWarn("invalid JSON in login request: %v", err)
		respondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if err := userStore.Authenticate(req.Username, req.Password); err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			respondWithError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		logger.AuthError("login failed for %s: %v", req.Username, err)
		respondWithError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	issueUserSession(w, req.Username, "Login successful")
}

func issueUserSession(w http.ResponseWriter, username, message string) {
	sessionID := "user-" + uuid.NewString()
	token, err := GenerateUserToken(sessionID, username)
	if err != nil {
		logger.AuthError("failed to generate user token for %s: %v", username, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setTokenCookie(w, token)
	json.NewEncoder(w).Encode(SessionResponse{
		Success:   true,
		Token:     token,
		SessionID: sessionID,
		Username:  username,
		Message:   message,
	})
}

// HandleTokenValidation validates a JWT token of either kind.
func HandleTokenValidation(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		logger.AuthWarn("no token found in validation request: %v", err)
		respondWithError(w, "Token not found", http.StatusUnauthorized)
		return
	}

	identity, err := ValidateToken(tokenString)
	if err != nil {
		logger.AuthWarn("token validation failed: %v", err)
		respondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	logger.AuthInfo("token validated for session: %s", identity.SessionID)
	json.NewEncoder(w).Encode(SessionResponse{
		Success:   true,
		SessionID: identity.SessionID,
		Username:  identity.Username,
		Message:   "Token valid",
	})
}

// HandleLogout clears the session token cookie.
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})

	logger.AuthInfo("user logged out, token cookie cleared")
	json.NewEncoder(w).Encode(SessionResponse{
		Success: true,
		Message: "Logout successful",
	})
}

func respondWithError(w http.ResponseWriter, message string, status int) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(SessionResponse{
		Success: false,
		Message: message,
	})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")
}

func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(getTokenExpiration().Seconds()),
		HttpOnly: true,  // XSS protection
		Secure:   false, // set to true behind HTTPS in production
		SameSite: http.SameSiteLaxMode,
	})
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for load balancers/proxies)
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
