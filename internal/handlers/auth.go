package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tripmate-core/internal/services/auth"
	"tripmate-core/pkg/utils"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetRequest struct {
	Email string `json:"email"`
}

type LoginResponse struct {
	OK    bool       `json:"ok"`
	Token string     `json:"token,omitempty"`
	User  *auth.User `json:"user,omitempty"`
}

// Login authenticates against the hosted identity provider and issues a local
// session token for the UI
func Login(session *auth.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		user, err := session.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			log.Printf("❌ Sign-in failed for %s: %v", req.Email, err)
			utils.JSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		issueSessionToken(w, user)
	}
}

// Signup creates an account with the hosted identity provider
func Signup(session *auth.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := session.SignUp(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			log.Printf("❌ Sign-up failed for %s: %v", req.Email, err)
			utils.Error(w, http.StatusUnauthorized, err.Error())
			return
		}

		issueSessionToken(w, user)
	}
}

// ResetPassword asks the provider to send a reset email
func ResetPassword(session *auth.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := session.SendPasswordReset(r.Context(), req.Email); err != nil {
			utils.Error(w, http.StatusBadGateway, err.Error())
			return
		}

		utils.Success(w, map[string]bool{"ok": true})
	}
}

// Logout signs the identity out; trip teardown follows via the auth listener
func Logout(session *auth.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session.SignOut()
		utils.Success(w, map[string]bool{"ok": true})
	}
}

func issueSessionToken(w http.ResponseWriter, user *auth.User) {
	jwtSecret := os.Getenv("APP_JWT_SECRET")
	if jwtSecret == "" {
		log.Println("❌ JWT secret not configured")
		utils.JSON(w, http.StatusInternalServerError, LoginResponse{OK: false})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Println("❌ Failed to create session token")
		utils.Error(w, http.StatusInternalServerError, "Failed to create token")
		return
	}

	log.Printf("✅ Login successful: %s", user.Email)
	utils.Success(w, LoginResponse{OK: true, Token: tokenString, User: user})
}
