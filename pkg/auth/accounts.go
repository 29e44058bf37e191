// Package auth provides the account provisioning boundary: signup and
// login over HTTP. It verifies nothing about chat operations; any connected
// party may read or mutate any mirror.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"relaychat/pkg/logger"
	"relaychat/pkg/models"
	"relaychat/pkg/store"
	"relaychat/pkg/utils"
)

// bcrypt cost 10 keeps signup latency acceptable on small hosts.
const bcryptCost = 10

// ErrExists is returned by CreateAccount when the identifier is taken.
var ErrExists = fmt.Errorf("account already exists")

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register installs the signup and login handlers.
func Register(r *mux.Router) {
	r.HandleFunc("/signup", signup).Methods(http.MethodPost)
	r.HandleFunc("/login", login).Methods(http.MethodPost)
}

// CreateAccount hashes the secret and stores a fresh account record with an
// empty mirror. The exists-check and the write run in one load-mutate-save
// cycle so signup cannot race a mutation into a lost update.
func CreateAccount(id, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return err
	}
	return store.Update(func(snap models.Snapshot) (bool, error) {
		if _, ok := snap[id]; ok {
			return false, ErrExists
		}
		snap[id] = models.Account{Password: string(hash), Messages: []models.Message{}}
		return true, nil
	})
}

// VerifyAccount checks the secret against the stored hash.
func VerifyAccount(id, secret string) error {
	acct, ok := store.GetAccount(id)
	if !ok {
		return fmt.Errorf("account not found")
	}
	return bcrypt.CompareHashAndPassword([]byte(acct.Password), []byte(secret))
}

func signup(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if c.Username == "" || c.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "Username and password required")
		return
	}
	if err := CreateAccount(c.Username, c.Password); err != nil {
		if err == ErrExists {
			utils.JSONError(w, http.StatusBadRequest, "Username taken")
			return
		}
		logger.Error("signup_failed", "username", c.Username, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "signup failed")
		return
	}
	logger.Info("account_created", "username", c.Username)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"message": "Signup successful"})
}

func login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if c.Username == "" || c.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "Username and password required")
		return
	}
	if _, ok := store.GetAccount(c.Username); !ok {
		utils.JSONError(w, http.StatusBadRequest, "User not found")
		return
	}
	if err := VerifyAccount(c.Username, c.Password); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid password")
		return
	}
	logger.Info("login_ok", "username", c.Username)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"username": c.Username,
	})
}
