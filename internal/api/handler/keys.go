package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/hirepipe/internal/api/middleware"
	"github.com/kiranshivaraju/hirepipe/internal/api/response"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const rawKeyPrefix = "hp_"

type createKeyResponse struct {
	*models.APIKey
	Key string `json:"key"`
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
// The raw key appears in this response only.
func NewCreateKeyHandler(keys store.APIKeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string   `json:"name"`
			Scopes  []string `json:"scopes"`
			ActorID string   `json:"actor_id"`
		}
		if !decodeBody(w, r, &req, false) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			response.BadRequest(w, "name is required")
			return
		}
		if len(req.Scopes) == 0 {
			req.Scopes = []string{models.ScopeRecruiter}
		}
		for _, s := range req.Scopes {
			if !models.KnownScope(s) {
				response.BadRequest(w, "unknown scope "+s)
				return
			}
		}
		actorID := uuid.New()
		if req.ActorID != "" {
			id, err := uuid.Parse(req.ActorID)
			if err != nil {
				response.BadRequest(w, "actor_id must be a valid UUID")
				return
			}
			actorID = id
		}

		raw, err := newRawKey()
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		now := time.Now().UTC()
		key := &models.APIKey{
			ID:        uuid.New(),
			ActorID:   actorID,
			Name:      strings.TrimSpace(req.Name),
			KeyHash:   string(hash),
			KeyPrefix: raw[:mw.KeyPrefixLen],
			Scopes:    req.Scopes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := keys.CreateAPIKey(r.Context(), key); err != nil {
			response.FromError(w, r, err)
			return
		}
		slog.Info("api key created", "key_id", key.ID, "key_prefix", key.KeyPrefix, "scopes", key.Scopes)
		response.Created(w, createKeyResponse{APIKey: key, Key: raw})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys.
func NewListKeysHandler(keys store.APIKeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := keys.ListAPIKeys(r.Context())
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		if list == nil {
			list = []*models.APIKey{}
		}
		response.Collection(w, list, len(list))
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/admin/keys/{keyID}.
func NewRevokeKeyHandler(keys store.APIKeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "keyID")
		if !ok {
			return
		}
		if err := keys.RevokeAPIKey(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "API key not found", nil)
				return
			}
			response.FromError(w, r, err)
			return
		}
		slog.Info("api key revoked", "key_id", id)
		response.NoContent(w)
	}
}

func newRawKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return rawKeyPrefix + hex.EncodeToString(b), nil
}
