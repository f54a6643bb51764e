package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	"github.com/tinywideclouds/go-pap-service/pkg/dispatch"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// A device PIN is eight hex digits.
var pinPattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

type TokenAPI struct {
	Store  dispatch.TokenStore
	Logger *slog.Logger
}

func NewTokenAPI(store dispatch.TokenStore, logger *slog.Logger) *TokenAPI {
	return &TokenAPI{
		Store:  store,
		Logger: logger,
	}
}

type PINRequest struct {
	PIN string `json:"pin"`
}

// RegisterPIN stores the caller's device PIN.
func (api *TokenAPI) RegisterPIN(w http.ResponseWriter, r *http.Request) {
	userURN, pin, ok := api.decode(w, r)
	if !ok {
		return
	}

	if err := api.Store.Register(r.Context(), userURN, pin); err != nil {
		api.Logger.Error("failed to register pin", "user", userURN, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}
	api.Logger.Info("RegisterPIN: Device registered", "user", userURN)

	w.WriteHeader(http.StatusNoContent)
}

// UnregisterPIN removes the caller's device PIN.
func (api *TokenAPI) UnregisterPIN(w http.ResponseWriter, r *http.Request) {
	userURN, pin, ok := api.decode(w, r)
	if !ok {
		return
	}

	if err := api.Store.Unregister(r.Context(), userURN, pin); err != nil {
		api.Logger.Warn("failed to unregister pin", "user", userURN, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "failed to unregister pin")
		return
	}
	api.Logger.Info("UnregisterPIN: Device unregistered", "user", userURN)

	w.WriteHeader(http.StatusNoContent)
}

// decode resolves the authenticated user and validates the PIN body,
// writing the error response itself when it returns false.
func (api *TokenAPI) decode(w http.ResponseWriter, r *http.Request) (user urn.URN, pin string, ok bool) {
	userID, found := middleware.GetUserHandleFromContext(r.Context())
	if !found {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return user, "", false
	}
	user, err := urn.Parse(userID)
	if err != nil {
		api.Logger.Warn("Authenticated user is not a URN", "user", userID, "err", err)
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return user, "", false
	}

	var req PINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return user, "", false
	}

	pin = strings.ToUpper(strings.TrimSpace(req.PIN))
	if pin == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing pin")
		return user, "", false
	}
	if !pinPattern.MatchString(pin) {
		response.WriteJSONError(w, http.StatusBadRequest, "pin must be 8 hex digits")
		return user, "", false
	}
	return user, pin, true
}
