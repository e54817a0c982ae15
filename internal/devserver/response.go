package devserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 64 << 10

// errorBody is the error envelope. Code is a stable machine-readable name
// for game rule violations; Error is the human-readable message clients show.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// gameErrors maps rule violations to their status and code.
var gameErrors = []struct {
	err    error
	status int
	code   string
}{
	{ErrGameNotFound, http.StatusNotFound, "game_not_found"},
	{ErrNotPlayer, http.StatusForbidden, "not_player"},
	{ErrBadBoard, http.StatusBadRequest, "bad_board"},
	{ErrOffGrid, http.StatusBadRequest, "off_grid"},
	{ErrNotYourTurn, http.StatusConflict, "not_your_turn"},
	{ErrAlreadyFired, http.StatusConflict, "already_fired"},
	{ErrBoardLocked, http.StatusConflict, "board_locked"},
	{ErrBoardsPending, http.StatusConflict, "boards_pending"},
	{ErrGameOver, http.StatusConflict, "game_over"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("Error encoding response")
	}
}

// writeError writes an error envelope without a code, for transport-level
// problems such as a bad body or a missing credential.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeGameError writes err with the status and code of the rule it
// violates. Anything unrecognised is a 500.
func writeGameError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Unhandled dev server error")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	for _, ge := range gameErrors {
		if errors.Is(err, ge.err) {
			return ge.status, ge.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// decodeJSON decodes a request body of at most maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
