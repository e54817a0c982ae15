// Package devserver is a small in-memory game authority for local play and
// end-to-end tests. It issues dev credentials, pairs players, decides
// attack outcomes and pushes updates over a WebSocket hub.
package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/freeeve/salvo/internal/auth"
	"github.com/freeeve/salvo/internal/logger"
	"github.com/freeeve/salvo/internal/middleware"
	"github.com/freeeve/salvo/internal/wire"
	"github.com/freeeve/salvo/pkg/fleet"
)

// Server holds the dev authority's state.
type Server struct {
	jwt   *auth.JWTManager
	hub   *Hub
	store *Store
}

// New creates a Server that signs tokens with jwtMgr.
func New(jwtMgr *auth.JWTManager) *Server {
	return &Server{jwt: jwtMgr, hub: NewHub(), store: NewStore()}
}

// Store returns the server's game store.
func (s *Server) Store() *Store { return s.store }

// Hub returns the server's push hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed HTTP handler.
func (s *Server) Handler(corsOrigin string) http.Handler {
	authed := auth.Middleware(s.jwt)
	api := func(h http.HandlerFunc) http.Handler { return middleware.JSON(h) }

	mux := http.NewServeMux()
	mux.Handle("GET /auth/dev", api(s.devLogin))
	mux.Handle("GET /auth/introspect", api(s.introspect))
	mux.Handle("POST /match/dev", authed(api(s.joinMatch)))
	mux.Handle("GET /state", authed(api(s.state)))
	mux.Handle("POST /submit-board", api(s.submitBoard))
	mux.Handle("POST /fire", api(s.fire))
	mux.HandleFunc("GET /ws", s.serveWS)

	return middleware.Chain(mux, middleware.Logger, middleware.CORS(corsOrigin))
}

// devLogin handles GET /auth/dev?name=. It returns a token for the named
// player, registering the name on first use.
func (s *Server) devLogin(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name parameter")
		return
	}
	p := s.store.User(name)
	token, err := s.jwt.GenerateAccessToken(p.ID, p.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"user_id":      p.ID,
	})
}

// introspect handles GET /auth/introspect. An unusable token is reported as
// inactive with a 200, not as an error.
func (s *Server) introspect(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerToken(r)
	if err != nil {
		writeJSON(w, http.StatusOK, wire.Introspection{Active: false})
		return
	}
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		writeJSON(w, http.StatusOK, wire.Introspection{Active: false})
		return
	}
	writeJSON(w, http.StatusOK, wire.Introspection{
		Active:   true,
		Subject:  claims.PlayerID(),
		Username: claims.Username,
	})
}

// joinMatch handles POST /match/dev. It blocks until a second player joins.
func (s *Server) joinMatch(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	token, _ := auth.BearerToken(r)
	p := Player{ID: claims.PlayerID(), Name: claims.Username}

	h, err := s.store.Join(r.Context(), p, token)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	matchLog := logger.ForMatch(h.GameID)
	matchLog.Info().Str("playerId", p.ID).Msg("Match formed")
	writeJSON(w, http.StatusOK, h)
}

// state handles GET /state?gameId=.
func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Game(r.URL.Query().Get("gameId"))
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.Snapshot())
}

// submitBoard handles POST /submit-board.
func (s *Server) submitBoard(w http.ResponseWriter, r *http.Request) {
	var req wire.SubmitBoardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, ok := s.authenticate(w, r, req.Token)
	if !ok {
		return
	}
	g, err := s.store.Game(req.GameID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	board, err := fleet.BoardFromRows(req.Board)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := g.SubmitBoard(playerID, board)
	if err != nil {
		writeGameError(w, err)
		return
	}
	matchLog := logger.ForMatch(g.ID)
	matchLog.Info().Str("playerId", playerID).Str("status", snap.Status).Msg("Board submitted")
	s.hub.BroadcastSnapshot(snap)
	writeJSON(w, http.StatusOK, snap)
}

// fire handles POST /fire.
func (s *Server) fire(w http.ResponseWriter, r *http.Request) {
	var req wire.FireRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, ok := s.authenticate(w, r, req.Token)
	if !ok {
		return
	}
	g, err := s.store.Game(req.GameID)
	if err != nil {
		writeGameError(w, err)
		return
	}

	cell := wire.Point{X: req.X, Y: req.Y}.Cell()
	resp, events, err := g.Fire(playerID, cell)
	if err != nil {
		writeGameError(w, err)
		return
	}
	matchLog := logger.ForMatch(g.ID)
	matchLog.Info().
		Str("playerId", playerID).
		Str("cell", cell.String()).
		Str("result", resp.Result).
		Bool("sunk", resp.Sunk).
		Msg("Shot fired")
	s.hub.BroadcastEvents(g.ID, events)
	if resp.GameOver {
		s.hub.BroadcastSnapshot(g.Snapshot())
	}
	writeJSON(w, http.StatusOK, resp)
}

// authenticate resolves the acting player from the bearer header, or from
// the token in the request body when no header is sent.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, bodyToken string) (string, bool) {
	token, err := auth.BearerToken(r)
	if errors.Is(err, auth.ErrMissingToken) {
		token, err = bodyToken, nil
	}
	if err == nil && token == "" {
		err = auth.ErrMissingToken
	}
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return "", false
	}
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return "", false
	}
	return claims.PlayerID(), true
}
