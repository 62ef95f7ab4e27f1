package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"labyrinth-server/auth"
	"labyrinth-server/config"
	"labyrinth-server/engine"
	"labyrinth-server/model"
	"labyrinth-server/storage"
	"labyrinth-server/tournament"
)

const bearerPrefix = "Bearer "

// Handler holds dependencies for API handlers. All reads go through the
// engine's read-only view; state changes go through Op.
type Handler struct {
	Config *config.Config
	Engine *engine.Engine
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(cfg *config.Config, eng *engine.Engine) *Handler {
	return &Handler{Config: cfg, Engine: eng}
}

// Register installs all routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/op", h.Op)
	mux.HandleFunc("/api/active_tournament", h.ActiveTournament)
	mux.HandleFunc("/api/tournaments", h.Tournaments)
	mux.HandleFunc("/api/tournament", h.Tournament)
	mux.HandleFunc("/api/leaderboard", h.Leaderboard)
	mux.HandleFunc("/api/recent_runs", h.RecentRuns)
	mux.HandleFunc("/api/run", h.Run)
	mux.HandleFunc("/api/player", h.Player)
	mux.HandleFunc("/api/player_runs", h.PlayerRuns)
	mux.HandleFunc("/api/tournament_player", h.TournamentPlayer)
	mux.HandleFunc("/api/reward", h.Reward)
	mux.HandleFunc("/api/stats", h.Stats)
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// extractSigner validates the Authorization header and returns the signer
// token, or empty string on failure.
func (h *Handler) extractSigner(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	claims, err := auth.ValidateToken(h.Config.AuthBaseURL, token)
	if err != nil {
		return ""
	}
	return auth.SignerFromClaims(claims)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encode response: %v", err)
	}
}

// limitParam parses ?limit= with the configured default and cap.
func (h *Handler) limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = h.Config.QueryLimitDefault
	}
	if limit > h.Config.QueryLimitMax {
		limit = h.Config.QueryLimitMax
	}
	return limit
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// ActiveTournament returns the currently active tournament, or null.
func (h *Handler) ActiveTournament(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	var active *model.Tournament
	err := h.Engine.View(r.Context(), func(tx storage.Tx) error {
		var err error
		active, err = tournament.ActiveTournament(r.Context(), tx)
		return err
	})
	if err != nil {
		log.Printf("ActiveTournament: %v", err)
		http.Error(w, "failed to load tournament", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, active)
}

// Tournaments lists tournaments, newest first, optionally filtered by
// ?status=active|ended, paginated with ?limit= and ?offset=.
func (h *Handler) Tournaments(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	var status *model.TournamentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := model.TournamentStatus(s)
		if st != model.StatusActive && st != model.StatusEnded {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		status = &st
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	list := []model.Tournament{}
	err := h.Engine.View(r.Context(), func(tx storage.Tx) error {
		got, err := tournament.ListTournaments(r.Context(), tx, status, h.limitParam(r), offset)
		if err != nil {
			return err
		}
		if got != nil {
			list = got
		}
		return nil
	})
	if err != nil {
		log.Printf("ListTournaments: %v", err)
		http.Error(w, "failed to load tournaments", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, list)
}

// Tournament returns one tournament by ?id=.
func (h *Handler) Tournament(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var t *model.Tournament
	err = h.Engine.View(r.Context(), func(tx storage.Tx) error {
		var err error
		t, err = storage.GetTournament(r.Context(), tx, id)
		return err
	})
	if err != nil {
		log.Printf("GetTournament: %v", err)
		http.Error(w, "failed to load tournament", http.StatusInternalServerError)
		return
	}
	if t == nil {
		http.Error(w, "tournament not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, t)
}

// Leaderboard returns the ranked board for ?tournament_id=, top ?limit=.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	tid, err := strconv.ParseUint(r.URL.Query().Get("tournament_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid tournament_id", http.StatusBadRequest)
		return
	}
	board := []model.LeaderboardEntry{}
	err = h.Engine.View(r.Context(), func(tx storage.Tx) error {
		got, err := tournament.Leaderboard(r.Context(), tx, tid, h.limitParam(r))
		if err != nil {
			return err
		}
		if got != nil {
			board = got
		}
		return nil
	})
	if err != nil {
		log.Printf("Leaderboard: %v", err)
		http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, board)
}

// RecentRuns returns the newest runs across all tournaments.
func (h *Handler) RecentRuns(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	runs := []model.GameRun{}
	err := h.Engine.View(r.Context(), func(tx storage.Tx) error {
		got, err := tournament.RecentRuns(r.Context(), tx, h.limitParam(r))
		if err != nil {
			return err
		}
		if got != nil {
			runs = got
		}
		return nil
	})
	if err != nil {
		log.Printf("RecentRuns: %v", err)
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, runs)
}

// Run returns one run by ?id=.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var run *model.GameRun
	err = h.Engine.View(r.Context(), func(tx storage.Tx) error {
		var err error
		run, err = storage.GetRun(r.Context(), tx, id)
		return err
	})
	if err != nil {
		log.Printf("GetRun: %v", err)
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, run)
}

// Player returns a profile by ?wallet= or ?username=.
func (h *Handler) Player(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	var player *model.Player
	err := h.Engine.View(r.Context(), func(tx storage.Tx) error {
		if username := r.URL.Query().Get("username"); username != "" {
			var err error
			player, err = tournament.PlayerByUsername(r.Context(), tx, username)
			return err
		}
		wallet, err := model.ParseWallet(r.URL.Query().Get("wallet"))
		if err != nil {
			return err
		}
		player, err = storage.GetPlayer(r.Context(), tx, wallet)
		return err
	})
	if err != nil {
		http.Error(w, "invalid wallet or username", http.StatusBadRequest)
		return
	}
	if player == nil {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, player)
}

// PlayerRuns returns one wallet's runs, newest first.
func (h *Handler) PlayerRuns(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	wallet, err := model.ParseWallet(r.URL.Query().Get("wallet"))
	if err != nil {
		http.Error(w, "invalid wallet", http.StatusBadRequest)
		return
	}
	runs := []model.GameRun{}
	err = h.Engine.View(r.Context(), func(tx storage.Tx) error {
		got, err := tournament.PlayerRuns(r.Context(), tx, wallet, h.limitParam(r))
		if err != nil {
			return err
		}
		if got != nil {
			runs = got
		}
		return nil
	})
	if err != nil {
		log.Printf("PlayerRuns: %v", err)
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, runs)
}

// TournamentPlayer returns the per-tournament aggregate row for
// ?tournament_id= and ?wallet=.
func (h *Handler) TournamentPlayer(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	tid, err := strconv.ParseUint(r.URL.Query().Get("tournament_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid tournament_id", http.StatusBadRequest)
		return
	}
	wallet, err := model.ParseWallet(r.URL.Query().Get("wallet"))
	if err != nil {
		http.Error(w, "invalid wallet", http.StatusBadRequest)
		return
	}
	var tp *model.TournamentPlayer
	err = h.Engine.View(r.Context(), func(tx storage.Tx) error {
		var err error
		tp, err = storage.GetTournamentPlayer(r.Context(), tx, tid, wallet)
		return err
	})
	if err != nil {
		log.Printf("GetTournamentPlayer: %v", err)
		http.Error(w, "failed to load participant", http.StatusInternalServerError)
		return
	}
	if tp == nil {
		http.Error(w, "participant not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, tp)
}

// Reward returns the reward row for ?tournament_id= and ?wallet=.
func (h *Handler) Reward(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	tid, err := strconv.ParseUint(r.URL.Query().Get("tournament_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid tournament_id", http.StatusBadRequest)
		return
	}
	wallet, err := model.ParseWallet(r.URL.Query().Get("wallet"))
	if err != nil {
		http.Error(w, "invalid wallet", http.StatusBadRequest)
		return
	}
	var reward *model.TournamentReward
	err = h.Engine.View(r.Context(), func(tx storage.Tx) error {
		var err error
		reward, err = storage.GetReward(r.Context(), tx, tid, wallet)
		return err
	})
	if err != nil {
		log.Printf("GetReward: %v", err)
		http.Error(w, "failed to load reward", http.StatusInternalServerError)
		return
	}
	if reward == nil {
		http.Error(w, "reward not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, reward)
}

// Stats returns platform-wide aggregate counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) || !requireGet(w, r) {
		return
	}
	var stats *model.Stats
	err := h.Engine.View(r.Context(), func(tx storage.Tx) error {
		var err error
		stats, err = tournament.GlobalStats(r.Context(), tx)
		return err
	})
	if err != nil {
		log.Printf("GlobalStats: %v", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, stats)
}
