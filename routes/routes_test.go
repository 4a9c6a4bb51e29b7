package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournify/brackets"
	"github.com/Dosada05/tournify/handlers"
	"github.com/Dosada05/tournify/middleware"
	"github.com/Dosada05/tournify/repositories"
	"github.com/Dosada05/tournify/services"
)

type keepOrder struct{}

func (keepOrder) Shuffle(int, func(i, j int)) {}

func newTestServer(t *testing.T, jwtSecret string) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewMemoryStore()

	ctx, cancel := context.WithCancel(context.Background())
	hub := brackets.NewHub(logger)
	go hub.Run(ctx)

	bracketService := services.NewBracketService(store.Tournaments(), store.Players(), store.Matches(),
		brackets.NewSingleEliminationGenerator(keepOrder{}), logger)
	tournamentService := services.NewTournamentService(store, store.Tournaments(), store.Players(), store.Matches(), bracketService, logger)
	matchService := services.NewMatchService(store, store.Tournaments(), store.Players(), store.Matches(), bracketService, hub, nil, logger)

	router := chi.NewRouter()
	SetupRoutes(router,
		Options{AllowedOrigins: []string{"http://localhost:3000"}, JWTSecret: jwtSecret, RequestTimeout: 5 * time.Second},
		handlers.NewTournamentHandler(tournamentService, matchService),
		handlers.NewMatchHandler(matchService),
		handlers.NewWebSocketHandler(hub, tournamentService, nil, logger),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

type playerJSON struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	IsBye bool   `json:"is_bye"`
}

type matchJSON struct {
	ID          int         `json:"id"`
	RoundNumber int         `json:"round_number"`
	MatchNumber int         `json:"match_number"`
	Player1     *playerJSON `json:"player1"`
	Player2     *playerJSON `json:"player2"`
	Winner      *playerJSON `json:"winner"`
	IsCompleted bool        `json:"is_completed"`
}

type tournamentJSON struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	Status   string       `json:"status"`
	Players  []playerJSON `json:"players"`
	Matches  []matchJSON  `json:"matches"`
	Champion *playerJSON  `json:"champion"`
}

func doJSON(t *testing.T, method, url, token string, body interface{}, dst interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			reader = strings.NewReader(s)
		} else {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func findMatch(t *testing.T, tournament tournamentJSON, round, number int) matchJSON {
	t.Helper()
	for _, m := range tournament.Matches {
		if m.RoundNumber == round && m.MatchNumber == number {
			return m
		}
	}
	t.Fatalf("match %d of round %d not found", number, round)
	return matchJSON{}
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t, "")

	var welcome map[string]string
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/", "", nil, &welcome))
	assert.Equal(t, "Welcome to Tournify API!", welcome["message"])

	var events map[string]string
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/events", "", nil, &events))
	assert.Equal(t, "/tournaments/", events["tournaments_endpoint"])

	var missing map[string]string
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/nope", "", nil, &missing))
	assert.NotEmpty(t, missing["error"])
}

func TestTournamentFlow(t *testing.T) {
	srv := newTestServer(t, "")

	var created tournamentJSON
	status := doJSON(t, http.MethodPost, srv.URL+"/tournaments/", "",
		services.CreateTournamentInput{Name: "Spring Cup", Players: []string{"A", "B", "C"}}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Spring Cup", created.Name)
	assert.Equal(t, "in_progress", created.Status)
	assert.Len(t, created.Players, 4)
	require.Len(t, created.Matches, 2)

	bye := findMatch(t, created, 1, 2)
	assert.True(t, bye.IsCompleted)
	require.NotNil(t, bye.Winner)
	assert.Equal(t, "C", bye.Winner.Name)

	var fetched tournamentJSON
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, fmt.Sprintf("%s/tournaments/%d", srv.URL, created.ID), "", nil, &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	var listed []tournamentJSON
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/tournaments/?limit=10&offset=0", "", nil, &listed))
	require.Len(t, listed, 1)

	first := findMatch(t, created, 1, 1)
	matchURL := fmt.Sprintf("%s/matches/%d/winner", srv.URL, first.ID)

	var errBody map[string]string
	assert.Equal(t, http.StatusUnprocessableEntity,
		doJSON(t, http.MethodPatch, matchURL, "", map[string]int{"winner_id": bye.Winner.ID}, &errBody))
	assert.NotEmpty(t, errBody["error"])

	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPatch, matchURL, "", `{}`, nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPatch, matchURL, "", `{"winner_id":"x"}`, nil))
	assert.Equal(t, http.StatusNotFound,
		doJSON(t, http.MethodPatch, srv.URL+"/matches/9999/winner", "", map[string]int{"winner_id": 1}, nil))

	var updated struct {
		Message string    `json:"message"`
		Match   matchJSON `json:"match"`
	}
	require.Equal(t, http.StatusOK,
		doJSON(t, http.MethodPatch, matchURL, "", map[string]int{"winner_id": first.Player2.ID}, &updated))
	assert.Equal(t, "Match winner updated successfully", updated.Message)
	assert.True(t, updated.Match.IsCompleted)
	assert.Equal(t, "B", updated.Match.Winner.Name)

	assert.Equal(t, http.StatusConflict,
		doJSON(t, http.MethodPatch, matchURL, "", map[string]int{"winner_id": first.Player1.ID}, nil))

	var matches []matchJSON
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, fmt.Sprintf("%s/tournaments/%d/matches", srv.URL, created.ID), "", nil, &matches))
	require.Len(t, matches, 3)
	final := matches[2]
	assert.Equal(t, 2, final.RoundNumber)
	assert.Equal(t, "B", final.Player1.Name)
	assert.Equal(t, "C", final.Player2.Name)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPatch, fmt.Sprintf("%s/matches/%d/winner", srv.URL, final.ID), "",
		map[string]int{"winner_id": final.Player2.ID}, nil))

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, fmt.Sprintf("%s/tournaments/%d", srv.URL, created.ID), "", nil, &fetched))
	assert.Equal(t, "completed", fetched.Status)
	require.NotNil(t, fetched.Champion)
	assert.Equal(t, "C", fetched.Champion.Name)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/tournaments/?status=completed", "", nil, &listed))
	assert.Len(t, listed, 1)
}

func TestTournamentErrors(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"one player", http.MethodPost, "/tournaments/", services.CreateTournamentInput{Name: "Cup", Players: []string{"A"}}, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/tournaments/", services.CreateTournamentInput{Players: []string{"A", "B"}}, http.StatusBadRequest},
		{"reserved name", http.MethodPost, "/tournaments/", services.CreateTournamentInput{Name: "Cup", Players: []string{"A", "BYE_1"}}, http.StatusBadRequest},
		{"unknown tournament", http.MethodGet, "/tournaments/77", nil, http.StatusNotFound},
		{"unknown tournament matches", http.MethodGet, "/tournaments/77/matches", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/tournaments/abc", nil, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/tournaments/?status=paused", nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/tournaments/?limit=-1", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]interface{}
			assert.Equal(t, tt.wantStatus, doJSON(t, tt.method, srv.URL+tt.path, "", tt.body, &body))
			assert.Contains(t, body, "error")
		})
	}
}

func TestOrganizerAuth(t *testing.T) {
	const secret = "organizer-secret"
	srv := newTestServer(t, secret)
	input := services.CreateTournamentInput{Name: "Cup", Players: []string{"A", "B"}}

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, http.MethodPost, srv.URL+"/tournaments/", "", input, nil))

	token, err := middleware.NewOrganizerToken(secret, "organizer-1", middleware.RoleOrganizer, time.Hour)
	require.NoError(t, err)

	var created tournamentJSON
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/tournaments/", token, input, &created))

	// Чтение остаётся публичным.
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, fmt.Sprintf("%s/tournaments/%d", srv.URL, created.ID), "", nil, nil))

	matchURL := fmt.Sprintf("%s/matches/%d/winner", srv.URL, created.Matches[0].ID)
	winner := map[string]int{"winner_id": created.Matches[0].Player1.ID}
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, http.MethodPatch, matchURL, "", winner, nil))
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPatch, matchURL, token, winner, nil))
}

func TestWebSocketUpdates(t *testing.T) {
	srv := newTestServer(t, "")

	var created tournamentJSON
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/tournaments/", "",
		services.CreateTournamentInput{Name: "Live", Players: []string{"A", "B"}}, &created))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/ws/tournaments/%d", created.ID)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	readMessage := func() (string, json.RawMessage) {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		return msg.Type, msg.Payload
	}

	msgType, payload := readMessage()
	assert.Equal(t, brackets.MessageBracketUpdated, msgType)
	var snapshot tournamentJSON
	require.NoError(t, json.Unmarshal(payload, &snapshot))
	assert.Equal(t, created.ID, snapshot.ID)

	match := created.Matches[0]
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPatch, fmt.Sprintf("%s/matches/%d/winner", srv.URL, match.ID), "",
		map[string]int{"winner_id": match.Player1.ID}, nil))

	msgType, payload = readMessage()
	assert.Equal(t, brackets.MessageMatchUpdated, msgType)
	var updated matchJSON
	require.NoError(t, json.Unmarshal(payload, &updated))
	assert.Equal(t, match.ID, updated.ID)
	assert.True(t, updated.IsCompleted)

	msgType, payload = readMessage()
	assert.Equal(t, brackets.MessageTournamentCompleted, msgType)
	var completed tournamentJSON
	require.NoError(t, json.Unmarshal(payload, &completed))
	require.NotNil(t, completed.Champion)
	assert.Equal(t, "A", completed.Champion.Name)
}

func TestWebSocketUnknownTournament(t *testing.T) {
	srv := newTestServer(t, "")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tournaments/404"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
