/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Silhouette guessing game
//
// Each game ID owns one game session: a pool of names, a prefetch buffer of
// rendered images, the current round and the streak counters. Browsers
// connect to /play/:gameid/ws and drive the session with small JSON
// commands; every state change is pushed back to all of the game's
// connections.
//
// Features:
// - WebSockets per game ID: /play/:gameid and /play/:gameid/ws
// - Images per round: /play/:gameid/image/silhouette and /play/:gameid/image/full
// - Shareable snapshot of the current image: /play/:gameid/share
// - Players identified by cookie (uuid), which keys their best streak and settings
// - Smaller prefetch buffer for mobile browsers
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/silhouette/internal/catalog"
	"github.com/Seednode/silhouette/internal/dedup"
	"github.com/Seednode/silhouette/internal/game"
	"github.com/Seednode/silhouette/internal/prefetch"
	"github.com/Seednode/silhouette/internal/settings"
	"github.com/Seednode/silhouette/internal/share"
	"github.com/Seednode/silhouette/internal/store"
)

// roundTimeout bounds how long a client waits for the next image.
const roundTimeout = 30 * time.Second

// library is the state shared by every game on this server.
type library struct {
	catalog  *catalog.Catalog
	resolver prefetch.Resolver
	store    store.Store
}

// Messages coming from clients
type ClientMessage struct {
	Type     string          `json:"type"`               // "guess", "skip", "next", "toggle", "settings"
	Text     string          `json:"text,omitempty"`     // guess
	Settings json.RawMessage `json:"settings,omitempty"` // settings
}

// SessionInfoMessage is sent on connect and after every settings change.
type SessionInfoMessage struct {
	Type       string          `json:"type"` // "session_info"
	GameID     string          `json:"game_id"`
	Mobile     bool            `json:"mobile"`
	Capacity   int             `json:"capacity"`
	Streak     int             `json:"streak"`
	Best       int             `json:"best"`
	Categories []int           `json:"categories"`
	Settings   json.RawMessage `json:"settings"`
}

// RoundMessage tells clients to fade in a new silhouette.
type RoundMessage struct {
	Type           string `json:"type"` // "round"
	Round          uint64 `json:"round"`
	SilhouetteURL  string `json:"silhouette_url"`
	FullURL        string `json:"full_url"`
	FadeInMS       int64  `json:"fade_in_ms"`
	InputEnabled   bool   `json:"input_enabled"`
	ShowSilhouette bool   `json:"show_silhouette"`
	Revealed       bool   `json:"revealed"`
	Correct        bool   `json:"correct"`
	Answer         string `json:"answer,omitempty"`
}

// GuessResultMessage reports the outcome of a guess to everyone.
type GuessResultMessage struct {
	Type    string `json:"type"` // "guess_result"
	Round   uint64 `json:"round"`
	Guess   string `json:"guess"`
	Correct bool   `json:"correct"`
	Answer  string `json:"answer,omitempty"`
	Streak  int    `json:"streak"`
	Best    int    `json:"best"`
}

// RevealedMessage is sent when a round is skipped.
type RevealedMessage struct {
	Type   string `json:"type"` // "revealed"
	Round  uint64 `json:"round"`
	Answer string `json:"answer"`
	Streak int    `json:"streak"`
	Best   int    `json:"best"`
}

type CelebrateMessage struct {
	Type   string `json:"type"` // "celebrate"
	Name   string `json:"name"`
	Streak int    `json:"streak"`
}

type SuggestionsMessage struct {
	Type  string   `json:"type"` // "suggestions"
	Names []string `json:"names"`
}

// ViewMessage reports which image of a revealed round is on display.
type ViewMessage struct {
	Type           string `json:"type"` // "view"
	Round          uint64 `json:"round"`
	ShowSilhouette bool   `json:"show_silhouette"`
}

// SimpleMessage is for errors and rejected settings.
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

type roundResult struct {
	presentation game.Presentation
	err          error
}

type Hub struct {
	id      string
	path    string
	session *game.Session
	mobile  bool
	log     zerolog.Logger

	categories []int
	capacity   int

	clients map[*Client]bool

	register     chan *Client
	unreg        chan *Client
	commands     chan command
	rounds       chan roundResult
	celebrations chan CelebrateMessage
	done         chan struct{}
	closeOnce    sync.Once

	// loading is only touched by run.
	loading bool

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
}

var mobileAgent = regexp.MustCompile(`Mobi|Android|iPhone|iPad`)

func isMobile(r *http.Request) bool {
	return mobileAgent.MatchString(r.UserAgent())
}

func newHub(cfg *Config, lib *library, path, gameID, playerID string, mobile bool) (*Hub, error) {
	capacity := cfg.prefetch
	if mobile {
		capacity = cfg.prefetchMobile
	}

	log := cfg.log.With().Str("game", gameID).Logger()

	h := &Hub{
		id:           gameID,
		path:         path,
		mobile:       mobile,
		log:          log,
		categories:   lib.catalog.Categories(),
		capacity:     capacity,
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unreg:        make(chan *Client),
		commands:     make(chan command),
		rounds:       make(chan roundResult),
		celebrations: make(chan CelebrateMessage, 8),
		done:         make(chan struct{}),
	}

	pipeline := prefetch.New(lib.resolver, dedup.New(cfg.variants, nil), prefetch.Options{
		Capacity: capacity,
		Ordering: cfg.order,
		Logger:   log,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	session, err := game.New(ctx, game.Config{
		Catalog:  lib.catalog,
		Pipeline: pipeline,
		Store:    lib.store,
		Player:   playerID,
		FadeIn:   cfg.fadeIn,
		Celebrator: game.CelebratorFunc(func(name string, streak int) {
			select {
			case h.celebrations <- CelebrateMessage{Type: "celebrate", Name: name, Streak: streak}:
			default:
			}
		}),
		Logger: log,
	})
	if err != nil {
		pipeline.Close()

		return nil, err
	}
	h.session = session

	now := time.Now()
	h.createdAt = now
	h.lastActive = now

	return h, nil
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.touch()

			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

			h.send(c, h.sessionInfo())
			h.send(c, h.suggestions())

			st := h.session.State()
			if st.Round == 0 {
				h.present(h.session.ShowNext)
			} else {
				h.send(c, h.roundMessage(st, cfg.fadeIn))
			}

		case c := <-h.unreg:
			h.touch()

			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case cmd := <-h.commands:
			h.touch()
			h.handleCommand(cfg, cmd)

		case res := <-h.rounds:
			h.loading = false
			h.handleRound(cfg, res)

		case msg := <-h.celebrations:
			h.broadcast(msg)
		}
	}
}

// present loads the next round without blocking the run loop. Only one
// load is in flight at a time.
func (h *Hub) present(next func(context.Context) (game.Presentation, error)) {
	if h.loading {
		return
	}
	h.loading = true

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), roundTimeout)
		defer cancel()

		p, err := next(ctx)

		select {
		case h.rounds <- roundResult{presentation: p, err: err}:
		case <-h.done:
		}
	}()
}

func (h *Hub) handleRound(cfg *Config, res roundResult) {
	// The pool was rebuilt while the round was loading.
	if errors.Is(res.err, game.ErrSuperseded) {
		h.present(h.session.ShowNext)

		return
	}

	if res.err != nil {
		h.log.Warn().Err(res.err).Msg("could not present next round")

		msg := "The next image could not be loaded. Please try again."
		if errors.Is(res.err, prefetch.ErrNoAssets) {
			msg = "No images are available right now. Please try again later."
		}

		h.broadcast(SimpleMessage{Type: "error", Message: msg})

		return
	}

	st := h.session.State()

	// A settings change cleared the round while it was loading.
	if st.Round != res.presentation.Round {
		if st.Round == 0 {
			h.present(h.session.ShowNext)
		}

		return
	}

	logf(cfg, "GAMES: Round %d of %s is %s", st.Round, h.id, res.presentation.Key)

	h.broadcast(h.roundMessage(st, res.presentation.FadeIn))
}

func (h *Hub) handleCommand(cfg *Config, cmd command) {
	c := cmd.client
	msg := cmd.msg

	switch msg.Type {
	case "guess":
		out, err := h.session.SubmitGuess(context.Background(), msg.Text)
		if err != nil {
			h.reject(c, err)

			return
		}

		if out.Correct {
			logf(cfg, "GAMES: %q correctly guessed in %s (streak %d)", out.Answer, h.id, out.Streak)
		}

		h.broadcast(GuessResultMessage{
			Type:    "guess_result",
			Round:   h.session.State().Round,
			Guess:   strings.TrimSpace(msg.Text),
			Correct: out.Correct,
			Answer:  out.Answer,
			Streak:  out.Streak,
			Best:    out.Best,
		})

	case "skip":
		answer, err := h.session.Skip()
		if err != nil {
			h.reject(c, err)

			return
		}

		st := h.session.State()
		h.broadcast(RevealedMessage{
			Type:   "revealed",
			Round:  st.Round,
			Answer: answer,
			Streak: st.Streak,
			Best:   st.Best,
		})

	case "next":
		if h.session.State().Round == 0 {
			h.present(h.session.ShowNext)

			return
		}

		if st := h.session.State(); st.Phase != game.Revealed {
			h.reject(c, game.ErrNotRevealed)

			return
		}

		h.present(h.session.Advance)

	case "toggle":
		showing, err := h.session.ToggleReveal()
		if err != nil {
			h.reject(c, err)

			return
		}

		h.broadcast(ViewMessage{
			Type:           "view",
			Round:          h.session.State().Round,
			ShowSilhouette: showing,
		})

	case "settings":
		h.applySettings(cfg, c, msg.Settings)
	}
}

func (h *Hub) applySettings(cfg *Config, c *Client, raw json.RawMessage) {
	next, err := settings.ParseChange(raw, h.categories)
	if err != nil || len(raw) == 0 {
		h.send(c, SimpleMessage{Type: "settings_rejected", Message: "Those settings could not be read."})
		h.send(c, h.sessionInfo())

		return
	}

	rebuilt, err := h.session.ApplySettings(context.Background(), next)
	if err != nil {
		h.log.Debug().Err(err).Msg("settings rejected")

		message := "Those settings could not be applied."
		if errors.Is(err, catalog.ErrEmptyPool) {
			message = "At least one generation with names must be enabled."
		}

		h.send(c, SimpleMessage{Type: "settings_rejected", Message: message})
		h.send(c, h.sessionInfo())

		return
	}

	h.broadcast(h.sessionInfo())
	h.broadcast(h.suggestions())

	if rebuilt {
		logf(cfg, "GAMES: Rebuilt pool of %s for generations %v (forms: %t)", h.id, next.Enabled(), next.IncludeForms)

		h.present(h.session.ShowNext)
	}
}

func (h *Hub) reject(c *Client, err error) {
	h.send(c, SimpleMessage{Type: "error", Message: err.Error()})
}

func (h *Hub) sessionInfo() SessionInfoMessage {
	st := h.session.State()

	blob, err := st.Settings.Encode()
	if err != nil {
		h.log.Warn().Err(err).Msg("could not encode settings")
		blob = []byte(`{}`)
	}

	return SessionInfoMessage{
		Type:       "session_info",
		GameID:     h.id,
		Mobile:     h.mobile,
		Capacity:   h.capacity,
		Streak:     st.Streak,
		Best:       st.Best,
		Categories: h.categories,
		Settings:   blob,
	}
}

func (h *Hub) suggestions() SuggestionsMessage {
	names := h.session.Suggestions()
	if names == nil {
		names = []string{}
	}

	return SuggestionsMessage{Type: "suggestions", Names: names}
}

func (h *Hub) roundMessage(st game.State, fadeIn time.Duration) RoundMessage {
	base := h.path + "/" + h.id + "/image/"
	query := "?round=" + strconv.FormatUint(st.Round, 10)

	return RoundMessage{
		Type:           "round",
		Round:          st.Round,
		SilhouetteURL:  base + "silhouette" + query,
		FullURL:        base + "full" + query,
		FadeInMS:       fadeIn.Milliseconds(),
		InputEnabled:   st.InputEnabled,
		ShowSilhouette: st.ShowSilhouette,
		Revealed:       st.Phase == game.Revealed,
		Correct:        st.Correct,
		Answer:         st.Answer,
	}
}

// send queues msg for one client, dropping the client if it has fallen
// behind.
func (h *Hub) send(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sendLocked(c, msg)
}

func (h *Hub) sendLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.sendLocked(c, msg)
	}
}

// closeAll disconnects all clients of this hub and ends its session.
func (h *Hub) closeAll() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for c := range h.clients {
			close(c.send)
			_ = c.conn.Close()
			delete(h.clients, c)
		}
		h.mu.Unlock()

		h.session.Close()
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const playerCookieName = "silhouette_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	lib         *library
	path        string
	stop        chan struct{}
}

func newGameManager(lib *library, path string, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		lib:         lib,
		path:        path,
		stop:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

// getHub returns the hub for gameID, creating it for playerID if needed.
func (gm *GameManager) getHub(cfg *Config, gameID, playerID string, mobile bool) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	hub, err := newHub(cfg, gm.lib, gm.path, gameID, playerID, mobile)
	if err != nil {
		return nil, err
	}

	gm.hubs[gameID] = hub
	go hub.run(cfg)

	logf(cfg, "GAMES: Started %s with a buffer of %d", gameID, hub.capacity)

	return hub, nil
}

// lookup returns an existing hub without creating one.
func (gm *GameManager) lookup(gameID string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]

	return hub, ok
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap removes hubs idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
			reaped++
		}
	}

	return reaped
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.stop:
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

// shutdown stops the reaper and ends every game.
func (gm *GameManager) shutdown() {
	close(gm.stop)

	gm.mu.Lock()
	hubs := gm.hubs
	gm.hubs = make(map[string]*Hub)
	gm.mu.Unlock()

	for _, hub := range hubs {
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		hub, err := gm.getHub(cfg, gameID, playerID, isMobile(r))
		if err != nil {
			cfg.log.Error().Err(err).Str("game", gameID).Msg("could not start game")
			http.Error(w, "unable to start game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		conn.SetReadLimit(4096)

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "guess", "skip", "next", "toggle", "settings":
			select {
			case h.commands <- command{client: c, msg: msg}:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// serveImage sends one image of the round named by the round query
// parameter. The full image stays hidden until the round is revealed.
func serveImage(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := gm.lookup(ps.ByName("gameid"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		st := hub.session.State()
		if r.URL.Query().Get("round") != strconv.FormatUint(st.Round, 10) {
			http.Error(w, "round is over", http.StatusGone)
			return
		}

		asset, ok := hub.session.Current()
		if !ok {
			http.NotFound(w, r)
			return
		}

		var (
			data []byte
			err  error
		)

		switch ps.ByName("kind") {
		case "silhouette":
			data, err = asset.SilhouettePNG()
		case "full":
			if st.Phase != game.Revealed {
				http.Error(w, "round is not revealed", http.StatusForbidden)
				return
			}
			data, err = asset.FullPNG()
		default:
			http.NotFound(w, r)
			return
		}
		if err != nil {
			hub.log.Warn().Err(err).Str("key", asset.Key.String()).Msg("could not encode image")
			http.Error(w, "image unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=3600")
		securityHeaders(cfg, w)

		serveBytes(cfg, w, r, errs, ps.ByName("kind")+" image for "+hub.id, data)
	}
}

// parseBackground reads a 6-digit hex color, defaulting to white.
func parseBackground(s string) (color.NRGBA, error) {
	if s == "" {
		return share.White, nil
	}

	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(s, "#")) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid background color %q", s)
	}

	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// serveShare renders the image on display for copying or saving.
func serveShare(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := gm.lookup(ps.ByName("gameid"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		bg, err := parseBackground(r.URL.Query().Get("bg"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := hub.session.Snapshot(bg)
		switch {
		case errors.Is(err, game.ErrNoRound):
			http.Error(w, "no image on display", http.StatusNotFound)
			return
		case err != nil:
			hub.log.Warn().Err(err).Msg("could not compose snapshot")
			http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		serveBytes(cfg, w, r, errs, "snapshot of "+hub.id, data)
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func getIndexHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := static.ReadFile("assets/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		page := strings.ReplaceAll(string(data), "{{prefix}}", cfg.prefix)
		page = strings.Replace(page, "{{favicon}}", getFavicon(cfg.prefix), 1)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		serveBytes(cfg, w, r, errs, "game page", []byte(page))
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerSilhouetteGame sets up routes so that:
//   - $path                           → redirects to new random game (8-char ID)
//   - $path/:gameid                   → HTML client
//   - $path/:gameid/ws                → WebSocket for that game
//   - $path/:gameid/image/:kind       → silhouette or full image of the round
//   - $path/:gameid/share             → PNG snapshot of the image on display
//   - $path/:gameid/qr                → PNG QR code for that game URL
func registerSilhouetteGame(cfg *Config, path string, mux *httprouter.Router, lib *library, errs chan<- error) *GameManager {
	path = cfg.prefix + path

	gm := newGameManager(lib, path, cfg.sessionTimeout)

	mux.GET(path, redirectNewGame(cfg, path, gm))

	mux.GET(path+"/:gameid", getIndexHandler(cfg, errs))

	mux.GET(path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(path+"/:gameid/image/:kind", serveImage(cfg, gm, errs))

	mux.GET(path+"/:gameid/share", serveShare(cfg, gm, errs))

	mux.GET(path+"/:gameid/qr", qrHandler)

	return gm
}
