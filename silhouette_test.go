/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/Seednode/silhouette/internal/assets"
	"github.com/Seednode/silhouette/internal/catalog"
	"github.com/Seednode/silhouette/internal/prefetch"
	"github.com/Seednode/silhouette/internal/silhouette"
	"github.com/Seednode/silhouette/internal/store"
)

func testLibrary(t *testing.T) *library {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	img.SetNRGBA(3, 3, color.NRGBA{R: 0xff, A: 0xff})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	fs := afero.NewMemMapFs()
	files := map[string][]byte{
		assets.BaseList(1):  []byte("Mime Jr.\n"),
		assets.FormsList(1): nil,
	}
	files[assets.Image("Mime Jr.", 0)] = buf.Bytes()

	for name, body := range files {
		if err := afero.WriteFile(fs, name, body, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src := assets.NewFS(fs)

	cat, err := catalog.NewLoader(src, zerolog.Nop()).Load(context.Background(), []int{1})
	if err != nil {
		t.Fatal(err)
	}

	return &library{
		catalog:  cat,
		resolver: prefetch.NewSourceResolver(src, silhouette.Renderer{Fill: silhouette.Black}, time.Second, zerolog.Nop()),
		store:    store.NewMemory(),
	}
}

func testConfig() *Config {
	return &Config{
		fadeIn:         75 * time.Millisecond,
		prefetch:       3,
		prefetchMobile: 1,
		variants:       1,
		log:            zerolog.Nop(),
	}
}

func TestIsMobile(t *testing.T) {
	for _, tc := range []struct {
		agent string
		want  bool
	}{
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", true},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari", true},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko Firefox", false},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/126.0.0.0", false},
	} {
		agent, want := tc.agent, tc.want
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("User-Agent", agent)

		if got := isMobile(r); got != want {
			t.Errorf("isMobile(%q) = %t, want %t", agent, got, want)
		}
	}
}

func TestPlayerCookie(t *testing.T) {
	w := httptest.NewRecorder()
	id := getOrSetPlayerID(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("player id %q is not a uuid", id)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != id {
		t.Fatalf("cookie not set: %v", cookies)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	w = httptest.NewRecorder()

	if got := getOrSetPlayerID(w, r); got != id {
		t.Fatalf("returning player got %q, want %q", got, id)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatal("cookie was reissued")
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: playerCookieName, Value: "../../etc"})

	if got := getOrSetPlayerID(httptest.NewRecorder(), r); got == "../../etc" {
		t.Fatal("malformed player id was accepted")
	}
}

func TestParseBackground(t *testing.T) {
	for in, want := range map[string]color.NRGBA{
		"":        {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		"1d2b53":  {R: 0x1d, G: 0x2b, B: 0x53, A: 0xff},
		"#000000": {A: 0xff},
	} {
		got, err := parseBackground(in)
		if err != nil || got != want {
			t.Errorf("parseBackground(%q) = %v, %v, want %v", in, got, err, want)
		}
	}

	for _, in := range []string{"fff", "zzzzzz", "#1234567"} {
		if _, err := parseBackground(in); err == nil {
			t.Errorf("parseBackground(%q) accepted", in)
		}
	}
}

func TestServeImage(t *testing.T) {
	cfg := testConfig()
	gm := newGameManager(testLibrary(t), "/play", 0)
	defer gm.shutdown()

	hub, err := gm.getHub(cfg, "AbCd1234", "ash", false)
	if err != nil {
		t.Fatal(err)
	}
	if hub.capacity != 3 {
		t.Fatalf("capacity = %d, want 3", hub.capacity)
	}

	p, err := hub.session.ShowNext(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	mux := httprouter.New()
	errs := make(chan error, 4)
	mux.GET("/play/:gameid/image/:kind", serveImage(cfg, gm, errs))
	mux.GET("/play/:gameid/share", serveShare(cfg, gm, errs))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	round := strconv.FormatUint(p.Round, 10)

	w := get("/play/AbCd1234/image/silhouette?round=" + round)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("silhouette: %d %s", w.Code, w.Body)
	}

	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := color.NRGBAModel.Convert(img.At(3, 3)).(color.NRGBA); got != silhouette.Black {
		t.Fatalf("silhouette pixel = %v", got)
	}

	if w := get("/play/AbCd1234/image/full?round=" + round); w.Code != http.StatusForbidden {
		t.Fatalf("full image before reveal: %d", w.Code)
	}
	if w := get("/play/AbCd1234/image/silhouette?round=99"); w.Code != http.StatusGone {
		t.Fatalf("stale round: %d", w.Code)
	}
	if w := get("/play/nope/image/silhouette?round=1"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown game: %d", w.Code)
	}

	if _, err := hub.session.Skip(); err != nil {
		t.Fatal(err)
	}

	if w := get("/play/AbCd1234/image/full?round=" + round); w.Code != http.StatusOK {
		t.Fatalf("full image after reveal: %d", w.Code)
	}

	if w := get("/play/AbCd1234/share?bg=000000"); w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("share: %d %s", w.Code, w.Body)
	}
	if w := get("/play/AbCd1234/share?bg=blue"); w.Code != http.StatusBadRequest {
		t.Fatalf("share with bad background: %d", w.Code)
	}
}

func TestMobileCapacity(t *testing.T) {
	gm := newGameManager(testLibrary(t), "/play", 0)
	defer gm.shutdown()

	hub, err := gm.getHub(testConfig(), "Mobile01", "misty", true)
	if err != nil {
		t.Fatal(err)
	}
	if hub.capacity != 1 {
		t.Fatalf("capacity = %d, want 1", hub.capacity)
	}

	again, err := gm.getHub(testConfig(), "Mobile01", "brock", false)
	if err != nil || again != hub {
		t.Fatal("second connection did not join the existing game")
	}
}

func TestReap(t *testing.T) {
	gm := newGameManager(testLibrary(t), "/play", 0)
	defer gm.shutdown()

	hub, err := gm.getHub(testConfig(), "Idle0001", "gary", false)
	if err != nil {
		t.Fatal(err)
	}

	if n := gm.reap(time.Now().Add(-time.Hour)); n != 0 {
		t.Fatalf("reaped %d active games", n)
	}
	if n := gm.reap(time.Now().Add(time.Second)); n != 1 {
		t.Fatalf("reaped %d games, want 1", n)
	}

	if _, ok := gm.lookup("Idle0001"); ok {
		t.Fatal("reaped game is still registered")
	}

	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("reaped hub was not closed")
	}
}

func TestNewGameID(t *testing.T) {
	gm := newGameManager(testLibrary(t), "/play", 0)
	defer gm.shutdown()

	seen := make(map[string]bool)
	for range 100 {
		id := gm.newGameID()
		if len(id) != 8 || seen[id] {
			t.Fatalf("bad or repeated game id %q", id)
		}
		seen[id] = true
	}
}

func testHub(t *testing.T) (*Hub, *Client, *Config) {
	t.Helper()

	cfg := testConfig()

	h, err := newHub(cfg, testLibrary(t), "/play", "Proto001", "ash", false)
	if err != nil {
		t.Fatal(err)
	}

	c := &Client{send: make(chan any, 64), playerID: "ash"}
	h.clients[c] = true

	t.Cleanup(func() {
		close(h.done)
		h.session.Close()
	})

	return h, c, cfg
}

// awaitRound feeds the next loaded round back into the hub the way run does.
func awaitRound(t *testing.T, h *Hub, cfg *Config) {
	t.Helper()

	select {
	case res := <-h.rounds:
		h.loading = false
		h.handleRound(cfg, res)
	case <-time.After(5 * time.Second):
		t.Fatal("round did not load")
	}
}

// received drains the messages queued for c.
func received(c *Client) []any {
	var out []any
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func messageTypes(t *testing.T, msgs []any) []string {
	t.Helper()

	var out []string
	for _, msg := range msgs {
		raw, err := json.Marshal(msg)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, gjson.GetBytes(raw, "type").String())
	}

	return out
}

func TestHubCommands(t *testing.T) {
	h, c, cfg := testHub(t)

	h.present(h.session.ShowNext)
	awaitRound(t, h, cfg)

	msgs := received(c)
	if len(msgs) != 1 {
		t.Fatalf("got %v, want one round", messageTypes(t, msgs))
	}
	first, ok := msgs[0].(RoundMessage)
	if !ok || first.Round != 1 || !first.InputEnabled || first.FadeInMS != 75 {
		t.Fatalf("unexpected round %+v", msgs[0])
	}

	do := func(typ, text string) []any {
		h.handleCommand(cfg, command{client: c, msg: ClientMessage{Type: typ, Text: text}})
		return received(c)
	}

	msgs = do("guess", "Mime Sr.")
	if res, ok := msgs[0].(GuessResultMessage); !ok || res.Correct || res.Streak != 0 {
		t.Fatalf("wrong guess: %+v", msgs)
	}

	if got := messageTypes(t, do("toggle", "")); !slices.Equal(got, []string{"error"}) {
		t.Fatalf("toggle before reveal sent %v", got)
	}
	if got := messageTypes(t, do("next", "")); !slices.Equal(got, []string{"error"}) {
		t.Fatalf("next before reveal sent %v", got)
	}

	msgs = do("guess", "  mime jr. ")
	if res, ok := msgs[0].(GuessResultMessage); !ok || !res.Correct || res.Answer != "Mime Jr." || res.Streak != 1 || res.Best != 1 {
		t.Fatalf("correct guess: %+v", msgs)
	}

	select {
	case msg := <-h.celebrations:
		if msg.Name != "Mime Jr." || msg.Streak != 1 {
			t.Fatalf("unexpected celebration %+v", msg)
		}
	default:
		t.Fatal("correct guess was not celebrated")
	}

	msgs = do("toggle", "")
	if view, ok := msgs[0].(ViewMessage); !ok || !view.ShowSilhouette {
		t.Fatalf("toggle: %+v", msgs)
	}

	if got := messageTypes(t, do("skip", "")); !slices.Equal(got, []string{"error"}) {
		t.Fatalf("skip after reveal sent %v", got)
	}

	if msgs := do("next", ""); len(msgs) != 0 {
		t.Fatalf("next sent %v before the round loaded", messageTypes(t, msgs))
	}
	awaitRound(t, h, cfg)

	msgs = received(c)
	if next, ok := msgs[0].(RoundMessage); !ok || next.Round != 2 || next.Revealed {
		t.Fatalf("next round: %+v", msgs)
	}

	msgs = do("skip", "")
	if rev, ok := msgs[0].(RevealedMessage); !ok || rev.Answer != "Mime Jr." || rev.Streak != 0 || rev.Best != 1 {
		t.Fatalf("skip: %+v", msgs)
	}
}

func TestHubRejectsEmptySettings(t *testing.T) {
	h, c, cfg := testHub(t)

	h.present(h.session.ShowNext)
	awaitRound(t, h, cfg)
	received(c)

	before := h.session.State()

	for _, raw := range []string{`{"gens":{"1":false}}`, `{"gens":`} {
		h.handleCommand(cfg, command{client: c, msg: ClientMessage{Type: "settings", Settings: json.RawMessage(raw)}})

		if got := messageTypes(t, received(c)); !slices.Equal(got, []string{"settings_rejected", "session_info"}) {
			t.Fatalf("settings %s sent %v", raw, got)
		}

		after := h.session.State()
		if !maps.Equal(after.Settings.Categories, before.Settings.Categories) || after.Round != before.Round {
			t.Fatalf("settings %s changed the session: %+v", raw, after)
		}
	}
}

func TestHubAppliesSettings(t *testing.T) {
	h, c, cfg := testHub(t)

	h.handleCommand(cfg, command{client: c, msg: ClientMessage{Type: "settings", Settings: json.RawMessage(`{"enableAutocomplete":false}`)}})

	msgs := received(c)
	if got := messageTypes(t, msgs); !slices.Equal(got, []string{"session_info", "suggestions"}) {
		t.Fatalf("autocomplete change sent %v", got)
	}
	if s, ok := msgs[1].(SuggestionsMessage); !ok || len(s.Names) != 0 {
		t.Fatalf("suggestions still listed: %+v", msgs[1])
	}
	if h.loading {
		t.Fatal("autocomplete change started a new round")
	}
}

func TestHubRepresentsAfterRebuild(t *testing.T) {
	h, c, cfg := testHub(t)

	h.present(h.session.ShowNext)

	// The pool is rebuilt while the first round is still loading.
	h.handleCommand(cfg, command{client: c, msg: ClientMessage{Type: "settings", Settings: json.RawMessage(`{"includeForms":false}`)}})

	if got := messageTypes(t, received(c)); !slices.Equal(got, []string{"session_info", "suggestions"}) {
		t.Fatalf("rebuild sent %v", got)
	}

	for range 2 {
		awaitRound(t, h, cfg)
		if !h.loading {
			break
		}
	}

	msgs := received(c)
	if len(msgs) != 1 {
		t.Fatalf("got %v, want one round", messageTypes(t, msgs))
	}

	st := h.session.State()
	if r, ok := msgs[0].(RoundMessage); !ok || st.Round == 0 || r.Round != st.Round {
		t.Fatalf("round %+v does not match session round %d", msgs[0], st.Round)
	}
	if st.Settings.IncludeForms {
		t.Fatal("forms still enabled")
	}
}
