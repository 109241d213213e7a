package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/auth"
	"github.com/Shivanand-hulikatti/event-signup/internal/handler"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository/sqlite"
	"github.com/Shivanand-hulikatti/event-signup/internal/reservation"
	"github.com/Shivanand-hulikatti/event-signup/internal/service"
	"github.com/Shivanand-hulikatti/event-signup/internal/upload"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const adminEmail = "admin@example.com"

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	games *service.GameService
	mr    *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	stores, _, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(stores.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	imageDir := t.TempDir()
	authSvc := service.NewAuthService(stores.Users, auth.NewTokens("test-secret", time.Hour),
		auth.NewRedisDenylist(rdb), func(email string) bool { return email == adminEmail })
	eventSvc := service.NewEventService(stores.Events, reservation.NewEngine(stores.Reservations), upload.NewImages(imageDir))
	gameSvc := service.NewGameService(stores.Games)

	router := handler.NewRouter(handler.Deps{
		Events:        handler.NewEventHandler(eventSvc),
		Auth:          handler.NewAuthHandler(authSvc),
		Games:         handler.NewGameHandler(gameSvc),
		Authenticator: authSvc,
		Limiter:       handler.NewRateLimiter(1000, 1000, time.Minute),
		Redis:         rdb,
		CacheTTL:      time.Minute,
		ImageDir:      imageDir,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, games: gameSvc, mr: mr}
}

func (s *testServer) do(method, path, token string, body any) (*http.Response, []byte) {
	s.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(req)
}

func (s *testServer) send(req *http.Request) (*http.Response, []byte) {
	s.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		s.t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

// login registers an account and returns its token.
func (s *testServer) login(username, email string) string {
	s.t.Helper()
	resp, body := s.do(http.MethodPost, "/auth/register", "", model.RegisterRequest{Username: username, Email: email, Password: "secret"})
	if resp.StatusCode != http.StatusCreated {
		s.t.Fatalf("register %s: %d %s", email, resp.StatusCode, body)
	}
	resp, body = s.do(http.MethodPost, "/auth/login", "", model.LoginRequest{Email: email, Password: "secret"})
	if resp.StatusCode != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", email, resp.StatusCode, body)
	}
	var lr model.LoginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		s.t.Fatalf("decode login: %v", err)
	}
	return lr.Token
}

func (s *testServer) createEvent(token string, slots int) model.Event {
	s.t.Helper()
	resp, body := s.do(http.MethodPost, "/events", token, model.CreateEventRequest{
		Title: "Torneo", Category: "torneo", Date: "2026-06-01", Time: "18:00", Slots: slots,
	})
	if resp.StatusCode != http.StatusCreated {
		s.t.Fatalf("create event: %d %s", resp.StatusCode, body)
	}
	var e model.Event
	if err := json.Unmarshal(body, &e); err != nil {
		s.t.Fatalf("decode event: %v", err)
	}
	return e
}

func errorOf(t *testing.T, body []byte) string {
	t.Helper()
	var e model.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return e.Error
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.do(http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSignupStatusCodes(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminEmail)
	ana := s.login("ana", "ana@example.com")
	bob := s.login("bob", "bob@example.com")
	event := s.createEvent(admin, 1)
	path := "/events/" + event.ID + "/signup"

	if resp, _ := s.do(http.MethodPost, path, "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous signup = %d, want 401", resp.StatusCode)
	}
	if resp, body := s.do(http.MethodPost, path, ana, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("signup = %d %s", resp.StatusCode, body)
	}
	if resp, _ := s.do(http.MethodPost, path, ana, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second signup = %d, want 409", resp.StatusCode)
	}
	if resp, body := s.do(http.MethodPost, path, bob, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("full signup = %d, want 400", resp.StatusCode)
	} else if msg := errorOf(t, body); msg != "no slots available" {
		t.Fatalf("full signup message = %q", msg)
	}
	if resp, _ := s.do(http.MethodPost, "/events/00000000-0000-0000-0000-000000000000/signup", ana, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown event signup = %d, want 404", resp.StatusCode)
	}

	if resp, _ := s.do(http.MethodDelete, path, "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous withdraw = %d, want 401", resp.StatusCode)
	}
	if resp, _ := s.do(http.MethodDelete, path, ana, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("withdraw = %d", resp.StatusCode)
	}
	if resp, _ := s.do(http.MethodDelete, path, ana, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("repeated withdraw = %d, want 200", resp.StatusCode)
	}
	if resp, body := s.do(http.MethodPost, path, bob, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("signup after withdraw = %d %s", resp.StatusCode, body)
	}
}

func TestWithdrawViaPostAction(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminEmail)
	ana := s.login("ana", "ana@example.com")
	event := s.createEvent(admin, 3)
	path := "/events/" + event.ID + "/signup"

	if resp, _ := s.do(http.MethodPost, path, ana, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("signup = %d", resp.StatusCode)
	}
	if resp, _ := s.do(http.MethodPost, path+"?action=delete", ana, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("post withdraw = %d", resp.StatusCode)
	}

	resp, body := s.do(http.MethodGet, "/events/"+event.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get event = %d", resp.StatusCode)
	}
	var got model.Event
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FreeSlots != 3 {
		t.Fatalf("free slots = %d, want 3", got.FreeSlots)
	}
}

func TestConcurrentSignupsForLastSlot(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminEmail)
	event := s.createEvent(admin, 1)
	tokens := []string{s.login("ana", "ana@example.com"), s.login("bob", "bob@example.com")}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for _, tok := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, s.srv.URL+"/events/"+event.ID+"/signup", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Errorf("signup: %v", err)
				return
			}
			resp.Body.Close()
			mu.Lock()
			codes[resp.StatusCode]++
			mu.Unlock()
		}(tok)
	}
	wg.Wait()

	if codes[http.StatusOK] != 1 || codes[http.StatusBadRequest] != 1 {
		t.Fatalf("status codes = %v, want one 200 and one 400", codes)
	}
}

func TestCreateEventRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	ana := s.login("ana", "ana@example.com")
	req := model.CreateEventRequest{Title: "X", Date: "2026-06-01", Time: "18:00", Slots: 1}

	if resp, _ := s.do(http.MethodPost, "/events", "", req); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d, want 401", resp.StatusCode)
	}
	if resp, _ := s.do(http.MethodPost, "/events", ana, req); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user create = %d, want 403", resp.StatusCode)
	}

	admin := s.login("admin", adminEmail)
	req.Slots = 0
	resp, body := s.do(http.MethodPost, "/events", admin, req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero slots = %d, want 400", resp.StatusCode)
	}
	if msg := errorOf(t, body); msg != "slots must be a positive integer" {
		t.Fatalf("message = %q", msg)
	}
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func multipartEvent(t *testing.T, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"title": "Quedada", "category": "quedada", "date": "2026-07-01", "time": "11:30", "slots": "4",
	} {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "cover.bin")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(image); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestCreateEventMultipart(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminEmail)

	body, ctype := multipartEvent(t, pngHeader)
	req, _ := http.NewRequest(http.MethodPost, s.srv.URL+"/events", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, raw := s.send(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, raw)
	}
	var e model.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasSuffix(e.Image, ".png") {
		t.Fatalf("image = %q, want .png", e.Image)
	}
	if resp, _ := s.do(http.MethodGet, "/img/"+e.Image, "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("serve image = %d", resp.StatusCode)
	}

	body, ctype = multipartEvent(t, []byte("#!/bin/sh\necho hi\n"))
	req, _ = http.NewRequest(http.MethodPost, s.srv.URL+"/events", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+admin)
	if resp, raw := s.send(req); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("script upload = %d %s, want 400", resp.StatusCode, raw)
	}
}

func TestListEventsAndUserEvents(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminEmail)
	ana := s.login("ana", "ana@example.com")
	for i := 0; i < 10; i++ {
		s.createEvent(admin, 2)
	}

	resp, body := s.do(http.MethodGet, "/events?page=1&category=all", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list = %d", resp.StatusCode)
	}
	var page []model.Event
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page) != model.EventsPageSize {
		t.Fatalf("page size = %d, want %d", len(page), model.EventsPageSize)
	}

	_, body = s.do(http.MethodGet, "/events?page=2", "", nil)
	var second []model.Event
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("second page = %d, want 1", len(second))
	}

	if resp, _ := s.do(http.MethodGet, "/events?date=junio", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date = %d, want 400", resp.StatusCode)
	}

	if resp, _ := s.do(http.MethodGet, "/users/me/events", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous my events = %d, want 401", resp.StatusCode)
	}
	if resp, _ := s.do(http.MethodGet, "/users/me/events.ics", ana, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("empty calendar = %d, want 204", resp.StatusCode)
	}

	if resp, _ := s.do(http.MethodPost, "/events/"+second[0].ID+"/signup", ana, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("signup = %d", resp.StatusCode)
	}
	_, body = s.do(http.MethodGet, "/users/me/events", ana, nil)
	var mine []model.Event
	if err := json.Unmarshal(body, &mine); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != second[0].ID {
		t.Fatalf("my events = %+v", mine)
	}

	resp, body = s.do(http.MethodGet, "/users/me/events.ics", ana, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("calendar = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type = %q", ct)
	}
	if !bytes.Contains(body, []byte("BEGIN:VEVENT")) {
		t.Fatalf("calendar body = %s", body)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(http.MethodGet, "/users/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous me = %d, want 401", resp.StatusCode)
	}
	if msg := errorOf(t, body); msg != "login required" {
		t.Fatalf("anonymous me error = %q", msg)
	}

	if resp, _ := s.do(http.MethodPost, "/auth/register", "", model.RegisterRequest{Email: "x@example.com"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("incomplete register = %d, want 400", resp.StatusCode)
	}
	token := s.login("ana", "ana@example.com")
	if resp, _ := s.do(http.MethodPost, "/auth/register", "", model.RegisterRequest{Username: "a", Email: "ana@example.com", Password: "pw"}); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register = %d, want 409", resp.StatusCode)
	}
	if resp, _ := s.do(http.MethodPost, "/auth/login", "", model.LoginRequest{Email: "nobody@example.com", Password: "pw"}); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown login = %d, want 404", resp.StatusCode)
	}
	if resp, _ := s.do(http.MethodPost, "/auth/login", "", model.LoginRequest{Email: "ana@example.com", Password: "nope"}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d, want 401", resp.StatusCode)
	}

	_, body = s.do(http.MethodGet, "/users/me", token, nil)
	var me model.MeResponse
	if err := json.Unmarshal(body, &me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !me.Authenticated || me.Username != "ana" || me.Role != model.RoleUser {
		t.Fatalf("me = %+v", me)
	}

	if resp, _ := s.do(http.MethodPost, "/auth/logout", token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("logout = %d", resp.StatusCode)
	}
	if resp, _ := s.do(http.MethodGet, "/users/me", token, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token = %d, want 401", resp.StatusCode)
	}
	if resp, _ := s.do(http.MethodGet, "/users/me", "not-a-token", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token = %d, want 401", resp.StatusCode)
	}
}

func TestGamesResponseCache(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.games.Import(context.Background(), []model.Game{
		{ID: "g1", Title: "Pokémon Escarlata", Genre: "RPG", Platforms: []string{"Switch"}},
	}); err != nil {
		t.Fatalf("import: %v", err)
	}

	resp, body := s.do(http.MethodGet, "/games?q=pokemon", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Cache") != "MISS" {
		t.Fatalf("first = %d cache=%q", resp.StatusCode, resp.Header.Get("X-Cache"))
	}
	var games []model.Game
	if err := json.Unmarshal(body, &games); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("games = %+v", games)
	}

	resp, cached := s.do(http.MethodGet, "/games?q=pokemon", "", nil)
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Fatalf("second cache = %q, want HIT", resp.Header.Get("X-Cache"))
	}
	if !bytes.Equal(body, cached) {
		t.Fatalf("cached body differs: %s vs %s", cached, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("cached content type = %q", ct)
	}

	s.mr.FastForward(2 * time.Minute)
	if resp, _ := s.do(http.MethodGet, "/games?q=pokemon", "", nil); resp.Header.Get("X-Cache") != "MISS" {
		t.Fatalf("after ttl cache = %q, want MISS", resp.Header.Get("X-Cache"))
	}
}
