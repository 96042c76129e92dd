package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultBaseURL {
		t.Fatalf("host = %q, want %q", u.Host, defaultBaseURL)
	}

	u, err = parseBaseURL("https://shop.example.com:8443/app?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_HTTPErrorMessagePriority(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/producto/1":
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "no existe", "errores": []string{"x"}})
		case "/producto/2":
			writeJSON(w, http.StatusBadRequest, map[string]any{"errores": []string{"sin stock", "precio inválido"}, "message": "m"})
		case "/producto/3":
			writeJSON(w, http.StatusConflict, map[string]any{"message": "conflicto"})
		case "/producto/4":
			http.Error(w, "boom", http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))

	cases := []struct {
		id     string
		status int
		msg    string
	}{
		{"1", 404, "no existe"},
		{"2", 400, "sin stock\nprecio inválido"},
		{"3", 409, "conflicto"},
		{"4", 502, "HTTP 502"},
	}
	for _, tc := range cases {
		_, err := c.Product(context.Background(), tc.id)
		var herr *HTTPError
		if !errors.As(err, &herr) {
			t.Fatalf("Product(%s) error = %v, want *HTTPError", tc.id, err)
		}
		if herr.Status != tc.status || herr.Message != tc.msg {
			t.Fatalf("Product(%s) = status %d msg %q, want %d %q", tc.id, herr.Status, herr.Message, tc.status, tc.msg)
		}
	}
}

func TestClient_MFARequiredIsDistinguishable(t *testing.T) {
	t.Parallel()

	var mfa atomic.Bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/csrf-token":
			writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "tok"})
		case "/auth/login":
			if mfa.Load() {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Se requiere código", "mfa_required": true})
				return
			}
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Credenciales inválidas"})
		}
	}))

	_, err := c.Login(context.Background(), LoginRequest{Username: "u", Password: "p"})
	var herr *HTTPError
	if !errors.As(err, &herr) || herr.MFARequired() {
		t.Fatalf("plain 401 = %v (mfa=%v), want HTTPError without mfa", err, herr != nil && herr.MFARequired())
	}

	mfa.Store(true)
	_, err = c.Login(context.Background(), LoginRequest{Username: "u", Password: "p"})
	if !errors.As(err, &herr) || !herr.MFARequired() {
		t.Fatalf("mfa 401 = %v, want HTTPError with mfa_required", err)
	}
	if herr.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", herr.Status)
	}
}

func TestClient_NetworkError(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.CartState(context.Background())
	if !IsNetwork(err) {
		t.Fatalf("CartState error = %v, want NetworkError", err)
	}
	if UserMessage(err) != ConnectionMessage {
		t.Fatalf("UserMessage = %q, want connection message", UserMessage(err))
	}
}

func TestClient_MutationsCarryCSRFAndCookies(t *testing.T) {
	t.Parallel()

	var gotToken, gotCookie, gotRequestID string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/csrf-token":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "tok-1"})
		case "/carrito/agregar/7":
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			gotToken = r.Header.Get(headerCSRF)
			gotRequestID = r.Header.Get(headerRequestID)
			if ck, err := r.Cookie("session"); err == nil {
				gotCookie = ck.Value
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "total": 0})
		default:
			http.NotFound(w, r)
		}
	}))

	if _, err := c.AddToCart(context.Background(), "7"); err != nil {
		t.Fatalf("AddToCart returned error: %v", err)
	}
	if gotToken != "tok-1" {
		t.Fatalf("X-CSRF-Token = %q, want tok-1", gotToken)
	}
	if gotCookie != "abc" {
		t.Fatalf("session cookie = %q, want abc", gotCookie)
	}
	if gotRequestID == "" {
		t.Fatalf("X-Request-ID missing")
	}
}

func TestClient_GetsDoNotFetchCSRF(t *testing.T) {
	t.Parallel()

	var csrfHits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/csrf-token":
			csrfHits.Add(1)
			writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "tok"})
		case "/producto/":
			if r.URL.Query().Get("categoria") != "proteina" || r.URL.Query().Get("q") != "whey" {
				t.Errorf("query = %v, want categoria+q", r.URL.Query())
			}
			writeJSON(w, http.StatusOK, []map[string]any{{"id": 3, "nombre": "Whey", "precio": "19990"}})
		}
	}))

	products, err := c.Products(context.Background(), ProductQuery{Categoria: "proteina", Q: " whey "})
	if err != nil {
		t.Fatalf("Products returned error: %v", err)
	}
	if len(products) != 1 || products[0].ID != "3" || products[0].Precio != 19990 {
		t.Fatalf("Products = %#v, want id 3 precio 19990", products)
	}
	if csrfHits.Load() != 0 {
		t.Fatalf("csrf fetched %d times on GET, want 0", csrfHits.Load())
	}
}

func TestClient_ConcurrentMutationsShareOneCSRFFetch(t *testing.T) {
	t.Parallel()

	var csrfHits atomic.Int32
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/csrf-token":
			csrfHits.Add(1)
			<-release
			writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "tok"})
		default:
			if r.Header.Get(headerCSRF) != "tok" {
				t.Errorf("%s missing csrf header", r.URL.Path)
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		}
	}))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []string{"1", "2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := c.AddToCart(context.Background(), id)
			errs <- err
		}(id)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AddToCart returned error: %v", err)
		}
	}
	if got := csrfHits.Load(); got != 1 {
		t.Fatalf("csrf endpoint hit %d times, want 1", got)
	}
}

func TestClient_LogoutInvalidatesToken(t *testing.T) {
	t.Parallel()

	var csrfHits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/csrf-token":
			n := csrfHits.Add(1)
			writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "tok-" + string(rune('0'+n))})
		case "/auth/logout":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "fallo"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{})
		}
	}))

	ctx := context.Background()
	if _, err := c.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart returned error: %v", err)
	}
	if _, err := c.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart returned error: %v", err)
	}
	if csrfHits.Load() != 1 {
		t.Fatalf("csrf hits = %d, want 1 before logout", csrfHits.Load())
	}
	if err := c.Logout(ctx); err == nil {
		t.Fatalf("Logout returned nil error, want server error")
	}
	if c.CSRF().Cached() != "" {
		t.Fatalf("token still cached after logout")
	}
	if _, err := c.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart returned error: %v", err)
	}
	if csrfHits.Load() != 2 {
		t.Fatalf("csrf hits = %d, want 2 after logout", csrfHits.Load())
	}
}

func TestClient_MissingCSRFTokenFailsMutation(t *testing.T) {
	t.Parallel()

	var posted atomic.Bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/csrf-token":
			writeJSON(w, http.StatusOK, map[string]string{})
		default:
			posted.Store(true)
			writeJSON(w, http.StatusOK, map[string]any{})
		}
	}))

	_, err := c.Register(context.Background(), RegisterRequest{FullName: "A", Email: "a@b.c", Password: "x"})
	var cerr *CSRFError
	if !errors.As(err, &cerr) || !errors.Is(err, ErrCSRFMissing) {
		t.Fatalf("Register error = %v, want CSRFError wrapping ErrCSRFMissing", err)
	}
	if posted.Load() {
		t.Fatalf("mutation was sent without a token")
	}
}

func TestClient_NonJSONBodies(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/carrito/estado":
			_, _ = io.WriteString(w, "carrito vacío")
		case "/profile/hero-plans/9/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		case "/producto/5":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "mantenimiento")
		}
	}))

	raw, err := c.CartState(context.Background())
	if err != nil {
		t.Fatalf("CartState returned error: %v", err)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil || text != "carrito vacío" {
		t.Fatalf("CartState raw = %s, want JSON string of body", raw)
	}

	pdf, err := c.HeroPlanPDF(context.Background(), "9")
	if err != nil {
		t.Fatalf("HeroPlanPDF returned error: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Fatalf("pdf = %q, want PDF bytes", pdf)
	}

	_, err = c.Product(context.Background(), "5")
	var herr *HTTPError
	if !errors.As(err, &herr) || herr.RawBody != "mantenimiento" || herr.Message != "HTTP 503" {
		t.Fatalf("Product error = %#v, want raw body and generic message", err)
	}
}

func TestClient_CreateProductMultipart(t *testing.T) {
	t.Parallel()

	var gotName, gotFile string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/csrf-token":
			writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "tok"})
		case "/producto/":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
				return
			}
			gotName = r.FormValue("nombre")
			f, hdr, err := r.FormFile("imagen")
			if err != nil {
				t.Errorf("FormFile: %v", err)
				return
			}
			defer f.Close()
			b, _ := io.ReadAll(f)
			gotFile = hdr.Filename + ":" + string(b)
			writeJSON(w, http.StatusCreated, map[string]any{"id": "p-1", "nombre": gotName})
		}
	}))

	p, err := c.CreateProduct(context.Background(),
		ProductInput{Nombre: "Creatina", Precio: 15990, Stock: 3},
		&ImageUpload{Filename: "/tmp/creatina.png", Content: strings.NewReader("png")})
	if err != nil {
		t.Fatalf("CreateProduct returned error: %v", err)
	}
	if p.ID != "p-1" || gotName != "Creatina" || gotFile != "creatina.png:png" {
		t.Fatalf("CreateProduct = %#v name=%q file=%q", p, gotName, gotFile)
	}
}
