package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/herofit/storefront/internal/api"
)

func newClient(t *testing.T, h http.Handler) *api.Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	log, _ := test.NewNullLogger()
	client, err := api.NewClient(server.URL, api.WithLogger(log))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestService_SendKeepsTranscript(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"csrf_token": "tok"})
	})
	mux.HandleFunc("/chat/send", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["sender"] != "ana" || body["message"] != "quiero ganar masa" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{{"text": "¡Vamos!"}, {"text": ""}, {"text": "Rutina lista: /rutina/4"}})
	})
	log, _ := test.NewNullLogger()
	svc := NewService(newClient(t, mux), log)

	replies, err := svc.Send(context.Background(), "ana", "  quiero ganar masa ")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(replies) != 2 || replies[1].Text != "Rutina lista: /rutina/4" || replies[0].From != BotSender {
		t.Fatalf("replies = %+v", replies)
	}
	history := svc.History()
	if len(history) != 3 || history[0].From != "ana" || history[0].Text != "quiero ganar masa" {
		t.Fatalf("history = %+v", history)
	}

	if _, err := svc.Send(context.Background(), "ana", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Send(blank) error = %v, want ErrEmptyMessage", err)
	}
}

func TestService_SendFailureKeepsOutgoingMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"csrf_token": "tok"})
	})
	mux.HandleFunc("/chat/send", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "asistente no disponible"})
	})
	log, _ := test.NewNullLogger()
	svc := NewService(newClient(t, mux), log)

	_, err := svc.Send(context.Background(), "ana", "hola")
	if api.UserMessage(err) != "asistente no disponible" {
		t.Fatalf("Send error = %v", err)
	}
	if h := svc.History(); len(h) != 1 || h[0].Text != "hola" {
		t.Fatalf("history = %+v, want outgoing message only", h)
	}
}

func TestRoutineLoader_LoadsFromServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/routine/4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 4, "nombre": "Hipertrofia", "nivel": "intermedio", "dias": [{"dia": "Lunes", "ejercicios": [{"nombre": "Sentadilla", "series": 4, "repeticiones": "10"}]}]}`))
	})
	log, _ := test.NewNullLogger()
	loader := NewRoutineLoader(newClient(t, mux), log)

	got, err := loader.Load(context.Background(), "4")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.Fallback || got.Routine.Nombre != "Hipertrofia" || len(got.Routine.Dias) != 1 {
		t.Fatalf("routine = %+v", got)
	}
	if cur, ok := loader.Current(); !ok || cur.ID != "4" {
		t.Fatalf("Current = %+v, %v", cur, ok)
	}
}

func TestRoutineLoader_FallbackWhenUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"not found", http.StatusNotFound, true},
		{"server error", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			log, _ := test.NewNullLogger()
			got, err := NewRoutineLoader(client, log).Load(context.Background(), "abc")
			if tt.want {
				if err != nil || !got.Fallback {
					t.Fatalf("Load = %+v, %v; want fallback", got, err)
				}
				if !reflect.DeepEqual(got.Routine, FallbackRoutine("abc")) {
					t.Fatalf("fallback routine differs from FallbackRoutine")
				}
				return
			}
			if api.StatusOf(err) != tt.status {
				t.Fatalf("Load error = %v, want status %d", err, tt.status)
			}
		})
	}
}

func TestRoutineLoader_FallbackOnNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	log, _ := test.NewNullLogger()
	client, err := api.NewClient(url, api.WithLogger(log))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	got, err := NewRoutineLoader(client, log).Load(context.Background(), "9")
	if err != nil || !got.Fallback {
		t.Fatalf("Load = %+v, %v; want fallback", got, err)
	}
}

type gatedFetcher struct {
	release map[string]chan struct{}
	started chan string
}

func (g *gatedFetcher) Routine(ctx context.Context, id string) (api.Routine, error) {
	g.started <- id
	select {
	case <-g.release[id]:
		return api.Routine{ID: api.Ref(id), Nombre: "rutina " + id}, nil
	case <-ctx.Done():
		return api.Routine{}, ctx.Err()
	}
}

func TestRoutineLoader_NewLoadSupersedesOld(t *testing.T) {
	g := &gatedFetcher{
		release: map[string]chan struct{}{"1": make(chan struct{}), "2": make(chan struct{})},
		started: make(chan string, 2),
	}
	log, _ := test.NewNullLogger()
	loader := NewRoutineLoader(g, log)

	first := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background(), "1")
		first <- err
	}()
	<-g.started

	second := make(chan LoadedRoutine, 1)
	go func() {
		r, _ := loader.Load(context.Background(), "2")
		second <- r
	}()
	<-g.started

	select {
	case err := <-first:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("first load error = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("first load was not cancelled")
	}

	close(g.release["2"])
	if r := <-second; r.ID != "2" {
		t.Fatalf("second load = %+v", r)
	}
	if cur, _ := loader.Current(); cur.ID != "2" {
		t.Fatalf("Current = %+v, want routine 2", cur)
	}
}

func TestFallbackRoutine_Deterministic(t *testing.T) {
	a := FallbackRoutine("42")
	b := FallbackRoutine("42")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("FallbackRoutine not deterministic")
	}
	if a.ID != "42" || len(a.Dias) < 3 || !strings.HasPrefix(a.Nombre, "Rutina ") {
		t.Fatalf("routine = %+v", a)
	}
	for _, d := range a.Dias {
		if len(d.Ejercicios) != 3 {
			t.Fatalf("day %s has %d exercises, want 3", d.Dia, len(d.Ejercicios))
		}
	}
}
