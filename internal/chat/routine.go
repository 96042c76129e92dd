package chat

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/herofit/storefront/internal/api"
)

// ErrSuperseded is returned by a load that finished after a newer load for
// another routine was started. Its result is discarded.
var ErrSuperseded = errors.New("routine load superseded")

// RoutineFetcher loads a routine by id. *api.Client implements it.
type RoutineFetcher interface {
	Routine(ctx context.Context, id string) (api.Routine, error)
}

// LoadedRoutine is the routine currently on screen.
type LoadedRoutine struct {
	ID      string
	Routine api.Routine
	// Fallback is set when the server was unavailable and the routine was
	// generated locally.
	Fallback bool
}

// RoutineLoader loads one routine at a time. Starting a load cancels the
// previous one, so a slow response for an old id never replaces the
// current routine.
type RoutineLoader struct {
	fetch RoutineFetcher
	log   logrus.FieldLogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	seq     uint64
	current *LoadedRoutine
}

// NewRoutineLoader builds a RoutineLoader.
func NewRoutineLoader(fetch RoutineFetcher, log logrus.FieldLogger) *RoutineLoader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RoutineLoader{fetch: fetch, log: log.WithField("component", "routine")}
}

// Load fetches routine id, replacing whatever was loaded before.
func (l *RoutineLoader) Load(ctx context.Context, id string) (LoadedRoutine, error) {
	id = strings.TrimSpace(id)
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	l.seq++
	seq := l.seq
	l.mu.Unlock()
	defer cancel()

	routine, err := l.fetch.Routine(ctx, id)
	loaded := LoadedRoutine{ID: id, Routine: routine}
	if err != nil && ctx.Err() == nil && unavailable(err) {
		l.log.WithError(err).WithField("routine_id", id).Warn("routine unavailable; using generated fallback")
		loaded = LoadedRoutine{ID: id, Routine: FallbackRoutine(id), Fallback: true}
		err = nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return LoadedRoutine{}, ErrSuperseded
	}
	l.cancel = nil
	if err != nil {
		return LoadedRoutine{}, fmt.Errorf("load routine %s: %w", id, err)
	}
	l.current = &loaded
	return loaded, nil
}

// Current returns the last routine that finished loading.
func (l *RoutineLoader) Current() (LoadedRoutine, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return LoadedRoutine{}, false
	}
	return *l.current, true
}

func unavailable(err error) bool {
	if api.IsNetwork(err) {
		return true
	}
	status := api.StatusOf(err)
	return status == http.StatusNotFound || status >= http.StatusInternalServerError
}

var (
	fallbackLevels = []string{"principiante", "intermedio", "avanzado"}
	fallbackDays   = [][]string{
		{"Lunes", "Miércoles", "Viernes"},
		{"Lunes", "Martes", "Jueves", "Viernes"},
		{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes"},
	}
	fallbackPool = []api.Exercise{
		{Nombre: "Sentadilla", Series: 4, Repeticiones: "10"},
		{Nombre: "Press de banca", Series: 4, Repeticiones: "8"},
		{Nombre: "Peso muerto", Series: 3, Repeticiones: "6"},
		{Nombre: "Dominadas", Series: 3, Repeticiones: "máx"},
		{Nombre: "Remo con barra", Series: 4, Repeticiones: "10"},
		{Nombre: "Press militar", Series: 3, Repeticiones: "10"},
		{Nombre: "Zancadas", Series: 3, Repeticiones: "12"},
		{Nombre: "Plancha", Series: 3, Repeticiones: "45s"},
		{Nombre: "Fondos", Series: 3, Repeticiones: "12"},
	}
)

// FallbackRoutine generates a routine from id alone. The same id always
// yields the same routine.
func FallbackRoutine(id string) api.Routine {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	seed := h.Sum32()

	level := int(seed % uint32(len(fallbackLevels)))
	days := fallbackDays[level]
	r := api.Routine{
		ID:     api.Ref(id),
		Nombre: "Rutina " + strings.ToUpper(fallbackLevels[level][:1]) + fallbackLevels[level][1:],
		Nivel:  fallbackLevels[level],
	}
	for i, day := range days {
		start := (int(seed>>8) + i*3) % len(fallbackPool)
		exercises := make([]api.Exercise, 0, 3)
		for j := 0; j < 3; j++ {
			exercises = append(exercises, fallbackPool[(start+j)%len(fallbackPool)])
		}
		r.Dias = append(r.Dias, api.RoutineDay{Dia: day, Ejercicios: exercises})
	}
	return r
}
