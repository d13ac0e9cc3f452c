package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"carfinder/internal/model"
)

// fakeCompleter answers by system prompt and counts calls
type fakeCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     map[string]int
	lastUser  map[string]string
}

func newFakeCompleter() *fakeCompleter {
	return &fakeCompleter{
		responses: make(map[string]string),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
		lastUser:  make(map[string]string),
	}
}

func (f *fakeCompleter) on(system, response string) *fakeCompleter {
	f.responses[system] = response
	return f
}

func (f *fakeCompleter) fail(system string, err error) *fakeCompleter {
	f.errs[system] = err
	return f
}

func (f *fakeCompleter) callsFor(system string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[system]
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[system]++
	f.lastUser[system] = user
	if err := f.errs[system]; err != nil {
		return "", err
	}
	if resp, ok := f.responses[system]; ok {
		return resp, nil
	}
	return "", errors.New("no scripted response")
}

func (f *fakeCompleter) CompleteStream(ctx context.Context, system, user string, temperature float64, maxTokens int, onDelta func(string) error) (string, error) {
	full, err := f.Complete(ctx, system, user, temperature, maxTokens)
	if err != nil {
		return "", err
	}
	for _, word := range strings.SplitAfter(full, " ") {
		if err := onDelta(word); err != nil {
			return "", err
		}
	}
	return full, nil
}

// fakeEmbedder returns a fixed vector
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeRetriever serves canned search hits and enumeration pages
type fakeRetriever struct {
	mu sync.Mutex

	hits      []model.ScoredCar
	searchErr error

	// pages maps an incoming cursor to the page and next cursor it returns
	pages   map[string]fakePage
	enumErr error

	searchCalls    int
	enumerateCalls int
	lastPredicate  *model.Predicate
	lastLimit      int
}

type fakePage struct {
	cars []model.Car
	next string
}

func (f *fakeRetriever) Search(ctx context.Context, pred *model.Predicate, vector []float32, limit int) ([]model.ScoredCar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastPredicate = pred
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := f.hits
	if len(out) > limit {
		out = out[:limit]
	}
	return append([]model.ScoredCar(nil), out...), nil
}

func (f *fakeRetriever) Enumerate(ctx context.Context, pred *model.Predicate, cursor string, batch int) ([]model.Car, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enumerateCalls++
	f.lastPredicate = pred
	if f.enumErr != nil {
		return nil, "", f.enumErr
	}
	page := f.pages[cursor]
	return append([]model.Car(nil), page.cars...), page.next, nil
}

func strPtr(s string) *string { return &s }

func float64Ptr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
