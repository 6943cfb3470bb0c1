// Package memory is an in-process Store used for development and tests.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gigledger/internal/core"
	"gigledger/internal/store"
)

type userData struct {
	profile     *core.UserProfile
	entries     map[core.DateKey]core.LedgerEntry
	goals       map[string]core.Goal
	investments []core.Investment
}

type Store struct {
	mu    sync.Mutex
	cats  []string
	users map[string]*userData
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(cats []string) *Store {
	return &Store{
		cats:  dedupe(cats),
		users: make(map[string]*userData),
		now:   time.Now,
	}
}

// NewFromFiles seeds the base expense categories from
// base/seed_categories.txt, one per line. A missing or empty file falls back
// to the default categories.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = core.DefaultExpenseCategories
	}
	return New(cats)
}

func (s *Store) user(uid string) *userData {
	u, ok := s.users[uid]
	if !ok {
		u = &userData{
			entries: make(map[core.DateKey]core.LedgerEntry),
			goals:   make(map[string]core.Goal),
		}
		s.users[uid] = u
	}
	return u
}

func (s *Store) GetProfile(_ context.Context, uid string) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok || u.profile == nil {
		return core.UserProfile{}, store.ErrNotFound
	}
	return *u.profile, nil
}

func (s *Store) UpsertProfile(_ context.Context, uid string, p core.ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(uid)
	now := s.now()
	base := core.UserProfile{ID: uid, CreatedAt: now}
	if u.profile != nil {
		base = *u.profile
	}
	merged := p.Apply(base)
	merged.UpdatedAt = now
	u.profile = &merged
	return nil
}

func (s *Store) GetEntry(_ context.Context, uid string, date core.DateKey) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return core.LedgerEntry{}, store.ErrNotFound
	}
	e, ok := u.entries[date]
	if !ok {
		return core.LedgerEntry{}, store.ErrNotFound
	}
	return cloneEntry(e), nil
}

// ListEntries returns the user's entries, newest date first.
func (s *Store) ListEntries(_ context.Context, uid string) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, nil
	}
	out := make([]core.LedgerEntry, 0, len(u.entries))
	for _, e := range u.entries {
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) UpsertEntry(_ context.Context, uid string, date core.DateKey, p core.LedgerPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(uid)
	base, ok := u.entries[date]
	if !ok {
		base = core.LedgerEntry{Date: date}
	}
	merged := p.Apply(base)
	merged.UpdatedAt = s.now()
	u.entries[date] = merged
	return nil
}

// ListGoals returns goals oldest first.
func (s *Store) ListGoals(_ context.Context, uid string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, nil
	}
	out := make([]core.Goal, 0, len(u.goals))
	for _, g := range u.goals {
		out = append(out, cloneGoal(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetGoal(_ context.Context, uid, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return core.Goal{}, store.ErrNotFound
	}
	g, ok := u.goals[id]
	if !ok {
		return core.Goal{}, store.ErrNotFound
	}
	return cloneGoal(g), nil
}

func (s *Store) CreateGoal(_ context.Context, uid string, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.NewString()
	g.CreatedAt = s.now()
	s.user(uid).goals[g.ID] = cloneGoal(g)
	return g.ID, nil
}

func (s *Store) UpdateGoal(_ context.Context, uid string, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return store.ErrNotFound
	}
	old, ok := u.goals[g.ID]
	if !ok {
		return store.ErrNotFound
	}
	g.CreatedAt = old.CreatedAt
	u.goals[g.ID] = cloneGoal(g)
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := u.goals[id]; !ok {
		return store.ErrNotFound
	}
	delete(u.goals, id)
	return nil
}

// ListInvestments returns investments in the order they were added.
func (s *Store) ListInvestments(_ context.Context, uid string) ([]core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, nil
	}
	return append([]core.Investment(nil), u.investments...), nil
}

func (s *Store) AddInvestment(_ context.Context, uid string, inv core.Investment) (string, error) {
	if err := inv.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = uuid.NewString()
	inv.CreatedAt = s.now()
	u := s.user(uid)
	u.investments = append(u.investments, inv)
	return inv.ID, nil
}

// ExpenseCategories returns the seeded categories followed by the ones the
// user has logged, alphabetically.
func (s *Store) ExpenseCategories(_ context.Context, uid string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var used []string
	if u, ok := s.users[uid]; ok {
		set := make(map[string]struct{})
		for _, e := range u.entries {
			for c := range e.Expenses {
				set[c] = struct{}{}
			}
		}
		for c := range set {
			used = append(used, c)
		}
		sort.Strings(used)
	}
	return store.MergeCategories(s.cats, used), nil
}

func cloneEntry(e core.LedgerEntry) core.LedgerEntry {
	return core.LedgerPatch{}.Apply(e)
}

func cloneGoal(g core.Goal) core.Goal {
	if g.Linked != nil {
		l := *g.Linked
		g.Linked = &l
	}
	return g
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe keeps input order.
func dedupe(in []string) []string {
	trimmed := make([]string, 0, len(in))
	for _, v := range in {
		trimmed = append(trimmed, strings.TrimSpace(v))
	}
	return store.MergeCategories(trimmed)
}
