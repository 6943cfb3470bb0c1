// Package firestore stores the ledger in Cloud Firestore using one document
// tree per user:
//
//	users/{uid}
//	users/{uid}/transactions/{YYYY-MM-DD}
//	users/{uid}/dreams/{id}
//	users/{uid}/investments/{id}
//
// Amounts are stored as rupee numbers. Documents written by other clients may
// carry strings or omit fields; decoding treats anything unreadable as zero.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	goption "google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gigledger/internal/core"
	"gigledger/internal/log"
	"gigledger/internal/store"
)

const (
	usersCollection       = "users"
	transactionsColl      = "transactions"
	dreamsCollection      = "dreams"
	investmentsCollection = "investments"
)

type Store struct {
	client *gfs.Client
	cats   []string
}

var _ store.Store = (*Store)(nil)

// Config selects the project and credentials. An empty CredentialsFile uses
// Application Default Credentials, which also covers FIRESTORE_EMULATOR_HOST.
type Config struct {
	ProjectID       string
	CredentialsFile string
	Categories      []string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("missing firestore project id")
	}
	var opts []goption.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("credentials file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gfs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	cats := cfg.Categories
	if len(cats) == 0 {
		cats = core.DefaultExpenseCategories
	}
	slog.InfoContext(ctx, "Firestore client ready",
		"project_id", projectID,
		"emulator", os.Getenv("FIRESTORE_EMULATOR_HOST") != "")
	return &Store{client: client, cats: cats}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reads at most one user document to check the connection.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(usersCollection).Limit(1).Documents(ctx).Next()
	if errors.Is(err, iterator.Done) {
		return nil
	}
	return err
}

func (s *Store) user(uid string) *gfs.DocumentRef {
	return s.client.Collection(usersCollection).Doc(uid)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *Store) GetProfile(ctx context.Context, uid string) (core.UserProfile, error) {
	snap, err := s.user(uid).Get(ctx)
	if isNotFound(err) {
		return core.UserProfile{}, store.ErrNotFound
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	p := decodeProfile(uid, snap.Data())
	p.CreatedAt = snap.CreateTime
	p.UpdatedAt = snap.UpdateTime
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, uid string, p core.ProfilePatch) error {
	data := encodeProfilePatch(p)
	data["userId"] = uid
	data["updated_at"] = gfs.ServerTimestamp
	if _, err := s.user(uid).Set(ctx, data, gfs.MergeAll); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, uid string, date core.DateKey) (core.LedgerEntry, error) {
	snap, err := s.user(uid).Collection(transactionsColl).Doc(string(date)).Get(ctx)
	if isNotFound(err) {
		return core.LedgerEntry{}, store.ErrNotFound
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	e := decodeEntry(date, snap.Data())
	e.UpdatedAt = snap.UpdateTime
	return e, nil
}

// ListEntries returns the user's entries, newest date first. Document ids
// are the date keys, whatever their shape.
func (s *Store) ListEntries(ctx context.Context, uid string) ([]core.LedgerEntry, error) {
	snaps, err := s.user(uid).Collection(transactionsColl).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	out := make([]core.LedgerEntry, 0, len(snaps))
	for _, snap := range snaps {
		e := decodeEntry(core.DateKey(snap.Ref.ID), snap.Data())
		e.UpdatedAt = snap.UpdateTime
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// UpsertEntry merges the patch at field level; expense categories merge one
// by one because MergeAll descends into nested maps.
func (s *Store) UpsertEntry(ctx context.Context, uid string, date core.DateKey, p core.LedgerPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data := encodeLedgerPatch(p)
	data["date"] = string(date)
	data["updated_at"] = gfs.ServerTimestamp
	ref := s.user(uid).Collection(transactionsColl).Doc(string(date))
	if _, err := ref.Set(ctx, data, gfs.MergeAll); err != nil {
		return fmt.Errorf("upsert ledger entry: %w", err)
	}
	return nil
}

// ListGoals returns every dream, oldest first. Dreams written by the web
// app carry no created_at; an OrderBy on it would drop them, so ordering
// happens here.
func (s *Store) ListGoals(ctx context.Context, uid string) ([]core.Goal, error) {
	snaps, err := s.user(uid).Collection(dreamsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, decodeGoal(snap.Ref.ID, snap.Data()))
	}
	sortGoals(out)
	return out, nil
}

func (s *Store) GetGoal(ctx context.Context, uid, id string) (core.Goal, error) {
	snap, err := s.user(uid).Collection(dreamsCollection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return core.Goal{}, store.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return decodeGoal(id, snap.Data()), nil
}

func (s *Store) CreateGoal(ctx context.Context, uid string, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	data := encodeGoal(g)
	data["userId"] = uid
	data["created_at"] = gfs.ServerTimestamp
	ref, _, err := s.user(uid).Collection(dreamsCollection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("create goal: %w", err)
	}
	return ref.ID, nil
}

// UpdateGoal fails with store.ErrNotFound when the goal was deleted.
func (s *Store) UpdateGoal(ctx context.Context, uid string, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	var updates []gfs.Update
	for k, v := range encodeGoal(g) {
		updates = append(updates, gfs.Update{Path: k, Value: v})
	}
	if g.Linked == nil {
		updates = append(updates, gfs.Update{Path: "linked_investment", Value: gfs.Delete})
	}
	_, err := s.user(uid).Collection(dreamsCollection).Doc(g.ID).Update(ctx, updates)
	if isNotFound(err) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, uid, id string) error {
	_, err := s.user(uid).Collection(dreamsCollection).Doc(id).Delete(ctx, gfs.Exists)
	if isNotFound(err) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

func (s *Store) ListInvestments(ctx context.Context, uid string) ([]core.Investment, error) {
	snaps, err := s.user(uid).Collection(investmentsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	out := make([]core.Investment, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, decodeInvestment(snap.Ref.ID, snap.Data()))
	}
	sortInvestments(out)
	return out, nil
}

func (s *Store) AddInvestment(ctx context.Context, uid string, inv core.Investment) (string, error) {
	if err := inv.Validate(); err != nil {
		return "", err
	}
	data := encodeInvestment(inv)
	data["userId"] = uid
	data["created_at"] = gfs.ServerTimestamp
	ref, _, err := s.user(uid).Collection(investmentsCollection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("add investment: %w", err)
	}
	slog.InfoContext(ctx, "Investment saved to Firestore", "id", ref.ID, log.FieldUserID, uid)
	return ref.ID, nil
}

// ExpenseCategories returns the configured categories followed by the ones
// found in the user's ledger.
func (s *Store) ExpenseCategories(ctx context.Context, uid string) ([]string, error) {
	entries, err := s.ListEntries(ctx, uid)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, e := range entries {
		for c := range e.Expenses {
			set[c] = struct{}{}
		}
	}
	used := make([]string, 0, len(set))
	for c := range set {
		used = append(used, c)
	}
	sort.Strings(used)
	return store.MergeCategories(s.cats, used), nil
}
