// Package devseed fills an empty store with fake dashboard data for local
// development.
package devseed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/jarvisboard/jarvisboard/internal/storage"
)

// SeedEnv names the environment variable that fixes the generator seed.
const SeedEnv = "DEV_SEED"

// Corpus generation constants.
const (
	minTasks          = 6
	maxExtraTasks     = 10 // 6-15 tasks total
	minLogEntries     = 40
	maxExtraLog       = 80 // 40-119 entries, enough to page through
	minArtifacts      = 3
	maxExtraArtifacts = 8
	descProbability   = 0.6
)

// Store is the subset of [storage.Store] that seeding writes to.
type Store interface {
	storage.Status
	storage.Tasks
	storage.Log
	storage.Artifacts
}

// Result counts what [Populate] created.
type Result struct {
	Tasks      int
	LogEntries int
	Artifacts  int
}

// Seed returns the seed from the DEV_SEED environment variable, or a random
// value if not set.
func Seed() uint64 {
	if env := os.Getenv(SeedEnv); env != "" {
		if seed, err := strconv.ParseUint(env, 10, 64); err == nil {
			return seed
		}
	}
	return rand.Uint64() //nolint:gosec // intentionally weak random for test data
}

// Populate writes a seeded corpus to store. It does nothing if the store
// already has tasks, so restarting a dev server keeps edits.
func Populate(ctx context.Context, store Store, seed uint64) (Result, error) {
	var res Result
	existing, err := store.ListTasks(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to check for existing tasks: %w", err)
	} else if len(existing) > 0 {
		return res, nil
	}

	faker := gofakeit.New(seed)
	statuses := storage.TaskStatuses()
	types := storage.ArtifactTypes()

	var current string
	for range minTasks + faker.IntN(maxExtraTasks) {
		title := taskTitle(faker)
		status := statuses[faker.IntN(len(statuses))]
		if _, err = store.CreateTask(ctx, title, optional(faker, faker.Sentence(12)), status); err != nil {
			return res, fmt.Errorf("failed to seed task: %w", err)
		}
		if status == storage.TaskInProgress {
			current = title
		}
		res.Tasks++
	}

	for range minLogEntries + faker.IntN(maxExtraLog) {
		action := logActions[faker.IntN(len(logActions))]
		if _, err = store.CreateLogEntry(ctx, action, optional(faker, faker.Sentence(8))); err != nil {
			return res, fmt.Errorf("failed to seed log entry: %w", err)
		}
		res.LogEntries++
	}

	for range minArtifacts + faker.IntN(maxExtraArtifacts) {
		url := faker.URL()
		artifact := storage.NewArtifact{
			Title:       titleCase(faker.Adjective()) + " " + faker.Noun() + " report",
			Type:        types[faker.IntN(len(types))],
			URL:         &url,
			Description: optional(faker, faker.Sentence(10)),
		}
		if _, err = store.CreateArtifact(ctx, artifact); err != nil {
			return res, fmt.Errorf("failed to seed artifact: %w", err)
		}
		res.Artifacts++
	}

	active := current != ""
	update := storage.StatusUpdate{IsActive: &active}
	if active {
		update.CurrentTask = &current
	}
	if _, err = store.UpdateStatus(ctx, update); err != nil {
		return res, fmt.Errorf("failed to seed status: %w", err)
	}
	return res, nil
}

var logActions = []string{
	"heartbeat", "checked_email", "updated_calendar", "ran_backup",
	"summarized_news", "drafted_reply", "compacted_context", "synced_notes",
}

func taskTitle(faker *gofakeit.Faker) string {
	patterns := []func(*gofakeit.Faker) string{
		func(f *gofakeit.Faker) string { return fmt.Sprintf("%s the %s", titleCase(f.Verb()), f.Noun()) },
		func(f *gofakeit.Faker) string { return fmt.Sprintf("Review %s %s", f.Adjective(), f.Noun()) },
		func(f *gofakeit.Faker) string { return fmt.Sprintf("Follow up on %s", f.Noun()) },
	}
	return patterns[faker.IntN(len(patterns))](faker)
}

func optional(faker *gofakeit.Faker, value string) *string {
	if faker.Float64() >= descProbability {
		return nil
	}
	return &value
}

func titleCase(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
