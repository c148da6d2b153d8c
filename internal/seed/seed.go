// Package seed fills a development database with demo accounts.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oggyb/tubematch/internal/db"
	"github.com/oggyb/tubematch/internal/matching"
	"github.com/oggyb/tubematch/internal/repository"
)

const demoUsers = 20

var channels = []string{
	"Veritasium", "Kurzgesagt", "3Blue1Brown", "Binging with Babish", "Mark Rober",
	"Tom Scott", "Lofi Girl", "NPR Music", "Wendover Productions", "Marques Brownlee",
	"Yoga With Adriene", "Magnus Midtbø", "Numberphile", "Joshua Weissman", "Primitive Technology",
	"Vsauce", "CGP Grey", "Nerdwriter1", "Hot Ones", "Great Big Story",
}

var traits = []string{
	"Curious and quick to laugh", "Calm, patient and deliberate", "Adventurous and spontaneous",
	"Thoughtful listener with a dry sense of humor", "Energetic planner who loves a project",
}

// Run resets the dating tables and populates them with demo users, profiles
// and swipes.
//
// Behavior:
//  1. Clears matches, likes, profiles, tokens and users.
//  2. Creates 20 users with profiles built from random channel picks.
//  3. Generates ~200 swipes with ~70% likes; every 3rd one is made mutual.
//     Swipes go through the match protocol so matches form as in production.
//
// Compatible with Postgres, MySQL and SQLite.
func Run(ctx context.Context, database *gorm.DB, log *slog.Logger) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"matches", "likes", "profiles", "oauth_tokens", "users"} {
		if err := database.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch database.Dialector.Name() {
	case "mysql":
		database.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		database.Exec("DELETE FROM sqlite_sequence WHERE name = 'users'")
	case "postgres":
		database.Exec("ALTER SEQUENCE users_id_seq RESTART WITH 1")
	}

	log.Info("cleared existing data")

	// --- Seed users and profiles ---
	ids := make([]uint64, 0, demoUsers)
	for i := 1; i <= demoUsers; i++ {
		u := db.User{
			GoogleID: fmt.Sprintf("seed-%d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Name:     fmt.Sprintf("Demo User %d", i),
		}
		if err := database.WithContext(ctx).Create(&u).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		ids = append(ids, u.ID)

		subs := pick(r, channels, 4+r.Intn(5))
		p := db.Profile{
			UserID:        u.ID,
			CoreTraits:    traits[r.Intn(len(traits))],
			Interests:     fmt.Sprintf("Watches a lot of %s and %s", subs[0], subs[1]),
			Summary:       fmt.Sprintf("Demo profile number %d", i),
			Subscriptions: datatypes.JSONSlice[string](subs),
			LastSyncedAt:  time.Now().UTC().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := database.WithContext(ctx).Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Info("seeded users", "count", len(ids))

	// --- Seed swipes (~200) ---
	protocol := matching.NewProtocol(repository.NewPairStore(database))
	counter, matches := 0, 0
	for _, actorID := range ids {
		for j := 0; j < 12; j++ { // each user decides on ~12 others
			targetID := ids[r.Intn(len(ids))]
			if actorID == targetID {
				continue
			}

			// like probability 70%
			liked := r.Intn(100) < 70

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				liked = true
				if _, err := protocol.RecordLike(ctx, targetID, actorID, true); err != nil {
					return fmt.Errorf("failed to seed reciprocal like: %w", err)
				}
			}

			res, err := protocol.RecordLike(ctx, actorID, targetID, liked)
			if err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}
			if res.NewMatch {
				matches++
			}
			counter++
		}
	}
	log.Info("seeded swipes", "swipes", counter, "matches", matches)

	return nil
}

// pick returns n distinct entries of pool in random order.
func pick(r *rand.Rand, pool []string, n int) []string {
	idx := r.Perm(len(pool))
	n = min(n, len(pool))
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}
