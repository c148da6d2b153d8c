package repository

import (
	"context"
	"errors"
	"math"
	"sort"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oggyb/tubematch/internal/db"
)

// maxSharedChannels caps the shared interest labels returned per candidate.
const maxSharedChannels = 10

// Candidate is one entry of a user's deck.
type Candidate struct {
	UserID         uint64
	Name           string
	AvatarURL      string
	Similarity     float64
	SharedChannels []string
}

// CandidateRepository is the Candidate Ranker.
type CandidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(database *gorm.DB) *CandidateRepository {
	return &CandidateRepository{db: database}
}

type candidateRow struct {
	ID            uint64
	Name          string
	AvatarURL     string
	Subscriptions datatypes.JSONSlice[string]
	PrefVec       *db.PrefVector
	Distance      *float64
}

// Rank returns userID's deck, most similar first.
//
// Behavior:
//   - The requester, users without a profile, and users the requester
//     already liked or passed are never returned.
//   - On Postgres, when the requester has a preference vector, ordering is
//     done by pgvector cosine distance in the database.
//   - Elsewhere candidates are scored in process: cosine similarity of the
//     vectors when both exist, Jaccard overlap of subscriptions otherwise.
//   - Ties are broken by ascending user id so pages are stable.
func (r *CandidateRepository) Rank(ctx context.Context, userID uint64, limit, offset int) ([]Candidate, error) {
	if limit <= 0 {
		return []Candidate{}, nil
	}
	if offset < 0 {
		offset = 0
	}

	var me db.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&me).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if r.db.Dialector.Name() == "postgres" && me.PrefVec != nil {
		return r.rankByDistance(ctx, userID, me, limit, offset)
	}
	return r.rankInProcess(ctx, userID, me, limit, offset)
}

func (r *CandidateRepository) eligible(ctx context.Context, userID uint64) *gorm.DB {
	swiped := r.db.
		Table("likes").
		Select("1").
		Where("likes.actor_id = ? AND likes.target_id = u.id", userID)

	return r.db.WithContext(ctx).
		Table("users u").
		Joins("JOIN profiles p ON p.user_id = u.id").
		Where("u.id <> ?", userID).
		Where("NOT EXISTS (?)", swiped)
}

func (r *CandidateRepository) rankByDistance(ctx context.Context, userID uint64, me db.Profile, limit, offset int) ([]Candidate, error) {
	var rows []candidateRow
	err := r.eligible(ctx, userID).
		Select("u.id, u.name, u.avatar_url, p.subscriptions, p.pref_vec, p.pref_vec <=> ? AS distance", me.PrefVec.Vector).
		Order("distance ASC NULLS LAST, u.id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		c := toCandidate(row, me)
		if row.Distance != nil {
			c.Similarity = 1 - *row.Distance
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *CandidateRepository) rankInProcess(ctx context.Context, userID uint64, me db.Profile, limit, offset int) ([]Candidate, error) {
	var rows []candidateRow
	err := r.eligible(ctx, userID).
		Select("u.id, u.name, u.avatar_url, p.subscriptions, p.pref_vec").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	all := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		all = append(all, toCandidate(row, me))
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Similarity != all[j].Similarity {
			return all[i].Similarity > all[j].Similarity
		}
		return all[i].UserID < all[j].UserID
	})

	if offset >= len(all) {
		return []Candidate{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func toCandidate(row candidateRow, me db.Profile) Candidate {
	return Candidate{
		UserID:         row.ID,
		Name:           row.Name,
		AvatarURL:      row.AvatarURL,
		Similarity:     Similarity(me.PrefVec, row.PrefVec, me.Subscriptions, row.Subscriptions),
		SharedChannels: SharedChannels(me.Subscriptions, row.Subscriptions, maxSharedChannels),
	}
}

// Similarity scores two profiles. Vectors win when both sides have one of
// the same size; subscriptions are compared otherwise.
func Similarity(a, b *db.PrefVector, subsA, subsB []string) float64 {
	if a != nil && b != nil {
		if s, ok := cosine(a.Slice(), b.Slice()); ok {
			return s
		}
	}
	return jaccard(subsA, subsB)
}

func cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	union := len(set)
	inter := 0
	seen := map[string]struct{}{}
	for _, s := range b {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := set[s]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// SharedChannels returns the entries of mine also present in theirs, in
// mine's order, at most limit of them.
func SharedChannels(mine, theirs []string, limit int) []string {
	set := make(map[string]struct{}, len(theirs))
	for _, s := range theirs {
		set[s] = struct{}{}
	}
	out := []string{}
	for _, s := range mine {
		if len(out) == limit {
			break
		}
		if _, ok := set[s]; ok {
			out = append(out, s)
			delete(set, s)
		}
	}
	return out
}
