package explore

import (
	"strconv"

	"github.com/oggyb/tubematch/internal/db"
	"github.com/oggyb/tubematch/internal/repository"
)

const unknownUserName = "Unknown User"

type CandidateView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	AvatarURL      string   `json:"avatar_url"`
	Similarity     float64  `json:"similarity"`
	SharedChannels []string `json:"shared_channels"`
}

type DeckResponse struct {
	Candidates []CandidateView `json:"candidates"`
}

type Liker struct {
	ActorID       string `json:"actor_id"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

type LikersResponse struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"next_pagination_token,omitempty"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

func toCandidateView(c repository.Candidate) CandidateView {
	v := CandidateView{
		ID:             strconv.FormatUint(c.UserID, 10),
		Name:           c.Name,
		AvatarURL:      c.AvatarURL,
		Similarity:     c.Similarity,
		SharedChannels: c.SharedChannels,
	}
	if v.Name == "" {
		v.Name = unknownUserName
	}
	if v.SharedChannels == nil {
		v.SharedChannels = []string{}
	}
	return v
}

func likersResponse(likes []db.Like, next *string) LikersResponse {
	resp := LikersResponse{Likers: make([]Liker, 0, len(likes)), NextPaginationToken: next}
	for _, l := range likes {
		resp.Likers = append(resp.Likers, Liker{
			ActorID:       strconv.FormatUint(l.ActorID, 10),
			UnixTimestamp: uint64(l.UpdatedAt.UnixMilli()),
		})
	}
	return resp
}
