// Package activity reads the YouTube and Gmail signals a profile is built from.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	"gorm.io/gorm"
)

const (
	pageSize = 50
	// maxItems bounds each YouTube listing for very active accounts.
	maxItems   = 1000
	sentEmails = 10
)

var errEnough = errors.New("enough items")

type Video struct {
	Title   string
	Channel string
}

type Email struct {
	Subject string
	From    string
	Snippet string
}

// Snapshot is everything collected for one user.
type Snapshot struct {
	Subscriptions []string
	LikedVideos   []Video
	SentEmails    []Email
}

// VideoTitles flattens the liked videos for storage.
func (s Snapshot) VideoTitles() []string {
	out := make([]string, 0, len(s.LikedVideos))
	for _, v := range s.LikedVideos {
		out = append(out, v.Title)
	}
	return out
}

type Collector struct {
	log *slog.Logger
}

func NewCollector(log *slog.Logger) *Collector {
	return &Collector{log: log}
}

// Collect reads subscriptions and liked videos from YouTube, then the most
// recent sent mail. YouTube failures are returned; Gmail is best effort.
func (c *Collector) Collect(ctx context.Context, opts ...option.ClientOption) (Snapshot, error) {
	yt, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("youtube client: %w", err)
	}

	var snap Snapshot
	if snap.Subscriptions, err = subscriptions(ctx, yt); err != nil {
		return Snapshot{}, fmt.Errorf("list subscriptions: %w", err)
	}
	if snap.LikedVideos, err = likedVideos(ctx, yt); err != nil {
		return Snapshot{}, fmt.Errorf("list liked videos: %w", err)
	}

	snap.SentEmails, err = c.sentMail(ctx, opts)
	if err != nil {
		c.log.Warn("gmail unavailable, continuing without it", "err", err)
	}

	c.log.Debug("activity collected",
		"subscriptions", len(snap.Subscriptions),
		"liked_videos", len(snap.LikedVideos),
		"sent_emails", len(snap.SentEmails),
	)
	return snap, nil
}

func subscriptions(ctx context.Context, yt *youtube.Service) ([]string, error) {
	var out []string
	err := yt.Subscriptions.List([]string{"snippet"}).
		Mine(true).
		MaxResults(pageSize).
		Pages(ctx, func(resp *youtube.SubscriptionListResponse) error {
			for _, it := range resp.Items {
				if it.Snippet == nil || it.Snippet.Title == "" {
					continue
				}
				out = append(out, it.Snippet.Title)
				if len(out) >= maxItems {
					return errEnough
				}
			}
			return nil
		})
	if err != nil && !errors.Is(err, errEnough) {
		return nil, err
	}
	return out, nil
}

func likedVideos(ctx context.Context, yt *youtube.Service) ([]Video, error) {
	var out []Video
	err := yt.Videos.List([]string{"snippet"}).
		MyRating("like").
		MaxResults(pageSize).
		Pages(ctx, func(resp *youtube.VideoListResponse) error {
			for _, it := range resp.Items {
				if it.Snippet == nil {
					continue
				}
				out = append(out, Video{Title: it.Snippet.Title, Channel: it.Snippet.ChannelTitle})
				if len(out) >= maxItems {
					return errEnough
				}
			}
			return nil
		})
	if err != nil && !errors.Is(err, errEnough) {
		return nil, err
	}
	return out, nil
}

func (c *Collector) sentMail(ctx context.Context, opts []option.ClientOption) ([]Email, error) {
	gm, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	list, err := gm.Users.Messages.List("me").
		LabelIds("SENT").
		MaxResults(sentEmails).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	out := make([]Email, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := gm.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From").
			Context(ctx).
			Do()
		if err != nil {
			c.log.Debug("skipping unreadable message", "id", ref.Id, "err", err)
			continue
		}
		e := Email{Snippet: msg.Snippet}
		if msg.Payload != nil {
			for _, h := range msg.Payload.Headers {
				switch h.Name {
				case "Subject":
					e.Subject = h.Value
				case "From":
					e.From = h.Value
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// ErrNoAccess means the user has no stored Google grant to read with.
var ErrNoAccess = errors.New("no google access for this account, sign in again")

// OptionsSource authenticates Google API clients as a given user.
type OptionsSource interface {
	ClientOptions(ctx context.Context, userID uint64) ([]option.ClientOption, error)
}

// UserCollector collects on behalf of stored accounts.
type UserCollector struct {
	c   *Collector
	src OptionsSource
}

func (c *Collector) ForUsers(src OptionsSource) *UserCollector {
	return &UserCollector{c: c, src: src}
}

// Snapshot collects userID's activity with their stored credentials.
func (u *UserCollector) Snapshot(ctx context.Context, userID uint64) (Snapshot, error) {
	opts, err := u.src.ClientOptions(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, ErrNoAccess
	}
	if err != nil {
		return Snapshot{}, err
	}
	return u.c.Collect(ctx, opts...)
}
