package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"tiktok-monitor-go/internal/config"
	"tiktok-monitor-go/internal/model"
)

const defaultBaseURL = "https://api.apify.com"

// ApifyFetcher retrieves TikTok posts through an Apify actor using the
// run-sync-get-dataset-items endpoint, which runs the actor and returns its
// dataset in one call.
type ApifyFetcher struct {
	client  *resty.Client
	token   string
	actorID string
}

type apifyRunInput struct {
	Usernames []string `json:"usernames"`
}

type apifyItem struct {
	AwemeID      string      `json:"aweme_id"`
	VideoID      string      `json:"video_id"`
	UniqueID     string      `json:"unique_id"`
	Desc         string      `json:"desc"`
	Title        string      `json:"title"`
	Subtitles    string      `json:"subtitles"`
	VideoURL     string      `json:"video_url"`
	VideoURLBase string      `json:"video_url_base"`
	CreateTime   json.Number `json:"create_time"`
	TextExtra    []struct {
		HashtagName string `json:"hashtag_name"`
	} `json:"text_extra"`
}

// NewApifyFetcher creates a fetcher for the configured actor.
func NewApifyFetcher(cfg *config.ApifyConfig) *ApifyFetcher {
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(cfg.Timeout)

	return &ApifyFetcher{
		client:  client,
		token:   cfg.Token,
		actorID: cfg.ActorID,
	}
}

// FetchPosts runs the actor for a single handle and maps the dataset items.
func (f *ApifyFetcher) FetchPosts(ctx context.Context, handle string) ([]model.FetchedPost, error) {
	var items []apifyItem

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("token", f.token).
		SetBody(apifyRunInput{Usernames: []string{handle}}).
		SetResult(&items).
		Post(fmt.Sprintf("/v2/acts/%s/run-sync-get-dataset-items", f.actorID))
	if err != nil {
		return nil, fmt.Errorf("%w: @%s: %v", ErrFetch, handle, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: @%s: actor returned %s", ErrFetch, handle, resp.Status())
	}

	posts := make([]model.FetchedPost, 0, len(items))
	for _, item := range items {
		post, ok := mapItem(handle, item)
		if !ok {
			logrus.Warnf("Skipping apify item without post id for @%s", handle)
			continue
		}
		posts = append(posts, post)
	}

	logrus.Infof("Fetched %d posts for @%s", len(posts), handle)
	return posts, nil
}

// mapItem converts one Apify dataset item into a FetchedPost. Field fallbacks
// follow the actor's payload variants: aweme_id vs video_id for the id,
// desc vs title for the caption.
func mapItem(handle string, item apifyItem) (model.FetchedPost, bool) {
	postID := item.AwemeID
	if postID == "" {
		postID = item.VideoID
	}
	if postID == "" {
		return model.FetchedPost{}, false
	}

	caption := item.Desc
	if caption == "" {
		caption = item.Title
	}

	var hashtags []string
	for _, te := range item.TextExtra {
		if te.HashtagName != "" {
			hashtags = append(hashtags, te.HashtagName)
		}
	}

	postURL := item.VideoURLBase
	if postURL == "" {
		postURL = fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", handle, postID)
	}

	publishedAt := time.Now().UTC()
	if item.CreateTime != "" {
		if secs, err := strconv.ParseInt(item.CreateTime.String(), 10, 64); err == nil {
			publishedAt = time.Unix(secs, 0).UTC()
		}
	}

	return model.FetchedPost{
		PostID:        postID,
		AccountHandle: handle,
		PostURL:       postURL,
		MediaURL:      item.VideoURL,
		Caption:       caption,
		Hashtags:      hashtags,
		Transcript:    item.Subtitles,
		PublishedAt:   publishedAt,
	}, true
}
