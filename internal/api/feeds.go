package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	qwerrs "github.com/jdholdren/quantumwatch/internal/errors"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
	"github.com/jdholdren/quantumwatch/internal/serverutil"
)

type FeedResp struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Language    string     `json:"language"`
	Category    string     `json:"category"`
	Active      bool       `json:"active"`
	LastFetched *time.Time `json:"last_fetched"`
	CreatedAt   time.Time  `json:"created_at"`
}

func apiFeed(f quantumwatch.Feed) FeedResp {
	return FeedResp{
		ID:          f.ID,
		URL:         f.URL,
		Title:       f.Title,
		Description: f.Description,
		Language:    f.Language,
		Category:    f.Category,
		Active:      f.Active,
		LastFetched: f.LastFetched,
		CreatedAt:   f.CreatedAt,
	}
}

type FeedListResp struct {
	Feeds []FeedResp `json:"feeds"`
}

func (s Server) getFeeds(w http.ResponseWriter, r *http.Request) error {
	feeds, err := s.repo.AllFeeds(r.Context())
	if err != nil {
		return err
	}

	resp := FeedListResp{Feeds: make([]FeedResp, 0, len(feeds))}
	for _, f := range feeds {
		resp.Feeds = append(resp.Feeds, apiFeed(f))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

type PostFeedReq struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Category    string `json:"category"`
}

func (req PostFeedReq) Validate() error {
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if req.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return qwerrs.E("invalid feed", http.StatusBadRequest, qwerrs.Detail{
			Field: "url",
			Error: "must be an absolute http(s) url",
		})
	}

	return nil
}

func (s Server) postFeeds(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	req, err := serverutil.DecodeValid[PostFeedReq](r.Body)
	if err != nil {
		return err
	}

	feedURL := strings.TrimSpace(req.URL)
	title := strings.TrimSpace(req.Title)
	if title == "" {
		u, _ := url.Parse(feedURL)
		title = u.Host
	}
	feed, err := s.repo.InsertFeed(ctx, quantumwatch.Feed{
		URL:         feedURL,
		Title:       title,
		Description: req.Description,
		Language:    req.Language,
		Category:    req.Category,
		Active:      true,
	})
	if err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, http.StatusCreated, apiFeed(feed))
}

type PostActiveReq struct {
	Active *bool `json:"active"`
}

func (req PostActiveReq) Validate() error {
	if req.Active == nil {
		return qwerrs.E("active must be a boolean", http.StatusBadRequest)
	}

	return nil
}

func (s Server) postFeedActive(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		feedID = mux.Vars(r)["feedID"]
	)
	req, err := serverutil.DecodeValid[PostActiveReq](r.Body)
	if err != nil {
		return err
	}

	if err := s.repo.SetFeedActive(ctx, feedID, *req.Active); err != nil {
		return statusErr(err)
	}
	feed, err := s.repo.Feed(ctx, feedID)
	if err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiFeed(feed))
}

type RefreshResp struct {
	FeedID   string `json:"feed_id"`
	NewItems int    `json:"new_items"`
}

func (s Server) postFeedRefresh(w http.ResponseWriter, r *http.Request) error {
	feedID := mux.Vars(r)["feedID"]

	n, err := s.pipeline.Refresh(r.Context(), feedID)
	if err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, RefreshResp{FeedID: feedID, NewItems: n})
}

func (s Server) getFeedItems(w http.ResponseWriter, r *http.Request) error {
	feedID := mux.Vars(r)["feedID"]
	if _, err := s.repo.Feed(r.Context(), feedID); err != nil {
		return statusErr(err)
	}

	return s.listItems(w, r, feedID)
}
