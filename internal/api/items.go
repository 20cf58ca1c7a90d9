package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	qwerrs "github.com/jdholdren/quantumwatch/internal/errors"
	"github.com/jdholdren/quantumwatch/internal/extract"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
	"github.com/jdholdren/quantumwatch/internal/serverutil"
)

type ItemResp struct {
	ID            string    `json:"id"`
	FeedID        string    `json:"feed_id"`
	Title         string    `json:"title"`
	Link          string    `json:"link"`
	Description   string    `json:"description"`
	Content       string    `json:"content,omitempty"`
	Author        string    `json:"author"`
	PublishedDate time.Time `json:"published_date"`
	Categories    []string  `json:"categories"`
	IsRead        bool      `json:"is_read"`
	IsBookmarked  bool      `json:"is_bookmarked"`
	HasSummary    bool      `json:"has_summary"`
	HasPodcast    bool      `json:"has_podcast"`
}

func apiItem(i quantumwatch.Item) ItemResp {
	categories := []string(i.Categories)
	if categories == nil {
		categories = []string{}
	}

	return ItemResp{
		ID:            i.ID,
		FeedID:        i.FeedID,
		Title:         i.Title,
		Link:          i.Link,
		Description:   i.Description,
		Content:       i.Content,
		Author:        i.Author,
		PublishedDate: i.PublishedDate,
		Categories:    categories,
		IsRead:        i.IsRead,
		IsBookmarked:  i.IsBookmarked,
	}
}

type ItemListResp struct {
	Items      []ItemResp     `json:"items"`
	Pagination paginationMeta `json:"pagination"`
}

func (s Server) getItems(w http.ResponseWriter, r *http.Request) error {
	return s.listItems(w, r, r.URL.Query().Get("feed_id"))
}

// listItems lists items newest first, filtered by the query string.
func (s Server) listItems(w http.ResponseWriter, r *http.Request, feedID string) error {
	var (
		ctx   = r.Context()
		query = r.URL.Query()
	)
	unread, err := boolParam(query.Get("unread"), "unread")
	if err != nil {
		return err
	}
	bookmarked, err := boolParam(query.Get("bookmarked"), "bookmarked")
	if err != nil {
		return err
	}
	page := parseItemPage(r)

	args := page.apply(quantumwatch.ItemsArgs{
		FeedID:     feedID,
		Unread:     unread,
		Bookmarked: bookmarked,
	})
	total, err := s.repo.CountItems(ctx, args)
	if err != nil {
		return err
	}
	listings, err := s.repo.Items(ctx, args)
	if err != nil {
		return err
	}

	resp := ItemListResp{
		Items:      make([]ItemResp, 0, len(listings)),
		Pagination: page.meta(total),
	}
	for _, l := range listings {
		item := apiItem(l.Item)
		item.Content = "" // Only on the single item view
		item.HasSummary = l.HasSummary
		item.HasPodcast = l.HasPodcast
		resp.Items = append(resp.Items, item)
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func boolParam(v, name string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, qwerrs.E(http.StatusBadRequest, "invalid query parameter", qwerrs.Detail{
			Field: name,
			Error: "must be a boolean",
		})
	}

	return b, nil
}

func (s Server) getItem(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		itemID = mux.Vars(r)["itemID"]
	)
	item, err := s.repo.Item(ctx, itemID)
	if err != nil {
		return statusErr(err)
	}

	resp := apiItem(item)
	if _, err := s.repo.SummaryByItem(ctx, itemID); err == nil {
		resp.HasSummary = true
	} else if !errors.Is(err, quantumwatch.ErrNotFound) {
		return err
	}
	if _, err := s.repo.PodcastByItem(ctx, itemID); err == nil {
		resp.HasPodcast = true
	} else if !errors.Is(err, quantumwatch.ErrNotFound) {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

type ReaderResp struct {
	ItemID  string          `json:"item_id"`
	Article extract.Article `json:"article"`
}

// getItemReader renders the readable version of the item's page.
func (s Server) getItemReader(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		itemID = mux.Vars(r)["itemID"]
	)
	if s.reader == nil {
		return qwerrs.E(http.StatusServiceUnavailable, "reader view is disabled")
	}
	item, err := s.repo.Item(ctx, itemID)
	if err != nil {
		return statusErr(err)
	}
	if item.Link == "" {
		return qwerrs.E(http.StatusBadRequest, "item has no link")
	}

	article, err := s.reader.Read(ctx, item.Link)
	if err != nil {
		return qwerrs.E(err, http.StatusBadGateway)
	}

	return serverutil.WriteJSON(w, http.StatusOK, ReaderResp{ItemID: item.ID, Article: article})
}

type PostReadReq struct {
	IsRead *bool `json:"is_read"`
}

func (req PostReadReq) Validate() error {
	if req.IsRead == nil {
		return qwerrs.E("invalid value for is_read, must be boolean", http.StatusBadRequest)
	}

	return nil
}

type ReadResp struct {
	ID     string `json:"id"`
	IsRead bool   `json:"is_read"`
}

func (s Server) postItemRead(w http.ResponseWriter, r *http.Request) error {
	itemID := mux.Vars(r)["itemID"]
	req, err := serverutil.DecodeValid[PostReadReq](r.Body)
	if err != nil {
		return err
	}

	if err := s.repo.SetRead(r.Context(), itemID, *req.IsRead); err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, ReadResp{ID: itemID, IsRead: *req.IsRead})
}

type PostBookmarkReq struct {
	IsBookmarked *bool `json:"is_bookmarked"`
}

func (req PostBookmarkReq) Validate() error {
	if req.IsBookmarked == nil {
		return qwerrs.E("invalid value for is_bookmarked, must be boolean", http.StatusBadRequest)
	}

	return nil
}

type BookmarkResp struct {
	ID           string `json:"id"`
	IsBookmarked bool   `json:"is_bookmarked"`
}

func (s Server) postItemBookmark(w http.ResponseWriter, r *http.Request) error {
	itemID := mux.Vars(r)["itemID"]
	req, err := serverutil.DecodeValid[PostBookmarkReq](r.Body)
	if err != nil {
		return err
	}

	if err := s.repo.SetBookmarked(r.Context(), itemID, *req.IsBookmarked); err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, BookmarkResp{ID: itemID, IsBookmarked: *req.IsBookmarked})
}
