package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jdholdren/quantumwatch/internal/pipeline"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
	"github.com/jdholdren/quantumwatch/internal/serverutil"
)

type SummaryResp struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	SummaryText string    `json:"summary_text"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
}

func apiSummary(s quantumwatch.Summary) SummaryResp {
	return SummaryResp{
		ID:          s.ID,
		ItemID:      s.ItemID,
		SummaryText: s.SummaryText,
		Language:    s.Language,
		CreatedAt:   s.CreatedAt,
	}
}

func (s Server) getItemSummary(w http.ResponseWriter, r *http.Request) error {
	itemID := mux.Vars(r)["itemID"]

	summary, err := s.repo.SummaryByItem(r.Context(), itemID)
	if err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiSummary(summary))
}

// postItemSummary generates the summary when the item has none yet.
func (s Server) postItemSummary(w http.ResponseWriter, r *http.Request) error {
	itemID := mux.Vars(r)["itemID"]

	summary, created, err := s.pipeline.SummarizeItem(r.Context(), itemID)
	if err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, createdStatus(created), apiSummary(summary))
}

type PodcastResp struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	SummaryID     string    `json:"summary_id"`
	AudioFilePath string    `json:"audio_file_path"`
	Duration      int       `json:"duration"`
	VoiceID       string    `json:"voice_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func apiPodcast(p quantumwatch.Podcast) PodcastResp {
	return PodcastResp{
		ID:            p.ID,
		ItemID:        p.ItemID,
		SummaryID:     p.SummaryID,
		AudioFilePath: p.AudioFilePath,
		Duration:      p.Duration,
		VoiceID:       p.VoiceID,
		CreatedAt:     p.CreatedAt,
	}
}

func (s Server) getItemPodcast(w http.ResponseWriter, r *http.Request) error {
	itemID := mux.Vars(r)["itemID"]

	pod, err := s.repo.PodcastByItem(r.Context(), itemID)
	if err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiPodcast(pod))
}

// postItemPodcast synthesizes the item's summary when it has no podcast yet.
func (s Server) postItemPodcast(w http.ResponseWriter, r *http.Request) error {
	itemID := mux.Vars(r)["itemID"]

	pod, created, err := s.pipeline.SynthesizeItem(r.Context(), itemID)
	if err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, createdStatus(created), apiPodcast(pod))
}

// postItemTelegram forwards whatever of the item hasn't been forwarded yet.
func (s Server) postItemTelegram(w http.ResponseWriter, r *http.Request) error {
	itemID := mux.Vars(r)["itemID"]

	sent, err := s.pipeline.NotifyItem(r.Context(), itemID)
	if err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, sent)
}

type JobResp struct {
	Stage   string            `json:"stage"`
	Reports []pipeline.Report `json:"reports"`
}

// postJob runs one invocation of a stage and waits for it.
func (s Server) postJob(w http.ResponseWriter, r *http.Request) error {
	stage := mux.Vars(r)["stage"]

	reports, err := s.pipeline.Run(r.Context(), stage)
	if err != nil {
		return statusErr(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, JobResp{Stage: stage, Reports: reports})
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
