package pipeline

import (
	"context"
	"fmt"
	"path"

	goaway "github.com/TwiN/go-away"

	"github.com/jdholdren/quantumwatch/internal/audio"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

// Character budgets for outgoing text. A caption has to stay within the
// Bot API's 1024 limit once the truncation marker is appended.
const (
	MessageBudget = 4000
	CaptionBudget = 1024 - len(quantumwatch.TruncationMarker)
)

// Notify forwards summaries or podcasts that haven't been dispatched on their channel.
type Notify struct {
	repo      quantumwatch.Repository
	messenger quantumwatch.Messenger
	store     audio.Store
	channel   quantumwatch.Channel
	censor    bool
}

var _ Stage[quantumwatch.PendingDispatch, struct{}] = Notify{}

func (n Notify) Name() string {
	return StageNotify + "-" + string(n.channel)
}

func (n Notify) Kind() string {
	return n.Name()
}

func (Notify) Key(d quantumwatch.PendingDispatch) string { return d.EntityID }

func (n Notify) Pending(ctx context.Context, limit int) ([]quantumwatch.PendingDispatch, error) {
	if n.channel == quantumwatch.ChannelPodcast {
		return n.repo.PendingPodcastDispatches(ctx, limit)
	}

	return n.repo.PendingSummaryDispatches(ctx, limit)
}

func (n Notify) Settled(ctx context.Context, d quantumwatch.PendingDispatch) (bool, error) {
	return n.repo.Dispatched(ctx, n.channel, d.EntityID)
}

func (n Notify) Process(ctx context.Context, d quantumwatch.PendingDispatch) (struct{}, error) {
	if n.messenger == nil {
		return struct{}{}, quantumwatch.ErrUnconfigured
	}

	if n.channel == quantumwatch.ChannelSummary {
		if err := n.messenger.SendMessage(ctx, SummaryMessage(d, n.censor)); err != nil {
			return struct{}{}, fmt.Errorf("error sending summary: %w", err)
		}
		return struct{}{}, nil
	}

	f, err := n.store.Open(d.AudioFilePath)
	if err != nil {
		return struct{}{}, err
	}
	defer f.Close()

	if err := n.messenger.SendAudio(ctx, f, path.Base(d.AudioFilePath), PodcastCaption(d, n.censor)); err != nil {
		return struct{}{}, fmt.Errorf("error sending podcast: %w", err)
	}

	return struct{}{}, nil
}

// Persist logs the dispatch so the entity isn't sent again.
func (n Notify) Persist(ctx context.Context, d quantumwatch.PendingDispatch, _ struct{}) (int, error) {
	if err := n.repo.InsertDispatch(ctx, quantumwatch.Dispatch{
		Channel:  n.channel,
		EntityID: d.EntityID,
		ItemID:   d.ItemID,
	}); err != nil {
		return 0, err
	}

	return 1, nil
}

func clean(s string, censor bool) string {
	if censor {
		return goaway.Censor(s)
	}
	return s
}

// SummaryMessage renders the Markdown message for a summary, cut down to [MessageBudget].
func SummaryMessage(d quantumwatch.PendingDispatch, censor bool) string {
	msg := fmt.Sprintf("📰 *%s*\n\n%s\n\n🔍 _Source: %s_\n🔗 [Read original article](%s)",
		clean(d.ItemTitle, censor),
		clean(d.SummaryText, censor),
		d.FeedTitle,
		d.ItemLink,
	)

	return quantumwatch.Truncate(msg, MessageBudget)
}

// PodcastCaption renders the Markdown caption for a podcast upload, cut down to [CaptionBudget].
func PodcastCaption(d quantumwatch.PendingDispatch, censor bool) string {
	caption := fmt.Sprintf("🎙️ *%s*\n\n🔍 _Source: %s_\n🔗 [Read original article](%s)",
		clean(d.ItemTitle, censor),
		d.FeedTitle,
		d.ItemLink,
	)

	return quantumwatch.Truncate(caption, CaptionBudget)
}
