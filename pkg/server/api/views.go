package api

import (
	"time"

	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/feeder/round"
)

// ResultSource exposes the latest round result.
type ResultSource interface {
	Last() *round.Result
}

// FeedView is one consensus value as served by /v1/feeds.
type FeedView struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Encoded     string `json:"encoded,omitempty"`
	SampleCount int    `json:"sample_count"`
	Total       int    `json:"total"`
	Error       string `json:"error,omitempty"`
}

// feedViews renders the values of res. Values whose identifier or encoding
// is invalid are listed with the error instead.
func feedViews(res *round.Result) []FeedView {
	views := make([]FeedView, 0, len(res.Values))
	for _, v := range res.Values {
		view := FeedView{
			Name:        v.Pair.String(),
			Price:       v.Price.String(),
			SampleCount: v.SampleCount,
			Total:       v.Total,
		}
		id, err := feed.NewID(v.Pair)
		if err != nil {
			view.Error = err.Error()
			views = append(views, view)
			continue
		}
		view.ID = id.Hex()
		encoded, err := feed.Encode(v.Price)
		if err != nil {
			view.Error = err.Error()
		} else {
			view.Encoded = encoded.String()
		}
		views = append(views, view)
	}
	return views
}

// RoundSummary is the body of /v1/round and of WebSocket round messages.
type RoundSummary struct {
	Round       uint64               `json:"round"`
	StartedAt   string               `json:"started_at"`
	DurationMS  int64                `json:"duration_ms"`
	Registering bool                 `json:"registering"`
	Values      int                  `json:"values"`
	Excluded    int                  `json:"excluded"`
	Candidates  int                  `json:"candidates"`
	Skipped     int                  `json:"skipped"`
	Selected    []string             `json:"selected"`
	Missing     []string             `json:"missing"`
	Rejected    int                  `json:"rejected"`
	Published   bool                 `json:"published"`
	Sources     []round.SourceReport `json:"sources"`
	Error       string               `json:"error,omitempty"`
}

func summarize(res *round.Result) RoundSummary {
	s := RoundSummary{
		Round:       res.Round,
		StartedAt:   res.StartedAt.UTC().Format(time.RFC3339),
		DurationMS:  res.Duration().Milliseconds(),
		Registering: res.Registering,
		Values:      len(res.Values),
		Excluded:    res.Excluded,
		Candidates:  res.Candidates,
		Skipped:     res.Skipped,
		Selected:    make([]string, len(res.Selected)),
		Missing:     make([]string, len(res.Missing)),
		Rejected:    res.Rejected,
		Published:   res.Published,
		Sources:     res.Sources,
		Error:       res.Error,
	}
	for i, u := range res.Selected {
		s.Selected[i] = u.ID.Name()
	}
	for i, id := range res.Missing {
		s.Missing[i] = id.Name()
	}
	return s
}
