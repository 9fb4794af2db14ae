package signals

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mbd888/riskops/internal/upstream"
)

// NYTBaseURL is the article search API root.
const NYTBaseURL = "https://api.nytimes.com/svc/search/v2"

// NewsWindow is how far back articles are searched.
const NewsWindow = 14 * 24 * time.Hour

var (
	positiveWords = []string{"growth", "gain", "record", "strong", "innovation", "expansion", "profit"}
	negativeWords = []string{"loss", "lawsuit", "decline", "cut", "drop", "risk", "concern", "negative"}
)

// NewsSentiment is keyword polarity over recent articles.
type NewsSentiment struct {
	Query    string  `json:"query"`
	Articles int     `json:"article_count"`
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	Score    float64 `json:"sentiment_score"`
	Label    string  `json:"sentiment_label"`
}

// NYT searches New York Times business, technology and health coverage.
type NYT struct {
	c   *upstream.Client
	key string
	now func() time.Time
}

// NewNYT creates a client. An empty key makes every call fail with
// ErrMissingKey.
func NewNYT(c *upstream.Client, key string) *NYT {
	return &NYT{c: c, key: key, now: time.Now}
}

// NewsSentiment scores articles matching query. An article counts as
// positive and/or negative when its headline or snippet contains a keyword
// from the corresponding list; the score is (pos-neg)/max(1,pos+neg).
func (n *NYT) NewsSentiment(ctx context.Context, query string) (*NewsSentiment, error) {
	if n.key == "" {
		return nil, ErrMissingKey
	}
	now := n.now()
	var body struct {
		Response struct {
			Docs []struct {
				Headline struct {
					Main string `json:"main"`
				} `json:"headline"`
				Snippet string `json:"snippet"`
			} `json:"docs"`
		} `json:"response"`
	}
	err := n.c.Do(ctx, upstream.Request{
		Path: "/articlesearch.json",
		Query: url.Values{
			"q":          {query},
			"api-key":    {n.key},
			"begin_date": {now.Add(-NewsWindow).Format("20060102")},
			"end_date":   {now.Format("20060102")},
			"sort":       {"newest"},
			"fq":         {`section_name:("Business" "Technology" "Health")`},
		},
	}, &body)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(body.Response.Docs))
	for _, d := range body.Response.Docs {
		texts = append(texts, d.Headline.Main+" "+d.Snippet)
	}
	s := ScoreHeadlines(texts)
	s.Query = query
	return s, nil
}

// ScoreHeadlines applies the keyword polarity model to texts.
func ScoreHeadlines(texts []string) *NewsSentiment {
	s := &NewsSentiment{Articles: len(texts)}
	for _, t := range texts {
		t = strings.ToLower(t)
		if containsAny(t, positiveWords) {
			s.Positive++
		}
		if containsAny(t, negativeWords) {
			s.Negative++
		}
	}
	s.Score = round3(clampUnit(float64(s.Positive-s.Negative) / float64(max(1, s.Positive+s.Negative))))
	s.Label = sentimentLabel(s.Score)
	return s
}

func sentimentLabel(score float64) string {
	switch {
	case score > 0.1:
		return "Positive"
	case score < -0.1:
		return "Negative"
	default:
		return "Neutral"
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
