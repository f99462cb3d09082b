package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Display fallbacks for absent fields.
const (
	UntitledText  = "Untitled"
	NoPreviewText = "No preview"
)

// Kind names one of the two collections of a Dataset.
type Kind string

const (
	KindNews          Kind = "news"
	KindVisualization Kind = "visualization"
)

// ParseKind accepts the long and short spellings used in paths and messages.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "news", "article", "news_articles":
		return KindNews, nil
	case "viz", "visualization", "visualizations":
		return KindVisualization, nil
	}
	return "", fmt.Errorf("unknown item kind %q", raw)
}

// Short returns the spelling used in URLs.
func (k Kind) Short() string {
	if k == KindVisualization {
		return "viz"
	}
	return string(k)
}

// ID identifies an item inside its collection. Datasets in the wild carry
// both numeric and string ids, so JSON numbers are accepted and stored in
// their shortest decimal form: 7, 7.0 and "7" are the same ID.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("id must be a string or a number, got %s", data)
	}
	*id = ParseID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// ParseID builds an ID from its textual form, e.g. a path segment.
func ParseID(raw string) ID {
	return ID(strings.TrimSpace(raw))
}

// SameID is the only comparison used for id lookups. Empty ids never match.
func SameID(a, b ID) bool {
	return a != "" && a == b
}

// Base holds the fields shared by news articles and visualizations.
type Base struct {
	ID           ID       `json:"id"`
	Title        string   `json:"title,omitempty"`
	Preview      string   `json:"preview,omitempty"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	ExternalLink string   `json:"externalLink,omitempty"`
}

// DisplayTitle returns the title or the untitled fallback.
func (b Base) DisplayTitle() string {
	if t := strings.TrimSpace(b.Title); t != "" {
		return t
	}
	return UntitledText
}

// FirstTag returns the first tag, or "" when there are none.
func (b Base) FirstTag() string {
	if len(b.Tags) == 0 {
		return ""
	}
	return b.Tags[0]
}

// NewsArticle is one entry of the news_articles collection.
type NewsArticle struct {
	Base
	Source      string `json:"source,omitempty"`
	Date        string `json:"date,omitempty"`
	Author      string `json:"author,omitempty"`
	ReadTime    string `json:"readTime,omitempty"`
	FullContent string `json:"fullContent,omitempty"`
}

// Paragraphs splits FullContent on blank lines.
func (a NewsArticle) Paragraphs() []string {
	parts := strings.Split(strings.ReplaceAll(a.FullContent, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Visualization is one entry of the visualizations collection.
type Visualization struct {
	Base
	Summary     string         `json:"summary,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	Thumb400    string         `json:"thumb400,omitempty"`
	DataSource  string         `json:"dataSource,omitempty"`
	PublishDate string         `json:"publishDate,omitempty"`
	Detail      *DetailContent `json:"detailContent,omitempty"`
}

// Description picks the richest text available for the detail view.
func (v Visualization) Description() string {
	if v.Detail != nil && strings.TrimSpace(v.Detail.Description) != "" {
		return v.Detail.Description
	}
	if strings.TrimSpace(v.Preview) != "" {
		return v.Preview
	}
	return v.Summary
}

// DetailContent is the nested long-form content of a visualization.
type DetailContent struct {
	Description    string          `json:"description,omitempty"`
	Methodology    string          `json:"methodology,omitempty"`
	KeyInsights    Insights        `json:"keyInsights,omitempty"`
	TechnicalSpecs json.RawMessage `json:"technicalSpecs,omitempty"`
	RelatedViz     []string        `json:"relatedViz,omitempty"`
}

// Insights is an ordered list of findings. It is nil when the field was
// absent or was not a list; an empty list stays empty.
type Insights []string

// UnmarshalJSON implements json.Unmarshaler. Non-string elements keep
// their raw JSON text.
func (in *Insights) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		*in = nil
		return nil
	}
	out := make(Insights, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(bytes.TrimSpace(r)))
	}
	*in = out
	return nil
}

// Dataset is the whole loaded payload. Order is render order.
type Dataset struct {
	NewsArticles   []NewsArticle   `json:"news_articles"`
	Visualizations []Visualization `json:"visualizations"`
}

// Clone copies both collections so the copy can be filtered or replaced
// without touching the original.
func (d Dataset) Clone() Dataset {
	return Dataset{
		NewsArticles:   append([]NewsArticle(nil), d.NewsArticles...),
		Visualizations: append([]Visualization(nil), d.Visualizations...),
	}
}

// Len returns the size of one collection.
func (d Dataset) Len(kind Kind) int {
	if kind == KindVisualization {
		return len(d.Visualizations)
	}
	return len(d.NewsArticles)
}

// Record is the unit moved through the ingestion pipeline and stored in
// the search index: one item of either kind plus bookkeeping.
type Record struct {
	ID         ID              `json:"id"`
	Kind       Kind            `json:"kind"`
	ReceivedAt time.Time       `json:"received_at"`
	Item       json.RawMessage `json:"item"`
}
