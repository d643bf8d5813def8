package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ScraperType selects the listing strategy for a source.
type ScraperType string

const (
	ScraperGeneric ScraperType = "generic"
	ScraperCustom  ScraperType = "custom"
	ScraperRSS     ScraperType = "rss"
)

// SourceConfig carries the optional extraction hints of a source.
type SourceConfig struct {
	ScraperType      ScraperType `json:"scraperType,omitempty" yaml:"scraperType"`
	RSSURL           string      `json:"rssUrl,omitempty" yaml:"rssUrl"`
	DateSelector     string      `json:"dateSelector,omitempty" yaml:"dateSelector"`
	ArticleContainer string      `json:"articleContainer,omitempty" yaml:"articleContainer"`
	TitleSelector    string      `json:"titleSelector,omitempty" yaml:"titleSelector"`
	LinkSelector     string      `json:"linkSelector,omitempty" yaml:"linkSelector"`
	Encoding         string      `json:"encoding,omitempty" yaml:"encoding"`
}

// Strategy resolves which listing scanner should handle the source.
func (c SourceConfig) Strategy() ScraperType {
	switch {
	case c.ScraperType == ScraperGeneric:
		return ScraperGeneric
	case c.RSSURL != "":
		return ScraperRSS
	case c.ScraperType == ScraperCustom && c.ArticleContainer != "":
		return ScraperCustom
	default:
		return ScraperGeneric
	}
}

// DecodeSourceConfig parses the stored JSON form. Empty input yields the zero config.
func DecodeSourceConfig(raw []byte) (SourceConfig, error) {
	var cfg SourceConfig
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return SourceConfig{}, fmt.Errorf("decode source config: %w", err)
	}
	return cfg, nil
}

// Encode renders the config for storage.
func (c SourceConfig) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// Source is a configured origin polled for new articles.
type Source struct {
	ID              string
	Name            string
	URL             string
	IndustryID      *string
	Tier            int
	Config          SourceConfig
	IsActive        bool
	SuccessCount    int
	ErrorCount      int
	LastError       *string
	LastCollectedAt *time.Time
}

// Host returns the hostname of the listing URL, or "" when it does not parse.
func (s Source) Host() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SourceStats is the outcome of one source run applied to the source counters.
type SourceStats struct {
	Success      bool
	At           time.Time
	ErrorMessage string
}
