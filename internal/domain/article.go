package domain

import "time"

// DateSource records how an article's publish date was obtained.
type DateSource string

const (
	// DateObserved means the date was read verbatim from the page, URL or feed.
	DateObserved DateSource = "observed"
	// DateInferred means the date was computed from a relative phrase or a partial date.
	DateInferred DateSource = "inferred"
	// DateFallback means nothing was found and the collection time was used.
	DateFallback DateSource = "fallback"
)

// Priority is the editorial label. Collection always stores medium; editors change it later.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Candidate is an extracted (title, URL) pair that has not been validated or persisted yet.
type Candidate struct {
	Title string
	URL   string
	// DateHint is the text surrounding the link on the listing page, with the title removed.
	DateHint string
	// PublishedAt is set when the listing itself carried a date (feed items).
	PublishedAt *time.Time
	DateSource  DateSource
}

// Score holds the four scoring dimensions and their clamped sum.
type Score struct {
	Relevance   int
	Timeliness  int
	Impact      int
	Credibility int
	Total       int
}

// Article is the persisted unit produced by a collection run.
type Article struct {
	ID          string
	SourceID    string
	IndustryID  *string
	Title       string
	URL         string
	URLHash     string
	PublishDate time.Time
	DateSource  DateSource
	Summary     *string
	Score       Score
	Priority    Priority
	IsFeatured  bool
	IsDeleted   bool
	CreatedAt   time.Time
}

// Industry is a taxonomy category with keyword hints for classification.
type Industry struct {
	ID        string
	Name      string
	Keywords  []string
	IsActive  bool
	SortOrder int
}
