// Package scoring computes the collection-time score of an article from its
// title and the credibility tier of its source.
package scoring

import (
	"strings"
	"unicode/utf8"

	"NewsCollector/internal/domain"
)

const (
	relevanceBase = 20
	relevanceMax  = 40
	timeliness    = 20
	impactBase    = 10
	impactMax     = 20
	totalMax      = 100
)

var relevanceKeywords = []string{"数据中心", "云计算", "AI", "芯片", "算力", "服务器", "网络"}

var impactKeywords = []string{"重大", "突破", "首次", "发布", "官方", "新政", "融资", "上市", "收购", "投资"}

// Score is a pure function of the title and tier.
func Score(title string, tier int) domain.Score {
	n := utf8.RuneCountInString(title)

	relevance := relevanceBase
	if n > 15 {
		relevance += 5
	}
	if n > 30 {
		relevance += 5
	}
	if containsAny(title, relevanceKeywords) {
		relevance += 10
	}
	relevance = min(relevance, relevanceMax)

	impact := impactBase
	if containsAny(title, impactKeywords) {
		impact += 10
	}
	impact = min(impact, impactMax)

	s := domain.Score{
		Relevance:   relevance,
		Timeliness:  timeliness,
		Impact:      impact,
		Credibility: Credibility(tier),
	}
	s.Total = min(s.Relevance+s.Timeliness+s.Impact+s.Credibility, totalMax)
	return s
}

// Credibility maps a source tier onto its score dimension.
func Credibility(tier int) int {
	switch tier {
	case 1:
		return 15
	case 2:
		return 12
	default:
		return 8
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
