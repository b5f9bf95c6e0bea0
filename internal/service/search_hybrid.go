package service

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {},
}

// keywordTerms returns the raw query followed by its non-stopword tokens,
// lowercased and deduplicated.
func keywordTerms(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	seen := map[string]struct{}{}
	var terms []string
	add := func(t string) {
		key := strings.ToLower(t)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		terms = append(terms, key)
	}

	add(query)
	for _, token := range strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '-' && r != '/')
	}) {
		clean := strings.ToLower(strings.TrimSpace(token))
		if len(clean) < 2 {
			continue
		}
		if _, ok := stopwords[clean]; ok {
			continue
		}
		add(clean)
	}
	return terms
}

// aggregateChunkResults keeps the best-scoring chunk per document, preserving
// first-seen order. The result id becomes the document id.
func aggregateChunkResults(chunks []domain.SearchResult) []domain.SearchResult {
	if len(chunks) == 0 {
		return nil
	}
	best := make(map[string]int, len(chunks))
	var out []domain.SearchResult
	for _, c := range chunks {
		docID := c.Metadata.DocumentID
		if docID == "" {
			docID = c.ID
		}
		c.ChunkID = c.ID
		c.ID = docID
		idx, ok := best[docID]
		if !ok {
			best[docID] = len(out)
			out = append(out, c)
			continue
		}
		if c.Score > out[idx].Score {
			out[idx] = c
		}
	}
	return out
}

// mergeHybridResults dedupes by document id. A semantic hit always wins over a
// keyword hit for the same document.
func mergeHybridResults(semantic, keyword []domain.SearchResult) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(semantic)+len(keyword))
	seen := make(map[string]int, len(semantic)+len(keyword))
	for _, r := range semantic {
		r.Score = domain.ClampUnit(r.Score)
		seen[r.ID] = len(out)
		out = append(out, r)
	}
	for _, r := range keyword {
		if idx, ok := seen[r.ID]; ok {
			if out[idx].UpdatedAt == nil {
				out[idx].UpdatedAt = r.UpdatedAt
			}
			continue
		}
		seen[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

func applySearchFilters(results []domain.SearchResult, f SearchFilters) []domain.SearchResult {
	if len(f.Types) == 0 && len(f.Statuses) == 0 && f.DateFrom == nil && f.DateTo == nil {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if len(f.Types) > 0 && !containsType(f.Types, r.Metadata.DocumentType) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Metadata.Status) {
			continue
		}
		if f.DateFrom != nil || f.DateTo != nil {
			created := r.Metadata.CreatedAt
			if created == nil {
				continue
			}
			if f.DateFrom != nil && created.Before(*f.DateFrom) {
				continue
			}
			if f.DateTo != nil && created.After(*f.DateTo) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func containsType(types []domain.DocumentType, t domain.DocumentType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsStatus(statuses []domain.DocumentStatus, s domain.DocumentStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

// sortSearchResults orders by score, then the sortBy field, then id. asc flips
// every key; entries missing the sortBy field always come after those that have it.
func sortSearchResults(results []domain.SearchResult, sortBy string, order SortOrder) {
	asc := order == SortOrderAsc
	key := sortKeyFunc(sortBy)
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			if asc {
				return a.Score < b.Score
			}
			return a.Score > b.Score
		}
		if key != nil {
			ka, oka := key(&a)
			kb, okb := key(&b)
			if oka != okb {
				return oka
			}
			if oka && ka != kb {
				if asc {
					return ka < kb
				}
				return ka > kb
			}
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

// sortKeyFunc maps a sortBy name to a comparable string key. Timestamps are
// formatted so that lexical order equals chronological order.
func sortKeyFunc(sortBy string) func(*domain.SearchResult) (string, bool) {
	timeKey := func(t *time.Time) (string, bool) {
		if t == nil || t.IsZero() {
			return "", false
		}
		return t.UTC().Format("20060102150405.000000000"), true
	}
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "created_at":
		return func(r *domain.SearchResult) (string, bool) { return timeKey(r.Metadata.CreatedAt) }
	case "updated_at":
		return func(r *domain.SearchResult) (string, bool) { return timeKey(r.UpdatedAt) }
	case "publication_date":
		return func(r *domain.SearchResult) (string, bool) { return timeKey(r.Metadata.PublicationDate) }
	case "title":
		return func(r *domain.SearchResult) (string, bool) {
			return strings.ToLower(r.Metadata.Title), r.Metadata.Title != ""
		}
	case "document_type":
		return func(r *domain.SearchResult) (string, bool) {
			return string(r.Metadata.DocumentType), r.Metadata.DocumentType != ""
		}
	default:
		return nil
	}
}

func paginate(results []domain.SearchResult, offset, limit int) []domain.SearchResult {
	if offset >= len(results) {
		return []domain.SearchResult{}
	}
	results = results[offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
