package categorizer

import (
	"sort"
	"strings"

	"gastos/internal/core"
	"gastos/internal/textnorm"
)

// Signal weights.
const (
	keywordWeight  = 10.0
	partialWeight  = 2.0
	brandWeight    = 8.0
	locationWeight = 6.0
	actionWeight   = 4.0
	historyWeight  = 2.0

	historyCap      = 20.0
	similarityFloor = 0.5
	minScore        = 2.0
	minTokenLen     = 2
	historyTop      = 20
)

// entry is a directory category with its keywords normalized.
type entry struct {
	name     string
	keywords []string
}

// historyEntry is one distinct past description for a category.
type historyEntry struct {
	description string
	tokens      map[string]struct{}
	frequency   int
}

// buildDirectory normalizes keywords and orders categories by name.
// The fallback category is dropped: it never competes.
func buildDirectory(categories []core.Category) []entry {
	out := make([]entry, 0, len(categories))
	for _, c := range categories {
		if c.Name == "" || c.Name == core.OtherCategory {
			continue
		}
		e := entry{name: c.Name}
		for _, kw := range c.Keywords {
			if n := textnorm.Description(kw); n != "" {
				e.keywords = append(e.keywords, n)
			}
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// scoreAll computes every category's total score for a normalized description.
func scoreAll(description string, directory []entry, dict *Dictionaries, history map[string][]historyEntry) map[string]float64 {
	tokens := textnorm.Tokens(description, minTokenLen)
	descTokens := textnorm.TokenSet(description)

	scores := make(map[string]float64, len(directory))
	for _, e := range directory {
		score := keywordScore(description, tokens, e.keywords)
		score += dictionaryScore(description, dict.Brands[e.name], brandWeight)
		score += dictionaryScore(description, dict.Locations[e.name], locationWeight)
		score += dictionaryScore(description, dict.Actions[e.name], actionWeight)
		if history != nil {
			score += historyScore(descTokens, history[e.name])
		}
		scores[e.name] = score
	}
	return scores
}

func keywordScore(description string, tokens, keywords []string) float64 {
	score := 0.0
	for _, kw := range keywords {
		if strings.Contains(description, kw) {
			score += keywordWeight
		}
	}
	for _, tok := range tokens {
		for _, kw := range keywords {
			if strings.Contains(tok, kw) || strings.Contains(kw, tok) {
				score += partialWeight
				break
			}
		}
	}
	return score
}

func dictionaryScore(description string, terms []string, weight float64) float64 {
	score := 0.0
	for _, term := range terms {
		if textnorm.ContainsWord(description, term) {
			score += weight
		}
	}
	return score
}

func historyScore(descTokens map[string]struct{}, entries []historyEntry) float64 {
	score := 0.0
	for _, h := range entries {
		sim := textnorm.Jaccard(descTokens, h.tokens)
		if sim > similarityFloor {
			score += float64(h.frequency) * sim * historyWeight
		}
	}
	if score > historyCap {
		return historyCap
	}
	return score
}

// selectCategory returns the strictly highest scoring category above the
// minimum. The directory is ordered by name, so ties go to the earliest name.
func selectCategory(directory []entry, scores map[string]float64) (string, float64) {
	best, bestScore := core.OtherCategory, 0.0
	for _, e := range directory {
		if s := scores[e.name]; s > bestScore {
			best, bestScore = e.name, s
		}
	}
	if bestScore <= minScore {
		return core.OtherCategory, bestScore
	}
	return best, bestScore
}

// groupHistory keeps, per category, the most frequent distinct descriptions.
func groupHistory(txs []core.Transaction) map[string][]historyEntry {
	counts := make(map[string]map[string]int)
	for _, tx := range txs {
		desc := textnorm.Description(tx.Description)
		if desc == "" || tx.Category == "" {
			continue
		}
		if counts[tx.Category] == nil {
			counts[tx.Category] = make(map[string]int)
		}
		counts[tx.Category][desc]++
	}

	out := make(map[string][]historyEntry, len(counts))
	for category, byDesc := range counts {
		entries := make([]historyEntry, 0, len(byDesc))
		for desc, n := range byDesc {
			entries = append(entries, historyEntry{description: desc, tokens: textnorm.TokenSet(desc), frequency: n})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].frequency != entries[j].frequency {
				return entries[i].frequency > entries[j].frequency
			}
			return entries[i].description < entries[j].description
		})
		if len(entries) > historyTop {
			entries = entries[:historyTop]
		}
		out[category] = entries
	}
	return out
}
