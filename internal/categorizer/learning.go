package categorizer

import (
	"context"
	"sort"
	"time"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/ports"
	"gastos/internal/textnorm"
)

const (
	learnWindow  = 30 * 24 * time.Hour
	learnMinFreq = 3
)

// learn records tokens that keep co-occurring with userID+category as keyword
// candidates. It never touches the live keyword set, and its failures are
// only logged.
func (e *Engine) learn(ctx context.Context, userID, category, normalized string, directory []entry) {
	if e.history == nil || e.candidates == nil {
		return
	}

	tokens := candidateTokens(normalized, keywordsOf(directory, category))
	if len(tokens) == 0 {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	now := e.now()
	txs, err := e.history.QueryTransactions(sctx, userID, ports.TransactionFilter{
		Category: category,
		Since:    now.Add(-learnWindow),
		Until:    now,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Keyword learning skipped",
			log.FieldOperation, log.OpLearn,
			log.FieldUserID, userID,
			log.FieldCategory, category,
			log.FieldError, err)
		return
	}

	freqs := tokenFrequencies(tokens, txs)
	for _, token := range tokens {
		freq := freqs[token]
		if freq < learnMinFreq {
			continue
		}
		candidate := core.KeywordCandidate{
			UserID:    userID,
			Category:  category,
			Token:     token,
			Frequency: freq,
			Timestamp: now,
		}
		if err := e.candidates.RecordKeywordCandidate(sctx, candidate); err != nil {
			e.logger.WarnContext(ctx, "Failed to record keyword candidate",
				log.FieldOperation, log.OpLearn,
				log.FieldUserID, userID,
				log.FieldToken, token,
				log.FieldError, err)
			continue
		}
		e.logger.DebugContext(ctx, "Keyword candidate recorded",
			log.FieldUserID, userID,
			log.FieldCategory, category,
			log.FieldToken, token,
			log.FieldFrequency, freq)
	}
}

// candidateTokens returns the distinct tokens of a description that are not
// already keywords, sorted.
func candidateTokens(normalized string, keywords []string) []string {
	known := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		known[kw] = struct{}{}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range textnorm.Tokens(normalized, minTokenLen) {
		if _, ok := known[tok]; ok {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// tokenFrequencies counts, per token, the transactions whose description
// contains it.
func tokenFrequencies(tokens []string, txs []core.Transaction) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, tx := range txs {
		set := textnorm.TokenSet(textnorm.Description(tx.Description))
		for _, tok := range tokens {
			if _, ok := set[tok]; ok {
				counts[tok]++
			}
		}
	}
	return counts
}

func keywordsOf(directory []entry, category string) []string {
	for _, e := range directory {
		if e.name == category {
			return e.keywords
		}
	}
	return nil
}
