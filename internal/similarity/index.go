// Package similarity provides lexical nearest-neighbor lookup over a
// fixed corpus of reference questions.
// Uses TF-IDF weighting over stemmed unigrams and bigrams with cosine
// similarity, so scores stay in [0, 1] and map directly onto the
// matcher's confidence thresholds.
package similarity

import (
	"math"
	"sort"
	"sync"

	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/textnorm"
)

// DefaultMaxFeatures caps the vocabulary when no explicit limit is given.
const DefaultMaxFeatures = 1000

// Document is a corpus entry to index. Text is the raw question text;
// normalization happens inside the index.
type Document struct {
	ID   int64
	Text string
}

// Match pairs a corpus document with its cosine similarity to a query.
type Match struct {
	Index      int // position in the built corpus
	ID         int64
	Similarity float64
}

// Index is a TF-IDF vector space over one corpus snapshot.
// Build replaces the whole snapshot; there are no incremental updates.
// Queries against a snapshot are read-only and safe for concurrent use.
type Index struct {
	normalizer  *textnorm.Normalizer
	maxFeatures int
	logger      *logger.Logger

	mu          sync.RWMutex
	initialized bool
	docs        []Document
	vocabulary  map[string]int // term -> column
	idf         []float64      // per column
	vectors     [][]float64    // L2-normalized corpus vectors
}

// New creates an empty index. Call Build before querying.
func New(normalizer *textnorm.Normalizer, maxFeatures int, log *logger.Logger) *Index {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Index{
		normalizer:  normalizer,
		maxFeatures: maxFeatures,
		logger:      log,
	}
}

// Build fits the vocabulary and vectors to the given corpus snapshot,
// replacing any previous snapshot. An empty corpus is valid: the index
// stays queryable and yields no matches.
func (idx *Index) Build(docs []Document) {
	if idx == nil {
		return
	}

	grams := make([][]string, len(docs))
	for i, doc := range docs {
		grams[i] = ngrams(idx.normalizer.Tokens(doc.Text))
	}

	vocabulary := idx.fitVocabulary(grams)
	idf := fitIDF(grams, vocabulary, len(docs))

	vectors := make([][]float64, len(docs))
	for i := range grams {
		vectors[i] = vectorize(grams[i], vocabulary, idf)
	}

	idx.mu.Lock()
	idx.docs = append([]Document(nil), docs...)
	idx.vocabulary = vocabulary
	idx.idf = idf
	idx.vectors = vectors
	idx.initialized = true
	idx.mu.Unlock()

	idx.logger.WithFields(map[string]any{
		"documents":  len(docs),
		"vocabulary": len(vocabulary),
	}).Info("Similarity index built")
}

// Query returns the top k corpus documents ranked by cosine similarity
// to text, descending. Ties keep corpus insertion order. k <= 0 returns
// the whole ranking. A query with no indexed terms ranks every document
// at similarity 0.
func (idx *Index) Query(text string, k int) []Match {
	if idx == nil {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.initialized || len(idx.docs) == 0 {
		return nil
	}

	query := vectorize(ngrams(idx.normalizer.Tokens(text)), idx.vocabulary, idx.idf)

	matches := make([]Match, len(idx.docs))
	for i := range idx.docs {
		matches[i] = Match{
			Index:      i,
			ID:         idx.docs[i].ID,
			Similarity: clampScore(dot(query, idx.vectors[i])),
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Best returns the single highest-ranked match, or false when the
// corpus is empty.
func (idx *Index) Best(text string) (Match, bool) {
	matches := idx.Query(text, 1)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// Ready reports whether Build has completed at least once.
func (idx *Index) Ready() bool {
	if idx == nil {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialized
}

// Count returns the number of documents in the current snapshot.
func (idx *Index) Count() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// VocabularySize returns the number of fitted terms.
func (idx *Index) VocabularySize() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vocabulary)
}

// fitVocabulary selects up to maxFeatures terms by corpus-wide raw
// count, ties broken alphabetically, and assigns column indices in
// alphabetical order.
func (idx *Index) fitVocabulary(grams [][]string) map[string]int {
	counts := make(map[string]int)
	for _, doc := range grams {
		for _, term := range doc {
			counts[term]++
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > idx.maxFeatures {
		terms = terms[:idx.maxFeatures]
	}
	sort.Strings(terms)

	vocabulary := make(map[string]int, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
	}
	return vocabulary
}

// fitIDF computes smoothed inverse document frequency per column:
// idf = ln((1+n) / (1+df)) + 1. Smoothing keeps weights finite and
// positive for terms present in every document.
func fitIDF(grams [][]string, vocabulary map[string]int, n int) []float64 {
	docFreq := make([]int, len(vocabulary))
	for _, doc := range grams {
		seen := make(map[int]struct{}, len(doc))
		for _, term := range doc {
			if col, ok := vocabulary[term]; ok {
				seen[col] = struct{}{}
			}
		}
		for col := range seen {
			docFreq[col]++
		}
	}

	idf := make([]float64, len(vocabulary))
	for col, df := range docFreq {
		idf[col] = math.Log(float64(1+n)/float64(1+df)) + 1
	}
	return idf
}

// vectorize maps a term multiset into the fitted vocabulary and returns
// the L2-normalized tf-idf vector. Out-of-vocabulary terms contribute
// nothing. A vector with no indexed terms comes back all-zero.
func vectorize(terms []string, vocabulary map[string]int, idf []float64) []float64 {
	vec := make([]float64, len(vocabulary))
	for _, term := range terms {
		if col, ok := vocabulary[term]; ok {
			vec[col] += idf[col]
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for col := range vec {
			vec[col] /= norm
		}
	}
	return vec
}

// ngrams returns the unigrams and adjacent-pair bigrams of tokens.
func ngrams(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	grams := make([]string, 0, 2*len(tokens)-1)
	grams = append(grams, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		grams = append(grams, tokens[i]+" "+tokens[i+1])
	}
	return grams
}

// dot multiplies two equal-length vectors.
func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// clampScore pins floating point rounding back into [0, 1].
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
