// Package textnorm prepares Russian free text for lexical matching.
//
// Normalization lowercases the input, strips punctuation, drops stop
// words and short tokens, and reduces the remaining tokens to Snowball
// stems. The output is a space-joined stem string suitable for TF-IDF
// vectorization.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/russian"
)

// minTokenRunes is the minimum token length kept after tokenization.
// Shorter tokens are prepositions and particles with no lexical signal.
const minTokenRunes = 3

// defaultStopWords is the standard Russian stop word list.
var defaultStopWords = strings.Fields(`
	и в во не что он на я с со как а то все она так его но да ты
	к у же вы за бы по только ее мне было вот от меня еще нет о из ему теперь
	когда даже ну вдруг ли если уже или ни быть был него до вас нибудь опять уж вам
	ведь там потом себя ничего ей может они тут где есть надо ней для мы тебя их чем
	была сам чтоб без будто чего раз тоже себе под будет ж тогда кто этот того потому
	этого какой совсем ним здесь этом один почти мой тем чтобы нее сейчас были куда
	зачем всех никогда можно при наконец два об другой хоть после над больше тот через
	эти нас про всего них какая много разве три эту моя впрочем хорошо свою этой перед
	иногда лучше чуть том нельзя такой им более всегда конечно всю между
`)

// fillerStopWords are conversational fillers common in admission
// questions that the standard list does not cover.
var fillerStopWords = strings.Fields(
	`это быть мочь весь свой который такой только один время год человек сказать`,
)

// Normalizer reduces raw text to a canonical stemmed form.
// Safe for concurrent use; the stop word set is immutable after construction.
type Normalizer struct {
	stopWords map[string]struct{}
}

// New returns a Normalizer with the default Russian stop word set.
func New() *Normalizer {
	return NewWithStopWords(nil)
}

// NewWithStopWords returns a Normalizer whose stop word set is the
// default Russian list extended with extra words.
func NewWithStopWords(extra []string) *Normalizer {
	stop := make(map[string]struct{}, len(defaultStopWords)+len(fillerStopWords)+len(extra))
	for _, w := range defaultStopWords {
		stop[w] = struct{}{}
	}
	for _, w := range fillerStopWords {
		stop[w] = struct{}{}
	}
	for _, w := range extra {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Normalizer{stopWords: stop}
}

// Normalize returns the space-joined stemmed tokens of text.
// Empty and all-punctuation inputs yield an empty string.
// The result is a fixed point: normalizing it again returns it unchanged.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// Tokens returns the stemmed tokens of text in order of appearance.
func (n *Normalizer) Tokens(text string) []string {
	if text == "" {
		return nil
	}

	cleaned := stripNonWord(strings.ToLower(text))
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if !n.keep(tok) {
			continue
		}
		stem := stemFixed(tok)
		// A stem can land on a stop word or shrink below the length
		// cutoff ("году" stems to "год"). Filtering again keeps
		// Normalize idempotent.
		if !n.keep(stem) {
			continue
		}
		tokens = append(tokens, stem)
	}
	return tokens
}

// Keywords returns up to limit unique stemmed tokens longer than three
// runes, in first-occurrence order. Used to tag stored QA records.
func (n *Normalizer) Keywords(text string, limit int) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, tok := range n.Tokens(text) {
		if utf8.RuneCountInString(tok) <= 3 {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		if limit > 0 && len(keywords) >= limit {
			break
		}
	}
	return keywords
}

func (n *Normalizer) keep(tok string) bool {
	if utf8.RuneCountInString(tok) < minTokenRunes {
		return false
	}
	_, stop := n.stopWords[tok]
	return !stop
}

// stemFixed applies the Snowball stemmer until the token stops
// changing. A single pass can leave a strippable ending behind
// ("обучение" stems to "обучен", which stems further to "обуч").
func stemFixed(tok string) string {
	for {
		next := russian.Stem(tok, true)
		if next == tok || next == "" {
			return tok
		}
		tok = next
	}
}

// stripNonWord replaces every rune outside letters, digits and
// underscore with a space.
func stripNonWord(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}
