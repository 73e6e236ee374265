package directory

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const DefaultCutoff = 0.7

// Policy decides which token of a question wins.
type Policy int

const (
	// PolicyFirstToken returns the best candidate of the first token that
	// has any candidate over the cutoff. Later tokens are never scored.
	PolicyFirstToken Policy = iota
	// PolicyBestOverall scores every token and returns the single best
	// candidate.
	PolicyBestOverall
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "first_token":
		return PolicyFirstToken, nil
	case "best_overall":
		return PolicyBestOverall, nil
	default:
		return 0, fmt.Errorf("unknown match policy %q", s)
	}
}

// Match is a directory entry found in a question.
type Match struct {
	Name  string
	ID    int64
	Score float64
}

// Match looks for a member name in input. The input is lower-cased and
// split on whitespace; each token is compared with every directory name
// using difflib's similarity ratio.
func (c *Cache) Match(input string) (Match, bool) {
	names, ids := c.snapshot()
	if len(names) == 0 {
		return Match{}, false
	}

	var best Match
	found := false
	for _, token := range strings.Fields(strings.ToLower(input)) {
		name, score, ok := closest(token, names, c.cutoff)
		if !ok {
			continue
		}
		if c.policy == PolicyFirstToken {
			return Match{Name: name, ID: ids[name], Score: score}, true
		}
		if !found || better(score, name, best.Score, best.Name) {
			best = Match{Name: name, ID: ids[name], Score: score}
			found = true
		}
	}
	return best, found
}

// closest mirrors difflib.get_close_matches(word, names, n=1, cutoff):
// the cheap upper bounds are checked before the full ratio, and ties go to
// the greater name.
func closest(word string, names []string, cutoff float64) (string, float64, bool) {
	m := difflib.NewMatcher(nil, chars(word))

	var (
		bestName  string
		bestScore float64
		found     bool
	)
	for _, name := range names {
		m.SetSeq1(chars(name))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		score := m.Ratio()
		if score < cutoff {
			continue
		}
		if !found || better(score, name, bestScore, bestName) {
			bestName, bestScore, found = name, score, true
		}
	}
	return bestName, bestScore, found
}

func better(score float64, name string, bestScore float64, bestName string) bool {
	if score != bestScore {
		return score > bestScore
	}
	return name > bestName
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
