// Package fuzzy normalizes free-text song queries and ranks search results against them.
package fuzzy

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?\s*`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[]\s*(remaster|remastered|deluxe|extended|radio edit|clean|explicit)[^\)\]]*[\)\]]\s*`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s&]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeQuery prepares user input for a catalog search: accents and
// punctuation are removed and whitespace is collapsed, case is kept.
func (n *Normalizer) NormalizeQuery(query string) string {
	query = stripMarks(norm.NFKC.String(query))
	query = punctRegex.ReplaceAllString(query, " ")
	query = whitespaceRegex.ReplaceAllString(query, " ")
	return strings.TrimSpace(query)
}

func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = n.basicNormalize(artist)

	artist = strings.ReplaceAll(artist, " and ", " & ")
	artist = strings.ReplaceAll(artist, " feat ", " & ")
	artist = strings.ReplaceAll(artist, " ft ", " & ")

	return artist
}

func (n *Normalizer) NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, " ")
	title = versionRegex.ReplaceAllString(title, " ")
	return n.basicNormalize(title)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = stripMarks(norm.NFKD.String(text))

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}

func stripMarks(text string) string {
	var result strings.Builder
	for _, r := range norm.NFD.String(text) {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	return norm.NFC.String(result.String())
}

// CalculateSimilarity returns the longest common subsequence ratio of two strings, in [0, 1].
func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	return float64(n.longestCommonSubsequence(s1, s2)) / float64(max(len(s1), len(s2)))
}

func (n *Normalizer) longestCommonSubsequence(s1, s2 string) int {
	rows, cols := len(s1), len(s2)
	dp := make([][]int, rows+1)
	for i := range dp {
		dp[i] = make([]int, cols+1)
	}

	for i := 1; i <= rows; i++ {
		for j := 1; j <= cols; j++ {
			if s1[i-1] == s2[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[rows][cols]
}

// Score rates how well an artist/title pair answers a free-text query.
func (n *Normalizer) Score(query, artist, title string) float64 {
	q := n.basicNormalize(query)
	t := n.NormalizeTitle(title)
	full := strings.TrimSpace(n.NormalizeArtist(artist) + " " + t)

	return max(n.CalculateSimilarity(q, full), n.CalculateSimilarity(q, t))
}

// Rank orders items by descending Score. Equal scores keep their original order.
func Rank[T any](n *Normalizer, query string, items []T, fields func(T) (artist, title string)) []T {
	scores := make([]float64, len(items))
	idx := make([]int, len(items))
	for i, item := range items {
		artist, title := fields(item)
		scores[i] = n.Score(query, artist, title)
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	ranked := make([]T, len(items))
	for i, j := range idx {
		ranked[i] = items[j]
	}
	return ranked
}
