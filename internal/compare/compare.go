// Package compare scores a candidate indicator table against a reference
// table aligned on a key column.
package compare

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"lvstat/internal/table"
)

// Statuses of a Report.
const (
	StatusOK         = "ok"
	StatusPartialKey = "partial_key_match"
	StatusNoKey      = "no_key_match"
)

// DefaultKey is the key column of annual tables.
const DefaultKey = "Year"

// minHeaderSimilarity is the lowest header similarity accepted when a
// reference column has no candidate column of the same name.
const minHeaderSimilarity = 0.75

type RowAlignment struct {
	Complete                  bool     `json:"complete"`
	Key                       string   `json:"key"`
	MatchedRows               int      `json:"matched_rows"`
	ReferenceRows             int      `json:"reference_rows"`
	CandidateRows             int      `json:"candidate_rows"`
	CoverageReference         float64  `json:"coverage_reference"`
	CoverageCandidate         float64  `json:"coverage_candidate"`
	DuplicateReferenceKeys    int      `json:"duplicate_reference_keys,omitempty"`
	DuplicateCandidateMatches int      `json:"duplicate_candidate_matches,omitempty"`
	UnmatchedCandidateKeys    int      `json:"unmatched_candidate_keys,omitempty"`
	Pairs                     [][2]int `json:"-"`
}

type ColumnScore struct {
	ReferenceColumn  string  `json:"reference_column"`
	CandidateColumn  *string `json:"candidate_column"`
	Similarity       float64 `json:"similarity"`
	Matched          bool    `json:"matched"`
	HeaderSimilarity float64 `json:"header_similarity,omitempty"`
	RowCountScored   int     `json:"row_count_scored,omitempty"`
}

type Scores struct {
	DatasetSimilarity      float64       `json:"dataset_similarity_equal_weighted"`
	OverallScore           float64       `json:"overall_score_with_coverage"`
	MappedReferenceColumns int           `json:"mapped_reference_columns"`
	ReferenceColumnsTotal  int           `json:"reference_columns_total"`
	PerReferenceColumn     []ColumnScore `json:"per_reference_column"`
}

// Report is the JSON document written by the compare command.
type Report struct {
	Status             string       `json:"status"`
	Reference          string       `json:"reference_csv"`
	Candidate          string       `json:"candidate_csv"`
	RowAlignment       RowAlignment `json:"row_alignment"`
	Scores             Scores       `json:"scores"`
	CandidateUnmatched []string     `json:"candidate_unmatched"`
}

var (
	reNumeric = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)
	reToken   = regexp.MustCompile(`[a-z0-9]+`)
)

// Files loads two CSV files and compares them on key.
func Files(referencePath, candidatePath, key string) (Report, error) {
	ref, err := table.ReadFile(referencePath)
	if err != nil {
		return Report{}, err
	}
	cand, err := table.ReadFile(candidatePath)
	if err != nil {
		return Report{}, err
	}
	rep := Tables(ref, cand, key)
	rep.Reference, rep.Candidate = referencePath, candidatePath
	return rep, nil
}

// Tables compares cand against ref on key.
func Tables(ref, cand *table.Table, key string) Report {
	if key == "" {
		key = DefaultKey
	}
	rep := Report{CandidateUnmatched: []string{}}
	ri, ci := ref.Index(key), cand.Index(key)
	var align RowAlignment
	if ri >= 0 && ci >= 0 {
		align = alignRowsByKey(ref, cand, ri, ci)
	}
	align.Key = key
	align.ReferenceRows, align.CandidateRows = len(ref.Rows), len(cand.Rows)

	if align.MatchedRows == 0 {
		rep.Status = StatusNoKey
		rep.RowAlignment = align
		rep.Scores = zeroScores(ref)
		for _, h := range cand.Header {
			rep.CandidateUnmatched = append(rep.CandidateUnmatched, h)
		}
		return rep
	}

	mapping, unmatched := mapColumns(ref.Header, cand.Header)
	scores := scoreColumns(ref, cand, align.Pairs, mapping)
	scores.OverallScore = scores.DatasetSimilarity * align.CoverageReference

	rep.Status = StatusPartialKey
	if align.Complete {
		rep.Status = StatusOK
	}
	rep.RowAlignment = align
	rep.Scores = scores
	rep.CandidateUnmatched = append(rep.CandidateUnmatched, unmatched...)
	return rep
}

func zeroScores(ref *table.Table) Scores {
	per := make([]ColumnScore, 0, len(ref.Header))
	for _, h := range ref.Header {
		per = append(per, ColumnScore{ReferenceColumn: h})
	}
	return Scores{ReferenceColumnsTotal: len(ref.Header), PerReferenceColumn: per}
}

// WriteJSON writes the indented report to path.
func (r Report) WriteJSON(path string) error {
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("json encode error: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

func alignRowsByKey(ref, cand *table.Table, ri, ci int) RowAlignment {
	refIndex := make(map[string]int, len(ref.Rows))
	dupRef := 0
	for i, row := range ref.Rows {
		k := canonicalScalar(row[ri])
		if k == "" {
			continue
		}
		if _, exists := refIndex[k]; exists {
			dupRef++
			continue
		}
		refIndex[k] = i
	}
	pairs := make([][2]int, 0, len(cand.Rows))
	seenRef := make(map[int]struct{}, len(cand.Rows))
	missing := 0
	dupCand := 0
	for i, row := range cand.Rows {
		k := canonicalScalar(row[ci])
		r, ok := refIndex[k]
		if k == "" || !ok {
			missing++
			continue
		}
		if _, exists := seenRef[r]; exists {
			dupCand++
			continue
		}
		seenRef[r] = struct{}{}
		pairs = append(pairs, [2]int{r, i})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	matched := len(pairs)
	return RowAlignment{
		Complete:                  dupRef == 0 && dupCand == 0 && missing == 0 && matched == len(ref.Rows) && matched == len(cand.Rows),
		MatchedRows:               matched,
		CoverageReference:         safeDiv(float64(matched), float64(len(ref.Rows))),
		CoverageCandidate:         safeDiv(float64(matched), float64(len(cand.Rows))),
		DuplicateReferenceKeys:    dupRef,
		DuplicateCandidateMatches: dupCand,
		UnmatchedCandidateKeys:    missing,
		Pairs:                     pairs,
	}
}

type columnMatch struct {
	cand   int
	header float64
}

// mapColumns pairs reference columns with candidate columns: same name
// first, then the most similar remaining header.
func mapColumns(refHeader, candHeader []string) (map[int]columnMatch, []string) {
	out := make(map[int]columnMatch, len(refHeader))
	used := make(map[int]bool, len(candHeader))
	for r, rh := range refHeader {
		for c, ch := range candHeader {
			if !used[c] && rh == ch {
				out[r] = columnMatch{cand: c, header: 1}
				used[c] = true
				break
			}
		}
	}
	for r, rh := range refHeader {
		if _, ok := out[r]; ok {
			continue
		}
		best, bestSim := -1, 0.0
		for c, ch := range candHeader {
			if used[c] {
				continue
			}
			if s := headerSimilarity(rh, ch); s > bestSim {
				best, bestSim = c, s
			}
		}
		if best >= 0 && bestSim >= minHeaderSimilarity {
			out[r] = columnMatch{cand: best, header: bestSim}
			used[best] = true
		}
	}
	var unmatched []string
	for c, ch := range candHeader {
		if !used[c] {
			unmatched = append(unmatched, ch)
		}
	}
	return out, unmatched
}

func scoreColumns(ref, cand *table.Table, pairs [][2]int, mapping map[int]columnMatch) Scores {
	per := make([]ColumnScore, 0, len(ref.Header))
	total := 0.0
	mapped := 0
	for r, refCol := range ref.Header {
		m, ok := mapping[r]
		if !ok {
			per = append(per, ColumnScore{ReferenceColumn: refCol})
			continue
		}
		sum := 0.0
		for _, p := range pairs {
			sum += valueSimilarity(ref.Rows[p[0]][r], cand.Rows[p[1]][m.cand])
		}
		s := safeDiv(sum, float64(len(pairs)))
		total += s
		mapped++
		candCol := cand.Header[m.cand]
		per = append(per, ColumnScore{
			ReferenceColumn:  refCol,
			CandidateColumn:  &candCol,
			Similarity:       s,
			Matched:          true,
			HeaderSimilarity: m.header,
			RowCountScored:   len(pairs),
		})
	}
	return Scores{
		DatasetSimilarity:      safeDiv(total, float64(len(ref.Header))),
		MappedReferenceColumns: mapped,
		ReferenceColumnsTotal:  len(ref.Header),
		PerReferenceColumn:     per,
	}
}

// valueSimilarity scores two cells in [0, 1]: equal cells score 1, a cell
// present on one side only 0, numbers by relative closeness and text by
// normalized edit distance.
func valueSimilarity(a, b string) float64 {
	if isEmpty(a) && isEmpty(b) {
		return 1
	}
	if isEmpty(a) || isEmpty(b) {
		return 0
	}
	an, bn := strings.TrimSpace(a), strings.TrimSpace(b)
	if an == bn {
		return 1
	}
	if af, ok := parseNumber(an); ok {
		if bf, ok := parseNumber(bn); ok {
			if af == bf {
				return 1
			}
			denom := math.Max(math.Max(math.Abs(af), math.Abs(bf)), 1)
			return math.Max(0, 1-math.Abs(af-bf)/denom)
		}
	}
	return normalizedLevenshteinSimilarity(an, bn)
}

func normalizedLevenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	dist := levenshteinDistance(a, b)
	denom := max(len([]rune(a)), len([]rune(b)))
	return math.Max(0, 1-float64(dist)/float64(denom))
}

func levenshteinDistance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) < len(br) {
		ar, br = br, ar
	}
	if len(br) == 0 {
		return len(ar)
	}
	prev := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ar {
		curr := make([]int, len(br)+1)
		curr[0] = i + 1
		for j, cb := range br {
			sub := prev[j]
			if ca != cb {
				sub++
			}
			curr[j+1] = min(curr[j]+1, prev[j+1]+1, sub)
		}
		prev = curr
	}
	return prev[len(prev)-1]
}

// headerSimilarity is the larger of the token Jaccard index and the edit
// similarity of the joined tokens.
func headerSimilarity(a, b string) float64 {
	at, bt := headerTokens(a), headerTokens(b)
	aNorm, bNorm := strings.Join(at, ""), strings.Join(bt, "")
	if aNorm == "" && bNorm == "" {
		return 1
	}
	seq := normalizedLevenshteinSimilarity(aNorm, bNorm)
	aSet := make(map[string]struct{}, len(at))
	for _, t := range at {
		aSet[t] = struct{}{}
	}
	inter, union := 0, len(aSet)
	seen := make(map[string]struct{}, len(bt))
	for _, t := range bt {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := aSet[t]; ok {
			inter++
		} else {
			union++
		}
	}
	jacc := safeDiv(float64(inter), float64(union))
	return math.Max(seq, jacc)
}

func headerTokens(name string) []string {
	return reToken.FindAllString(strings.ToLower(name), -1)
}

func isEmpty(v string) bool { return strings.TrimSpace(v) == "" }

func parseNumber(s string) (float64, bool) {
	if !reNumeric.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// canonicalScalar makes "2000", "2000.0" and " 2000 " the same key.
func canonicalScalar(v string) string {
	s := strings.TrimSpace(v)
	if f, ok := parseNumber(s); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
