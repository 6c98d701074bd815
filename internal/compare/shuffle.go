package compare

import (
	"math/rand"
	"strconv"
	"strings"

	"lvstat/internal/table"
)

// DefaultSeed is the seed of the shuffle command.
const DefaultSeed = int64(20260224)

var headerRenames = [][2]string{
	{"(World Bank)", "WB"},
	{"(National Accounts)", "NA"},
	{"Transport", "Transp"},
	{"Production", "Prod"},
	{"Manufacturing", "Mfg"},
	{"Population", "Pop"},
}

// slightRename derives a header that a reader would still match to col:
// a few words are abbreviated and the result is snake_cased.
func slightRename(col string) string {
	out := col
	for _, rep := range headerRenames {
		out = strings.ReplaceAll(out, rep[0], rep[1])
	}
	return strings.Join(headerTokens(out), "_")
}

func buildUniqueNames(columns []string) ([]string, map[string]string) {
	renameMap := make(map[string]string, len(columns))
	used := make(map[string]int)
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		candidate := slightRename(col)
		if n, ok := used[candidate]; ok {
			n++
			used[candidate] = n
			candidate = candidate + "_" + strconv.Itoa(n)
		} else {
			used[candidate] = 1
		}
		renameMap[col] = candidate
		out = append(out, candidate)
	}
	return out, renameMap
}

// Shuffle builds a candidate table from t for exercising the scorer: the
// column order and the row order are shuffled with seed, headers are
// slightly renamed and, when sampleRows > 0, only that many rows are kept.
// The returned map gives the new name of every original column.
func Shuffle(t *table.Table, seed int64, sampleRows int) (*table.Table, map[string]string) {
	rng := rand.New(rand.NewSource(seed))
	order := make([]int, len(t.Header))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	rows := append([][]string(nil), t.Rows...)
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	if sampleRows > 0 && sampleRows < len(rows) {
		rows = rows[:sampleRows]
	}

	shuffledCols := make([]string, len(order))
	for i, c := range order {
		shuffledCols[i] = t.Header[c]
	}
	renamed, renameMap := buildUniqueNames(shuffledCols)
	out := table.New(renamed...)
	for _, row := range rows {
		rec := make([]string, len(order))
		for i, c := range order {
			if c < len(row) {
				rec[i] = row[c]
			}
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, renameMap
}
