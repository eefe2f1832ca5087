package formats

import (
	"github.com/oleiade/gomme"
)

// Rank picks one end of a sorted format list.
type Rank string

const (
	RankBest  Rank = "best"
	RankWorst Rank = "worst"
)

// Selector chooses one format from a fetched list: either a literal
// format ID or the best/worst entry of a category, as in "best",
// "worst:audio-only" or "137".
type Selector struct {
	ID       string
	Rank     Rank
	Category Category
}

// ParseSelector parses s. Anything that is not a rank expression is taken
// as a literal format ID.
func ParseSelector(s string) Selector {
	result := gomme.Pair(
		gomme.Alternative(
			gomme.Token[string](string(RankBest)),
			gomme.Token[string](string(RankWorst)),
		),
		gomme.Optional(gomme.Preceded(gomme.Char[string](':'), categoryToken)),
	)(s)
	if result.Err != nil || len(result.Remaining) != 0 {
		return Selector{ID: s}
	}

	sel := Selector{Rank: Rank(result.Output.Left), Category: result.Output.Right}
	if sel.Category == "" {
		sel.Category = CategoryAll
	}
	return sel
}

var categoryToken = gomme.Map(
	gomme.Alternative(
		gomme.Token[string](string(CategoryCombined)),
		gomme.Token[string](string(CategoryVideoOnly)),
		gomme.Token[string](string(CategoryAudioOnly)),
		gomme.Token[string](string(CategoryAll)),
	),
	ParseCategory,
)

// Resolve returns the entry of sorted picked by sel.
func (sel Selector) Resolve(sorted []Entry) (Entry, bool) {
	if sel.Rank == "" {
		return Find(sorted, sel.ID)
	}

	candidates := Filter(sorted, sel.Category)
	if len(candidates) == 0 {
		return Entry{}, false
	}
	if sel.Rank == RankWorst {
		return candidates[len(candidates)-1], true
	}
	return candidates[0], true
}

func (sel Selector) String() string {
	if sel.Rank == "" {
		return sel.ID
	}
	if sel.Category == CategoryAll {
		return string(sel.Rank)
	}
	return string(sel.Rank) + ":" + string(sel.Category)
}
