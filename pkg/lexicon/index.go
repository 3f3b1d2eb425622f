package lexicon

// Pair is one (slot, value) reading of a phrase.
type Pair struct {
	Slot  string
	Value string
}

// Entry is one phrase of the index with every reading attached to it.
type Entry struct {
	Phrase string
	Pairs  []Pair
}

// Source feeds one slot of the index from a list of grammar values.
type Source struct {
	Slot   string
	Values []Value
}

// Index maps phrases to their readings. Entries keep the order in which
// phrases were first seen and the index is never mutated after Build.
type Index struct {
	entries []Entry
	pos     map[string]int
}

// Build inverts sources into an index. A phrase listed under several
// slots or values accumulates all readings in source order. Blank
// phrases are skipped.
func Build(sources ...Source) *Index {
	idx := &Index{pos: make(map[string]int)}
	for _, src := range sources {
		for _, v := range src.Values {
			for _, phrase := range v.Phrases {
				if blank(phrase) {
					continue
				}
				idx.add(phrase, Pair{Slot: src.Slot, Value: v.Name})
			}
		}
	}
	return idx
}

func (idx *Index) add(phrase string, p Pair) {
	i, ok := idx.pos[phrase]
	if !ok {
		idx.pos[phrase] = len(idx.entries)
		idx.entries = append(idx.entries, Entry{Phrase: phrase, Pairs: []Pair{p}})
		return
	}
	for _, existing := range idx.entries[i].Pairs {
		if existing == p {
			return
		}
	}
	idx.entries[i].Pairs = append(idx.entries[i].Pairs, p)
}

// Entries returns the index in iteration order. Callers must not modify
// the returned slice.
func (idx *Index) Entries() []Entry {
	if idx == nil {
		return nil
	}
	return idx.entries
}

// Len reports the number of distinct phrases.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Lookup returns the readings of an exact phrase.
func (idx *Index) Lookup(phrase string) ([]Pair, bool) {
	if idx == nil {
		return nil, false
	}
	i, ok := idx.pos[phrase]
	if !ok {
		return nil, false
	}
	return idx.entries[i].Pairs, true
}
