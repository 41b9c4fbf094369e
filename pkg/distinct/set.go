package distinct

// sampleSet is the unordered sample set: a backing slice for iteration plus
// a value-to-position index, giving O(1) membership, insertion, and
// swap-with-last removal. Thinning iterates the slice, never the map, so a
// seeded Source always sees the same draw sequence (Go randomizes map
// iteration order).
type sampleSet[T comparable] struct {
	elems []T
	index map[T]int
}

func newSampleSet[T comparable]() *sampleSet[T] {
	return &sampleSet[T]{index: make(map[T]int)}
}

func (s *sampleSet[T]) len() int { return len(s.elems) }

// remove deletes v when present by moving the last element into its slot.
func (s *sampleSet[T]) remove(v T) {
	i, ok := s.index[v]
	if !ok {
		return
	}

	last := len(s.elems) - 1
	s.elems[i] = s.elems[last]
	s.index[s.elems[i]] = i
	s.elems = s.elems[:last]
	delete(s.index, v)
}

// insert appends v; the caller guarantees v is not already present.
func (s *sampleSet[T]) insert(v T) {
	s.index[v] = len(s.elems)
	s.elems = append(s.elems, v)
}

// thin walks the sample in slice order, keeping each element only when its
// draw clears thinKeep, and reindexes the survivors.
func (s *sampleSet[T]) thin(src Source) {
	kept := s.elems[:0]

	for _, v := range s.elems {
		if src.Float64() >= thinKeep {
			kept = append(kept, v)
		} else {
			delete(s.index, v)
		}
	}

	for i, v := range kept {
		s.index[v] = i
	}

	s.elems = kept
}
