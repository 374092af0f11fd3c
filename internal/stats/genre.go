package stats

// GenreTally counts genre labels and remembers the order in which each label
// was first seen.
type GenreTally struct {
	order  []string
	counts map[string]int
}

// NewGenreTally returns an empty tally.
func NewGenreTally() *GenreTally {
	return &GenreTally{counts: make(map[string]int)}
}

// Add counts one occurrence of label.
func (t *GenreTally) Add(label string) {
	if _, ok := t.counts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.counts[label]++
}

// Count returns the occurrences of label.
func (t *GenreTally) Count(label string) int {
	return t.counts[label]
}

// Len returns the number of distinct labels.
func (t *GenreTally) Len() int {
	return len(t.order)
}

// Labels returns the distinct labels in first-seen order.
func (t *GenreTally) Labels() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Top returns the label with the strictly highest count. Labels are scanned
// in first-seen order and only a greater count replaces the leader, so the
// earliest label wins a tie.
func (t *GenreTally) Top() (string, bool) {
	var top string
	max := 0
	for _, label := range t.order {
		if n := t.counts[label]; n > max {
			max = n
			top = label
		}
	}
	return top, max > 0
}

// DeriveDominantGenre flattens the per-artist genre lists and returns the most
// frequent label. It returns false when there are no labels at all.
func DeriveDominantGenre(genreLists [][]string) (string, bool) {
	if len(genreLists) == 0 {
		return "", false
	}

	tally := NewGenreTally()
	for _, genres := range genreLists {
		for _, g := range genres {
			tally.Add(g)
		}
	}
	return tally.Top()
}
