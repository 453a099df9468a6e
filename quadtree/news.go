package quadtree

// PerceiverNewsAndFrees holds the elements a single perceiver started and
// stopped perceiving during one tree operation.
type PerceiverNewsAndFrees struct {
	news  elementSet
	frees elementSet
}

func newPerceiverNewsAndFrees() *PerceiverNewsAndFrees {
	return &PerceiverNewsAndFrees{
		news:  make(elementSet),
		frees: make(elementSet),
	}
}

func (nf *PerceiverNewsAndFrees) News() []Element {
	return nf.news.slice()
}

func (nf *PerceiverNewsAndFrees) Frees() []Element {
	return nf.frees.slice()
}

func (nf *PerceiverNewsAndFrees) Len() int {
	return len(nf.news) + len(nf.frees)
}

// NewsAndFrees accumulates notifications while the tree lock is held. It is
// flushed with ProcessNewsAndFrees once the lock is released.
type NewsAndFrees struct {
	treeName   string
	perceivers []Perceiver
	batches    map[Perceiver]*PerceiverNewsAndFrees
}

func newNewsAndFrees(treeName string) *NewsAndFrees {
	return &NewsAndFrees{
		treeName: treeName,
		batches:  make(map[Perceiver]*PerceiverNewsAndFrees),
	}
}

func (nf *NewsAndFrees) batch(p Perceiver) *PerceiverNewsAndFrees {
	b, ok := nf.batches[p]
	if !ok {
		b = newPerceiverNewsAndFrees()
		nf.batches[p] = b
		nf.perceivers = append(nf.perceivers, p)
	}
	return b
}

// noteNewElement records that p now perceives e. Nothing is recorded when p
// already perceives e. A new cancels a free of the same batch.
func (nf *NewsAndFrees) noteNewElement(p Perceiver, e Element) {
	if !p.base().markVisible(e) {
		return
	}

	b := nf.batch(p)
	if b.frees.remove(e) {
		return
	}
	b.news.add(e)
}

// noteFreedElement records that p does not perceive e anymore. Nothing is
// recorded when p does not perceive e. A free cancels a new of the same
// batch.
func (nf *NewsAndFrees) noteFreedElement(p Perceiver, e Element) {
	if !p.base().markInvisible(e) {
		return
	}

	b := nf.batch(p)
	if b.news.remove(e) {
		return
	}
	b.frees.add(e)
}

// Perceiver returns the batch recorded for p.
func (nf *NewsAndFrees) Perceiver(p Perceiver) (*PerceiverNewsAndFrees, bool) {
	b, ok := nf.batches[p]
	return b, ok
}

// Len returns the total number of news and frees.
func (nf *NewsAndFrees) Len() int {
	count := 0
	for _, b := range nf.batches {
		count += b.Len()
	}
	return count
}

// ProcessNewsAndFrees dispatches every non empty batch to its perceiver.
// When a perceiver with targetID got a batch, its number of news and frees is
// returned with true.
func (nf *NewsAndFrees) ProcessNewsAndFrees(targetID uint64) (int, bool) {
	var count int
	var found bool

	for _, p := range nf.perceivers {
		b := nf.batches[p]
		if b.Len() == 0 {
			continue
		}

		instrumentNewsAndFrees(nf.treeName, len(b.news), len(b.frees))

		if n, ok := p.ProcessNewsAndFrees(b, targetID); ok {
			count += n
			found = true
		}
	}

	return count, found
}

// ProcessNewsAndFreesOf dispatches every non empty batch and returns the
// number of news and frees of target. Other perceivers sharing the id of
// target are not counted.
func (nf *NewsAndFrees) ProcessNewsAndFreesOf(target Perceiver) int {
	count := 0
	if b, ok := nf.batches[target]; ok {
		count = b.Len()
	}

	nf.ProcessNewsAndFrees(0)
	return count
}
