package routing

// searchItem - элемент очереди A*
type searchItem struct {
	node  int
	g     float64 // стоимость от старта
	f     float64 // g + эвристика
	seq   uint64  // порядок обнаружения
	index int
}

// searchQueue реализует heap.Interface; при равном f первым выходит
// элемент, обнаруженный раньше
type searchQueue []*searchItem

func (q searchQueue) Len() int { return len(q) }

func (q searchQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].seq < q[j].seq
}

func (q searchQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *searchQueue) Push(x any) {
	item := x.(*searchItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *searchQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}
