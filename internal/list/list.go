// Package list implements the intrusive, index-addressed circular doubly
// linked list described in spec.md §4.D: a list threaded through a Link
// field embedded in each pooled element, referenced by small integer index
// rather than pointer. This avoids cyclic reference graphs and keeps
// elements copy-debuggable and safe to enumerate without a garbage
// collector walking pointers (spec.md §9 Design Notes).
package list

// Nil is the sentinel index meaning "no element" / "not linked".
const Nil = -1

// Link is the embeddable linkage every pooled element must carry. A zero
// Link (Prev == Next == 0) is NOT a valid "unlinked" state — callers must
// initialize elements with Prev == Next == Nil before use.
type Link struct {
	Prev, Next int
}

// IsLinked reports whether l is currently part of some list.
func IsLinked(l *Link) bool {
	return l.Next != Nil
}

// Accessor exposes the Link embedded in the pool element at index i, so
// List can operate generically over any pool (tasks, timeouts, wait
// entries, ...) without owning the element storage itself.
type Accessor interface {
	Link(i int) *Link
}

// List is a circular doubly linked list over elements exposed by an
// Accessor. The zero value is not usable; construct with New.
type List struct {
	head int
	acc  Accessor
}

// New constructs an empty List backed by acc.
func New(acc Accessor) *List {
	return &List{head: Nil, acc: acc}
}

// Empty reports whether the list has no elements.
func (l *List) Empty() bool {
	return l.head == Nil
}

// Front returns the first element and true, or (0, false) if empty.
func (l *List) Front() (int, bool) {
	if l.head == Nil {
		return 0, false
	}
	return l.head, true
}

// Back returns the last element and true, or (0, false) if empty.
func (l *List) Back() (int, bool) {
	if l.head == Nil {
		return 0, false
	}
	return l.acc.Link(l.head).Prev, true
}

// InsertBefore links the currently-unlinked element i immediately before
// the existing element at. at must currently be in this list (or the list
// must be empty, in which case i simply becomes the sole element and at
// is ignored).
func (l *List) InsertBefore(i, at int) {
	link := l.acc.Link(i)
	if l.head == Nil {
		link.Prev, link.Next = i, i
		l.head = i
		return
	}
	atLink := l.acc.Link(at)
	prev := atLink.Prev
	prevLink := l.acc.Link(prev)

	link.Prev = prev
	link.Next = at
	prevLink.Next = i
	atLink.Prev = i

	if l.head == at {
		l.head = i
	}
}

// PushBack appends i to the tail of the list. i must not already be linked
// into any list.
func (l *List) PushBack(i int) {
	if l.head == Nil {
		l.InsertBefore(i, i)
		return
	}
	head := l.head
	l.InsertBefore(i, head)
	l.head = head
}

// PushFront inserts i at the head of the list. i must not already be
// linked into any list.
func (l *List) PushFront(i int) {
	l.PushBack(i)
	l.head = i
}

// Remove unlinks i from the list. i must currently be linked into this
// list (behaviour is undefined otherwise).
func (l *List) Remove(i int) {
	link := l.acc.Link(i)
	if link.Next == i {
		// sole element
		l.head = Nil
		link.Prev, link.Next = Nil, Nil
		return
	}
	prevLink := l.acc.Link(link.Prev)
	nextLink := l.acc.Link(link.Next)
	prevLink.Next = link.Next
	nextLink.Prev = link.Prev
	if l.head == i {
		l.head = link.Next
	}
	link.Prev, link.Next = Nil, Nil
}

// PopFront removes and returns the head element.
func (l *List) PopFront() (int, bool) {
	if l.head == Nil {
		return 0, false
	}
	i := l.head
	l.Remove(i)
	return i, true
}

// PopBack removes and returns the tail element.
func (l *List) PopBack() (int, bool) {
	if l.head == Nil {
		return 0, false
	}
	tail := l.acc.Link(l.head).Prev
	l.Remove(tail)
	return tail, true
}

// Iter calls f for every element in head-to-tail order, stopping early if
// f returns false. Mutating the list from within f is not supported.
func (l *List) Iter(f func(i int) bool) {
	if l.head == Nil {
		return
	}
	i := l.head
	for {
		next := l.acc.Link(i).Next
		if !f(i) {
			return
		}
		if next == l.head {
			return
		}
		i = next
	}
}

// Clear unlinks every element without visiting them individually via
// Remove, resetting their Link fields to Nil.
func (l *List) Clear() {
	if l.head == Nil {
		return
	}
	i := l.head
	for {
		link := l.acc.Link(i)
		next := link.Next
		link.Prev, link.Next = Nil, Nil
		if next == l.head {
			break
		}
		i = next
	}
	l.head = Nil
}
