package repository

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// Treap-based expiry index.
//
// Ordering: createdAt ASC, then session id ASC (deterministic). Priorities
// are a hash of the id, which keeps the tree balanced in expectation
// without a random source. In-order traversal yields sessions oldest first,
// so a sweep splits off the expired prefix in O(log n + k).

type node struct {
	id    string
	at    time.Time
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aAt, aID) expires before (bAt, bID).
func less(aAt time.Time, aID string, bAt time.Time, bID string) bool {
	if !aAt.Equal(bAt) {
		return aAt.Before(bAt)
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, at time.Time) *node {
	if n == nil {
		return &node{id: id, at: at, prio: xxhash.Sum64String(id), size: 1}
	}
	if less(at, id, n.at, n.id) {
		n.left = insert(n.left, id, at)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, at)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// split partitions n into nodes created strictly before cutoff and the rest.
func split(n *node, cutoff time.Time) (before, rest *node) {
	if n == nil {
		return nil, nil
	}
	if n.at.Before(cutoff) {
		l, r := split(n.right, cutoff)
		n.right = l
		fix(n)
		return n, r
	}
	l, r := split(n.left, cutoff)
	n.left = r
	fix(n)
	return l, n
}

// collect appends ids in expiry order.
func collect(n *node, out []string) []string {
	if n == nil {
		return out
	}
	out = collect(n.left, out)
	out = append(out, n.id)
	return collect(n.right, out)
}

// expiryIndex orders one shard's sessions by creation time. It is guarded
// by the owning shard's lock.
type expiryIndex struct {
	root *node
}

func (x *expiryIndex) add(id string, at time.Time) {
	x.root = insert(x.root, id, at)
}

// expire removes and returns, oldest first, every id created before cutoff.
func (x *expiryIndex) expire(cutoff time.Time) []string {
	before, rest := split(x.root, cutoff)
	x.root = rest
	if before == nil {
		return nil
	}
	return collect(before, make([]string, 0, before.size))
}
