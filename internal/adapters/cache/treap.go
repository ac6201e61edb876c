package cache

import "math/rand/v2"

// zset is an in-memory sorted set kept as a treap keyed by (score, member).
//
// Ordering mirrors ZREVRANGE: score DESC, then member DESC. "less" means
// ranks earlier, so an in-order walk yields the set from best to worst.
type zset struct {
	root   *node
	scores map[string]float64
}

type node struct {
	member string
	score  float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func newZSet() *zset {
	return &zset{scores: make(map[string]float64)}
}

func (z *zset) len() int { return len(z.scores) }

// add inserts member or moves it to its new score.
func (z *zset) add(member string, score float64) {
	if old, ok := z.scores[member]; ok {
		if old == score {
			return
		}
		z.root = deleteNode(z.root, member, old)
	}
	z.scores[member] = score
	z.root = insert(z.root, &node{member: member, score: score, prio: rand.Uint64(), size: 1})
}

// remove deletes member and reports whether it was present.
func (z *zset) remove(member string) bool {
	old, ok := z.scores[member]
	if !ok {
		return false
	}
	z.root = deleteNode(z.root, member, old)
	delete(z.scores, member)
	return true
}

// revRange returns members ranked start..stop inclusive with Redis index rules.
func (z *zset) revRange(start, stop int64) []string {
	n := int64(z.len())
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return []string{}
	}
	out := make([]string, 0, stop-start+1)
	collectRange(z.root, int(start), int(stop), 0, &out)
	return out
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

func less(aScore float64, aMember string, bScore float64, bMember string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aMember > bMember
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n, nn *node) *node {
	if n == nil {
		return nn
	}
	if less(nn.score, nn.member, n.score, n.member) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, member string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.score == score && n.member == member:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, member, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, member, score)
		}
	case less(score, member, n.score, n.member):
		n.left = deleteNode(n.left, member, score)
	default:
		n.right = deleteNode(n.right, member, score)
	}
	fix(n)
	return n
}

// collectRange appends members whose rank lies in [lo, hi]. offset is the
// rank of the leftmost member of n's subtree.
func collectRange(n *node, lo, hi, offset int, out *[]string) {
	if n == nil || offset > hi || offset+n.size-1 < lo {
		return
	}
	collectRange(n.left, lo, hi, offset, out)
	rank := offset + nsize(n.left)
	if rank >= lo && rank <= hi {
		*out = append(*out, n.member)
	}
	collectRange(n.right, lo, hi, rank+1, out)
}
