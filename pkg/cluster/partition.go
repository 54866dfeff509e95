package cluster

import (
	"encoding/json"
	"slices"

	"github.com/cockroachdb/errors"
)

// Partition assigns every node index 0..N-1 to exactly one of k groups.
// Members of each group are kept in ascending index order. A group may be
// empty. The zero value is an empty partition.
type Partition struct {
	labels []int
	groups [][]int
}

// NewPartition builds a partition from a node->group label array.
func NewPartition(labels []int, k int) (Partition, error) {
	if k < 1 {
		return Partition{}, ErrInvalidK
	}
	for node, g := range labels {
		if g < 0 || g >= k {
			return Partition{}, errors.Newf("node %d has label %d outside [0,%d)", node, g, k)
		}
	}
	return newPartition(slices.Clone(labels), k), nil
}

// newPartition takes ownership of labels, which must already be in range.
func newPartition(labels []int, k int) Partition {
	sizes := make([]int, k)
	for _, g := range labels {
		sizes[g]++
	}
	groups := make([][]int, k)
	for g := range groups {
		groups[g] = make([]int, 0, sizes[g])
	}
	for node, g := range labels {
		groups[g] = append(groups[g], node)
	}
	return Partition{labels: labels, groups: groups}
}

// K returns the number of groups.
func (p Partition) K() int { return len(p.groups) }

// Len returns the number of partitioned nodes.
func (p Partition) Len() int { return len(p.labels) }

// Label returns the group of node.
func (p Partition) Label(node int) int { return p.labels[node] }

// Labels returns a copy of the node->group array.
func (p Partition) Labels() []int { return slices.Clone(p.labels) }

// Group returns a copy of the members of group g.
func (p Partition) Group(g int) []int { return slices.Clone(p.groups[g]) }

// Groups returns a deep copy of all groups.
func (p Partition) Groups() [][]int {
	out := make([][]int, len(p.groups))
	for g, members := range p.groups {
		out[g] = slices.Clone(members)
	}
	return out
}

// Sizes returns the member count of every group.
func (p Partition) Sizes() []int {
	sizes := make([]int, len(p.groups))
	for g, members := range p.groups {
		sizes[g] = len(members)
	}
	return sizes
}

// Equal reports whether both partitions group the nodes identically.
func (p Partition) Equal(o Partition) bool {
	return p.K() == o.K() && slices.Equal(p.labels, o.labels)
}

// MarshalJSON encodes the partition as its list of groups.
func (p Partition) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.groups)
}

// UnmarshalJSON decodes a list of groups and rebuilds the label array. The
// groups must be disjoint and cover 0..N-1.
func (p *Partition) UnmarshalJSON(data []byte) error {
	var groups [][]int
	if err := json.Unmarshal(data, &groups); err != nil {
		return err
	}
	n := 0
	for _, members := range groups {
		n += len(members)
	}
	labels := make([]int, n)
	seen := make([]bool, n)
	for g, members := range groups {
		for _, node := range members {
			if node < 0 || node >= n || seen[node] {
				return errors.Newf("node %d is out of range or assigned twice", node)
			}
			seen[node] = true
			labels[node] = g
		}
	}
	if len(groups) == 0 {
		*p = Partition{}
		return nil
	}
	*p = newPartition(labels, len(groups))
	return nil
}
