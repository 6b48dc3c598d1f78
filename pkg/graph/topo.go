package graph

import (
	"slices"
	"strings"

	"github.com/aspector/aspector/pkg/errors"
)

// TopoOrder returns all workspace member names ordered dependencies-first:
// every member appears after every workspace member it depends on via normal
// or build edges. Dev edges and external dependencies are ignored.
//
// TopoOrder runs Kahn's algorithm with a sorted ready set, so ties between
// independent packages are broken by ascending name and the same workspace
// always yields the same order.
//
// Returns an error with [errors.ErrCodeCycle] naming the packages left
// unordered when the propagation subgraph contains a cycle.
func (g *Graph) TopoOrder() ([]string, error) {
	members := g.MemberIDs()

	outdeg := make(map[string]int, len(members))
	dependents := make(map[string][]string, len(members))
	for _, e := range g.edges {
		if !e.Propagates() {
			continue
		}
		if to, ok := g.nodes[e.To]; !ok || to.External {
			continue
		}
		outdeg[e.From]++
		dependents[e.To] = append(dependents[e.To], e.From)
	}

	// members is sorted, so ready starts sorted and stays sorted through
	// binary insertion.
	ready := make([]string, 0, len(members))
	for _, id := range members {
		if outdeg[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(members))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dep := range dependents[id] {
			outdeg[dep]--
			if outdeg[dep] == 0 {
				i, _ := slices.BinarySearch(ready, dep)
				ready = slices.Insert(ready, i, dep)
			}
		}
	}

	if len(order) != len(members) {
		var stuck []string
		for _, id := range members {
			if outdeg[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, errors.New(errors.ErrCodeCycle,
			"dependency cycle among: %s", strings.Join(stuck, ", "))
	}
	return order, nil
}
