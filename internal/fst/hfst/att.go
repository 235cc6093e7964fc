package hfst

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// attGraph is the arc structure of an AT&T text transducer. Only the first
// transducer of a multi-transducer listing is read.
type attGraph struct {
	states map[int]struct{}
	finals map[int]struct{}
	arcs   []attArc
}

type attArc struct {
	src, dst int
	in, out  string
}

func parseATT(r io.Reader) (*attGraph, error) {
	g := &attGraph{states: map[int]struct{}{0: {}}, finals: map[int]struct{}{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		if text == "--" {
			break
		}
		f := strings.Split(text, "\t")
		switch len(f) {
		case 1, 2:
			s, err := strconv.Atoi(f[0])
			if err != nil {
				return nil, fmt.Errorf("att line %d: bad state %q", line, f[0])
			}
			g.states[s] = struct{}{}
			g.finals[s] = struct{}{}
		case 4, 5:
			src, err := strconv.Atoi(f[0])
			if err != nil {
				return nil, fmt.Errorf("att line %d: bad source %q", line, f[0])
			}
			dst, err := strconv.Atoi(f[1])
			if err != nil {
				return nil, fmt.Errorf("att line %d: bad target %q", line, f[1])
			}
			g.states[src] = struct{}{}
			g.states[dst] = struct{}{}
			g.arcs = append(g.arcs, attArc{src: src, dst: dst, in: f[2], out: f[3]})
		default:
			return nil, fmt.Errorf("att line %d: %d fields", line, len(f))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

// isEpsilon reports whether an input label consumes nothing. Flag
// diacritics count as epsilon.
func isEpsilon(sym string) bool {
	switch sym {
	case "@0@", "@_EPSILON_SYMBOL_@", "":
		return true
	}
	return len(sym) > 4 && sym[0] == '@' && sym[2] == '.' && sym[len(sym)-1] == '@'
}

// infinitelyAmbiguous reports whether some accepted input has unboundedly
// many outputs, which is the case exactly when a cycle of input-epsilon arcs
// lies on a successful path.
func (g *attGraph) infinitelyAmbiguous() bool {
	useful := g.useful()

	adj := map[int][]int{}
	indeg := map[int]int{}
	for _, a := range g.arcs {
		if !isEpsilon(a.in) {
			continue
		}
		if _, ok := useful[a.src]; !ok {
			continue
		}
		if _, ok := useful[a.dst]; !ok {
			continue
		}
		adj[a.src] = append(adj[a.src], a.dst)
		indeg[a.dst]++
		if _, ok := indeg[a.src]; !ok {
			indeg[a.src] = 0
		}
	}

	var queue []int
	for s, d := range indeg {
		if d == 0 {
			queue = append(queue, s)
		}
	}
	seen := 0
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		seen++
		for _, d := range adj[s] {
			indeg[d]--
			if indeg[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	return seen < len(indeg)
}

// useful returns the states that are both reachable from the start state
// and able to reach a final state.
func (g *attGraph) useful() map[int]struct{} {
	fwd := map[int][]int{}
	bwd := map[int][]int{}
	for _, a := range g.arcs {
		fwd[a.src] = append(fwd[a.src], a.dst)
		bwd[a.dst] = append(bwd[a.dst], a.src)
	}
	reach := closure(fwd, []int{0})
	finals := make([]int, 0, len(g.finals))
	for s := range g.finals {
		finals = append(finals, s)
	}
	coreach := closure(bwd, finals)

	out := map[int]struct{}{}
	for s := range reach {
		if _, ok := coreach[s]; ok {
			out[s] = struct{}{}
		}
	}
	return out
}

func closure(adj map[int][]int, from []int) map[int]struct{} {
	seen := map[int]struct{}{}
	stack := append([]int(nil), from...)
	for _, s := range from {
		seen[s] = struct{}{}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range adj[s] {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			stack = append(stack, d)
		}
	}
	return seen
}
