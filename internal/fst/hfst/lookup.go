package hfst

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
)

// pathCollector parses hfst-lookup output as it is written and calls stop
// once max paths have been seen.
type pathCollector struct {
	max   int
	stop  func()
	paths []fst.Path
	buf   bytes.Buffer
	done  bool
}

func (c *pathCollector) Write(p []byte) (int, error) {
	if c.done {
		return len(p), nil
	}
	c.buf.Write(p)
	for {
		line, err := c.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			c.buf.Reset()
			c.buf.WriteString(line)
			break
		}
		c.add(line)
		if c.done {
			break
		}
	}
	return len(p), nil
}

func (c *pathCollector) flush() {
	if !c.done && c.buf.Len() > 0 {
		c.add(c.buf.String())
		c.buf.Reset()
	}
}

func (c *pathCollector) add(line string) {
	p, ok := parseLookupLine(line)
	if !ok {
		return
	}
	c.paths = append(c.paths, p)
	if c.max >= 0 && len(c.paths) >= c.max {
		c.done = true
		if c.stop != nil {
			c.stop()
		}
	}
}

// parseLookupLine reads one "input<TAB>output<TAB>weight" line. Failed
// lookups ("output+?" with infinite weight) and blank lines are skipped.
func parseLookupLine(line string) (fst.Path, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return fst.Path{}, false
	}
	f := strings.Split(line, "\t")
	if len(f) < 2 {
		return fst.Path{}, false
	}
	w := 0.0
	if len(f) >= 3 {
		v, err := strconv.ParseFloat(strings.TrimSpace(f[2]), 64)
		if err == nil {
			w = v
		}
	}
	if strings.HasSuffix(f[1], "+?") && math.IsInf(w, 1) {
		return fst.Path{}, false
	}
	return fst.Path{Output: f[1], Weight: w}, true
}

// parseSummary reads state and arc counts from hfst-summarize output.
func parseSummary(r io.Reader) (fst.Size, error) {
	var s fst.Size
	var gotStates, gotArcs bool
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			continue
		}
		switch key {
		case "# of states":
			s.States, gotStates = n, true
		case "# of arcs":
			s.Arcs, gotArcs = n, true
		}
	}
	if err := sc.Err(); err != nil {
		return s, err
	}
	if !gotStates || !gotArcs {
		return s, errors.New("summary lacks state or arc count")
	}
	return s, nil
}
