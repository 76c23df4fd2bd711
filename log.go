package gctest

import (
	"fmt"
	"io"

	"github.com/inhies/go-bytesize"
)

// LogHeaders writes a one-line summary of every registered class to w: its
// full name, its base class (if any), and its instance/static sizes.
func (c *Context) LogHeaders(w io.Writer) {
	c.mu.Lock()
	classes := c.store.Classes()
	c.mu.Unlock()

	for _, cls := range classes {
		base := "<none>"
		if cls.Base != nil {
			base = cls.Base.FullName
		}
		fmt.Fprintf(w, "class %s (base=%s) instance_size=%d static_size=%d fields=%d methods=%d\n",
			cls.FullName, base, cls.InstanceSize, cls.StaticSize, len(cls.Fields), len(cls.Methods))
	}
}

// LogStats writes a one-line summary of the collector's current occupancy
// and lifetime counters to w. Occupancy is reported in human-readable
// byte-size form (e.g. "128.00KB"), not raw unit counts, since a unit
// count alone tells an operator nothing without also knowing the unit
// size.
func (c *Context) LogStats(w io.Writer) {
	s := c.Stats()
	total := bytesize.New(float64(s.TotalBytes))
	used := bytesize.New(float64(s.UsedBytes))
	fmt.Fprintf(w, "segments=%d total=%s used=%s total_units=%d used_units=%d mallocs=%d collections=%d\n",
		s.Segments, total, used, s.TotalUnits, s.UsedUnits, s.Mallocs, s.Collections)
}
