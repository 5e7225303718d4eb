// Package render formats the human-facing schedule output: colored roles
// for epochs, slots, authors and times, and timestamps in an operator
// chosen timezone. Diagnostics go through zap instead; this package only
// prints what an operator watches.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Printer renders schedule lines to stdout.
type Printer struct {
	loc *time.Location

	epoch  *color.Color
	rng    *color.Color
	author *color.Color
	slot   *color.Color
	time   *color.Color
	dim    *color.Color
}

// New builds a Printer. mode is auto|always|never; tz is UTC | local |
// ±HH:MM | an IANA zone name.
func New(mode, tz string) (*Printer, error) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	case "auto", "":
		// fatih/color already disables itself off-terminal.
	default:
		return nil, fmt.Errorf("invalid color mode %q (use auto|always|never)", mode)
	}

	loc, err := ParseLocation(tz)
	if err != nil {
		return nil, err
	}

	return &Printer{
		loc:    loc,
		epoch:  color.New(color.FgCyan),
		rng:    color.New(color.FgYellow),
		author: color.New(color.FgMagenta),
		slot:   color.New(color.FgBlue),
		time:   color.New(color.FgGreen),
		dim:    color.New(color.FgHiBlack),
	}, nil
}

// ParseLocation resolves the --tz argument to a time.Location.
func ParseLocation(tz string) (*time.Location, error) {
	s := strings.TrimSpace(tz)
	switch {
	case s == "" || strings.EqualFold(s, "utc"):
		return time.UTC, nil
	case strings.EqualFold(s, "local"):
		return time.Local, nil
	}
	// Fixed offset ±HH:MM.
	if len(s) == 6 && (s[0] == '+' || s[0] == '-') && s[3] == ':' {
		hh, err1 := strconv.Atoi(s[1:3])
		mm, err2 := strconv.Atoi(s[4:6])
		if err1 != nil || err2 != nil || hh > 23 || mm > 59 {
			return nil, fmt.Errorf("invalid tz offset %q", s)
		}
		secs := hh*3600 + mm*60
		if s[0] == '-' {
			secs = -secs
		}
		return time.FixedZone(s, secs), nil
	}
	if strings.Contains(s, "/") {
		loc, err := time.LoadLocation(s)
		if err != nil {
			return nil, fmt.Errorf("invalid tz %q: %w", s, err)
		}
		return loc, nil
	}
	return nil, fmt.Errorf("invalid tz %q (use UTC | local | +HH:MM | -HH:MM | Area/City)", s)
}

// FormatMs renders a millisecond unix timestamp as RFC3339 in loc.
func FormatMs(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(time.RFC3339)
}

// UTCms renders a millisecond unix timestamp as RFC3339 UTC, the form the
// store records.
func UTCms(ms int64) string {
	return FormatMs(ms, time.UTC)
}

// AuthorityChange announces a changed authority set.
func (p *Printer) AuthorityChange(prevLen, newLen int) {
	fmt.Println()
	fmt.Printf("authority set changed (len %d -> %d)\n", prevLen, newLen)
}

// EpochHeader announces the epoch now being scanned.
func (p *Printer) EpochHeader(epoch, startSlot, endSlot uint64) {
	fmt.Println()
	fmt.Printf("epoch=%s / start_slot=%s / end_slot=%s\n",
		p.epoch.Sprint(epoch),
		p.rng.Sprint(startSlot),
		p.rng.Sprint(endSlot))
}

// Identity prints the resolved author key, once per run.
func (p *Printer) Identity(pubHex string) {
	fmt.Printf("author=%s\n\n", p.author.Sprint(pubHex))
}

// NotInAuthorities notes that the local key holds no slots this epoch.
func (p *Printer) NotInAuthorities(epoch uint64, authorityCount int) {
	fmt.Printf("epoch=%d, authorities=%d; author not in current authorities; skip.\n",
		epoch, authorityCount)
}

// Slot prints one scheduled slot with its projected time in the output
// timezone plus the UTC form for cross-referencing the store.
func (p *Printer) Slot(slot uint64, plannedMs int64) {
	fmt.Printf("slot %s: %s (UTC %s)\n",
		p.slot.Sprint(slot),
		p.time.Sprint(FormatMs(plannedMs, p.loc)),
		p.dim.Sprint(UTCms(plannedMs)))
}
