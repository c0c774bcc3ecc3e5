// Package preview derives note-list presentation: recency groups, display
// dates, titles and excerpts.
package preview

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/take1/internal/models"
)

// Fixed group labels, in display order. Older notes are grouped by month
// ("January 2006").
const (
	GroupToday      = "Today"
	GroupYesterday  = "Yesterday"
	GroupLastWeek   = "Previous 7 days"
	GroupLastMonth  = "Previous 30 days"
	monthGroupOrder = 5
)

var groupOrder = map[string]int{
	GroupToday:     1,
	GroupYesterday: 2,
	GroupLastWeek:  3,
	GroupLastMonth: 4,
}

// GroupLabel returns the recency bucket of t relative to now (both compared
// in now's location).
func GroupLabel(t, now time.Time) string {
	t = t.In(now.Location())
	switch {
	case sameDay(t, now):
		return GroupToday
	case sameDay(t, now.AddDate(0, 0, -1)):
		return GroupYesterday
	case !t.Before(now.AddDate(0, 0, -7)):
		return GroupLastWeek
	case !t.Before(now.AddDate(0, 0, -30)):
		return GroupLastMonth
	default:
		return t.Format("January 2006")
	}
}

// DateLabel formats t for a list row: a clock time for today, "Yesterday",
// the weekday within a week, otherwise an ISO date.
func DateLabel(t, now time.Time) string {
	t = t.In(now.Location())
	switch {
	case sameDay(t, now):
		return t.Format("3:04 PM")
	case sameDay(t, now.AddDate(0, 0, -1)):
		return "Yesterday"
	case !t.Before(now.AddDate(0, 0, -7)):
		return t.Format("Monday")
	default:
		return t.Format("2006-01-02")
	}
}

// Group buckets notes by recency. Fixed buckets come first in their natural
// order; month buckets follow, newest month first. Notes within a bucket are
// ordered newest first.
func Group(notes []models.Note, now time.Time) []models.Group {
	byLabel := make(map[string][]models.Note)
	newest := make(map[string]time.Time)
	var labels []string
	for _, n := range notes {
		label := GroupLabel(n.UpdatedAt, now)
		if _, ok := byLabel[label]; !ok {
			labels = append(labels, label)
		}
		byLabel[label] = append(byLabel[label], n)
		if n.UpdatedAt.After(newest[label]) {
			newest[label] = n.UpdatedAt
		}
	}

	sort.SliceStable(labels, func(i, j int) bool {
		oi, oj := order(labels[i]), order(labels[j])
		if oi != oj {
			return oi < oj
		}
		return newest[labels[i]].After(newest[labels[j]])
	})

	out := make([]models.Group, 0, len(labels))
	for _, label := range labels {
		group := byLabel[label]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].UpdatedAt.After(group[j].UpdatedAt)
		})
		out = append(out, models.Group{Label: label, Notes: group})
	}
	return out
}

// Excerpt returns the first line of s (keeping its newline), cut to limit
// runes with a trailing "..." when longer.
func Excerpt(s string, limit int) string {
	first := s
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first = s[:i+1]
	}
	if utf8.RuneCountInString(first) <= limit {
		return first
	}
	runes := []rune(first)
	return string(runes[:limit]) + "..."
}

// DisplayTitle returns the note title, or for untitled notes the first
// non-empty content line with any Markdown heading marker removed.
func DisplayTitle(n models.Note) string {
	if t := strings.TrimSpace(n.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(n.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			trimmed = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
		return trimmed
	}
	return ""
}

func order(label string) int {
	if o, ok := groupOrder[label]; ok {
		return o
	}
	return monthGroupOrder
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
