package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Read returns at most maxLines from the end of the file at path.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed slog text record.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	// Attrs holds the remaining key=value pairs in their original order.
	Attrs [][2]string
}

// Parse splits a slog text-handler line into its fields. ok is false when the
// line has no level or msg key.
func Parse(line string) (Entry, bool) {
	var e Entry
	var hasLevel, hasMsg bool
	for _, kv := range splitPairs(line) {
		switch kv[0] {
		case "time":
			if t, err := time.Parse(time.RFC3339Nano, kv[1]); err == nil {
				e.Time = t
			}
		case "level":
			e.Level = strings.ToUpper(kv[1])
			hasLevel = true
		case "msg":
			e.Message = kv[1]
			hasMsg = true
		case "component":
			e.Component = kv[1]
		default:
			e.Attrs = append(e.Attrs, kv)
		}
	}
	return e, hasLevel && hasMsg
}

func splitPairs(line string) [][2]string {
	var pairs [][2]string
	rest := strings.TrimSpace(line)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 || strings.ContainsAny(rest[:eq], " \t") {
			return pairs
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := closingQuote(rest)
			if end < 0 {
				return append(pairs, [2]string{key, rest})
			}
			unquoted, err := strconv.Unquote(rest[:end+1])
			if err != nil {
				unquoted = rest[1:end]
			}
			value, rest = unquoted, rest[end+1:]
		} else if sp := strings.IndexByte(rest, ' '); sp >= 0 {
			value, rest = rest[:sp], rest[sp:]
		} else {
			value, rest = rest, ""
		}
		pairs = append(pairs, [2]string{key, value})
		rest = strings.TrimLeft(rest, " ")
	}
	return pairs
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// Palette colors rendered log lines.
type Palette struct {
	Time      string
	Debug     string
	Info      string
	Warn      string
	Error     string
	Component string
	Key       string
	Text      string
}

// DefaultPalette suits dark terminals.
func DefaultPalette() Palette {
	return Palette{
		Time:      "#808080",
		Debug:     "#87CEEB",
		Info:      "#5FD75F",
		Warn:      "#FFD700",
		Error:     "#FF6B6B",
		Component: "#87AFFF",
		Key:       "#666666",
		Text:      "#DDDDDD",
	}
}

func (p Palette) level(level string) lipgloss.Style {
	color := p.Text
	switch {
	case strings.HasPrefix(level, "DEBUG"):
		color = p.Debug
	case strings.HasPrefix(level, "INFO"):
		color = p.Info
	case strings.HasPrefix(level, "WARN"):
		color = p.Warn
	case strings.HasPrefix(level, "ERROR"):
		color = p.Error
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
}

// Format renders a line as "15:04:05 LEVEL [component] message key=value".
// Lines that are not slog records are returned unchanged.
func Format(line string, p Palette) string {
	e, ok := Parse(line)
	if !ok {
		return line
	}
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Time))
	text := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Text))
	key := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Key))

	parts := make([]string, 0, 4+len(e.Attrs))
	if !e.Time.IsZero() {
		parts = append(parts, muted.Render(e.Time.Local().Format("15:04:05")))
	}
	parts = append(parts, p.level(e.Level).Render(fmt.Sprintf("%-5s", e.Level)))
	if e.Component != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color(p.Component)).Render("["+e.Component+"]"))
	}
	parts = append(parts, text.Render(e.Message))
	for _, kv := range e.Attrs {
		parts = append(parts, key.Render(kv[0]+"=")+text.Render(kv[1]))
	}
	return strings.Join(parts, " ")
}

// FormatLines applies Format to every line.
func FormatLines(lines []string, p Palette) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Format(line, p)
	}
	return out
}

// MinLevel keeps lines at or above level. Unparsed lines are kept.
func MinLevel(lines []string, level string) []string {
	threshold := levelRank(strings.ToUpper(strings.TrimSpace(level)))
	if threshold <= 0 {
		return lines
	}
	var out []string
	for _, line := range lines {
		e, ok := Parse(line)
		if !ok || levelRank(e.Level) >= threshold {
			out = append(out, line)
		}
	}
	return out
}

func levelRank(level string) int {
	switch {
	case strings.HasPrefix(level, "DEBUG"):
		return 0
	case strings.HasPrefix(level, "INFO"):
		return 1
	case strings.HasPrefix(level, "WARN"):
		return 2
	case strings.HasPrefix(level, "ERROR"):
		return 3
	}
	return 0
}
