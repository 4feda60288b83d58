package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Accent colors.
const (
	ColorTeal       = 0x1ABC9C
	ColorBlue       = 0x3498DB
	ColorGold       = 0xF1C40F
	ColorPurple     = 0x9B59B6
	ColorGreen      = 0x2ECC71
	ColorOrange     = 0xE67E22
	ColorDarkRed    = 0x992D22
	ColorDarkPurple = 0x71368A
	ColorBlurple    = 0x5865F2
)

const decidedAtLayout = "2006-01-02 15:04 UTC"

// Limits in characters. The decision headers fit in the gap between a
// maximal comment and the field limit.
const (
	FieldValueLimit  = 1024
	MaxCommentLength = 900
)

// Document is the displayable form of a record. AuthorID is the typed
// metadata slot; Footer repeats it as text for platforms without one.
type Document struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Timestamp   time.Time
	AuthorID    uint64
}

type stageKey struct {
	kind  Kind
	stage Stage
}

type stageStyle struct {
	title string
	color int
}

var stageStyles = map[stageKey]stageStyle{
	{KindShooting, StageReview}: {title: "Shooting report", color: ColorTeal},
	{KindEditing, StageFinish}:  {title: "Editing task", color: ColorGold},
	{KindEditing, StageReview}:  {title: "Editing report", color: ColorBlue},
	{KindEditing, StagePublish}: {title: "Publication", color: ColorPurple},
}

type statusStyle struct {
	label string
	glyph string
	color int
}

var statusStyles = map[Status]statusStyle{
	StatusAccepted:  {label: "ACCEPTED", glyph: "✅", color: ColorGreen},
	StatusMixed:     {label: "50/50", glyph: "➗", color: ColorOrange},
	StatusRejected:  {label: "REJECTED", glyph: "❌", color: ColorDarkRed},
	StatusPublished: {label: "PUBLISHED", glyph: "📢", color: ColorDarkPurple},
}

// StatusLabel is the upper-case label shown to users.
func StatusLabel(s Status) string {
	if st, ok := statusStyles[s]; ok {
		return st.label
	}
	return strings.ToUpper(string(s))
}

// StageTitle is the plain title of a pending record of kind at stage.
func StageTitle(kind Kind, stage Stage) string {
	if st, ok := stageStyles[stageKey{kind, stage}]; ok {
		return st.title
	}
	return fmt.Sprintf("%s %s", kind, stage)
}

// Render produces the displayable document for r.
func Render(r Record) Document {
	style := stageStyles[stageKey{r.Kind, r.Stage}]
	title := StageTitle(r.Kind, r.Stage)
	color := style.color
	if st, ok := statusStyles[r.Status]; ok {
		title = fmt.Sprintf("%s %s [%s]", st.glyph, title, st.label)
		color = st.color
	}

	fields := make([]Field, 0, len(r.Fields)+1)
	for _, f := range r.Fields {
		if f.Name == DecisionFieldName {
			continue
		}
		fields = append(fields, f)
	}
	if r.Decision != nil {
		fields = append(fields, Field{Name: DecisionFieldName, Value: decisionText(*r.Decision)})
	}

	return Document{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Footer:    AuthorFooter(r.Author),
		Timestamp: r.CreatedAt,
		AuthorID:  r.Author.ID,
	}
}

// AuthorFooter renders the machine readable author template.
func AuthorFooter(author Identity) string {
	return fmt.Sprintf("Submitted by: %s (ID: %d)", author.DisplayName, author.ID)
}

func decisionText(d Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Decision: %s\n", StatusLabel(d.Status))
	fmt.Fprintf(&b, "Reviewer: %s\n", d.Reviewer.Mention())
	if !d.DecidedAt.IsZero() {
		fmt.Fprintf(&b, "Decided at: %s\n", d.DecidedAt.UTC().Format(decidedAtLayout))
	}
	fmt.Fprintf(&b, "Comment: %s", truncate(d.Comment, MaxCommentLength))
	return truncate(b.String(), FieldValueLimit)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

var footerPattern = regexp.MustCompile(`^Submitted by: (.*) \(ID: (\d+)\)\s*$`)

// ParseAuthorIdentity extracts the author's numeric ID from doc. It returns
// false when the metadata is absent or malformed.
func ParseAuthorIdentity(doc Document) (uint64, bool) {
	if doc.AuthorID != 0 {
		return doc.AuthorID, true
	}
	author, ok := parseFooter(doc.Footer)
	if !ok {
		return 0, false
	}
	return author.ID, true
}

func parseFooter(footer string) (Identity, bool) {
	m := footerPattern.FindStringSubmatch(strings.TrimSpace(footer))
	if m == nil {
		return Identity{}, false
	}
	id, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil || id == 0 {
		return Identity{}, false
	}
	return Identity{ID: id, DisplayName: m[1]}, true
}

// Parse rebuilds a record from a rendered document.
func Parse(doc Document) (Record, error) {
	kind, stage, status, ok := parseTitle(doc.Title)
	if !ok {
		return Record{}, fmt.Errorf("%w: title %q", ErrUnrecognized, doc.Title)
	}

	r := Record{
		Kind:      kind,
		Stage:     stage,
		Status:    status,
		CreatedAt: doc.Timestamp,
	}
	if author, ok := parseFooter(doc.Footer); ok {
		r.Author = author
	}
	if doc.AuthorID != 0 {
		r.Author.ID = doc.AuthorID
	}

	r.Fields = make([]Field, 0, len(doc.Fields))
	for _, f := range doc.Fields {
		if f.Name == DecisionFieldName {
			if d, ok := parseDecision(f.Value); ok {
				r.Decision = &d
			}
			continue
		}
		r.Fields = append(r.Fields, f)
	}
	return r, nil
}

func parseTitle(title string) (Kind, Stage, Status, bool) {
	title = strings.TrimSpace(title)
	status := StatusPending
	for s, st := range statusStyles {
		prefix := st.glyph + " "
		suffix := " [" + st.label + "]"
		if strings.HasPrefix(title, prefix) && strings.HasSuffix(title, suffix) {
			title = strings.TrimSuffix(strings.TrimPrefix(title, prefix), suffix)
			status = s
			break
		}
	}
	for key, st := range stageStyles {
		if st.title == title {
			return key.kind, key.stage, status, true
		}
	}
	return "", "", "", false
}

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)

func parseDecision(text string) (Decision, bool) {
	var d Decision
	rest := text
	for rest != "" {
		line := rest
		next := ""
		if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
			line, next = rest[:idx], rest[idx+1:]
		}
		switch {
		case strings.HasPrefix(line, "Decision: "):
			d.Status = statusFromLabel(strings.TrimPrefix(line, "Decision: "))
		case strings.HasPrefix(line, "Reviewer: "):
			if m := mentionPattern.FindStringSubmatch(strings.TrimPrefix(line, "Reviewer: ")); m != nil {
				d.Reviewer.ID, _ = strconv.ParseUint(m[1], 10, 64)
			}
		case strings.HasPrefix(line, "Decided at: "):
			if t, err := time.Parse(decidedAtLayout, strings.TrimPrefix(line, "Decided at: ")); err == nil {
				d.DecidedAt = t
			}
		case strings.HasPrefix(line, "Comment: "):
			d.Comment = strings.TrimPrefix(rest, "Comment: ")
			next = ""
		}
		rest = next
	}
	return d, d.Status != ""
}

func statusFromLabel(label string) Status {
	for s, st := range statusStyles {
		if st.label == label {
			return s
		}
	}
	return ""
}
