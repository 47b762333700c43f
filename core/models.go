package core

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored segments.
// It is derived from segment content so identical text produces identical IDs.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Fingerprint returns the hex encoded BLAKE2b-256 digest of text.
func Fingerprint(text string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Category classifies a source document.
type Category string

const (
	CategoryJob           Category = "job"
	CategoryProject       Category = "project"
	CategoryEducation     Category = "education"
	CategoryVolunteer     Category = "volunteer"
	CategoryCertification Category = "certification"
	CategoryOther         Category = "other"
)

// Noun returns a human readable description used in segment boilerplate.
func (c Category) Noun() string {
	switch c {
	case CategoryJob, "":
		return "role"
	case CategoryProject:
		return "project"
	case CategoryEducation:
		return "course of study"
	case CategoryVolunteer:
		return "volunteer position"
	case CategoryCertification:
		return "certification"
	default:
		return string(c)
	}
}

// SegmentKind identifies the evidence dimension a segment covers.
// The set is open ended; these are the kinds produced by the built-in strategy.
type SegmentKind string

const (
	KindOverview    SegmentKind = "overview"
	KindTechnical   SegmentKind = "technical"
	KindAchievement SegmentKind = "achievement"
	KindLeadership  SegmentKind = "leadership"
)

// DateRange is a span of time. A zero End means the range is still open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsOpen reports whether the range has no end date.
func (r DateRange) IsOpen() bool {
	return r.End.IsZero()
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Format renders the range at year granularity, e.g. "2019–2021" or "2019–Present".
func (r DateRange) Format() string {
	switch {
	case r.Start.IsZero() && r.End.IsZero():
		return ""
	case r.Start.IsZero():
		return yearString(r.End)
	case r.End.IsZero():
		return yearString(r.Start) + "–Present"
	case r.Start.Year() == r.End.Year():
		return yearString(r.Start)
	default:
		return yearString(r.Start) + "–" + yearString(r.End)
	}
}

// Overlaps reports whether the two ranges share any instant.
// Open bounds extend indefinitely in their direction.
func (r DateRange) Overlaps(other DateRange) bool {
	if !r.End.IsZero() && !other.Start.IsZero() && r.End.Before(other.Start) {
		return false
	}
	if !other.End.IsZero() && !r.Start.IsZero() && other.End.Before(r.Start) {
		return false
	}
	return true
}

func yearString(t time.Time) string {
	return t.Format("2006")
}

// SourceDocument is a normalized career document: a job, project, education entry, etc.
// Documents are read-only to the extraction core.
type SourceDocument struct {
	ID           string
	Category     Category
	Organization string
	Title        string
	Start        time.Time
	End          time.Time // zero when open-ended
	Summary      string
	Skills       []string
	Topics       []string // domain tags
	Outcomes     []string // declared outcomes
	Body         string
}

// DateRange returns the document tenure.
func (d *SourceDocument) DateRange() DateRange {
	return DateRange{Start: d.Start, End: d.End}
}

// Key returns the document identifier, deriving a stable one from organization,
// title and start date when none was assigned.
func (d *SourceDocument) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return Fingerprint(d.Organization + "\x00" + d.Title + "\x00" + d.Start.Format(time.DateOnly))[:16]
}

// ContentHash returns a digest over every field of the document.
// A change in the hash supersedes the document's segments.
func (d *SourceDocument) ContentHash() string {
	var b strings.Builder
	for _, field := range []string{
		d.Key(), string(d.Category), d.Organization, d.Title,
		d.Start.UTC().Format(time.RFC3339), d.End.UTC().Format(time.RFC3339),
		d.Summary, strings.Join(d.Skills, "\x1f"), strings.Join(d.Topics, "\x1f"),
		strings.Join(d.Outcomes, "\x1f"), d.Body,
	} {
		b.WriteString(field)
		b.WriteByte(0)
	}
	return Fingerprint(b.String())
}

// EvidenceSegment is a bounded, self-contained unit of retrievable text
// carrying one evidence dimension of a source document.
type EvidenceSegment struct {
	ID           ID
	Fingerprint  string
	DocumentID   string
	Kind         SegmentKind
	Content      string
	Summary      string
	Title        string
	Organization string
	Start        time.Time
	End          time.Time
	Topics       []string
	Skills       []string
	TokenCount   int
	Truncated    bool
	Vector       []float32 // populated by the embedding step
	InsertedAt   time.Time
}

// DateRange returns the tenure inherited from the source document.
func (s *EvidenceSegment) DateRange() DateRange {
	return DateRange{Start: s.Start, End: s.End}
}

// DocumentState records what was last ingested for a document.
type DocumentState struct {
	DocumentID   string
	ContentHash  string
	SegmentCount int
	UpdatedAt    time.Time
}

// Filters are ranking preferences. A candidate matching Skills, Tags or Range
// is boosted; a candidate matching none is still returned.
type Filters struct {
	Skills []string
	Tags   []string
	Range  DateRange
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return len(f.Skills) == 0 && len(f.Tags) == 0 && f.Range.IsZero()
}

// InRange reports whether a date range is set and the segment tenure overlaps it.
func (f Filters) InRange(s *EvidenceSegment) bool {
	return !f.Range.IsZero() && f.Range.Overlaps(s.DateRange())
}

// SearchMatch is a segment returned by a store together with its similarity.
type SearchMatch struct {
	Segment    *EvidenceSegment
	Similarity float32
}
