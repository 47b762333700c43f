package core

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Binary serializers for stored records. Fields are written in declaration order
// using mus-go primitives; times are encoded as Unix microseconds and slices as a
// length prefix followed by their elements.

// IDMUS serializes ID values.
var IDMUS = idMUS{}

// EvidenceSegmentMUS serializes EvidenceSegment values.
var EvidenceSegmentMUS = evidenceSegmentMUS{}

// DocumentStateMUS serializes DocumentState values.
var DocumentStateMUS = documentStateMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

type evidenceSegmentMUS struct{}

func (evidenceSegmentMUS) Marshal(v EvidenceSegment, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Fingerprint, bs[n:])
	n += ord.String.Marshal(v.DocumentID, bs[n:])
	n += ord.String.Marshal(string(v.Kind), bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Organization, bs[n:])
	n += marshalTime(v.Start, bs[n:])
	n += marshalTime(v.End, bs[n:])
	n += marshalStrings(v.Topics, bs[n:])
	n += marshalStrings(v.Skills, bs[n:])
	n += varint.Int.Marshal(v.TokenCount, bs[n:])
	n += ord.Bool.Marshal(v.Truncated, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	return
}

func (evidenceSegmentMUS) Unmarshal(bs []byte) (v EvidenceSegment, n int, err error) {
	r := reader{bs: bs}
	v.ID = r.id()
	v.Fingerprint = r.string()
	v.DocumentID = r.string()
	v.Kind = SegmentKind(r.string())
	v.Content = r.string()
	v.Summary = r.string()
	v.Title = r.string()
	v.Organization = r.string()
	v.Start = r.time()
	v.End = r.time()
	v.Topics = r.strings()
	v.Skills = r.strings()
	v.TokenCount = r.int()
	v.Truncated = r.bool()
	v.Vector = r.vector()
	v.InsertedAt = r.time()
	return v, r.n, r.err
}

func (evidenceSegmentMUS) Size(v EvidenceSegment) (size int) {
	size = IDMUS.Size(v.ID)
	size += ord.String.Size(v.Fingerprint)
	size += ord.String.Size(v.DocumentID)
	size += ord.String.Size(string(v.Kind))
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.Summary)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Organization)
	size += sizeTime(v.Start)
	size += sizeTime(v.End)
	size += sizeStrings(v.Topics)
	size += sizeStrings(v.Skills)
	size += varint.Int.Size(v.TokenCount)
	size += ord.Bool.Size(v.Truncated)
	size += sizeVector(v.Vector)
	size += sizeTime(v.InsertedAt)
	return
}

type documentStateMUS struct{}

func (documentStateMUS) Marshal(v DocumentState, bs []byte) (n int) {
	n = ord.String.Marshal(v.DocumentID, bs)
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += varint.Int.Marshal(v.SegmentCount, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (documentStateMUS) Unmarshal(bs []byte) (v DocumentState, n int, err error) {
	r := reader{bs: bs}
	v.DocumentID = r.string()
	v.ContentHash = r.string()
	v.SegmentCount = r.int()
	v.UpdatedAt = r.time()
	return v, r.n, r.err
}

func (documentStateMUS) Size(v DocumentState) (size int) {
	size = ord.String.Size(v.DocumentID)
	size += ord.String.Size(v.ContentHash)
	size += varint.Int.Size(v.SegmentCount)
	size += sizeTime(v.UpdatedAt)
	return
}

// zero times are stored as 0 so they round-trip as time.Time{}
func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(unixMicro(t), bs)
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(unixMicro(t))
}

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func sizeStrings(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return
}

func sizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return
}

// reader decodes fields sequentially and stops at the first error.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) ok() bool {
	return r.err == nil
}

func (r *reader) id() ID {
	if !r.ok() {
		return 0
	}
	v, n, err := IDMUS.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) string() string {
	if !r.ok() {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) int() int {
	if !r.ok() {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) bool() bool {
	if !r.ok() {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) time() time.Time {
	if !r.ok() {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	if err != nil || v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func (r *reader) length() int {
	l := r.int()
	if r.ok() && (l < 0 || l > len(r.bs)-r.n) {
		r.err = fmt.Errorf("invalid length %d", l)
		return 0
	}
	return l
}

func (r *reader) strings() []string {
	l := r.length()
	if !r.ok() || l == 0 {
		return nil
	}
	out := make([]string, 0, l)
	for i := 0; i < l && r.ok(); i++ {
		out = append(out, r.string())
	}
	return out
}

func (r *reader) vector() []float32 {
	l := r.length()
	if !r.ok() || l == 0 {
		return nil
	}
	out := make([]float32, 0, l)
	for i := 0; i < l && r.ok(); i++ {
		v, n, err := varint.Uint32.Unmarshal(r.bs[r.n:])
		r.n += n
		r.err = err
		out = append(out, math.Float32frombits(v))
	}
	return out
}
