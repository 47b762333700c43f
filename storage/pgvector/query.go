package pgvector

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/vitae/core"
)

const segmentColumns = `id, fingerprint, document_id, kind, content, summary, title, organization,
	start_date, end_date, topics, skills, token_count, truncated, embedding, inserted_at`

// searchableText is the expression keyword search matches against.
const searchableText = `lower(content || ' ' || array_to_string(coalesce(skills, '{}'), ' ') || ' ' || array_to_string(coalesce(topics, '{}'), ' '))`

// query accumulates SQL text and positional arguments.
type query struct {
	sql  strings.Builder
	args []any
}

// arg appends v and returns its placeholder.
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) write(format string, a ...any) {
	fmt.Fprintf(&q.sql, format, a...)
}

func (q *query) String() string {
	return q.sql.String()
}

// similarityQuery selects segments at or above threshold, nearest first.
func similarityQuery(table string, vector any, threshold float32, limit int) *query {
	q := &query{}
	v := q.arg(vector)
	q.write("SELECT %s, 1 - (embedding <=> %s) AS similarity FROM %s", segmentColumns, v, table)
	q.write(" WHERE embedding IS NOT NULL AND 1 - (embedding <=> %s) >= %s", v, q.arg(threshold))
	q.write(" ORDER BY embedding <=> %s, id LIMIT %s", v, q.arg(limit))
	return q
}

// keywordQuery ranks segments by the number of terms they contain.
func keywordQuery(table string, terms []string, limit int) *query {
	q := &query{}
	matches := make([]string, len(terms))
	for i, term := range terms {
		matches[i] = fmt.Sprintf("(%s LIKE %s)", searchableText, q.arg(likePattern(term)))
	}

	q.write("SELECT %s, 0::float8 AS similarity FROM %s WHERE (%s)", segmentColumns, table, strings.Join(matches, " OR "))

	score := make([]string, len(matches))
	for i, m := range matches {
		score[i] = m + "::int"
	}
	q.write(" ORDER BY (%s) DESC, id LIMIT %s", strings.Join(score, " + "), q.arg(limit))
	return q
}

// likePattern escapes LIKE metacharacters and wraps term for substring matching.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

// The store keeps uint64 IDs in a BIGINT column by bit reinterpretation.
func toDB(id core.ID) int64 {
	return int64(id)
}

func fromDB(id int64) core.ID {
	return core.ID(id)
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// firstSpellings dedupes values case-insensitively, keeping the first spelling.
func firstSpellings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
