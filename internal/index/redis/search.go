package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/finquery-labs/finrag/internal/domain/search/filter"
	"github.com/finquery-labs/finrag/internal/index"
)

// SearchKNN runs a filtered KNN search via FT.SEARCH. The filter compiles
// into the query-language prefix of the KNN clause, so Redis applies it
// before the neighbor traversal (filter-then-search).
func (s *Store) SearchKNN(ctx context.Context, q *index.KNNQuery) (*index.SearchResult, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.TopK <= 0 {
		return &index.SearchResult{}, nil
	}

	filterStr := buildFilter(q.Filter)

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.TopK, index.FieldVector)
	var queryStr string
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = "*=>" + knnPart
	}

	args := []string{
		s.indexName(q.Collection), queryStr,
		"SORTBY", index.FieldScore, "ASC",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"PARAMS", "2", "BLOB", string(index.VectorToBytes(q.Vector)),
		"DIALECT", "2",
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") {
			return nil, fmt.Errorf("%w: %s", index.ErrCollectionNotFound, q.Collection)
		}
		return nil, &index.Error{Op: index.OpSearch, Err: err}
	}

	return s.parseKNNResult(raw, q.Collection)
}

// parseKNNResult decodes the RESP2 FT.SEARCH reply:
// [total, key1, fields1, key2, fields2, ...].
func (s *Store) parseKNNResult(raw []rueidis.RedisMessage, collection string) (*index.SearchResult, error) {
	if len(raw) == 0 {
		return &index.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &index.SearchResult{}, nil
	}

	keyPrefix := s.prefix + collection + ":"
	entries := make([]index.Entry, 0, total)

	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fieldMsgs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := index.Entry{
			Key:    strings.TrimPrefix(key, keyPrefix),
			Fields: parseFieldPairs(fieldMsgs),
		}

		if scoreStr, ok := entry.Fields[index.FieldScore]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Distance = d
			}
			delete(entry.Fields, index.FieldScore)
		}
		delete(entry.Fields, index.FieldVector)

		entries = append(entries, entry)
	}

	return &index.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// buildFilter translates a conjunctive filter into an FT.SEARCH pre-filter
// query string.
func buildFilter(f filter.Filter) string {
	if f.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(f.Conditions()))
	for _, cond := range f.Conditions() {
		if p := buildCondition(cond); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func buildCondition(cond filter.Condition) string {
	switch {
	case cond.IsMatch():
		return fmt.Sprintf("@%s:{%s}", cond.Key(), escapeTag(cond.Match()))
	case cond.IsSet():
		escaped := make([]string, len(cond.Set()))
		for i, v := range cond.Set() {
			escaped[i] = escapeTag(v)
		}
		return fmt.Sprintf("@%s:{%s}", cond.Key(), strings.Join(escaped, "|"))
	case cond.IsRange():
		return buildNumericFilter(cond.Key(), *cond.Range())
	}
	return ""
}

func buildNumericFilter(key string, r filter.Range) string {
	lo, hi := "-inf", "+inf"
	if r.GTE() != nil {
		lo = strconv.FormatFloat(*r.GTE(), 'f', -1, 64)
	}
	if r.LTE() != nil {
		hi = strconv.FormatFloat(*r.LTE(), 'f', -1, 64)
	}
	return fmt.Sprintf("@%s:[%s %s]", key, lo, hi)
}

// tagEscaper escapes characters with query-language meaning inside TAG values.
var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>", "{", "\\{", "}", "\\}",
	"[", "\\[", "]", "\\]", "\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;",
	"!", "\\!", "@", "\\@", "#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+",
	"=", "\\=", "~", "\\~", "|", "\\|", " ", "\\ ",
)

func escapeTag(v string) string {
	return tagEscaper.Replace(v)
}
