package analytics

import (
	"tonstation/internal/domain"
)

// Hit is a stored message that matched at least one configured tag.
type Hit struct {
	Record  domain.MessageRecord
	Tags    []string
	Channel *domain.ChannelRecord
}

// Tally aggregates hit count and summed views for one key. Unknown
// views contribute zero to the sum.
type Tally struct {
	Count int
	Views int64
}

// TallyMap is a map keyed by chat id or tag that remembers insertion
// order, so count-descending report sections stay deterministic under
// a stable sort.
type TallyMap struct {
	order []string
	m     map[string]*Tally
}

// NewTallyMap returns an empty aggregation map.
func NewTallyMap() *TallyMap {
	return &TallyMap{m: make(map[string]*Tally)}
}

// Add accumulates one hit with the given views (nil = unknown = 0).
func (t *TallyMap) Add(key string, views *int64) {
	bucket, ok := t.m[key]
	if !ok {
		bucket = &Tally{}
		t.m[key] = bucket
		t.order = append(t.order, key)
	}
	bucket.Count++
	if views != nil {
		bucket.Views += *views
	}
}

// Get returns the tally for a key.
func (t *TallyMap) Get(key string) (Tally, bool) {
	bucket, ok := t.m[key]
	if !ok {
		return Tally{}, false
	}
	return *bucket, true
}

// Len returns the number of distinct keys.
func (t *TallyMap) Len() int {
	return len(t.order)
}

// TallyItem pairs a key with its tally.
type TallyItem struct {
	Key string
	Tally
}

// Items returns all buckets in insertion order.
func (t *TallyMap) Items() []TallyItem {
	out := make([]TallyItem, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, TallyItem{Key: key, Tally: *t.m[key]})
	}
	return out
}

// DetectHits matches every record against the configured tags. Records
// matching no tags are excluded entirely; the rest are returned in
// input order along with per-channel and per-tag aggregations.
func DetectHits(records []domain.MessageRecord, tags []domain.TagRecord, channelsByID map[string]domain.ChannelRecord) ([]Hit, *TallyMap, *TallyMap) {
	var hits []Hit
	perChannel := NewTallyMap()
	perTag := NewTallyMap()

	for _, rec := range records {
		var matched []string
		for _, tag := range tags {
			if rec.MatchesTag(tag.Tag) {
				matched = append(matched, tag.Tag)
			}
		}
		if len(matched) == 0 {
			continue
		}

		var channel *domain.ChannelRecord
		if ch, ok := channelsByID[rec.ChatID]; ok {
			copied := ch
			channel = &copied
		}

		for _, tag := range matched {
			perTag.Add(tag, rec.Views)
		}
		perChannel.Add(rec.ChatID, rec.Views)
		hits = append(hits, Hit{Record: rec, Tags: matched, Channel: channel})
	}

	return hits, perChannel, perTag
}
