package internal

// Deduplicator tracks which chat message ids have already been rendered
type Deduplicator struct {
	seen map[string]bool
}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]bool)}
}

// Deduplicate returns the messages whose ids were not seen before, in the
// order received, and marks them as seen. Repeated ids within one batch
// are also dropped.
func (d *Deduplicator) Deduplicate(messages []ChatMessage) []ChatMessage {
	var unique []ChatMessage

	for _, msg := range messages {
		if msg.ID == "" {
			LogDebug("Dropping chat message without id at %d", msg.Timestamp)
			continue
		}
		if !d.seen[msg.ID] {
			d.seen[msg.ID] = true
			unique = append(unique, msg)
		}
	}

	return unique
}

// Seen reports whether id was already marked
func (d *Deduplicator) Seen(id string) bool {
	return d.seen[id]
}

// Mark records id as rendered
func (d *Deduplicator) Mark(id string) {
	d.seen[id] = true
}

// Reset forgets every id
func (d *Deduplicator) Reset() {
	d.seen = make(map[string]bool)
}
