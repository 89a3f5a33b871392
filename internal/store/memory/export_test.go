package memory

import "encoding/json"

// setRaw stores an arbitrary JSON value under id, bypassing encoding.
func (s *Store) setRaw(coll, id string, raw json.RawMessage) {
	s.mu.Lock()
	c := s.collLocked(coll)
	if _, exists := c.values[id]; !exists {
		c.order = append(c.order, id)
	}
	c.values[id] = append(json.RawMessage(nil), raw...)
	snap := s.commitLocked(coll)
	s.mu.Unlock()

	s.hub.Publish(snap)
}
