package comments

import "campus-forum/internal/models"

// The display model is two visual tiers: root comments, and all of a
// root's (possibly multi-level) replies collapsed into one flat reply
// group under it, ordered by insertion sequence. The helpers below keep a
// flattened list in that shape while inserting optimistic entries.

// resolveEffectiveParent maps a requested parent onto the id the new entry
// is grouped under. Replying to a reply walks up exactly one level, so a
// grandchild lands in its root's reply group; deeper chains are never
// followed. An unknown parent degrades to root placement.
func resolveEffectiveParent(list []models.Comment, parentID *string) *string {
	if parentID == nil {
		return nil
	}

	idx := models.FindComment(list, *parentID)
	if idx < 0 {
		// Stale reference: the parent never made it into (or was evicted
		// from) this snapshot. Treat as root.
		return nil
	}

	parent := list[idx]
	if parent.ParentID != nil {
		effective := *parent.ParentID
		return &effective
	}

	effective := *parentID
	return &effective
}

// insertOptimistic places a new entry into a flattened list. Roots append
// at the end. Replies go immediately after the last entry already in the
// parent's reply group, scanning forward from the parent itself; if the
// parent is missing from the list the entry appends at the end instead of
// failing the submission.
func insertOptimistic(list []models.Comment, entry models.Comment) []models.Comment {
	if entry.ParentID == nil {
		return append(list, entry)
	}

	parentIdx := models.FindComment(list, *entry.ParentID)
	if parentIdx < 0 {
		return append(list, entry)
	}

	insertAfter := parentIdx
	for i := parentIdx + 1; i < len(list); i++ {
		if list[i].ParentID != nil && *list[i].ParentID == *entry.ParentID {
			insertAfter = i
		}
	}

	out := make([]models.Comment, 0, len(list)+1)
	out = append(out, list[:insertAfter+1]...)
	out = append(out, entry)
	out = append(out, list[insertAfter+1:]...)
	return out
}

// replaceComment swaps the entry with the given id for the supplied value,
// returning false when the id is no longer present.
func replaceComment(list []models.Comment, id string, value models.Comment) bool {
	idx := models.FindComment(list, id)
	if idx < 0 {
		return false
	}
	list[idx] = value
	return true
}
