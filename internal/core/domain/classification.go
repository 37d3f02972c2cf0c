package domain

// Classification is the structured output of the AI triage step. It is
// transient: produced by the classifier adapter, consumed once by the
// matcher and the ticket updater, never persisted on its own.
//
// Priority is carried through exactly as the model emitted it; the
// updater normalizes it with NormalizePriority when persisting.
type Classification struct {
	Summary       string   `json:"summary"`
	Priority      string   `json:"priority"`
	HelpfulNotes  string   `json:"helpfulNotes"`
	RelatedSkills []string `json:"relatedSkills"`
}

// HasSkills reports whether the classification names any skills the
// matcher could use.
func (c *Classification) HasSkills() bool {
	return c != nil && len(c.RelatedSkills) > 0
}
