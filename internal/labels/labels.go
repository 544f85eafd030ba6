package labels

// Label holds the user-entered judgments for one card. A label exists only
// once the user has interacted with the card; absence means "no overrides,
// grasped=false".
type Label struct {
	// Difficulty overrides the card's difficulty when non-nil
	Difficulty *string `json:"difficulty,omitempty"`

	// Usefulness overrides the card's usefulness when non-nil
	Usefulness *string `json:"usefulness,omitempty"`

	// Grasped marks the card as understood
	Grasped bool `json:"grasped"`

	// UpdatedAt is the Unix timestamp of the last mutation
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// Patch is a partial label update: nil fields are left unchanged.
type Patch struct {
	Difficulty *string
	Usefulness *string
	Grasped    *bool
}

// IsZero reports whether the label carries no overrides and no grasped flag,
// i.e. it is equivalent to having no label at all.
func (l Label) IsZero() bool {
	return l.Difficulty == nil && l.Usefulness == nil && !l.Grasped
}

// apply merges the patch into the label.
func (l Label) apply(p Patch) Label {
	if p.Difficulty != nil {
		v := *p.Difficulty
		l.Difficulty = &v
	}
	if p.Usefulness != nil {
		v := *p.Usefulness
		l.Usefulness = &v
	}
	if p.Grasped != nil {
		l.Grasped = *p.Grasped
	}
	return l
}
