// Package survey holds the resolved survey schema: multi-response groupings,
// skip relationships and label pairs. The schema is computed once by the
// resolver stage and treated as read-only by every later stage.
package survey

// MRSet is a named group of columns representing the selectable options of
// one multi-response question. Members keep the column order of the source
// table. A set always has at least two members; single-column matches stay
// ordinary single-response columns.
type MRSet struct {
	Name    string
	Members []string
}

// SkipRule associates a dependent column (or MR set, expanded to its member
// columns by the resolver) with a gating column and the gate values under
// which the dependent is applicable. When the gate's value is outside
// Satisfying, the dependent cell is structurally skipped.
type SkipRule struct {
	Dependent  string
	Gate       string
	Satisfying map[string]bool
}

// Satisfied reports whether the given gate value makes the dependent
// applicable.
func (r SkipRule) Satisfied(gateValue string) bool {
	return r.Satisfying[gateValue]
}

// LabelPair links a numeric response column to the co-located text column
// carrying its human-readable value.
type LabelPair struct {
	CodeColumn string
	TextColumn string
}

// Schema is the full resolved structure of one survey table.
type Schema struct {
	IDColumn  string
	Sets      []MRSet
	Skips     []SkipRule
	Pairs     []LabelPair
	Ungrouped []string // single-response columns, source order
}

// SetFor returns the MR set containing the given column, if any.
func (s *Schema) SetFor(column string) (MRSet, bool) {
	for _, set := range s.Sets {
		for _, m := range set.Members {
			if m == column {
				return set, true
			}
		}
	}
	return MRSet{}, false
}

// SetByName returns the MR set with the given name, if any.
func (s *Schema) SetByName(name string) (MRSet, bool) {
	for _, set := range s.Sets {
		if set.Name == name {
			return set, true
		}
	}
	return MRSet{}, false
}

// IsMRMember reports whether the column belongs to any MR set.
func (s *Schema) IsMRMember(column string) bool {
	_, ok := s.SetFor(column)
	return ok
}

// WithRenamedColumns returns a new schema with member, gate and ungrouped
// column names substituted per the rename map. The receiver is unchanged;
// later stages see a fresh value consistent with the renamed table.
func (s *Schema) WithRenamedColumns(renames map[string]string) *Schema {
	if len(renames) == 0 {
		return s
	}
	rename := func(name string) string {
		if renamed, ok := renames[name]; ok {
			return renamed
		}
		return name
	}

	out := &Schema{IDColumn: rename(s.IDColumn)}
	for _, set := range s.Sets {
		members := make([]string, len(set.Members))
		for i, m := range set.Members {
			members[i] = rename(m)
		}
		out.Sets = append(out.Sets, MRSet{Name: set.Name, Members: members})
	}
	for _, rule := range s.Skips {
		out.Skips = append(out.Skips, SkipRule{
			Dependent:  rename(rule.Dependent),
			Gate:       rename(rule.Gate),
			Satisfying: rule.Satisfying,
		})
	}
	for _, pair := range s.Pairs {
		out.Pairs = append(out.Pairs, LabelPair{
			CodeColumn: rename(pair.CodeColumn),
			TextColumn: pair.TextColumn,
		})
	}
	for _, col := range s.Ungrouped {
		out.Ungrouped = append(out.Ungrouped, rename(col))
	}
	return out
}

// PairFor returns the label pair whose code column is the given column.
func (s *Schema) PairFor(codeColumn string) (LabelPair, bool) {
	for _, p := range s.Pairs {
		if p.CodeColumn == codeColumn {
			return p, true
		}
	}
	return LabelPair{}, false
}
