package pipeline

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"surveyprep/domain/survey"
	"surveyprep/domain/table"
	"surveyprep/internal/errors"
)

// Resolver scans a raw table's column names and produces the survey schema:
// MR sets, skip rules, label pairs and the respondent ID column. It inspects
// names only, never cell data, so option counts may vary freely per question.
type Resolver struct {
	pattern     *regexp.Regexp
	labelSuffix string
	idColumn    string
	rules       []declaredRule
}

// declaredRule is a parsed but not yet validated skip declaration. Dependent
// may name a column or an MR set; validation against the actual table
// happens in Resolve.
type declaredRule struct {
	dependent  string
	gate       string
	satisfying []string
}

// skipRulePattern matches one "dependent<=gate{v1,v2}" declaration.
var skipRulePattern = regexp.MustCompile(`^(.+?)<=(.+?)\{(.*)\}$`)

// NewResolver compiles the naming conventions. Malformed patterns or skip
// declarations are configuration errors and fail fast.
func NewResolver(opts Options) (*Resolver, error) {
	pattern, err := regexp.Compile(opts.MRPattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid MR pattern %q", opts.MRPattern)
	}
	if pattern.NumSubexp() < 2 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("MR pattern %q must capture a set name and an option suffix", opts.MRPattern))
	}

	rules, err := parseSkipRules(opts.SkipRules)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		pattern:     pattern,
		labelSuffix: opts.LabelSuffix,
		idColumn:    opts.IDColumn,
		rules:       rules,
	}, nil
}

// parseSkipRules parses semicolon-separated skip declarations.
func parseSkipRules(declarations string) ([]declaredRule, error) {
	var rules []declaredRule
	for _, decl := range strings.Split(declarations, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		m := skipRulePattern.FindStringSubmatch(decl)
		if m == nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("malformed skip rule %q, want dependent<=gate{v1,v2}", decl))
		}
		var satisfying []string
		for _, v := range strings.Split(m[3], ",") {
			if v = strings.TrimSpace(v); v != "" {
				satisfying = append(satisfying, v)
			}
		}
		if len(satisfying) == 0 {
			return nil, errors.ConfigInvalid(fmt.Sprintf("skip rule %q has an empty satisfying set", decl))
		}
		rules = append(rules, declaredRule{
			dependent:  strings.TrimSpace(m[1]),
			gate:       strings.TrimSpace(m[2]),
			satisfying: satisfying,
		})
	}
	return rules, nil
}

// Resolve builds the schema for one table. Groupings are derived from
// column names in source order; ambiguous names are reported and left
// ungrouped, never merged into a wrong group.
func (r *Resolver) Resolve(t *table.Table, report *Report) *survey.Schema {
	idColumn := r.resolveIDColumn(t, report)
	textColumns := make(map[string]bool)
	var pairs []survey.LabelPair

	// Label pairs first: a text column never participates in grouping.
	for _, col := range t.Columns {
		if r.labelSuffix == "" || !strings.HasSuffix(col, r.labelSuffix) {
			continue
		}
		base := strings.TrimSuffix(col, r.labelSuffix)
		if base != "" && t.HasColumn(base) {
			textColumns[col] = true
			pairs = append(pairs, survey.LabelPair{CodeColumn: base, TextColumn: col})
		}
	}

	// Group the remaining columns by the MR pattern.
	groupMembers := make(map[string][]string)
	var groupOrder []string
	var unmatched []string
	for _, col := range t.Columns {
		if col == idColumn || textColumns[col] {
			continue
		}
		m := r.pattern.FindStringSubmatch(col)
		if m == nil {
			unmatched = append(unmatched, col)
			continue
		}
		name := m[1]
		if _, seen := groupMembers[name]; !seen {
			groupOrder = append(groupOrder, name)
		}
		groupMembers[name] = append(groupMembers[name], col)
	}

	// Single-column groups stay single-response questions.
	var sets []survey.MRSet
	setNames := make(map[string]bool)
	for _, name := range groupOrder {
		members := groupMembers[name]
		if len(members) < 2 {
			unmatched = append(unmatched, members...)
			continue
		}
		sets = append(sets, survey.MRSet{Name: name, Members: members})
		setNames[name] = true
	}

	// A column that shares a detected set's prefix but failed the full
	// pattern is ambiguous: report it, keep it ungrouped.
	var ungrouped []string
	for _, col := range t.Columns {
		if col == idColumn || textColumns[col] {
			continue
		}
		if !contains(unmatched, col) {
			continue
		}
		ambiguousSet := ""
		for name := range setNames {
			if strings.HasPrefix(col, name+"_") {
				ambiguousSet = name
				break
			}
		}
		if ambiguousSet != "" {
			report.Addf(KindSchemaAmbiguity, col,
				"matches prefix of set %q but its option suffix is unparseable; left ungrouped", ambiguousSet)
		}
		ungrouped = append(ungrouped, col)
	}

	skips := r.resolveSkipRules(t, sets, report)

	log.Printf("[Resolver] resolved schema: %d MR sets, %d skip rules, %d label pairs, %d single-response columns",
		len(sets), len(skips), len(pairs), len(ungrouped))

	return &survey.Schema{
		IDColumn:  idColumn,
		Sets:      sets,
		Skips:     skips,
		Pairs:     pairs,
		Ungrouped: ungrouped,
	}
}

// resolveSkipRules validates declared rules against the table and expands
// set-level dependents to their member columns.
func (r *Resolver) resolveSkipRules(t *table.Table, sets []survey.MRSet, report *Report) []survey.SkipRule {
	var out []survey.SkipRule
	for _, decl := range r.rules {
		if !t.HasColumn(decl.gate) {
			report.Addf(KindUnresolvedSkipGate, decl.dependent,
				"gating column %q not present in table; no skip fill applied", decl.gate)
			continue
		}

		var dependents []string
		if t.HasColumn(decl.dependent) {
			dependents = []string{decl.dependent}
		} else {
			for _, set := range sets {
				if set.Name == decl.dependent {
					dependents = set.Members
					break
				}
			}
		}
		if len(dependents) == 0 {
			report.Addf(KindUnresolvedSkipGate, decl.dependent,
				"dependent %q is neither a column nor an MR set; no skip fill applied", decl.dependent)
			continue
		}

		satisfying := make(map[string]bool, len(decl.satisfying))
		for _, v := range decl.satisfying {
			satisfying[v] = true
		}
		for _, dep := range dependents {
			out = append(out, survey.SkipRule{
				Dependent:  dep,
				Gate:       decl.gate,
				Satisfying: satisfying,
			})
		}
	}
	return out
}

// Common respondent ID column names checked during auto-detection.
var commonIDColumns = []string{
	"id",
	"respondent_id",
	"member_id",
	"user_id",
	"회원id",
}

// resolveIDColumn picks the respondent identity column: the configured name
// when present, otherwise auto-detection over common names with the first
// column as fallback. An empty result means positional identity.
func (r *Resolver) resolveIDColumn(t *table.Table, report *Report) string {
	if r.idColumn != "" {
		if t.HasColumn(r.idColumn) {
			return r.idColumn
		}
		report.Addf(KindStructuralInputError, r.idColumn,
			"configured ID column %q not present; falling back to auto-detection", r.idColumn)
	}

	for _, name := range commonIDColumns {
		for _, col := range t.Columns {
			if strings.ToLower(col) == name && isValidIDColumn(t, col) {
				return col
			}
		}
	}
	if len(t.Columns) > 0 && isValidIDColumn(t, t.Columns[0]) {
		return t.Columns[0]
	}
	return ""
}

// isValidIDColumn checks a candidate for mostly non-empty, mostly unique
// values.
func isValidIDColumn(t *table.Table, column string) bool {
	if t.NumRows() == 0 {
		return false
	}
	values := make(map[string]bool)
	emptyCount := 0
	for _, row := range t.Rows {
		if v := row[column]; v == "" {
			emptyCount++
		} else {
			values[v] = true
		}
	}
	emptyRatio := float64(emptyCount) / float64(t.NumRows())
	uniqueRatio := float64(len(values)) / float64(t.NumRows())
	return emptyRatio < 0.5 && uniqueRatio > 0.5
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
