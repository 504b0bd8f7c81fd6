package core

// CanonicalSet returns the set of non-empty canonical identifiers of a view.
func CanonicalSet(v *View) map[CanonicalID]struct{} {
	set := make(map[CanonicalID]struct{}, v.Len())
	if v == nil {
		return set
	}
	for _, r := range v.Records {
		if !r.Canonical.IsZero() {
			set[r.Canonical] = struct{}{}
		}
	}
	return set
}

// ExclusiveOf returns the records of a whose canonical identifier does not
// appear in b. Records with an empty identifier never match, so they are
// always exclusive. A nil b yields every record of a; a nil a yields an
// empty view. Runs in O(|a| + |b|).
func ExclusiveOf(a, b *View) *View {
	if a == nil {
		return emptyView("")
	}
	present := CanonicalSet(b)
	out := make([]*Record, 0, len(a.Records))
	for _, r := range a.Records {
		if _, ok := present[r.Canonical]; ok && !r.Canonical.IsZero() {
			continue
		}
		out = append(out, r)
	}
	return a.subset(out, a.Display)
}
