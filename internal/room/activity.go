package room

// activitySet keeps the ordered set of participant ids that should be
// visible or prioritized. The local participant id is pinned at the head;
// promoted speakers move to the front of the remote portion, directly
// behind it.
type activitySet struct {
	localID string
	order   []string
}

func newActivitySet(localID string) *activitySet {
	return &activitySet{localID: localID, order: []string{localID}}
}

// Add appends id if absent. The local id never moves from the head.
func (a *activitySet) Add(id string) {
	if a.contains(id) {
		return
	}
	a.order = append(a.order, id)
}

// Remove drops id; removing the local id is a no-op.
func (a *activitySet) Remove(id string) {
	if id == a.localID {
		return
	}
	for i, v := range a.order {
		if v == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

// Promote moves id directly behind the pinned local id, adding it if absent.
func (a *activitySet) Promote(id string) {
	if id == a.localID {
		return
	}
	a.Remove(id)
	if len(a.order) < 2 {
		a.order = append(a.order, id)
		return
	}
	a.order = append(a.order, "")
	copy(a.order[2:], a.order[1:])
	a.order[1] = id
}

// Order returns a copy of the current ordering.
func (a *activitySet) Order() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

func (a *activitySet) contains(id string) bool {
	for _, v := range a.order {
		if v == id {
			return true
		}
	}
	return false
}
