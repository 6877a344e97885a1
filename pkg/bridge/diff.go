package bridge

// Diff compares a freshly fetched batch against the previously known id set.
// An order is new when its resolved id is non-empty and absent from previous.
// newOrders keeps the order of fresh. The returned id set is built from fresh
// alone: callers replace their baseline wholesale, they do not union. An
// order that drops out of one fetch and reappears later therefore counts as
// new again; that re-notification is accepted behavior, not corrected here.
func Diff(previous map[string]struct{}, fresh []Order) (newOrders []Order, ids map[string]struct{}) {
	ids = make(map[string]struct{}, len(fresh))
	for _, o := range fresh {
		id := o.ResolvedID()
		if id == "" {
			continue
		}
		ids[id] = struct{}{}
		if _, seen := previous[id]; !seen {
			newOrders = append(newOrders, o)
		}
	}
	return newOrders, ids
}
