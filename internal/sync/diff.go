package sync

// Diff compares the recomputed groups of a session against its recorded
// sync state and returns the remote mutations needed, in current-group
// order. A group with no recorded counterpart yields a create; a recorded
// group whose last message id or message count changed yields an update
// carrying the stored remote id; an unchanged group yields nothing.
//
// Recorded groups with no current counterpart produce no action: remote
// records are append/update-only, never deleted here.
func Diff(current []Group, prior []SyncedGroup) []Action {
	known := make(map[string]SyncedGroup, len(prior))
	for _, sg := range prior {
		known[sg.AnchorMessageID] = sg
	}

	var actions []Action
	for _, g := range current {
		sg, ok := known[g.AnchorID()]
		if !ok {
			actions = append(actions, CreateAction{Group: g})
			continue
		}
		if sg.LastMessageID != g.LastID() || sg.MessageCount != len(g.Messages) {
			actions = append(actions, UpdateAction{Group: g, RemoteID: sg.RemoteID})
		}
	}

	return actions
}
