package sync

import (
	"testing"

	"github.com/chroniclehq/cli/internal/transcript"
)

func groupOf(msgs ...transcript.Message) Group {
	return Group{Messages: msgs}
}

func syncedShape(g Group, remoteID string) SyncedGroup {
	return SyncedGroup{
		RemoteID:        remoteID,
		AnchorMessageID: g.AnchorID(),
		LastMessageID:   g.LastID(),
		MessageCount:    len(g.Messages),
	}
}

func TestDiff_NewGroupCreates(t *testing.T) {
	g := groupOf(userMsg("u1", "hi"), assistantMsg("a1", "hello"))

	actions := Diff([]Group{g}, nil)
	if len(actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(actions))
	}
	create, ok := actions[0].(CreateAction)
	if !ok {
		t.Fatalf("Expected CreateAction, got %T", actions[0])
	}
	if create.Group.AnchorID() != "u1" {
		t.Errorf("Expected anchor u1, got %s", create.Group.AnchorID())
	}
}

func TestDiff_UnchangedGroupIsSilent(t *testing.T) {
	g := groupOf(userMsg("u1", "hi"), assistantMsg("a1", "hello"))
	prior := []SyncedGroup{syncedShape(g, "rec-1")}

	if actions := Diff([]Group{g}, prior); len(actions) != 0 {
		t.Fatalf("Expected no actions for unchanged group, got %d", len(actions))
	}
}

func TestDiff_GrownGroupUpdates(t *testing.T) {
	before := groupOf(userMsg("u1", "hi"), assistantMsg("a1", "hello"))
	after := groupOf(userMsg("u1", "hi"), assistantMsg("a1", "hello"), assistantMsg("a2", "and more"))
	prior := []SyncedGroup{syncedShape(before, "rec-1")}

	actions := Diff([]Group{after}, prior)
	if len(actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(actions))
	}
	update, ok := actions[0].(UpdateAction)
	if !ok {
		t.Fatalf("Expected UpdateAction, got %T", actions[0])
	}
	if update.RemoteID != "rec-1" {
		t.Errorf("Expected remote id rec-1, got %s", update.RemoteID)
	}
	if update.Group.LastID() != "a2" {
		t.Errorf("Expected updated group to carry a2, got %s", update.Group.LastID())
	}
}

func TestDiff_SameCountDifferentLastUpdates(t *testing.T) {
	// A group can keep its message count while its last id moves, e.g. after
	// a log rewrite. The shape comparison must catch that.
	g := groupOf(userMsg("u1", "hi"), assistantMsg("a1", "hello"))
	prior := []SyncedGroup{{RemoteID: "rec-1", AnchorMessageID: "u1", LastMessageID: "a0", MessageCount: 2}}

	actions := Diff([]Group{g}, prior)
	if len(actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(actions))
	}
	if _, ok := actions[0].(UpdateAction); !ok {
		t.Fatalf("Expected UpdateAction, got %T", actions[0])
	}
}

func TestDiff_PriorOnlyGroupsIgnored(t *testing.T) {
	g := groupOf(userMsg("u1", "hi"))
	prior := []SyncedGroup{
		syncedShape(g, "rec-1"),
		{RemoteID: "rec-gone", AnchorMessageID: "u-gone", LastMessageID: "a-gone", MessageCount: 3},
	}

	if actions := Diff([]Group{g}, prior); len(actions) != 0 {
		t.Fatalf("Expected vanished prior groups to produce no actions, got %d", len(actions))
	}
}

func TestDiff_MixedActionsPreserveOrder(t *testing.T) {
	g1 := groupOf(userMsg("u1", "one"), assistantMsg("a1", "done"))
	g2 := groupOf(userMsg("u2", "two"), assistantMsg("a2", "done"), assistantMsg("a3", "more"))
	g3 := groupOf(userMsg("u3", "three"))
	prior := []SyncedGroup{
		syncedShape(g1, "rec-1"),
		{RemoteID: "rec-2", AnchorMessageID: "u2", LastMessageID: "a2", MessageCount: 2},
	}

	actions := Diff([]Group{g1, g2, g3}, prior)
	if len(actions) != 2 {
		t.Fatalf("Expected 2 actions, got %d", len(actions))
	}
	update, ok := actions[0].(UpdateAction)
	if !ok {
		t.Fatalf("Expected first action to be UpdateAction, got %T", actions[0])
	}
	if update.RemoteID != "rec-2" {
		t.Errorf("Expected update against rec-2, got %s", update.RemoteID)
	}
	create, ok := actions[1].(CreateAction)
	if !ok {
		t.Fatalf("Expected second action to be CreateAction, got %T", actions[1])
	}
	if create.Group.AnchorID() != "u3" {
		t.Errorf("Expected create for u3, got %s", create.Group.AnchorID())
	}
}

func TestDiff_EmptyCurrent(t *testing.T) {
	prior := []SyncedGroup{{RemoteID: "rec-1", AnchorMessageID: "u1", LastMessageID: "a1", MessageCount: 2}}
	if actions := Diff(nil, prior); len(actions) != 0 {
		t.Fatalf("Expected no actions for empty log, got %d", len(actions))
	}
}
