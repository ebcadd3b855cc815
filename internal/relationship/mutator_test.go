package relationship

import (
	"errors"
	"testing"

	"github.com/terrasense/agriops/internal/ngsi"
	"github.com/terrasense/agriops/internal/types"
)

func snapshot(entities ...types.Entity) map[string]types.Entity {
	m := make(map[string]types.Entity, len(entities))
	for _, e := range entities {
		m[e.ID] = e
	}
	return m
}

func TestPlanChange_SameParentIsNoOp(t *testing.T) {
	child := types.Entity{ID: "S1", Type: "AgriSensor", ParentID: "P1"}
	cat := snapshot(types.Entity{ID: "P1", Type: "AgriParcel"})

	plan, err := PlanChange(child, "P1", cat)
	if err != nil {
		t.Fatalf("PlanChange: %v", err)
	}
	if !plan.NoOp {
		t.Errorf("NoOp = false, want true")
	}
	if len(plan.Fragment) != 0 {
		t.Errorf("NoOp plan carries a fragment: %v", plan.Fragment)
	}
}

func TestPlanChange_MoveToFarm(t *testing.T) {
	child := types.Entity{ID: "S1", Type: "AgriSensor", ParentID: "P1"}
	cat := snapshot(
		types.Entity{ID: "P1", Type: "AgriParcel"},
		types.Entity{ID: "F1", Type: "AgriFarm"},
	)

	plan, err := PlanChange(child, "F1", cat)
	if err != nil {
		t.Fatalf("PlanChange: %v", err)
	}
	if plan.Attribute != ngsi.RefAgriFarm {
		t.Errorf("attribute = %s, want %s", plan.Attribute, ngsi.RefAgriFarm)
	}

	rel := plan.Fragment[ngsi.RefAgriFarm]
	if rel == nil || rel.Object != "F1" {
		t.Fatalf("fragment[%s] = %v, want relationship to F1", ngsi.RefAgriFarm, rel)
	}
	if plan.Fragment[ngsi.RefAgriParcel] != nil {
		t.Errorf("%s not cleared", ngsi.RefAgriParcel)
	}
	if plan.Fragment[ngsi.RefAgriGreenhouse] != nil {
		t.Errorf("%s not cleared", ngsi.RefAgriGreenhouse)
	}
}

func TestPlanChange_AtMostOneAttributeSet(t *testing.T) {
	cat := snapshot(
		types.Entity{ID: "P1", Type: "AgriParcel"},
		types.Entity{ID: "F1", Type: "AgriFarm"},
		types.Entity{ID: "G1", Type: "AgriGreenhouse"},
		types.Entity{ID: "X1", Type: "Building"},
	)
	child := types.Entity{ID: "S1", Type: "AgriSensor"}

	for _, target := range []string{"P1", "F1", "G1", "X1"} {
		plan, err := PlanChange(child, target, cat)
		if err != nil {
			t.Fatalf("PlanChange(%s): %v", target, err)
		}
		set := 0
		for _, attr := range ngsi.RelationshipAttributes {
			rel, ok := plan.Fragment[attr]
			if !ok {
				t.Errorf("target %s: fragment misses %s", target, attr)
			}
			if rel != nil {
				set++
			}
		}
		if set != 1 {
			t.Errorf("target %s: %d attributes set, want 1", target, set)
		}
	}
}

func TestPlanChange_UnknownParentTypeDefaultsToParcelAttribute(t *testing.T) {
	cat := snapshot(types.Entity{ID: "X1", Type: "Building"})
	plan, err := PlanChange(types.Entity{ID: "S1"}, "X1", cat)
	if err != nil {
		t.Fatalf("PlanChange: %v", err)
	}
	if plan.Attribute != ngsi.RefAgriParcel {
		t.Errorf("attribute = %s, want %s", plan.Attribute, ngsi.RefAgriParcel)
	}
}

func TestPlanChange_RemoveClearsAllWithoutLookup(t *testing.T) {
	child := types.Entity{ID: "S1", Type: "AgriSensor", ParentID: "P1"}

	// Empty snapshot: removal must not need the old parent resolvable.
	plan, err := PlanChange(child, "", map[string]types.Entity{})
	if err != nil {
		t.Fatalf("PlanChange: %v", err)
	}
	if plan.NoOp {
		t.Fatalf("removal planned as NoOp")
	}
	if plan.Attribute != "" {
		t.Errorf("attribute = %s, want empty", plan.Attribute)
	}
	for _, attr := range ngsi.RelationshipAttributes {
		if rel, ok := plan.Fragment[attr]; !ok || rel != nil {
			t.Errorf("fragment[%s] = %v, want explicit nil", attr, rel)
		}
	}
}

func TestPlanChange_RemoveWhenAlreadyRootIsNoOp(t *testing.T) {
	plan, err := PlanChange(types.Entity{ID: "S1"}, "", nil)
	if err != nil {
		t.Fatalf("PlanChange: %v", err)
	}
	if !plan.NoOp {
		t.Errorf("NoOp = false, want true")
	}
}

func TestPlanChange_UnknownParent(t *testing.T) {
	_, err := PlanChange(types.Entity{ID: "S1"}, "nope", map[string]types.Entity{})
	if !errors.Is(err, ErrUnknownParent) {
		t.Fatalf("err = %v, want ErrUnknownParent", err)
	}
}
