package engine

import (
	"testing"
)

func TestMoveEntities_Chain(t *testing.T) {
	tests := []struct {
		name  string
		start []Position
		dir   Direction
		want  []Position
	}{
		{
			name:  "chain to the right",
			start: []Position{pos(0, 0), pos(1, 0), pos(2, 0)},
			dir:   Right,
			want:  []Position{pos(1, 0), pos(2, 0), pos(3, 0)},
		},
		{
			name:  "chain to the left",
			start: []Position{pos(0, 0), pos(1, 0), pos(2, 0)},
			dir:   Left,
			want:  []Position{pos(-1, 0), pos(0, 0), pos(1, 0)},
		},
		{
			name:  "column moving down",
			start: []Position{pos(4, 4), pos(4, 3)},
			dir:   Down,
			want:  []Position{pos(4, 3), pos(4, 2)},
		},
		{
			name:  "scattered objects",
			start: []Position{pos(0, 0), pos(5, 5), pos(0, 1)},
			dir:   Up,
			want:  []Position{pos(0, 1), pos(5, 6), pos(0, 2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld()
			var ids []EntityID
			for _, p := range tt.start {
				ids = append(ids, w.create(EntitySpec{Kind: KindObject, Pos: p, Color: Red}))
			}

			moved := w.MoveTarget(ColorTarget(Red), tt.dir)
			if len(moved) != len(ids) {
				t.Fatalf("Expected %d moved, got %d", len(ids), len(moved))
			}
			for i, id := range ids {
				if got := positionOf(t, w, id); got != tt.want[i] {
					t.Errorf("entity %d: expected %v, got %v", id, tt.want[i], got)
				}
				if found, ok := w.Object(tt.want[i]); !ok || found != id {
					t.Errorf("index slot %v: expected %d, got %d (%v)", tt.want[i], id, found, ok)
				}
			}
			assertIndexConsistent(t, w)
		})
	}
}

func TestMoveEntities_VacatedCells(t *testing.T) {
	w := NewWorld()
	for x := 0; x < 3; x++ {
		w.create(EntitySpec{Kind: KindObject, Pos: pos(x, 0), Color: Red})
	}
	w.MoveTarget(ColorTarget(Red), Right)

	if _, ok := w.Object(pos(0, 0)); ok {
		t.Error("Expected the tail cell to be empty")
	}
	if w.Index().Len(KindObject) != 3 {
		t.Errorf("Expected 3 objects in the index, got %d", w.Index().Len(KindObject))
	}
}

func TestMoveEntities_DuplicatesMoveOnce(t *testing.T) {
	w := NewWorld()
	id := w.create(EntitySpec{Kind: KindObject, Pos: pos(0, 0)})

	moved := w.MoveEntities([]EntityID{id, id}, Up)
	if len(moved) != 1 {
		t.Fatalf("Expected 1 move, got %d", len(moved))
	}
	if got := positionOf(t, w, id); got != pos(0, 1) {
		t.Errorf("Expected (0,1), got %v", got)
	}
}

func TestMoveEntities_BlockedByOutsiderPanics(t *testing.T) {
	w := NewWorld()
	id := w.create(EntitySpec{Kind: KindObject, Pos: pos(0, 0)})
	w.create(EntitySpec{Kind: KindObject, Pos: pos(0, 1)})

	expectConsistencyPanic(t, ErrConsistency, func() {
		w.MoveEntities([]EntityID{id}, Up)
	})
}

func TestTranslate(t *testing.T) {
	w := NewWorld()
	floor := addFloor(w, pos(0, 0))
	obj := w.create(EntitySpec{Kind: KindObject, Pos: pos(0, 0)})

	w.Translate(obj, Right)
	if got := positionOf(t, w, obj); got != pos(1, 0) {
		t.Errorf("Expected (1,0), got %v", got)
	}
	assertIndexConsistent(t, w)

	expectConsistencyPanic(t, ErrNotAnObject, func() {
		w.Translate(floor, Right)
	})
}
