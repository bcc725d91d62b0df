package frame

import "github.com/chazu/elfin/pkg/xdb"

// Placeable is anything with a world transform.
type Placeable interface {
	Transform() Transform
	SetTransform(Transform)
}

// Raise moves a floating object outward from a known frame:
// moving = fixed ∘ rel ∘ moving. A nil fixed applies rel alone, which is
// how the first step of a two-step hub placement is expressed.
func Raise(moving Placeable, rel xdb.Relation, fixed Placeable) {
	t := Compose(FromRelation(rel), moving.Transform())
	moving.SetTransform(anchor(fixed, t))
}

// Drop applies a relation that the database expresses from the moving
// object's point of view: moving = fixed ∘ rel⁻¹ ∘ moving.
func Drop(moving Placeable, rel xdb.Relation, fixed Placeable) {
	t := Compose(FromRelation(rel).Inverse(), moving.Transform())
	moving.SetTransform(anchor(fixed, t))
}

func anchor(fixed Placeable, t Transform) Transform {
	if fixed == nil {
		return t
	}
	return Compose(fixed.Transform(), t)
}
