package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformScalesRotatesThenTranslates(t *testing.T) {
	tr := TransformFromPositionRotationScale(
		NewVec3(10, 0, 5),
		NewVec3(0, 0, 90),
		NewVec3(2, 1, 1),
	)

	// (1,0,0) scaled to (2,0,0), rotated a quarter turn to (0,2,0), moved by (10,0,5).
	got := NewVec3(1, 0, 0).Transform(tr.GetLocal())
	assert.True(t, got.Compare(NewVec3(10, 2, 5), 1e-5), "got %+v", got)
	assert.False(t, tr.IsDirty)
}

func TestTransformMarksDirtyOnChange(t *testing.T) {
	tr := TransformCreate()
	_ = tr.GetLocal()
	assert.False(t, tr.IsDirty)

	tr.Translate(NewVec3(0, 0, 1))
	assert.True(t, tr.IsDirty)

	got := NewVec3Zero().Transform(tr.GetLocal())
	assert.Equal(t, NewVec3(0, 0, 1), got)
}

func TestNilTransformIsIdentity(t *testing.T) {
	var tr *Transform
	assert.Equal(t, NewMat4Identity(), tr.GetLocal())
}

func TestTriangleExtents(t *testing.T) {
	tris := []Triangle{
		{NewVec3(0, 0, 0), NewVec3(1, 0, 0), NewVec3(0, 1, 0)},
		{NewVec3(0, 0, 0), NewVec3(0, 1, 0), NewVec3(0, 0, 3)},
	}
	e := TriangleExtents(tris, NewMat4Translation(NewVec3(1, 1, 1)))
	assert.Equal(t, NewVec3(1, 1, 1), e.Min)
	assert.Equal(t, NewVec3(2, 2, 4), e.Max)
	assert.Equal(t, NewVec3(1, 1, 3), e.Size())

	assert.True(t, NewExtentsEmpty().IsEmpty())
	assert.Equal(t, NewVec3Zero(), NewExtentsEmpty().Size())
}

func TestTriangleNormal(t *testing.T) {
	tri := Triangle{NewVec3(0, 0, 0), NewVec3(1, 0, 0), NewVec3(0, 1, 0)}
	assert.Equal(t, NewVec3(0, 0, 1), tri.Normal())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, Clamp(7, 0, 3))
	assert.Equal(t, float32(-1), Clamp(float32(-4), -1, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
