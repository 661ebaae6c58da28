package math

func TransformCreate() *Transform {
	t := &Transform{}
	t.SetPositionRotationScale(NewVec3Zero(), NewVec3Zero(), NewVec3One())
	t.Local = NewMat4Identity()
	return t
}

func TransformFromPositionRotationScale(position, rotation, scale Vec3) *Transform {
	t := &Transform{}
	t.SetPositionRotationScale(position, rotation, scale)
	t.Local = NewMat4Identity()
	return t
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.IsDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.IsDirty = true
}

// SetRotation takes Euler angles in degrees.
func (t *Transform) SetRotation(rotation Vec3) {
	t.Rotation = rotation
	t.IsDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.IsDirty = true
}

func (t *Transform) SetPositionRotationScale(position, rotation, scale Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.IsDirty = true
}

// GetLocal returns the matrix that scales, then rotates, then translates.
func (t *Transform) GetLocal() Mat4 {
	if t != nil {
		if t.IsDirty {
			s := NewMat4Scale(t.Scale)
			r := NewMat4EulerXYZ(DegToRad(t.Rotation.X), DegToRad(t.Rotation.Y), DegToRad(t.Rotation.Z))
			t.Local = s.Mul(r).Mul(NewMat4Translation(t.Position))
			t.IsDirty = false
		}
		return t.Local
	}
	return NewMat4Identity()
}
