package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEuler(t *testing.T) {
	const eps = 0.000001

	for i, c := range []struct {
		order   RotationOrder
		x, y, z float32
	}{
		{RotationOrderXYZ, 10, 20, 30},
		{RotationOrderXYZ, 10, 90, 0},
		{RotationOrderYXZ, 10, 20, 30},
		{RotationOrderYXZ, 90, 10, 0},
		{RotationOrderZXY, 10, 20, 30},
		{RotationOrderZXY, 90, 0, 10},
		{RotationOrderZYX, 10, 20, 30},
		{RotationOrderZYX, 0, 90, 10},
	} {
		e1 := NewEuler(c.x*math.Pi/180, c.y*math.Pi/180, c.z*math.Pi/180, c.order)
		q := e1.ToQuaternion()
		e2 := NewEulerFromQuaternion(q, c.order)

		assert.InDelta(t, 0, e1.Vector3.Sub(&e2.Vector3).Len(), eps, "euler %d: %v %v", i, e1, e2)
		assert.InDelta(t, 1, q.Len(), eps, "Quaternion.Len() != 1: %v", e1)
	}
}

func TestRotateXYZ(t *testing.T) {
	const eps = 0.00001

	q := NewQuaternionFromRotateXYZ([3]float32{0, 90, 0})
	v := q.ApplyTo(NewVector3(1, 0, 0))
	assert.InDelta(t, 0, v.Sub(NewVector3(0, 0, -1)).Len(), eps, v)

	// X is applied first.
	q = NewQuaternionFromRotateXYZ([3]float32{90, 0, 90})
	v = q.ApplyTo(NewVector3(0, 1, 0))
	assert.InDelta(t, 0, v.Sub(NewVector3(0, 0, 1)).Len(), eps, v)
	v = q.ApplyTo(NewVector3(1, 0, 0))
	assert.InDelta(t, 0, v.Sub(NewVector3(0, 1, 0)).Len(), eps, v)

	for _, deg := range [][3]float32{{0, 0, 0}, {10, 20, 30}, {-45, 30, 170}} {
		r := NewRotateXYZFromQuaternion(NewQuaternionFromRotateXYZ(deg))
		for i := range deg {
			assert.InDelta(t, deg[i], r[i], 0.001, deg)
		}
	}
}
