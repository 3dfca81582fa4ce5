package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuaternion(t *testing.T) {
	const eps = 0.00001
	v1 := NewVector3(1, 2, 3)

	for _, q := range []*Quaternion{
		NewEuler(0, 0, 0, RotationOrderXYZ).ToQuaternion(),
		NewEuler(2*math.Pi, 0, 0, RotationOrderXYZ).ToQuaternion(),
		func() *Quaternion {
			q := NewEuler(math.Pi, 0, 0, RotationOrderXYZ).ToQuaternion()
			return q.Mul(q)
		}(),
		func() *Quaternion {
			q := NewEuler(1, 2, 3, RotationOrderXYZ).ToQuaternion()
			return q.Mul(q.Inverse())
		}(),
	} {
		v2 := q.ApplyTo(v1)
		assert.InDelta(t, 0, v2.Sub(v1).Len(), eps, "v1 != v2: %v %v", v1, v2)
	}
}

func TestQuaternionFromMatrix(t *testing.T) {
	q := NewEuler(0.3, -1.2, 2.5, RotationOrderZYX).ToQuaternion()
	q2 := NewQuaternionFromMatrix4(NewRotationMatrix4FromQuaternion(q))
	if q.Dot(q2) < 0 {
		q2 = NewQuaternion(-q2.X, -q2.Y, -q2.Z, -q2.W)
	}
	assert.InDelta(t, 0, q.Sub(q2).Len(), 0.00001)
}
