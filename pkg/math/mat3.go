package math

// Mat3 is a 3x3 matrix in column-major order.
// Layout: [m0 m3 m6]
//
//	[m1 m4 m7]
//	[m2 m5 m8]
type Mat3 [9]float32

// Identity3 returns a 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Mat3FromColumns builds a matrix whose columns are c0, c1 and c2.
func Mat3FromColumns(c0, c1, c2 Vec3) Mat3 {
	return Mat3{
		c0.X, c0.Y, c0.Z,
		c1.X, c1.Y, c1.Z,
		c2.X, c2.Y, c2.Z,
	}
}

// Col returns column i (0..2).
func (m Mat3) Col(i int) Vec3 {
	return Vec3{m[i*3], m[i*3+1], m[i*3+2]}
}

// Row returns row i (0..2).
func (m Mat3) Row(i int) Vec3 {
	return Vec3{m[i], m[i+3], m[i+6]}
}

// At returns the element at row r, column c.
func (m Mat3) At(r, c int) float32 {
	return m[c*3+r]
}

// MulVec3 returns m * v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[3]*v.Y + m[6]*v.Z,
		m[1]*v.X + m[4]*v.Y + m[7]*v.Z,
		m[2]*v.X + m[5]*v.Y + m[8]*v.Z,
	}
}

// Mul returns m * other.
func (m Mat3) Mul(other Mat3) Mat3 {
	var result Mat3
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			result[c*3+r] = m[r]*other[c*3] + m[3+r]*other[c*3+1] + m[6+r]*other[c*3+2]
		}
	}
	return result
}

// Transpose returns the transposed matrix. For a rotation it is the inverse.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// RowMajor returns the elements in row-major order, as GPU parameter binding expects.
func (m Mat3) RowMajor() [9]float32 {
	t := m.Transpose()
	return [9]float32(t)
}
