package fixedpoint

// Vector is an ordered sequence of fixed-point components.
type Vector []Scalar

// ToFixed converts each element with FromFloat. The flag reports whether any
// element saturated.
func ToFixed(v []float32) (Vector, bool) {
	out := make(Vector, len(v))
	var saturated bool
	for i, f := range v {
		s, sat := FromFloat(float64(f))
		out[i] = s
		saturated = saturated || sat
	}
	return out, saturated
}

// Floats widens v back to float32 for display.
func (v Vector) Floats() []float32 {
	out := make([]float32, len(v))
	for i, s := range v {
		out[i] = s.Float32()
	}
	return out
}

// Dot returns the sum of pairwise products, accumulated left to right with
// saturating addition. Vectors of different or zero length yield zero.
func Dot(a, b Vector) (Scalar, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return Zero, false
	}
	var (
		acc       Scalar
		saturated bool
	)
	for i := range a {
		p, satMul := a[i].Mul(b[i])
		sum, satAdd := acc.Add(p)
		acc = sum
		saturated = saturated || satMul || satAdd
	}
	return acc, saturated
}

// Magnitude returns sqrt(Dot(v, v)). An all-zero vector has magnitude zero.
func Magnitude(v Vector) (Scalar, bool) {
	sq, saturated := Dot(v, v)
	return sq.Sqrt(), saturated
}

// CosineSimilarity returns Dot(a,b) / (Magnitude(a) * Magnitude(b)), clamped
// to [-1, 1]. It returns zero when either magnitude, or their product, is zero.
func CosineSimilarity(a, b Vector) (Scalar, bool) {
	dot, satDot := Dot(a, b)
	magA, satA := Magnitude(a)
	magB, satB := Magnitude(b)
	saturated := satDot || satA || satB
	if magA == Zero || magB == Zero {
		return Zero, saturated
	}
	denom, satMul := magA.Mul(magB)
	saturated = saturated || satMul
	if denom == Zero {
		return Zero, saturated
	}
	cos, satDiv := dot.Div(denom)
	return cos.Clamp(-One, One), saturated || satDiv
}
