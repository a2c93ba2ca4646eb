package model

// Point is a vertex of the transport graph. A point may host at most one
// post; PostIdx is zero when it hosts none.
type Point struct {
	Idx     int `json:"idx"`
	PostIdx int `json:"post_id,omitempty"`
}

// Coordinate is a render hint for one point, served on map layer 10.
type Coordinate struct {
	Idx int `json:"idx"`
	X   int `json:"x"`
	Y   int `json:"y"`
}
