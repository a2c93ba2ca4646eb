package model

// Line is an undirected edge of the transport graph with integer length.
// Train positions along the line are integers in [0, Length]; position 0
// corresponds to Points[0] and position Length to Points[1].
type Line struct {
	Idx    int    `json:"idx"`
	Length int    `json:"length"`
	Points [2]int `json:"point"`
}

// Touches reports whether p is one of the line's endpoints.
func (l *Line) Touches(p int) bool {
	return l.Points[0] == p || l.Points[1] == p
}

// EndpointAt maps a boundary position (0 or Length) to the point id there.
// The second return is false for mid-line positions.
func (l *Line) EndpointAt(position int) (int, bool) {
	switch position {
	case 0:
		return l.Points[0], true
	case l.Length:
		return l.Points[1], true
	}
	return 0, false
}
