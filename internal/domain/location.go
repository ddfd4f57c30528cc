package domain

// Location is a place result returned by the place lookup service.
type Location struct {
	PlaceID string   `json:"placeId"`
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	Rating  float64  `json:"rating,omitempty"`
	Types   []string `json:"types,omitempty"`
}

func (l Location) Clone() Location {
	if l.Types != nil {
		l.Types = append([]string(nil), l.Types...)
	}
	return l
}

// CloneLocations copies a location slice, keeping nil as nil.
func CloneLocations(in []Location) []Location {
	if in == nil {
		return nil
	}
	out := make([]Location, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}
