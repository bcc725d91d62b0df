package assembly

import "fmt"

// CreateBridge adds a bridge spanning joints a and b. The bridge takes
// joint A's frame; in the host it is then stretched towards B.
func (s *Scene) CreateBridge(a, b *Joint) (*Bridge, error) {
	if a == b {
		return nil, ValidationError{ObjectID: a.ID(), Message: "a bridge needs two distinct joints", Severity: SeverityError}
	}
	for _, j := range []*Joint{a, b} {
		if !s.Contains(j) {
			return nil, fmt.Errorf("assembly: joint %q is not in the scene", j.Name())
		}
	}
	br := &Bridge{
		object: object{
			id:        NewObjectID(),
			name:      s.uniqueName(fmt.Sprintf("bridge_%s_%s", a.Name(), b.Name())),
			transform: a.Transform(),
		},
		joints: []*Joint{a, b},
	}
	if err := s.Add(br); err != nil {
		return nil, err
	}
	a.bridges = append(a.bridges, br)
	b.bridges = append(b.bridges, br)
	return br, nil
}
