package catalog

// Store holds the sanitized course list for the process lifetime.
// Read-only after construction, so it needs no synchronization.
type Store struct {
	courses  []Course
	eligible []Course
	byID     map[string]int
}

// NewStore creates a store from loaded courses. The eligible subset is
// computed once; callers must not mutate the returned slices.
func NewStore(courses []Course) *Store {
	s := &Store{
		courses: courses,
		byID:    make(map[string]int, len(courses)),
	}
	for i, c := range courses {
		s.byID[c.ID] = i
		if c.Estado.Eligible() {
			s.eligible = append(s.eligible, c)
		}
	}
	return s
}

// All returns every loaded course in catalog order.
func (s *Store) All() []Course {
	return s.courses
}

// Eligible returns the courses the assistant may proactively suggest,
// in catalog order.
func (s *Store) Eligible() []Course {
	return s.eligible
}

// ByID looks up a course by identifier.
func (s *Store) ByID(id string) (Course, bool) {
	if i, ok := s.byID[id]; ok {
		return s.courses[i], true
	}
	return Course{}, false
}

// Empty reports whether the catalog failed to load or has no courses.
func (s *Store) Empty() bool {
	return len(s.courses) == 0
}
