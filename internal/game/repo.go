package game

// SessionRepo abstracts session storage. The engine depends only on this,
// so a multi-session server needs only a different repository.
type SessionRepo interface {
	// Get returns the live session, if any.
	Get() (*Session, bool)
	// Put installs a session, discarding any previous one.
	Put(s *Session)
	// Clear removes and returns the live session; nil if none.
	Clear() *Session
}

// MemoryRepo holds at most one session in memory, matching the
// single-global-session policy.
type MemoryRepo struct {
	session *Session
}

// NewMemoryRepo creates an empty in-memory repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Get() (*Session, bool) {
	return r.session, r.session != nil
}

func (r *MemoryRepo) Put(s *Session) {
	r.session = s
}

func (r *MemoryRepo) Clear() *Session {
	s := r.session
	r.session = nil
	return s
}
