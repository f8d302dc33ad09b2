/*
Package state holds the in-process view of who is logged in, for rendering.

The Container keeps a copy of the session Record. The session store stays authoritative:
Resync overwrites the copy with whatever the store holds.
*/
package state

import (
	"sync"

	"harukcal/internal/app/session"
)

// State is an immutable snapshot handed to readers and subscribers.
type State struct {
	IsLoggedIn bool
	User       session.Record
}

// Container is safe for concurrent use.
type Container struct {
	mu     sync.Mutex
	cur    State
	subs   map[int]func(State)
	nextID int
}

// New returns a logged-out container.
func New() *Container {
	return &Container{subs: make(map[int]func(State))}
}

// NewFromStore returns a container seeded from store. It is logged in only when the
// stored Record is valid.
func NewFromStore(store session.Store) (*Container, error) {
	c := New()
	if err := c.Resync(store); err != nil {
		return nil, err
	}
	return c, nil
}

// Snapshot returns a copy of the current state.
func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Container) snapshotLocked() State {
	return State{IsLoggedIn: c.cur.IsLoggedIn, User: c.cur.User.Clone()}
}

// Subscribe registers fn to receive every new state. The returned func unregisters it.
func (c *Container) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Login marks r as the logged-in member. An invalid r leaves the container logged out.
func (c *Container) Login(r session.Record) {
	r = r.Normalize()
	c.apply(func(s *State) {
		s.User = r.Clone()
		s.IsLoggedIn = session.IsValid(&s.User)
	})
}

// Logout drops the member.
func (c *Container) Logout() {
	c.apply(func(s *State) {
		*s = State{}
	})
}

// EditProfile merges ch into the current member.
func (c *Container) EditProfile(ch session.Changes) {
	c.apply(func(s *State) {
		ch.Apply(&s.User)
	})
}

// UpdatePhoto replaces the current member's image URL.
func (c *Container) UpdatePhoto(photoURL string) {
	c.apply(func(s *State) {
		s.User.ProfileImageURL = photoURL
	})
}

// SetNickname replaces the current member's nickname.
func (c *Container) SetNickname(nickname string) {
	c.apply(func(s *State) {
		s.User.Nickname = nickname
	})
}

// Resync makes the container match store.
func (c *Container) Resync(store session.Store) error {
	r, err := store.Read()
	if err != nil {
		return err
	}
	if !session.IsValid(r) {
		c.Logout()
		return nil
	}
	c.Login(*r)
	return nil
}

func (c *Container) apply(fn func(*State)) {
	c.mu.Lock()
	fn(&c.cur)
	snap := c.snapshotLocked()
	subs := make([]func(State), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
}
