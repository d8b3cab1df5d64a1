package realtime

import (
	"sort"
	"sync"

	"github.com/oggyb/copal/internal/metrics"
)

type connSet map[*Conn]struct{}

// Registry maps topics to subscribed connections and users to their live
// connections. All methods are safe for concurrent use; frames are queued
// outside the lock.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]connSet
	conns  map[*Conn]map[string]struct{}
	users  map[string]connSet
}

func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string]connSet),
		conns:  make(map[*Conn]map[string]struct{}),
		users:  make(map[string]connSet),
	}
}

// Attach registers a live connection for its user.
func (r *Registry) Attach(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; ok {
		return
	}
	r.conns[c] = make(map[string]struct{})
	if r.users[c.userID] == nil {
		r.users[c.userID] = make(connSet)
	}
	r.users[c.userID][c] = struct{}{}
	metrics.WSConnections.Inc()
}

// Detach unsubscribes c from every topic and forgets it. It returns the
// number of topics c was subscribed to.
func (r *Registry) Detach(c *Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; !ok {
		return 0
	}
	n := r.unsubscribeAllLocked(c)
	delete(r.conns, c)
	if set := r.users[c.userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(r.users, c.userID)
		}
	}
	metrics.WSConnections.Dec()
	return n
}

// Subscribe adds c to topic. Unknown connections are attached first.
func (r *Registry) Subscribe(c *Conn, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribeLocked(c, topic)
}

func (r *Registry) subscribeLocked(c *Conn, topic string) {
	if _, ok := r.conns[c]; !ok {
		r.conns[c] = make(map[string]struct{})
		if r.users[c.userID] == nil {
			r.users[c.userID] = make(connSet)
		}
		r.users[c.userID][c] = struct{}{}
		metrics.WSConnections.Inc()
	}
	if r.topics[topic] == nil {
		r.topics[topic] = make(connSet)
	}
	r.topics[topic][c] = struct{}{}
	r.conns[c][topic] = struct{}{}
	metrics.WSTopics.Set(float64(len(r.topics)))
}

func (r *Registry) unsubscribeLocked(c *Conn, topic string) {
	if set := r.topics[topic]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(r.topics, topic)
		}
	}
	if topics := r.conns[c]; topics != nil {
		delete(topics, topic)
	}
}

// UnsubscribeAll removes c from every topic it holds and returns how many
// there were. It needs no store lookup and cannot fail.
func (r *Registry) UnsubscribeAll(c *Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribeAllLocked(c)
}

func (r *Registry) unsubscribeAllLocked(c *Conn) int {
	topics := r.conns[c]
	n := len(topics)
	for topic := range topics {
		r.unsubscribeLocked(c, topic)
	}
	metrics.WSTopics.Set(float64(len(r.topics)))
	return n
}

// SubscribeUser subscribes every live connection of userID to topic and
// returns how many were subscribed.
func (r *Registry) SubscribeUser(userID, topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for c := range r.users[userID] {
		r.subscribeLocked(c, topic)
		n++
	}
	return n
}

// Publish queues frame on every subscriber of topic except the given
// connection (which may be nil). It returns the number of connections the
// frame was queued on.
func (r *Registry) Publish(topic string, frame []byte, except *Conn) int {
	r.mu.RLock()
	targets := make([]*Conn, 0, len(r.topics[topic]))
	for c := range r.topics[topic] {
		if c != except {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	return deliver(targets, frame)
}

// SendToUser queues frame on every live connection of userID.
func (r *Registry) SendToUser(userID string, frame []byte) int {
	r.mu.RLock()
	targets := make([]*Conn, 0, len(r.users[userID]))
	for c := range r.users[userID] {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	return deliver(targets, frame)
}

// Topics returns the topics c is subscribed to, sorted.
func (r *Registry) Topics(c *Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.conns[c]))
	for t := range r.conns[c] {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) SubscriberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// closeAll closes every registered connection.
func (r *Registry) closeAll() int {
	r.mu.RLock()
	all := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		all = append(all, c)
	}
	r.mu.RUnlock()

	for _, c := range all {
		c.close()
	}
	return len(all)
}

func deliver(targets []*Conn, frame []byte) int {
	// ascending id keeps delivery order stable across calls
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	n := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			n++
			continue
		}
		metrics.WSDeliveriesDropped.Inc()
	}
	return n
}
