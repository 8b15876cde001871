// Package progress implements a thread-safe weighted hierarchical progress
// tree. Every mutation goes through one lock; rendering is pull-based by
// walking the tree from any Task, never dependent on insertion order in a
// UI layer.
package progress

import (
	"sort"
	"sync"
	"time"
)

// Manager owns the task tree and the single lock guarding it.
type Manager struct {
	mu      sync.Mutex
	tasks   map[string]*taskState
	seq     int64
	onRemove func(id string)
	removeAfter time.Duration
}

type taskState struct {
	id        string
	name      string
	parent    string
	children  []string
	weight    float64
	total     float64
	completed float64
	active    bool
	done      bool
	seq       int64
}

// New builds an empty Manager. removeAfter is the delay before a completed
// subtree is pruned from the tree (the pipeline uses ~0.35s so a UI has
// time to show the final frame); zero disables automatic removal.
func New(removeAfter time.Duration) *Manager {
	return &Manager{tasks: make(map[string]*taskState), removeAfter: removeAfter}
}

// Add creates a task under parent (empty string for a root task) with the
// given weight (its share of the parent's completion) and total (the unit
// count this task tracks; 0 means "indeterminate until marked complete").
func (m *Manager) Add(id, name, parent string, weight, total float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &taskState{id: id, name: name, parent: parent, weight: weight, total: total, active: true, seq: m.seq}
	m.tasks[id] = t
	if parent != "" {
		if p, ok := m.tasks[parent]; ok {
			p.children = append(p.children, id)
		}
	}
}

// Advance adds delta to a task's completed units (clamped to total when
// total > 0).
func (m *Manager) Advance(id string, delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return
	}
	t.completed += delta
	if t.total > 0 && t.completed > t.total {
		t.completed = t.total
	}
}

// Complete marks a task (and its subtree) done and schedules subtree
// removal after removeAfter.
func (m *Manager) Complete(id string) {
	m.mu.Lock()
	var toRemove []string
	t, ok := m.tasks[id]
	if ok {
		m.markDoneLocked(t)
		toRemove = m.collectSubtreeLocked(id)
	}
	m.mu.Unlock()

	if !ok || m.removeAfter <= 0 {
		return
	}
	time.AfterFunc(m.removeAfter, func() {
		m.mu.Lock()
		for _, rid := range toRemove {
			delete(m.tasks, rid)
		}
		m.mu.Unlock()
		if m.onRemove != nil {
			for _, rid := range toRemove {
				m.onRemove(rid)
			}
		}
	})
}

func (m *Manager) markDoneLocked(t *taskState) {
	t.done = true
	t.active = false
	if t.total > 0 {
		t.completed = t.total
	}
	for _, cid := range t.children {
		if c, ok := m.tasks[cid]; ok {
			m.markDoneLocked(c)
		}
	}
}

func (m *Manager) collectSubtreeLocked(id string) []string {
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	out := []string{id}
	for _, cid := range t.children {
		out = append(out, m.collectSubtreeLocked(cid)...)
	}
	return out
}

// Ratio returns a task's completion ratio in [0,1], the weight-normalised
// sum of its children's ratios when it has children, or its own
// completed/total otherwise. A done task always reports 1. An
// indeterminate leaf (total == 0, not done) reports 0.
func (m *Manager) Ratio(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratioLocked(id)
}

func (m *Manager) ratioLocked(id string) float64 {
	t, ok := m.tasks[id]
	if !ok {
		return 0
	}
	if t.done {
		return 1
	}
	if len(t.children) == 0 {
		if t.total <= 0 {
			return 0
		}
		r := t.completed / t.total
		if r > 1 {
			r = 1
		}
		return r
	}
	var weighted, weightSum float64
	for _, cid := range t.children {
		c, ok := m.tasks[cid]
		if !ok {
			continue
		}
		weighted += c.weight * m.ratioLocked(cid)
		weightSum += c.weight
	}
	if weightSum == 0 {
		return 0
	}
	return weighted / weightSum
}

// Percent returns Ratio scaled to [0,100].
func (m *Manager) Percent(id string) float64 {
	return m.Ratio(id) * 100
}

// Children returns a task's direct children, ordered deterministically by
// creation sequence (sibling order is by the time Add was called).
func (m *Manager) Children(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	out := make([]string, len(t.children))
	copy(out, t.children)
	sort.Slice(out, func(i, j int) bool {
		return m.tasks[out[i]].seq < m.tasks[out[j]].seq
	})
	return out
}
