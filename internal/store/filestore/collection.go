package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mandadito/backend/internal/store"
)

type record interface {
	GetID() int64
	SetID(id int64)
	SetCreatedAt(at time.Time)
	SetUpdatedAt(at time.Time)
}

// collection is one JSON file holding every record of a type. It is not safe
// for concurrent use; DB serializes access.
type collection[T any, P interface {
	*T
	record
}] struct {
	path    string
	nextID  int64
	records map[int64]P
	// conflicts reports whether two distinct records violate a uniqueness rule.
	conflicts func(a, b P) bool
}

type fileFormat[P any] struct {
	NextID  int64 `json:"next_id"`
	Records []P   `json:"records"`
}

func loadCollection[T any, P interface {
	*T
	record
}](dir, name string, conflicts func(a, b P) bool) (*collection[T, P], error) {
	c := &collection[T, P]{
		path:      filepath.Join(dir, name+".json"),
		records:   make(map[int64]P),
		conflicts: conflicts,
	}
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	var f fileFormat[P]
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.path, err)
	}
	c.nextID = f.NextID
	for _, r := range f.Records {
		c.records[r.GetID()] = r
		if r.GetID() > c.nextID {
			c.nextID = r.GetID()
		}
	}
	return c, nil
}

// save writes the collection to a temp file and renames it over the old one,
// so a crash leaves either the previous or the new contents on disk.
func (c *collection[T, P]) save() error {
	f := fileFormat[P]{NextID: c.nextID, Records: c.sorted(nil)}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", c.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("rename %s: %w", c.path, err)
	}
	return nil
}

func (c *collection[T, P]) get(id int64) (P, error) {
	r, ok := c.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(r)
}

// find returns copies of the records matching keep, ordered by id.
func (c *collection[T, P]) find(keep func(P) bool) ([]P, error) {
	src := c.sorted(keep)
	out := make([]P, 0, len(src))
	for _, r := range src {
		cp, err := clone(r)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (c *collection[T, P]) first(keep func(P) bool) (P, error) {
	matches := c.sorted(keep)
	if len(matches) == 0 {
		return nil, store.ErrNotFound
	}
	return clone(matches[0])
}

func (c *collection[T, P]) insert(j *journal, r P, now time.Time) error {
	for _, existing := range c.records {
		if c.conflicts != nil && c.conflicts(existing, r) {
			return store.ErrDuplicate
		}
	}
	prevNext := c.nextID
	c.nextID++
	r.SetID(c.nextID)
	r.SetCreatedAt(now)
	r.SetUpdatedAt(now)
	cp, err := clone(r)
	if err != nil {
		c.nextID = prevNext
		return err
	}
	id := c.nextID
	c.records[id] = cp
	j.record(c, func() {
		delete(c.records, id)
		c.nextID = prevNext
	})
	return nil
}

func (c *collection[T, P]) update(j *journal, r P, now time.Time) error {
	old, ok := c.records[r.GetID()]
	if !ok {
		return store.ErrNotFound
	}
	for id, existing := range c.records {
		if id != r.GetID() && c.conflicts != nil && c.conflicts(existing, r) {
			return store.ErrDuplicate
		}
	}
	r.SetUpdatedAt(now)
	cp, err := clone(r)
	if err != nil {
		return err
	}
	id := r.GetID()
	c.records[id] = cp
	j.record(c, func() { c.records[id] = old })
	return nil
}

func (c *collection[T, P]) sorted(keep func(P) bool) []P {
	out := make([]P, 0, len(c.records))
	for _, r := range c.records {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].GetID() < out[k].GetID() })
	return out
}

// clone deep-copies a record through its JSON form so callers never share
// pointers with the stored value.
func clone[T any, P interface {
	*T
	record
}](r P) (P, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("clone record: %w", err)
	}
	cp := P(new(T))
	if err := json.Unmarshal(raw, cp); err != nil {
		return nil, fmt.Errorf("clone record: %w", err)
	}
	return cp, nil
}
