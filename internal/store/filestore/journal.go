package filestore

import "errors"

type saver interface {
	save() error
}

// journal collects the undo steps and dirty collections of one unit of work.
type journal struct {
	undo  []func()
	dirty []saver
}

func (j *journal) record(s saver, undo func()) {
	j.undo = append(j.undo, undo)
	for _, d := range j.dirty {
		if d == s {
			return
		}
	}
	j.dirty = append(j.dirty, s)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// commit flushes every dirty collection. If a flush fails the in-memory state
// is rolled back and the collections are rewritten from it.
func (j *journal) commit() error {
	var err error
	for _, d := range j.dirty {
		if err = d.save(); err != nil {
			break
		}
	}
	if err == nil {
		return nil
	}
	j.rollback()
	errs := []error{err}
	for _, d := range j.dirty {
		if serr := d.save(); serr != nil {
			errs = append(errs, serr)
		}
	}
	return errors.Join(errs...)
}
