package processor

import (
	"sync"

	"github.com/xhad/studio/internal/models"
)

// Library holds uploaded documents in upload order.
type Library struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]entry
}

type entry struct {
	doc  models.Document
	file *PDF
}

func NewLibrary() *Library {
	return &Library{docs: make(map[string]entry)}
}

func (l *Library) Add(doc models.Document, file *PDF) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.docs[doc.ID]; !ok {
		l.order = append(l.order, doc.ID)
	}
	l.docs[doc.ID] = entry{doc: doc, file: file}
}

func (l *Library) Get(id string) (models.Document, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.docs[id]
	return e.doc, ok
}

// File returns the parsed PDF for rendering.
func (l *Library) File(id string) (*PDF, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.docs[id]
	return e.file, ok && e.file != nil
}

func (l *Library) List() []models.Document {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Document, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.docs[id].doc)
	}
	return out
}

// Select returns the documents with the given ids, or all of them when ids is empty.
func (l *Library) Select(ids []string) []models.Document {
	if len(ids) == 0 {
		return l.List()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		if e, ok := l.docs[id]; ok {
			out = append(out, e.doc)
		}
	}
	return out
}

func (l *Library) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.docs[id]; !ok {
		return false
	}
	delete(l.docs, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}
