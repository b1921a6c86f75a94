package types

import (
	"container/list"
	"sync"
)

// MetricList is the hand-off buffer between sources and the sinks manager.
// Parsers append to it, the manager drains it.
type MetricList struct {
	sync.RWMutex
	L *list.List
}

func NewMetricList() *MetricList {
	return &MetricList{L: list.New()}
}

func (l *MetricList) PushFront(m *Metric) *list.Element {
	l.Lock()
	e := l.L.PushFront(m)
	l.Unlock()
	return e
}

func (l *MetricList) PushFrontBatch(ms []*Metric) {
	l.Lock()
	for i := 0; i < len(ms); i++ {
		l.L.PushFront(ms[i])
	}
	l.Unlock()
}

func (l *MetricList) PopBack() *Metric {
	l.Lock()
	defer l.Unlock()

	elem := l.L.Back()
	if elem == nil {
		return nil
	}

	item := l.L.Remove(elem)
	m, ok := item.(*Metric)
	if !ok {
		return nil
	}
	return m
}

func (l *MetricList) PopBackAll() []*Metric {
	l.Lock()
	defer l.Unlock()

	count := l.L.Len()
	if count == 0 {
		return []*Metric{}
	}

	items := make([]*Metric, 0, count)
	for i := 0; i < count; i++ {
		item := l.L.Remove(l.L.Back())
		m, ok := item.(*Metric)
		if ok {
			items = append(items, m)
		}
	}
	return items
}

func (l *MetricList) Len() int {
	l.RLock()
	defer l.RUnlock()
	return l.L.Len()
}
