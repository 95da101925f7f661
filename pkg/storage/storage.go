package storage

import (
	"errors"
	"fmt"
	"sync"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/monitoring"
)

var (
	// ErrNotFound is returned if no object with the requested id is stored.
	ErrNotFound = errors.New("object not found")
	// ErrAlreadyExists is returned if an object with the id to create is already stored.
	ErrAlreadyExists = errors.New("object already exists")
	// ErrIDSpaceExhausted is returned if no unused safe integer is left to be issued as id.
	ErrIDSpaceExhausted = errors.New("no unused id left")
)

// Storage is an interface for storing objects by their id.
// Apart from nil, the methods only return the errors declared in this package.
type Storage[T any] interface {
	// List returns all objects from the storage.
	List() []T

	// Get returns the object with the passed id.
	// It fails with ErrNotFound if no such object exists.
	Get(id dto.ResourceID) (o T, err error)

	// Create stores the object with the passed id.
	// It fails with ErrAlreadyExists if an object with the id is already stored.
	// Of multiple concurrent calls with the same id at most one succeeds.
	Create(id dto.ResourceID, o T) error

	// Update replaces the object with the passed id.
	// It fails with ErrNotFound if no such object exists.
	Update(id dto.ResourceID, o T) error

	// Delete deletes the object with the passed id from the storage.
	// It fails with ErrNotFound if no such object exists.
	Delete(id dto.ResourceID) error

	// NextID returns an id that has never been issued or stored by this storage before.
	// It fails with ErrIDSpaceExhausted only if every safe integer has been issued or stored.
	NextID() (dto.ResourceID, error)

	// Length returns the number of currently stored objects in the storage.
	Length() uint
}

// EventType is an enum type to declare the different causes of a monitoring event.
type EventType string

const (
	Creation EventType = "creation"
	Update   EventType = "update"
	Deletion EventType = "deletion"
)

// WriteCallback is called before an event gets monitored.
type WriteCallback[T any] func(p *write.Point, object T, eventType EventType)

// localStorage stores objects in the local application memory.
type localStorage[T any] struct {
	sync.RWMutex
	objects map[dto.ResourceID]T
	// cursor is the issue position (see issuePosition) of the last id that NextID passed.
	cursor issuePosition
	// reserved holds the explicitly stored ids that NextID has not passed yet.
	reserved    map[dto.ResourceID]struct{}
	measurement string
	callback    WriteCallback[T]
}

// NewLocalStorage responds with a Storage implementation.
// This implementation stores the data thread-safe in the local application memory.
func NewLocalStorage[T any]() *localStorage[T] {
	return &localStorage[T]{
		objects:  make(map[dto.ResourceID]T),
		reserved: make(map[dto.ResourceID]struct{}),
	}
}

// NewMonitoredLocalStorage responds with a Storage implementation.
// All write operations are monitored in the passed measurement.
// Iff callback is set, it will be called on a write operation.
func NewMonitoredLocalStorage[T any](measurement string, callback WriteCallback[T]) *localStorage[T] {
	return &localStorage[T]{
		objects:     make(map[dto.ResourceID]T),
		reserved:    make(map[dto.ResourceID]struct{}),
		measurement: measurement,
		callback:    callback,
	}
}

func (s *localStorage[T]) List() (o []T) {
	s.RLock()
	defer s.RUnlock()
	for _, value := range s.objects {
		o = append(o, value)
	}
	return o
}

func (s *localStorage[T]) Get(id dto.ResourceID) (o T, err error) {
	s.RLock()
	defer s.RUnlock()
	o, ok := s.objects[id]
	if !ok {
		return o, fmt.Errorf("get %d: %w", id, ErrNotFound)
	}
	return o, nil
}

func (s *localStorage[T]) Create(id dto.ResourceID, o T) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.objects[id]; ok {
		return fmt.Errorf("create %d: %w", id, ErrAlreadyExists)
	}
	s.objects[id] = o
	if positionOf(id) > s.cursor {
		s.reserved[id] = struct{}{}
	}
	s.sendMonitoringData(id, o, Creation, s.unsafeLength())
	return nil
}

func (s *localStorage[T]) Update(id dto.ResourceID, o T) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.objects[id]; !ok {
		return fmt.Errorf("update %d: %w", id, ErrNotFound)
	}
	s.objects[id] = o
	s.sendMonitoringData(id, o, Update, s.unsafeLength())
	return nil
}

func (s *localStorage[T]) Delete(id dto.ResourceID) error {
	s.Lock()
	defer s.Unlock()
	o, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("delete %d: %w", id, ErrNotFound)
	}
	delete(s.objects, id)
	s.sendMonitoringData(id, o, Deletion, s.unsafeLength())
	return nil
}

func (s *localStorage[T]) NextID() (dto.ResourceID, error) {
	s.Lock()
	defer s.Unlock()
	for s.cursor < lastIssuePosition {
		s.cursor++
		id := s.cursor.id()
		if _, ok := s.reserved[id]; ok {
			delete(s.reserved, id)
			continue
		}
		return id, nil
	}
	return 0, ErrIDSpaceExhausted
}

func (s *localStorage[T]) Length() uint {
	s.RLock()
	defer s.RUnlock()
	return s.unsafeLength()
}

func (s *localStorage[T]) unsafeLength() uint {
	length := len(s.objects)
	return uint(length)
}

func (s *localStorage[T]) sendMonitoringData(id dto.ResourceID, object T, eventType EventType, count uint) {
	if s.measurement != "" {
		dataPoint := influxdb2.NewPointWithMeasurement(s.measurement)
		dataPoint.AddTag("id", id.ToString())
		dataPoint.AddTag("event_type", string(eventType))
		dataPoint.AddField("count", count)

		if s.callback != nil {
			s.callback(dataPoint, object, eventType)
		}

		monitoring.WriteInfluxPoint(dataPoint)
	}
}

// issuePosition orders the safe integers in the sequence NextID issues them:
// 1, 2, ..., dto.MaxSafeInteger, then 0, -1, ..., -dto.MaxSafeInteger.
type issuePosition int64

const lastIssuePosition issuePosition = 2*dto.MaxSafeInteger + 1

func positionOf(id dto.ResourceID) issuePosition {
	if id > 0 {
		return issuePosition(id)
	}
	return issuePosition(dto.MaxSafeInteger + 1 - id)
}

func (p issuePosition) id() dto.ResourceID {
	if p <= dto.MaxSafeInteger {
		return dto.ResourceID(p)
	}
	return dto.ResourceID(dto.MaxSafeInteger + 1 - p)
}
