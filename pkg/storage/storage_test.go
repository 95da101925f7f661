package storage

import (
	"sync"
	"testing"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestObjectStorageTestSuite(t *testing.T) {
	suite.Run(t, new(ObjectStorageTestSuite))
}

type ObjectStorageTestSuite struct {
	suite.Suite
	objectStorage *localStorage[dto.Payload]
	object        dto.Payload
}

func (s *ObjectStorageTestSuite) SetupTest() {
	s.objectStorage = NewLocalStorage[dto.Payload]()
	s.object = dto.Payload{Brand: "Veloretti", Color: "green"}
}

func (s *ObjectStorageTestSuite) TestNeverCreatedObjectIsNotFound() {
	for _, id := range []dto.ResourceID{0, 1, -1, dto.MaxSafeInteger} {
		_, err := s.objectStorage.Get(id)
		s.ErrorIs(err, ErrNotFound)
	}
}

func (s *ObjectStorageTestSuite) TestCreatedObjectCanBeRetrieved() {
	s.Require().NoError(s.objectStorage.Create(1, s.object))
	retrievedObject, err := s.objectStorage.Get(1)
	s.Require().NoError(err)
	s.Equal(s.object, retrievedObject)
}

func (s *ObjectStorageTestSuite) TestCreateDoesNotOverwrite() {
	s.Require().NoError(s.objectStorage.Create(1, s.object))
	err := s.objectStorage.Create(1, dto.Payload{Brand: "Batavus", Color: "yellow"})
	s.ErrorIs(err, ErrAlreadyExists)

	retrievedObject, err := s.objectStorage.Get(1)
	s.Require().NoError(err)
	s.Equal(s.object, retrievedObject)
}

func (s *ObjectStorageTestSuite) TestUpdateReplacesObject() {
	otherObject := dto.Payload{Brand: "Batavus", Color: "yellow"}
	s.Require().NoError(s.objectStorage.Create(1, s.object))
	s.Require().NoError(s.objectStorage.Update(1, otherObject))

	retrievedObject, err := s.objectStorage.Get(1)
	s.Require().NoError(err)
	s.Equal(otherObject, retrievedObject)
	s.Equal(uint(1), s.objectStorage.Length())
}

func (s *ObjectStorageTestSuite) TestUpdateOfMissingObjectFailsAndChangesNothing() {
	s.Require().NoError(s.objectStorage.Create(1, s.object))
	err := s.objectStorage.Update(2, s.object)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.objectStorage.Get(2)
	s.ErrorIs(err, ErrNotFound)
	s.Equal(uint(1), s.objectStorage.Length())
	s.Equal([]dto.Payload{s.object}, s.objectStorage.List())
}

func (s *ObjectStorageTestSuite) TestDeletedObjectsAreNotAccessible() {
	s.Require().NoError(s.objectStorage.Create(1, s.object))
	s.Require().NoError(s.objectStorage.Delete(1))
	_, err := s.objectStorage.Get(1)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ObjectStorageTestSuite) TestDeleteOfMissingObjectFails() {
	s.ErrorIs(s.objectStorage.Delete(1), ErrNotFound)

	s.Require().NoError(s.objectStorage.Create(1, s.object))
	s.Require().NoError(s.objectStorage.Delete(1))
	s.ErrorIs(s.objectStorage.Delete(1), ErrNotFound)
}

func (s *ObjectStorageTestSuite) TestLocalStorage_List() {
	s.Require().NoError(s.objectStorage.Create(1, s.object))
	s.Require().NoError(s.objectStorage.Create(2, dto.Payload{Brand: "Batavus", Color: "yellow"}))
	retrievedObjects := s.objectStorage.List()
	s.Len(retrievedObjects, 2)
	s.Contains(retrievedObjects, s.object)
}

func (s *ObjectStorageTestSuite) TestLenChangesOnStoreContentChange() {
	s.Run("len of empty storage is zero", func() {
		s.Equal(uint(0), s.objectStorage.Length())
	})

	s.Run("len increases when object is created", func() {
		s.Require().NoError(s.objectStorage.Create(1, s.object))
		s.Equal(uint(1), s.objectStorage.Length())
	})

	s.Run("len does not increase when object is updated", func() {
		s.Require().NoError(s.objectStorage.Update(1, s.object))
		s.Equal(uint(1), s.objectStorage.Length())
	})

	s.Run("len decreases when object is deleted", func() {
		s.Require().NoError(s.objectStorage.Delete(1))
		s.Equal(uint(0), s.objectStorage.Length())
	})
}

func (s *ObjectStorageTestSuite) TestNextIDIsNeverReused() {
	first, err := s.objectStorage.NextID()
	s.Require().NoError(err)
	second, err := s.objectStorage.NextID()
	s.Require().NoError(err)
	s.NotEqual(first, second)

	s.Require().NoError(s.objectStorage.Create(second, s.object))
	s.Require().NoError(s.objectStorage.Delete(second))
	third, err := s.objectStorage.NextID()
	s.Require().NoError(err)
	s.NotContains([]dto.ResourceID{first, second}, third)
}

func (s *ObjectStorageTestSuite) TestNextIDSkipsExplicitlyCreatedIDs() {
	for _, id := range []dto.ResourceID{1, 2, 4} {
		s.Require().NoError(s.objectStorage.Create(id, s.object))
	}
	id, err := s.objectStorage.NextID()
	s.Require().NoError(err)
	s.Equal(dto.ResourceID(3), id)
	s.NoError(s.objectStorage.Create(id, s.object))

	id, err = s.objectStorage.NextID()
	s.Require().NoError(err)
	s.Equal(dto.ResourceID(5), id)
}

func (s *ObjectStorageTestSuite) TestNextIDIsNotBlockedByLargestSafeID() {
	s.Require().NoError(s.objectStorage.Create(dto.MaxSafeInteger, s.object))
	id, err := s.objectStorage.NextID()
	s.Require().NoError(err)
	s.NotEqual(dto.ResourceID(dto.MaxSafeInteger), id)
	s.NoError(s.objectStorage.Create(id, s.object))
}

func (s *ObjectStorageTestSuite) TestNextIDSkipsDeletedExplicitIDs() {
	s.Require().NoError(s.objectStorage.Create(1, s.object))
	s.Require().NoError(s.objectStorage.Delete(1))
	id, err := s.objectStorage.NextID()
	s.Require().NoError(err)
	s.Equal(dto.ResourceID(2), id)
}

func (s *ObjectStorageTestSuite) TestNextIDContinuesWithNonPositiveIDs() {
	s.objectStorage.cursor = positionOf(dto.MaxSafeInteger)
	s.Require().NoError(s.objectStorage.Create(0, s.object))
	id, err := s.objectStorage.NextID()
	s.Require().NoError(err)
	s.Equal(dto.ResourceID(-1), id)
}

func (s *ObjectStorageTestSuite) TestNextIDFailsWhenIDSpaceIsExhausted() {
	s.objectStorage.cursor = lastIssuePosition - 2
	s.Require().NoError(s.objectStorage.Create(-dto.MaxSafeInteger, s.object))
	id, err := s.objectStorage.NextID()
	s.Require().NoError(err)
	s.Equal(dto.ResourceID(-dto.MaxSafeInteger+1), id)

	_, err = s.objectStorage.NextID()
	s.ErrorIs(err, ErrIDSpaceExhausted)
}

func TestIssuePositionRoundTrip(t *testing.T) {
	for _, id := range []dto.ResourceID{1, 2, dto.MaxSafeInteger, 0, -1, -dto.MaxSafeInteger} {
		assert.Equal(t, id, positionOf(id).id())
	}
	assert.Equal(t, lastIssuePosition, positionOf(-dto.MaxSafeInteger))
	assert.Less(t, positionOf(dto.MaxSafeInteger), positionOf(0))
}

func (s *ObjectStorageTestSuite) TestStoragesDoNotShareIDSequences() {
	otherStorage := NewLocalStorage[dto.Payload]()
	id, err := s.objectStorage.NextID()
	s.Require().NoError(err)
	otherID, err := otherStorage.NextID()
	s.Require().NoError(err)
	s.Equal(id, otherID)
}

func (s *ObjectStorageTestSuite) TestConcurrentCreatesOfSameIDOnlyOneSucceeds() {
	const racers = 16
	results := make(chan error, racers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- s.objectStorage.Create(7, s.object)
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, ErrAlreadyExists)
		}
	}
	s.Equal(1, succeeded)
}

func (s *ObjectStorageTestSuite) TestConcurrentNextIDsAreUnique() {
	const issuers = 32
	ids := make(chan dto.ResourceID, issuers)
	var wg sync.WaitGroup
	for i := 0; i < issuers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.objectStorage.NextID()
			s.NoError(err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[dto.ResourceID]bool)
	for id := range ids {
		s.False(seen[id], "id %d was issued twice", id)
		seen[id] = true
	}
	s.Len(seen, issuers)
}

func TestNewMonitoredLocalStorage_Callback(t *testing.T) {
	callbackCalls := 0
	callbackAdditions := 0
	callbackUpdates := 0
	callbackDeletions := 0
	objectStorage := NewMonitoredLocalStorage[string]("testMeasurement",
		func(p *write.Point, o string, eventType EventType) {
			callbackCalls++
			switch eventType {
			case Creation:
				callbackAdditions++
			case Update:
				callbackUpdates++
			case Deletion:
				callbackDeletions++
			}
		})

	assertCallbackCounts := func(test func(), totalCalls, additions, updates, deletions int) {
		beforeTotal := callbackCalls
		beforeAdditions := callbackAdditions
		beforeUpdates := callbackUpdates
		beforeDeletions := callbackDeletions
		test()
		assert.Equal(t, beforeTotal+totalCalls, callbackCalls)
		assert.Equal(t, beforeAdditions+additions, callbackAdditions)
		assert.Equal(t, beforeUpdates+updates, callbackUpdates)
		assert.Equal(t, beforeDeletions+deletions, callbackDeletions)
	}

	t.Run("Create", func(t *testing.T) {
		assertCallbackCounts(func() {
			assert.NoError(t, objectStorage.Create(1, "object 1"))
		}, 1, 1, 0, 0)
	})

	t.Run("failed Create", func(t *testing.T) {
		assertCallbackCounts(func() {
			assert.Error(t, objectStorage.Create(1, "object 1"))
		}, 0, 0, 0, 0)
	})

	t.Run("Update", func(t *testing.T) {
		assertCallbackCounts(func() {
			assert.NoError(t, objectStorage.Update(1, "object 1b"))
		}, 1, 0, 1, 0)
	})

	t.Run("Delete", func(t *testing.T) {
		assertCallbackCounts(func() {
			assert.NoError(t, objectStorage.Delete(1))
		}, 1, 0, 0, 1)
	})

	t.Run("failed Delete", func(t *testing.T) {
		assertCallbackCounts(func() {
			assert.Error(t, objectStorage.Delete(1))
		}, 0, 0, 0, 0)
	})

	t.Run("reads are not monitored", func(t *testing.T) {
		assertCallbackCounts(func() {
			_ = objectStorage.List()
			_, _ = objectStorage.Get(1)
			_ = objectStorage.Length()
		}, 0, 0, 0, 0)
	})
}
