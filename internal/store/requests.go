package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"densiview/internal/domain"
)

const requestKeyPrefix = "requests:"

// SaveRequest persists one diagnostic request.
func (s *Store) SaveRequest(req domain.DiagnosticRequest) error {
	if req.ID == "" {
		return fmt.Errorf("request has no id")
	}
	return s.Set(requestKeyPrefix+req.ID, req)
}

// LoadRequest reads one request by id.
func (s *Store) LoadRequest(id string) (domain.DiagnosticRequest, error) {
	var req domain.DiagnosticRequest
	if err := s.Get(requestKeyPrefix+id, &req); err != nil {
		return domain.DiagnosticRequest{}, err
	}
	return req, nil
}

// LoadRequests returns all stored requests, newest first.
func (s *Store) LoadRequests() ([]domain.DiagnosticRequest, error) {
	keys, err := s.Keys(requestKeyPrefix)
	if err != nil {
		return nil, err
	}

	requests := make([]domain.DiagnosticRequest, 0, len(keys))
	for _, key := range keys {
		var req domain.DiagnosticRequest
		if err := s.Get(key, &req); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		requests = append(requests, req)
	}

	sort.Slice(requests, func(i, j int) bool {
		return requests[i].Timestamp.After(requests[j].Timestamp)
	})
	return requests, nil
}

// DeleteRequest removes one request by id.
func (s *Store) DeleteRequest(id string) error {
	return s.Delete(requestKeyPrefix + id)
}

// DeleteOlderThan removes requests whose timestamp predates the cutoff age
// and returns how many were deleted. Used by age-based retention cleanup.
func (s *Store) DeleteOlderThan(age time.Duration) (int, error) {
	requests, err := s.LoadRequests()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-age)
	deleted := 0
	for _, req := range requests {
		if req.Timestamp.Before(cutoff) {
			if err := s.DeleteRequest(req.ID); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}
