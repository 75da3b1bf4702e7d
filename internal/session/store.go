// Package session хранит незавершённое оформление заказа между шагами диалога.
package session

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store ограниченный по размеру и времени жизни кэш состояний, ключ user id
type Store[V any] struct {
	cache *expirable.LRU[int64, V]
}

func New[V any](capacity int, ttl time.Duration) *Store[V] {
	return &Store[V]{cache: expirable.NewLRU[int64, V](capacity, nil, ttl)}
}

// Put заменяет состояние пользователя и продлевает его TTL
func (s *Store[V]) Put(userID int64, v V) {
	s.cache.Add(userID, v)
}

func (s *Store[V]) Get(userID int64) (V, bool) {
	return s.cache.Get(userID)
}

func (s *Store[V]) Delete(userID int64) {
	s.cache.Remove(userID)
}

func (s *Store[V]) Len() int { return s.cache.Len() }
