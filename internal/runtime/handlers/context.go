package handlers

import (
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
	metadatapkg "github.com/drblury/catalogsync/internal/runtime/metadata"
)

// MessageContext carries a decoded payload with the headers it arrived with.
type MessageContext[T any] struct {
	Payload  T
	UUID     string
	Metadata metadatapkg.Metadata
	Logger   loggingpkg.ServiceLogger
}

// Get retrieves a metadata value by key.
func (c MessageContext[T]) Get(key string) string {
	return c.Metadata.Get(key)
}

// CorrelationID returns the correlation ID from metadata, if present.
func (c MessageContext[T]) CorrelationID() string {
	return c.Metadata.Get(metadatapkg.KeyCorrelationID)
}

// Key returns the partition key the message was published with.
func (c MessageContext[T]) Key() string {
	return c.Metadata.Get(metadatapkg.KeyPartition)
}
