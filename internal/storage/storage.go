package storage

// Sink receives records one at a time. Flush returns once every record
// written so far is durable.
type Sink interface {
	Write(value interface{}) error
	Flush() error
	Close() error
}

// DiscardSink drops every record.
type DiscardSink struct{}

func (DiscardSink) Write(interface{}) error { return nil }
func (DiscardSink) Flush() error            { return nil }
func (DiscardSink) Close() error            { return nil }
