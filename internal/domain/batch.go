package domain

import "github.com/ellieayla/logstash-output-loginsight/pkg/cfapi"

// Batch is a group of encoded records delivered in one request.
type Batch struct {
	// ID identifies the delivery in logs and in the X-Request-Id header.
	ID string

	// Records are kept in receive order.
	Records []cfapi.Record
}

// NewBatch creates a batch over records.
func NewBatch(id string, records []cfapi.Record) *Batch {
	return &Batch{ID: id, Records: records}
}

// Size returns the number of records in the batch.
func (b *Batch) Size() int {
	return len(b.Records)
}

// Empty returns true if the batch has no records.
func (b *Batch) Empty() bool {
	return len(b.Records) == 0
}

// Envelope frames the batch for the wire.
func (b *Batch) Envelope() cfapi.Envelope {
	return cfapi.Frame(b.Records)
}

// Chunk splits records into consecutive slices of at most size records.
// A size below one returns a single chunk.
func Chunk(records []cfapi.Record, size int) [][]cfapi.Record {
	if len(records) == 0 {
		return nil
	}
	if size < 1 || len(records) <= size {
		return [][]cfapi.Record{records}
	}
	chunks := make([][]cfapi.Record, 0, (len(records)+size-1)/size)
	for len(records) > 0 {
		n := min(size, len(records))
		chunks = append(chunks, records[:n:n])
		records = records[n:]
	}
	return chunks
}
