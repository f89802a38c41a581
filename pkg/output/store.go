package output

import (
	"context"
	"errors"

	"logship/pkg/index"
	"logship/pkg/metrics"
	"logship/pkg/model"
)

const documentSinkName = "document"

// DocumentStore picks single or bulk delivery from the bulk threshold and
// resolves each record's address from its service tag.
type DocumentStore struct {
	builder *index.Builder
	sink    *DocumentSink
	metrics *metrics.Metrics
}

func NewDocumentStore(builder *index.Builder, sink *DocumentSink, m *metrics.Metrics) *DocumentStore {
	if sink == nil {
		sink = NewDocumentSink(0)
	}
	return &DocumentStore{builder: builder, sink: sink, metrics: m}
}

// BufferSize returns the configured bulk threshold.
func (s *DocumentStore) BufferSize() int {
	return s.builder.Settings().BufferSize
}

// Add delivers records. With a bulk threshold of 1 or less every record is a
// separate POST addressed by its own service tag; all are attempted and the
// returned error joins every failure. Otherwise the whole batch is one bulk
// POST, addressed by the service tag of its last record.
func (s *DocumentStore) Add(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	if s.builder.Settings().Bulk() {
		addr := s.builder.Resolve(records[len(records)-1].Service)
		if err := s.sink.SendBulk(ctx, addr, records); err != nil {
			s.metrics.DeliveryFailed(documentSinkName, len(records))
			return err
		}
		s.metrics.Delivered(documentSinkName, len(records))
		return nil
	}

	var errs []error
	for _, rec := range records {
		if err := s.sink.Send(ctx, s.builder.Resolve(rec.Service), rec); err != nil {
			s.metrics.DeliveryFailed(documentSinkName, 1)
			errs = append(errs, err)
			continue
		}
		s.metrics.Delivered(documentSinkName, 1)
	}
	return errors.Join(errs...)
}
