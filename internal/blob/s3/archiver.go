package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/polyarb/arbot/internal/domain"
)

// OpportunityArchiver implements domain.OpportunityArchiver by serializing
// each detection cycle's opportunities to JSONL and uploading one object per
// cycle at opportunities/YYYY-MM-DD/<cycle>.jsonl.
type OpportunityArchiver struct {
	client *Client
}

// NewOpportunityArchiver creates an archiver writing through the given client.
func NewOpportunityArchiver(client *Client) *OpportunityArchiver {
	return &OpportunityArchiver{client: client}
}

var _ domain.OpportunityArchiver = (*OpportunityArchiver)(nil)

// ArchiveCycle uploads one cycle's opportunities. Empty cycles are skipped so
// quiet periods do not litter the bucket with empty objects.
func (a *OpportunityArchiver) ArchiveCycle(ctx context.Context, cycle int64, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return fmt.Errorf("s3blob: archive cycle %d marshal: %w", cycle, err)
	}

	key := cyclePath(cycle, time.Now().UTC())
	_, err = a.client.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: archive cycle %d upload: %w", cycle, err)
	}

	return nil
}

// cyclePath builds the object key for one cycle, partitioned by UTC date:
//
//	opportunities/2025-01-15/42.jsonl
func cyclePath(cycle int64, now time.Time) string {
	return fmt.Sprintf("opportunities/%s/%d.jsonl", now.Format("2006-01-02"), cycle)
}

// marshalJSONL serialises records as newline-delimited JSON, one compact line
// per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
