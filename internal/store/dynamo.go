// Package store implements the send-tracking table that deduplicates daily
// cost reports. Lookups fail open: a store hiccup must never suppress a real
// report, at the cost of an occasional duplicate.
package store

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// SendRecord is one tracking row, keyed by report date. Created once per
// date after a successful send; never updated or deleted by this system.
type SendRecord struct {
	ReportDate     string `dynamodbav:"report_date"`
	SentTimestamp  string `dynamodbav:"sent_timestamp"`
	Status         string `dynamodbav:"status"`
	EmailMessageID string `dynamodbav:"email_message_id"`
}

// DynamoAPI is the slice of the DynamoDB client the tracker needs.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type Tracker struct {
	db    DynamoAPI
	table string
	log   zerolog.Logger
	now   func() time.Time
}

func NewTracker(db DynamoAPI, table string, log zerolog.Logger) *Tracker {
	return &Tracker{db: db, table: table, log: log, now: time.Now}
}

// WithNow replaces the clock. Test hook.
func (t *Tracker) WithNow(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// AlreadySent reports whether a record exists for date. Returns true only on
// a confirmed item; absence and lookup failure both read as "not sent", so
// uncertainty leans toward a duplicate send rather than a silent skip.
// Lookup failures are logged and deliberately not retried.
func (t *Tracker) AlreadySent(ctx context.Context, date string) bool {
	out, err := t.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.table),
		Key: map[string]types.AttributeValue{
			"report_date": &types.AttributeValueMemberS{Value: date},
		},
	})
	if err != nil {
		t.log.Error().Str("report_date", date).Err(err).Msg("tracking table lookup failed, assuming not sent")
		return false
	}
	if out.Item == nil {
		return false
	}
	t.log.Info().Str("report_date", date).Msg("report already sent")
	return true
}

// MarkSent records the delivery for date. A write failure is logged and
// swallowed: the email is already out, so losing the marker only risks a
// future duplicate, not a lost notification.
func (t *Tracker) MarkSent(ctx context.Context, date, messageID string) {
	rec := SendRecord{
		ReportDate:     date,
		SentTimestamp:  t.now().UTC().Format(time.RFC3339),
		Status:         "sent",
		EmailMessageID: messageID,
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.log.Error().Str("report_date", date).Err(err).Msg("failed to marshal tracking record")
		return
	}
	if _, err := t.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.table),
		Item:      item,
	}); err != nil {
		t.log.Error().Str("report_date", date).Err(err).Msg("failed to update tracking table")
		return
	}
	t.log.Info().Str("report_date", date).Str("message_id", messageID).Msg("marked as sent")
}
