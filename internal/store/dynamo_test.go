package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	items   map[string]map[string]types.AttributeValue
	getErr  error
	putErr  error
	putSeen []*dynamodb.PutItemInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	key := in.Key["report_date"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putSeen = append(f.putSeen, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	key := in.Item["report_date"].(*types.AttributeValueMemberS).Value
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestAlreadySent_NoRecord(t *testing.T) {
	tr := NewTracker(newFakeDynamo(), "tracking", zerolog.Nop())

	assert.False(t, tr.AlreadySent(context.Background(), "2024-09-16"))
}

func TestAlreadySent_RecordExists(t *testing.T) {
	db := newFakeDynamo()
	tr := NewTracker(db, "tracking", zerolog.Nop())
	tr.MarkSent(context.Background(), "2024-09-16", "msg-123")

	assert.True(t, tr.AlreadySent(context.Background(), "2024-09-16"))
	assert.False(t, tr.AlreadySent(context.Background(), "2024-09-17"))
}

func TestAlreadySent_LookupErrorFailsOpen(t *testing.T) {
	db := newFakeDynamo()
	db.getErr = errors.New("dynamo unavailable")
	tr := NewTracker(db, "tracking", zerolog.Nop())

	assert.False(t, tr.AlreadySent(context.Background(), "2024-09-16"),
		"lookup failure must read as not sent")
}

func TestMarkSent_WritesFullRecord(t *testing.T) {
	db := newFakeDynamo()
	fixed := time.Date(2024, 9, 17, 6, 0, 0, 0, time.UTC)
	tr := NewTracker(db, "tracking", zerolog.Nop()).WithNow(func() time.Time { return fixed })

	tr.MarkSent(context.Background(), "2024-09-16", "msg-123")

	require.Len(t, db.putSeen, 1)
	item := db.putSeen[0].Item
	assert.Equal(t, "2024-09-16", item["report_date"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "sent", item["status"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "msg-123", item["email_message_id"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "2024-09-17T06:00:00Z", item["sent_timestamp"].(*types.AttributeValueMemberS).Value)
}

func TestMarkSent_WriteErrorIsSwallowed(t *testing.T) {
	db := newFakeDynamo()
	db.putErr = errors.New("dynamo unavailable")
	tr := NewTracker(db, "tracking", zerolog.Nop())

	// must not panic or propagate; the email is already out
	tr.MarkSent(context.Background(), "2024-09-16", "msg-123")

	assert.False(t, tr.AlreadySent(context.Background(), "2024-09-16"))
}
