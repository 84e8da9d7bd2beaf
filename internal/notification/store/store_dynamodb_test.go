package store

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// fakeDynamo keeps items per partition and honours the condition
// expressions the store sends.
type fakeDynamo struct {
	items    map[string]map[string]map[string]dynamodbtypes.AttributeValue
	lastPage int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]map[string]dynamodbtypes.AttributeValue)}
}

func stringAttr(item map[string]dynamodbtypes.AttributeValue, name string) string {
	if v, ok := item[name].(*dynamodbtypes.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	pk, sk := stringAttr(in.Item, "recipient_id"), stringAttr(in.Item, "notification_id")
	if f.items[pk] == nil {
		f.items[pk] = make(map[string]map[string]dynamodbtypes.AttributeValue)
	}
	if _, exists := f.items[pk][sk]; exists && aws.ToString(in.ConditionExpression) != "" {
		return nil, &dynamodbtypes.ConditionalCheckFailedException{Message: aws.String("exists")}
	}
	f.items[pk][sk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

// Query returns one item per page to exercise pagination.
func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	pk := in.ExpressionAttributeValues[":rid"].(*dynamodbtypes.AttributeValueMemberS).Value
	_, unreadOnly := in.ExpressionAttributeValues[":false"]

	var matched []map[string]dynamodbtypes.AttributeValue
	for _, item := range f.items[pk] {
		if unreadOnly && item["read"].(*dynamodbtypes.AttributeValueMemberBOOL).Value {
			continue
		}
		matched = append(matched, item)
	}

	sort.Slice(matched, func(i, j int) bool {
		return stringAttr(matched[i], "notification_id") < stringAttr(matched[j], "notification_id")
	})

	start := 0
	if in.ExclusiveStartKey != nil {
		start = f.lastPage + 1
	}
	if start >= len(matched) {
		return &dynamodb.QueryOutput{}, nil
	}
	f.lastPage = start
	out := &dynamodb.QueryOutput{Items: matched[start : start+1]}
	if start+1 < len(matched) {
		out.LastEvaluatedKey = map[string]dynamodbtypes.AttributeValue{
			"recipient_id": &dynamodbtypes.AttributeValueMemberS{Value: pk},
		}
	}
	return out, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	pk, sk := stringAttr(in.Key, "recipient_id"), stringAttr(in.Key, "notification_id")
	item, ok := f.items[pk][sk]
	if !ok {
		return nil, &dynamodbtypes.ConditionalCheckFailedException{Message: aws.String("missing")}
	}
	item["read"] = in.ExpressionAttributeValues[":true"]
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestDynamoDBStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeDynamo()
	s := NewDynamoDB(client, "notifications")
	recipient := id.UserID(uuid.New())
	base := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

	older := newNotification(recipient, base)
	older.RelatedEntityID = "match-1"
	newer := newNotification(recipient, base.Add(time.Minute))
	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newer))
	assert.ErrorIs(t, s.Create(ctx, older), sentinel.ErrAlreadyUsed)

	got, err := s.ListByRecipient(ctx, recipient, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
	assert.Equal(t, "match-1", got[1].RelatedEntityID)
	assert.True(t, base.Equal(got[1].CreatedAt))

	require.NoError(t, s.MarkRead(ctx, older.ID, recipient))
	unread, err := s.ListByRecipient(ctx, recipient, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, newer.ID, unread[0].ID)
}

func TestDynamoDBStoreMarkReadMissing(t *testing.T) {
	s := NewDynamoDB(newFakeDynamo(), "notifications")
	err := s.MarkRead(context.Background(), id.NotificationID(uuid.New()), id.UserID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
