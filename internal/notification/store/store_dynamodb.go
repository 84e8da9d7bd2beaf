package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"bloodlink/internal/notification/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// DynamoDBAPI is the subset of the DynamoDB client the store calls.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDBStore keeps notifications in a table keyed by
// recipient_id (partition) and notification_id (sort).
type DynamoDBStore struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoDB(client DynamoDBAPI, tableName string) *DynamoDBStore {
	return &DynamoDBStore{client: client, tableName: tableName}
}

type notificationItem struct {
	RecipientID     string `dynamodbav:"recipient_id"`
	NotificationID  string `dynamodbav:"notification_id"`
	Type            string `dynamodbav:"type"`
	Title           string `dynamodbav:"title"`
	Message         string `dynamodbav:"message"`
	RelatedEntityID string `dynamodbav:"related_entity_id,omitempty"`
	Read            bool   `dynamodbav:"read"`
	CreatedAt       string `dynamodbav:"created_at"`
}

func toItem(n *models.Notification) notificationItem {
	return notificationItem{
		RecipientID:     n.RecipientID.String(),
		NotificationID:  n.ID.String(),
		Type:            string(n.Type),
		Title:           n.Title,
		Message:         n.Message,
		RelatedEntityID: n.RelatedEntityID,
		Read:            n.Read,
		CreatedAt:       n.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (it notificationItem) toModel() (*models.Notification, error) {
	notificationID, err := id.ParseNotificationID(it.NotificationID)
	if err != nil {
		return nil, err
	}
	recipient, err := id.ParseUserID(it.RecipientID)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &models.Notification{
		ID:              notificationID,
		RecipientID:     recipient,
		Type:            models.Type(it.Type),
		Title:           it.Title,
		Message:         it.Message,
		RelatedEntityID: it.RelatedEntityID,
		Read:            it.Read,
		CreatedAt:       createdAt,
	}, nil
}

func (s *DynamoDBStore) key(notificationID id.NotificationID, recipient id.UserID) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		"recipient_id":    &dynamodbtypes.AttributeValueMemberS{Value: recipient.String()},
		"notification_id": &dynamodbtypes.AttributeValueMemberS{Value: notificationID.String()},
	}
}

func (s *DynamoDBStore) Create(ctx context.Context, n *models.Notification) error {
	item, err := attributevalue.MarshalMap(toItem(n))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(notification_id)"),
	})
	if err != nil {
		var ccf *dynamodbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

// ListByRecipient pages through the recipient's partition and returns newest
// first. The sort key is a random UUID, so ordering happens client side.
func (s *DynamoDBStore) ListByRecipient(ctx context.Context, recipient id.UserID, unreadOnly bool) ([]*models.Notification, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":rid": &dynamodbtypes.AttributeValueMemberS{Value: recipient.String()},
		},
	}
	if unreadOnly {
		input.FilterExpression = aws.String("#read = :false")
		input.ExpressionAttributeNames = map[string]string{"#read": "read"}
		input.ExpressionAttributeValues[":false"] = &dynamodbtypes.AttributeValueMemberBOOL{Value: false}
	}

	var out []*models.Notification
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query notifications: %w", err)
		}
		var items []notificationItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal notifications: %w", err)
		}
		for _, it := range items {
			n, err := it.toModel()
			if err != nil {
				return nil, fmt.Errorf("decode notification: %w", err)
			}
			out = append(out, n)
		}
		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *DynamoDBStore) MarkRead(ctx context.Context, notificationID id.NotificationID, recipient id.UserID) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.tableName),
		Key:                      s.key(notificationID, recipient),
		UpdateExpression:         aws.String("SET #read = :true"),
		ConditionExpression:      aws.String("attribute_exists(notification_id)"),
		ExpressionAttributeNames: map[string]string{"#read": "read"},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":true": &dynamodbtypes.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		var ccf *dynamodbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
