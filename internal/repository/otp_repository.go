package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/models"
)

type otpItem struct {
	PK        string    `dynamodbav:"PK"`
	SK        string    `dynamodbav:"SK"`
	Phone     string    `dynamodbav:"Phone"`
	CodeHash  string    `dynamodbav:"CodeHash"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
	TTL       int64     `dynamodbav:"TTL,omitempty"`
}

// DynamoOTPStore keeps OTP records in the single application table under
// OTP#<phone>.
type DynamoOTPStore struct {
	client    DynamoDBAPI
	tableName string
	retention time.Duration
	logger    *logrus.Logger
}

func NewDynamoOTPStore(client DynamoDBAPI, tableName string, retention time.Duration, logger *logrus.Logger) *DynamoOTPStore {
	return &DynamoOTPStore{
		client:    client,
		tableName: tableName,
		retention: retention,
		logger:    logger,
	}
}

func otpItemKey(phone string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("OTP#%s", phone)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// Put stores the record. The TTL attribute is only written when a retention
// is configured.
func (r *DynamoOTPStore) Put(ctx context.Context, rec models.OTPRecord) error {
	it := otpItem{
		PK:        fmt.Sprintf("OTP#%s", rec.Phone),
		SK:        "METADATA",
		Phone:     rec.Phone,
		CodeHash:  rec.CodeHash,
		CreatedAt: rec.CreatedAt,
	}
	if r.retention > 0 {
		it.TTL = rec.CreatedAt.Add(r.retention).Unix()
	}

	item, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to store OTP in DynamoDB")
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	return nil
}

func (r *DynamoOTPStore) Get(ctx context.Context, phone string) (*models.OTPRecord, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            otpItemKey(phone),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}

	if result.Item == nil {
		return nil, ErrOTPNotFound
	}

	var it otpItem
	if err := attributevalue.UnmarshalMap(result.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OTP data: %w", err)
	}

	return &models.OTPRecord{
		Phone:     it.Phone,
		CodeHash:  it.CodeHash,
		CreatedAt: it.CreatedAt,
	}, nil
}

// ConsumeIf deletes conditionally on the hash that was checked. Every Put
// produces a freshly salted hash, so a matching hash means the record was not
// replaced in between.
func (r *DynamoOTPStore) ConsumeIf(ctx context.Context, phone string, check func(models.OTPRecord) bool) (bool, error) {
	for attempt := 0; attempt < maxConsumeAttempts; attempt++ {
		rec, err := r.Get(ctx, phone)
		if errors.Is(err, ErrOTPNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if !check(*rec) {
			return true, nil
		}

		_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:           aws.String(r.tableName),
			Key:                 otpItemKey(phone),
			ConditionExpression: aws.String("CodeHash = :hash"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":hash": &types.AttributeValueMemberS{Value: rec.CodeHash},
			},
		})
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			r.logger.WithField("phone", phone).Debug("OTP changed during consume, retrying")
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to delete OTP: %w", err)
		}
		return true, nil
	}

	return false, ErrConsumeConflict
}
