package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/models"
)

const (
	ledgerPK        = "LEDGER"
	ledgerCounterSK = "COUNTER"
	ledgerTxPrefix  = "TX#"
)

type transactionItem struct {
	PK        string    `dynamodbav:"PK"`
	SK        string    `dynamodbav:"SK"`
	ID        int64     `dynamodbav:"ID"`
	Type      string    `dynamodbav:"Type"`
	Amount    string    `dynamodbav:"Amount"`
	Status    string    `dynamodbav:"Status"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
	Method    string    `dynamodbav:"Method,omitempty"`
	Phone     string    `dynamodbav:"Phone,omitempty"`
	Reference string    `dynamodbav:"Reference,omitempty"`
	Asset     string    `dynamodbav:"Asset,omitempty"`
	Address   string    `dynamodbav:"Address,omitempty"`
	TxID      string    `dynamodbav:"TxID,omitempty"`
}

// ledgerSK zero-pads the id so lexical sort key order equals id order.
func ledgerSK(id int64) string {
	return fmt.Sprintf("%s%020d", ledgerTxPrefix, id)
}

func toTransactionItem(tx *models.Transaction) transactionItem {
	return transactionItem{
		PK:        ledgerPK,
		SK:        ledgerSK(tx.ID),
		ID:        tx.ID,
		Type:      string(tx.Type),
		Amount:    tx.Amount.String(),
		Status:    string(tx.Status),
		CreatedAt: tx.CreatedAt,
		Method:    tx.Method,
		Phone:     tx.Phone,
		Reference: tx.Reference,
		Asset:     tx.Asset,
		Address:   tx.Address,
		TxID:      tx.TxID,
	}
}

func (it transactionItem) toModel() (models.Transaction, error) {
	amount, err := decimal.NewFromString(it.Amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid amount %q on transaction %d: %w", it.Amount, it.ID, err)
	}
	return models.Transaction{
		ID:        it.ID,
		Type:      models.TransactionType(it.Type),
		Amount:    amount,
		Status:    models.TransactionStatus(it.Status),
		CreatedAt: it.CreatedAt,
		Method:    it.Method,
		Phone:     it.Phone,
		Reference: it.Reference,
		Asset:     it.Asset,
		Address:   it.Address,
		TxID:      it.TxID,
	}, nil
}

// DynamoTransactionStore keeps the ledger in one partition. The counter item
// and each transaction are written in one TransactWriteItems call guarded by
// the counter value that was read, so ids are unique and a failed write
// never consumes one.
type DynamoTransactionStore struct {
	client    DynamoDBAPI
	tableName string
	logger    *logrus.Logger
}

func NewDynamoTransactionStore(client DynamoDBAPI, tableName string, logger *logrus.Logger) *DynamoTransactionStore {
	return &DynamoTransactionStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func counterKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: ledgerPK},
		"SK": &types.AttributeValueMemberS{Value: ledgerCounterSK},
	}
}

func (r *DynamoTransactionStore) currentSeq(ctx context.Context) (int64, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            counterKey(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger counter: %w", err)
	}

	seq, ok := out.Item["Seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(seq.Value, 10, 64)
}

// counterUpdate moves Seq from cur to cur+1 and fails if another writer
// moved it first.
func (r *DynamoTransactionStore) counterUpdate(cur int64) *types.Update {
	values := map[string]types.AttributeValue{
		":next": &types.AttributeValueMemberN{Value: strconv.FormatInt(cur+1, 10)},
	}
	condition := "attribute_not_exists(Seq)"
	if cur > 0 {
		condition = "Seq = :cur"
		values[":cur"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(cur, 10)}
	}

	return &types.Update{
		TableName:                 aws.String(r.tableName),
		Key:                       counterKey(),
		UpdateExpression:          aws.String("SET Seq = :next"),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeValues: values,
	}
}

// isWriteConflict reports whether a transaction was cancelled only because
// another writer got there first.
func isWriteConflict(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		switch aws.ToString(reason.Code) {
		case "", "None", "ConditionalCheckFailed", "TransactionConflict":
		default:
			return false
		}
	}
	return true
}

func (r *DynamoTransactionStore) Append(ctx context.Context, tx *models.Transaction) error {
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		cur, err := r.currentSeq(ctx)
		if err != nil {
			r.logger.WithError(err).Error("Failed to allocate transaction id")
			return err
		}

		candidate := *tx
		candidate.ID = cur + 1

		item, err := attributevalue.MarshalMap(toTransactionItem(&candidate))
		if err != nil {
			return fmt.Errorf("failed to marshal transaction: %w", err)
		}

		_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Update: r.counterUpdate(cur)},
				{Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				}},
			},
		})
		if isWriteConflict(err) {
			continue
		}
		if err != nil {
			r.logger.WithError(err).WithField("id", candidate.ID).Error("Failed to store transaction in DynamoDB")
			return fmt.Errorf("failed to store transaction: %w", err)
		}

		tx.ID = candidate.ID
		return nil
	}

	r.logger.WithField("attempts", maxAppendAttempts).Warn("Gave up appending transaction after repeated conflicts")
	return ErrLedgerConflict
}

func (r *DynamoTransactionStore) query(ctx context.Context, input *dynamodb.QueryInput) ([]models.Transaction, error) {
	var txs []models.Transaction
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query ledger: %w", err)
		}

		var items []transactionItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
		}
		for _, it := range items {
			tx, err := it.toModel()
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (r *DynamoTransactionStore) ledgerQuery() *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: ledgerPK},
			":prefix": &types.AttributeValueMemberS{Value: ledgerTxPrefix},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	}
}

func (r *DynamoTransactionStore) List(ctx context.Context) ([]models.Transaction, error) {
	txs, err := r.query(ctx, r.ledgerQuery())
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// FindByReference filters the ledger partition server-side. References are
// not indexed since the ledger is small and lookups are rare.
func (r *DynamoTransactionStore) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	input := r.ledgerQuery()
	input.FilterExpression = aws.String("Reference = :ref")
	input.ExpressionAttributeValues[":ref"] = &types.AttributeValueMemberS{Value: reference}

	txs, err := r.query(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrTransactionNotFound
	}
	return &txs[0], nil
}
