package repository

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

// fakeDynamo understands exactly the expressions the stores issue.
type fakeDynamo struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int

	// beforeDelete runs before a conditional delete is evaluated.
	beforeDelete func()

	// transactErr, when set, fails the next TransactWriteItems call
	// without applying it.
	transactErr error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue), pageSize: 2}
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func str(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func itemKey(key map[string]types.AttributeValue) string {
	return str(key, "PK") + "|" + str(key, "SK")
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := itemKey(in.Item)
	if in.ConditionExpression != nil && *in.ConditionExpression == "attribute_not_exists(PK)" {
		if _, exists := f.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: strPtr("exists")}
		}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.beforeDelete != nil {
		f.beforeDelete()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := itemKey(in.Key)
	if in.ConditionExpression != nil && *in.ConditionExpression == "CodeHash = :hash" {
		cur, ok := f.items[k]
		if !ok || str(cur, "CodeHash") != str(in.ExpressionAttributeValues, ":hash") {
			return nil, &types.ConditionalCheckFailedException{Message: strPtr("changed")}
		}
	}
	delete(f.items, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) transactCondition(in types.TransactWriteItem) (key string, write map[string]types.AttributeValue, ok bool) {
	switch {
	case in.Put != nil:
		key = itemKey(in.Put.Item)
		_, exists := f.items[key]
		return key, in.Put.Item, !exists
	case in.Update != nil:
		if aws.ToString(in.Update.UpdateExpression) != "SET Seq = :next" {
			panic(fmt.Sprintf("fake: unsupported update %q", aws.ToString(in.Update.UpdateExpression)))
		}
		key = itemKey(in.Update.Key)
		cur, exists := f.items[key]
		seq, hasSeq := cur["Seq"].(*types.AttributeValueMemberN)
		switch aws.ToString(in.Update.ConditionExpression) {
		case "attribute_not_exists(Seq)":
			ok = !hasSeq
		case "Seq = :cur":
			want, _ := in.Update.ExpressionAttributeValues[":cur"].(*types.AttributeValueMemberN)
			ok = hasSeq && want != nil && seq.Value == want.Value
		}
		write = map[string]types.AttributeValue{"PK": in.Update.Key["PK"], "SK": in.Update.Key["SK"]}
		if exists {
			for k, v := range cur {
				write[k] = v
			}
		}
		write["Seq"] = in.Update.ExpressionAttributeValues[":next"]
		return key, write, ok
	}
	panic("fake: unsupported transact item")
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.transactErr != nil {
		err := f.transactErr
		f.transactErr = nil
		return nil, err
	}

	keys := make([]string, len(in.TransactItems))
	writes := make([]map[string]types.AttributeValue, len(in.TransactItems))
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, item := range in.TransactItems {
		key, write, ok := f.transactCondition(item)
		keys[i], writes[i] = key, write
		reasons[i].Code = aws.String("None")
		if !ok {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{Message: strPtr("condition failed"), CancellationReasons: reasons}
	}

	for i := range keys {
		f.items[keys[i]] = writes[i]
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk := str(in.ExpressionAttributeValues, ":pk")
	prefix := str(in.ExpressionAttributeValues, ":prefix")

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if str(item, "PK") == pk && strings.HasPrefix(str(item, "SK"), prefix) {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return str(matched[i], "SK") < str(matched[j], "SK") })

	start := 0
	if in.ExclusiveStartKey != nil {
		after := str(in.ExclusiveStartKey, "SK")
		for start < len(matched) && str(matched[start], "SK") <= after {
			start++
		}
	}
	end := start + f.pageSize
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[start:end]

	out := &dynamodb.QueryOutput{}
	if end < len(matched) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"PK": page[len(page)-1]["PK"], "SK": page[len(page)-1]["SK"]}
	}

	ref := str(in.ExpressionAttributeValues, ":ref")
	for _, item := range page {
		if in.FilterExpression != nil && str(item, "Reference") != ref {
			continue
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func strPtr(s string) *string { return &s }
