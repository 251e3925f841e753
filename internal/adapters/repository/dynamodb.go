package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/okian/sitelog/internal/domain/record"
	"github.com/okian/sitelog/pkg/metrics"
	"github.com/shopspring/decimal"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps records in a DynamoDB table with partition key
// domain_session (S) and sort key timestamp (N). Expiry relies on the
// table's TTL setting on the ttl attribute.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoStore binds a table.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// Put implements Store.
func (s *DynamoStore) Put(ctx context.Context, item record.Item) error {
	start := time.Now()
	defer func() {
		metrics.RecordStorePutLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	if _, err := item.Key(); err != nil {
		return fmt.Errorf("dynamodb put: %w", err)
	}
	av, err := toAttributeMap(item)
	if err != nil {
		return fmt.Errorf("dynamodb put: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put into %s: %w", s.table, err)
	}
	return nil
}

// Scan implements Store with a filtered table scan.
func (s *DynamoStore) Scan(ctx context.Context, in ScanInput) (ScanPage, error) {
	if in.From > in.To {
		return ScanPage{}, ErrInvalidRange
	}
	filt := expression.Name(record.AttrTimestamp).Between(expression.Value(in.From), expression.Value(in.To))
	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return ScanPage{}, fmt.Errorf("dynamodb scan: build filter: %w", err)
	}

	req := &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(in.limit())),
	}
	if in.Token != "" {
		k, err := decodeToken(in.Token)
		if err != nil {
			return ScanPage{}, err
		}
		start, err := attributevalue.MarshalMap(tokenKey{DomainSession: k.DomainSession, Timestamp: k.Timestamp})
		if err != nil {
			return ScanPage{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		req.ExclusiveStartKey = start
	}

	out, err := s.client.Scan(ctx, req)
	if err != nil {
		return ScanPage{}, fmt.Errorf("dynamodb scan %s: %w", s.table, err)
	}

	page := ScanPage{Items: make([]record.Item, 0, len(out.Items))}
	for _, av := range out.Items {
		item, err := fromAttributeMap(av)
		if err != nil {
			return ScanPage{}, fmt.Errorf("dynamodb scan: %w", err)
		}
		page.Items = append(page.Items, item)
	}
	if len(out.LastEvaluatedKey) > 0 {
		var k tokenKey
		if err := attributevalue.UnmarshalMap(out.LastEvaluatedKey, &k); err != nil {
			return ScanPage{}, fmt.Errorf("dynamodb scan: last evaluated key: %w", err)
		}
		page.Next = encodeToken(record.Key{DomainSession: k.DomainSession, Timestamp: k.Timestamp})
	}
	return page, nil
}

func toAttributeMap(item record.Item) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		av, err := toAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

// toAttributeValue maps decimals to N so no precision is lost; everything
// else goes through the SDK marshaller.
func toAttributeValue(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return &types.AttributeValueMemberN{Value: x.String()}, nil
	case map[string]any:
		m := make(map[string]types.AttributeValue, len(x))
		for k, e := range x {
			av, err := toAttributeValue(e)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case []any:
		l := make([]types.AttributeValue, len(x))
		for i, e := range x {
			av, err := toAttributeValue(e)
			if err != nil {
				return nil, err
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	default:
		return attributevalue.Marshal(v)
	}
}

func fromAttributeMap(m map[string]types.AttributeValue) (record.Item, error) {
	out := make(record.Item, len(m))
	for k, av := range m {
		v, err := fromAttributeValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func fromAttributeValue(av types.AttributeValue) (any, error) {
	switch x := av.(type) {
	case *types.AttributeValueMemberN:
		return decimal.NewFromString(x.Value)
	case *types.AttributeValueMemberS:
		return x.Value, nil
	case *types.AttributeValueMemberBOOL:
		return x.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(x.Value))
		for k, e := range x.Value {
			v, err := fromAttributeValue(e)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		return m, nil
	case *types.AttributeValueMemberL:
		l := make([]any, len(x.Value))
		for i, e := range x.Value {
			v, err := fromAttributeValue(e)
			if err != nil {
				return nil, err
			}
			l[i] = v
		}
		return l, nil
	case *types.AttributeValueMemberNS:
		l := make([]any, len(x.Value))
		for i, n := range x.Value {
			d, err := decimal.NewFromString(n)
			if err != nil {
				return nil, err
			}
			l[i] = d
		}
		return l, nil
	case *types.AttributeValueMemberSS:
		l := make([]any, len(x.Value))
		for i, s := range x.Value {
			l[i] = s
		}
		return l, nil
	default:
		var v any
		if err := attributevalue.Unmarshal(av, &v); err != nil {
			return nil, fmt.Errorf("unsupported attribute type %T: %w", av, err)
		}
		return v, nil
	}
}
