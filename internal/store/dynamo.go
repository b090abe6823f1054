package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/huangang/taskpulse/backend/internal/config"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoStore keeps the entity table in DynamoDB.
type DynamoStore struct {
	client    DynamoAPI
	table     string
	writeSize int
	getSize   int
}

// OpenDynamo builds a client from the default AWS credential chain, pointed
// at cfg.Endpoint when set (DynamoDB Local).
func OpenDynamo(ctx context.Context, cfg config.StoreConfig) (*DynamoStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	s := NewDynamoStore(client, cfg)
	if cfg.CreateTable {
		if err := s.EnsureTable(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func NewDynamoStore(client DynamoAPI, cfg config.StoreConfig) *DynamoStore {
	cfg = withDefaults(cfg)
	return &DynamoStore{
		client:    client,
		table:     cfg.Table,
		writeSize: cfg.BatchWriteSize,
		getSize:   cfg.BatchGetSize,
	}
}

// EnsureTable creates the table and its GSI1 index if they are missing.
func (s *DynamoStore) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", s.table, err)
	}

	str := types.ScalarAttributeTypeS
	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(AttrPK), AttributeType: str},
			{AttributeName: aws.String(AttrSK), AttributeType: str},
			{AttributeName: aws.String(AttrGSI1PK), AttributeType: str},
			{AttributeName: aws.String(AttrGSI1SK), AttributeType: str},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(AttrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(AttrSK), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String(IndexGSI1),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(AttrGSI1PK), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(AttrGSI1SK), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, 2*time.Minute)
}

func (s *DynamoStore) Get(ctx context.Context, key Key) (Item, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       primaryKey(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	return decodeItem(out.Item)
}

func (s *DynamoStore) Put(ctx context.Context, item Item, cond Condition) error {
	if err := checkKeyed(item); err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(map[string]any(item))
	if err != nil {
		return fmt.Errorf("encode item %s: %w", item.Key(), err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: conditionExpression(cond),
	})
	return mapWriteError(err, "put", item.Key())
}

func (s *DynamoStore) Update(ctx context.Context, key Key, fields map[string]any, cond Condition) (Item, error) {
	if err := checkFields(fields); err != nil {
		return nil, err
	}
	expr, names, values, err := updateExpression(fields)
	if err != nil {
		return nil, err
	}

	in := &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.table),
		Key:                      primaryKey(key),
		UpdateExpression:         aws.String(expr),
		ExpressionAttributeNames: names,
		ConditionExpression:      conditionExpression(cond),
		ReturnValues:             types.ReturnValueAllNew,
	}
	if len(values) > 0 {
		in.ExpressionAttributeValues = values
	}

	out, err := s.client.UpdateItem(ctx, in)
	if err := mapWriteError(err, "update", key); err != nil {
		return nil, err
	}
	return decodeItem(out.Attributes)
}

func (s *DynamoStore) Delete(ctx context.Context, key Key, cond Condition) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 primaryKey(key),
		ConditionExpression: conditionExpression(cond),
	})
	return mapWriteError(err, "delete", key)
}

func (s *DynamoStore) BatchGet(ctx context.Context, keys []Key) ([]Item, error) {
	var items []Item
	for _, c := range chunk(keys, s.getSize) {
		request := map[string]types.KeysAndAttributes{
			s.table: {Keys: make([]map[string]types.AttributeValue, 0, len(c))},
		}
		for _, k := range c {
			ka := request[s.table]
			ka.Keys = append(ka.Keys, primaryKey(k))
			request[s.table] = ka
		}

		// UnprocessedKeys is a continuation of the same read, not a failure.
		for len(request) > 0 {
			out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("batch get: %w", err)
			}
			for _, raw := range out.Responses[s.table] {
				item, err := decodeItem(raw)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
			request = out.UnprocessedKeys
		}
	}
	return items, nil
}

func (s *DynamoStore) BatchWrite(ctx context.Context, items []Item, mode WriteMode) error {
	for _, item := range items {
		if err := checkKeyed(item); err != nil {
			return err
		}
	}
	return writeChunks(items, s.writeSize, func(c []Item) error {
		requests := make([]types.WriteRequest, 0, len(c))
		for _, item := range c {
			if mode == WriteDelete {
				requests = append(requests, types.WriteRequest{
					DeleteRequest: &types.DeleteRequest{Key: primaryKey(item.Key())},
				})
				continue
			}
			av, err := attributevalue.MarshalMap(map[string]any(item))
			if err != nil {
				return fmt.Errorf("encode item %s: %w", item.Key(), err)
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: requests},
		})
		if err != nil {
			return err
		}
		if n := len(out.UnprocessedItems[s.table]); n > 0 {
			return fmt.Errorf("%d of %d items unprocessed", n, len(requests))
		}
		return nil
	})
}

func (s *DynamoStore) Query(ctx context.Context, q Query) (*Page, error) {
	pkAttr, skAttr := AttrPK, AttrSK
	in := &dynamodb.QueryInput{TableName: aws.String(s.table)}
	switch q.Index {
	case "":
	case IndexGSI1:
		pkAttr, skAttr = AttrGSI1PK, AttrGSI1SK
		in.IndexName = aws.String(IndexGSI1)
	default:
		return nil, fmt.Errorf("unknown index %q", q.Index)
	}

	keyCond := fmt.Sprintf("%s = :pk", pkAttr)
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: q.Partition},
	}
	if q.SortPrefix != "" {
		keyCond += fmt.Sprintf(" AND begins_with(%s, :sk)", skAttr)
		values[":sk"] = &types.AttributeValueMemberS{Value: q.SortPrefix}
	}
	in.KeyConditionExpression = aws.String(keyCond)
	in.ExpressionAttributeValues = values
	if q.Limit > 0 {
		in.Limit = aws.Int32(int32(q.Limit))
	}
	if q.StartKey != nil {
		in.ExclusiveStartKey = continuationKey(q.StartKey)
	}

	out, err := s.client.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Partition, err)
	}
	return decodePage(out.Items, out.LastEvaluatedKey)
}

func (s *DynamoStore) Scan(ctx context.Context, sc Scan) (*Page, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(s.table)}
	if expr, names, values := filterExpression(sc.Filter); expr != "" {
		in.FilterExpression = aws.String(expr)
		in.ExpressionAttributeNames = names
		if len(values) > 0 {
			in.ExpressionAttributeValues = values
		}
	}
	if sc.Limit > 0 {
		in.Limit = aws.Int32(int32(sc.Limit))
	}
	if sc.StartKey != nil {
		in.ExclusiveStartKey = continuationKey(sc.StartKey)
	}

	out, err := s.client.Scan(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return decodePage(out.Items, out.LastEvaluatedKey)
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	return err
}

func (s *DynamoStore) Close() error { return nil }

func primaryKey(k Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK: &types.AttributeValueMemberS{Value: k.PK},
		AttrSK: &types.AttributeValueMemberS{Value: k.SK},
	}
}

func continuationKey(k *Key) map[string]types.AttributeValue {
	av := primaryKey(*k)
	if k.GSI1PK != "" {
		av[AttrGSI1PK] = &types.AttributeValueMemberS{Value: k.GSI1PK}
	}
	if k.GSI1SK != "" {
		av[AttrGSI1SK] = &types.AttributeValueMemberS{Value: k.GSI1SK}
	}
	return av
}

func keyFromAttributes(av map[string]types.AttributeValue) *Key {
	if len(av) == 0 {
		return nil
	}
	str := func(name string) string {
		if v, ok := av[name].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
		return ""
	}
	return &Key{PK: str(AttrPK), SK: str(AttrSK), GSI1PK: str(AttrGSI1PK), GSI1SK: str(AttrGSI1SK)}
}

func decodeItem(av map[string]types.AttributeValue) (Item, error) {
	var item Item
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return item, nil
}

func decodePage(raw []map[string]types.AttributeValue, last map[string]types.AttributeValue) (*Page, error) {
	page := &Page{Items: make([]Item, 0, len(raw)), LastKey: keyFromAttributes(last)}
	for _, av := range raw {
		item, err := decodeItem(av)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func conditionExpression(cond Condition) *string {
	switch cond {
	case MustExist:
		return aws.String("attribute_exists(PK)")
	case MustNotExist:
		return aws.String("attribute_not_exists(PK)")
	default:
		return nil
	}
}

func mapWriteError(err error, op string, key Key) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrPreconditionFailed
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}

// updateExpression renders fields as SET/REMOVE clauses. Names are always
// aliased so attribute names never collide with reserved words.
func updateExpression(fields map[string]any) (string, map[string]string, map[string]types.AttributeValue, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var sets, removes []string
	exprNames := make(map[string]string, len(names))
	values := make(map[string]types.AttributeValue)
	for i, name := range names {
		alias := fmt.Sprintf("#f%d", i)
		exprNames[alias] = name
		if fields[name] == nil {
			removes = append(removes, alias)
			continue
		}
		av, err := attributevalue.Marshal(fields[name])
		if err != nil {
			return "", nil, nil, fmt.Errorf("encode field %s: %w", name, err)
		}
		placeholder := fmt.Sprintf(":v%d", i)
		values[placeholder] = av
		sets = append(sets, fmt.Sprintf("%s = %s", alias, placeholder))
	}

	var parts []string
	if len(sets) > 0 {
		parts = append(parts, "SET "+strings.Join(sets, ", "))
	}
	if len(removes) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(removes, ", "))
	}
	if len(parts) == 0 {
		return "", nil, nil, errors.New("store: update has no fields")
	}
	return strings.Join(parts, " "), exprNames, values, nil
}

func filterExpression(f Filter) (string, map[string]string, map[string]types.AttributeValue) {
	eqNames := make([]string, 0, len(f.Equals))
	for name := range f.Equals {
		eqNames = append(eqNames, name)
	}
	sort.Strings(eqNames)

	var clauses []string
	names := make(map[string]string)
	values := make(map[string]types.AttributeValue)
	for i, name := range eqNames {
		alias, placeholder := fmt.Sprintf("#e%d", i), fmt.Sprintf(":e%d", i)
		names[alias] = name
		values[placeholder] = &types.AttributeValueMemberS{Value: f.Equals[name]}
		clauses = append(clauses, fmt.Sprintf("%s = %s", alias, placeholder))
	}
	for i, name := range f.Exists {
		alias := fmt.Sprintf("#x%d", i)
		names[alias] = name
		clauses = append(clauses, fmt.Sprintf("attribute_exists(%s)", alias))
	}
	if len(clauses) == 0 {
		return "", nil, nil
	}
	return strings.Join(clauses, " AND "), names, values
}
