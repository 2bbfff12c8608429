package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"byom-relay/internal/domain"
)

const (
	pkPrefixUser = "USER#"
	skProvider   = "PROVIDER#"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Client wraps a DynamoDB table holding one provider config per user.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// userPK returns the DynamoDB partition key for a user.
func userPK(userID string) string {
	return pkPrefixUser + userID
}

func itemKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: skProvider},
	}
}

// Upsert writes or replaces the provider config for userID.
func (c *Client) Upsert(ctx context.Context, userID string, kind domain.ProviderKind, cfg domain.ProviderConfig) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("repository: Upsert: userID is required")
	}
	cfg.Kind = kind

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: providerItem(domain.ProviderRecord{
			UserID:    userID,
			Config:    cfg,
			UpdatedAt: c.now().UTC(),
		}),
	})
	if err != nil {
		return fmt.Errorf("repository: Upsert: %w", err)
	}
	return nil
}

// FetchOne returns the stored provider record for userID, if any.
func (c *Client) FetchOne(ctx context.Context, userID string) (domain.ProviderRecord, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ProviderRecord{}, false, nil
	}

	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            itemKey(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.ProviderRecord{}, false, fmt.Errorf("repository: FetchOne get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ProviderRecord{}, false, nil
	}

	rec, err := itemToRecord(out.Item)
	if err != nil {
		return domain.ProviderRecord{}, false, fmt.Errorf("repository: FetchOne unmarshal: %w", err)
	}
	return rec, true, nil
}

// Delete removes the provider record for userID and reports whether one existed.
func (c *Client) Delete(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}

	out, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(c.tableName),
		Key:          itemKey(userID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("repository: Delete: %w", err)
	}
	return out != nil && len(out.Attributes) > 0, nil
}

func providerItem(rec domain.ProviderRecord) map[string]types.AttributeValue {
	item := itemKey(rec.UserID)
	item["userId"] = &types.AttributeValueMemberS{Value: rec.UserID}
	item["provider"] = &types.AttributeValueMemberS{Value: string(rec.Config.Kind)}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: rec.UpdatedAt.Format(time.RFC3339)}
	// Empty strings are skipped so optional fields stay absent rather than blank.
	for key, v := range map[string]string{
		"apiKey":       rec.Config.Secret,
		"model":        rec.Config.Model,
		"endpoint":     rec.Config.Endpoint,
		"systemPrompt": rec.Config.SystemPrompt,
	} {
		if v != "" {
			item[key] = &types.AttributeValueMemberS{Value: v}
		}
	}
	return item
}

// itemToRecord converts a DynamoDB attribute map to a ProviderRecord.
func itemToRecord(item map[string]types.AttributeValue) (domain.ProviderRecord, error) {
	userID, err := strAttr(item, "userId")
	if err != nil {
		return domain.ProviderRecord{}, err
	}
	provider, err := strAttr(item, "provider")
	if err != nil {
		return domain.ProviderRecord{}, err
	}
	kind, ok := domain.ParseProviderKind(provider)
	if !ok {
		return domain.ProviderRecord{}, fmt.Errorf("repository: unknown provider %q", provider)
	}

	rec := domain.ProviderRecord{
		UserID: userID,
		Config: domain.ProviderConfig{Kind: kind},
	}
	rec.Config.Secret, _ = strAttr(item, "apiKey") // optional fields may be absent
	rec.Config.Model, _ = strAttr(item, "model")
	rec.Config.Endpoint, _ = strAttr(item, "endpoint")
	rec.Config.SystemPrompt, _ = strAttr(item, "systemPrompt")
	if ts, err := strAttr(item, "updatedAt"); err == nil {
		if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil {
			rec.UpdatedAt = parsed
		}
	}
	return rec, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
